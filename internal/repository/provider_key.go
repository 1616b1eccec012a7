package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/storage"
	"gorm.io/gorm"
)

// errAllocationConflict signals that another allocation won the race for
// the selected key between our read and our conditional write.
var errAllocationConflict = errors.New("provider key allocation conflict")

type ProviderKeyRepository struct {
	db *storage.Database
}

func NewProviderKeyRepository(db *storage.Database) *ProviderKeyRepository {
	return &ProviderKeyRepository{db: db}
}

func (r *ProviderKeyRepository) Create(ctx context.Context, key *models.ProviderKey) error {
	return r.db.DB.WithContext(ctx).Create(key).Error
}

// BatchCreate inserts several provider keys at once, skipping duplicates.
func (r *ProviderKeyRepository) BatchCreate(ctx context.Context, keys []string) error {
	records := make([]models.ProviderKey, 0, len(keys))
	for _, k := range keys {
		records = append(records, models.ProviderKey{Key: k})
	}
	if len(records) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&records).Error
}

func (r *ProviderKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProviderKey, error) {
	var key models.ProviderKey
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&key).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &key, err
}

func (r *ProviderKeyRepository) List(ctx context.Context) ([]models.ProviderKey, error) {
	var keys []models.ProviderKey
	err := r.db.DB.WithContext(ctx).
		Order("created_at ASC").
		Find(&keys).Error

	return keys, err
}

func (r *ProviderKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ProviderKey{}).Error
}

func (r *ProviderKeyRepository) CountEligible(ctx context.Context, ceiling int) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.ProviderKey{}).
		Where("rate_limited = ? AND request_count < ?", false, ceiling).
		Count(&count).Error

	return count, err
}

// Allocate picks the least-recently-used eligible key and claims one
// request slot on it. The read and the increment run inside one
// transaction; the increment is conditional on the count we read, so a
// concurrent allocation that beat us simply makes us re-select. Returns
// (nil, nil) when no key has remaining capacity.
func (r *ProviderKeyRepository) Allocate(ctx context.Context, ceiling int) (*models.ProviderKey, error) {
	for {
		var key models.ProviderKey

		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.WithContext(ctx).
				Where("rate_limited = ? AND request_count < ?", false, ceiling).
				Order("last_used_at ASC").
				First(&key).Error; err != nil {
				return err
			}

			now := time.Now().UTC()
			res := tx.WithContext(ctx).
				Model(&models.ProviderKey{}).
				Where("id = ? AND request_count = ? AND rate_limited = ?", key.ID, key.RequestCount, false).
				Updates(map[string]interface{}{
					"request_count": key.RequestCount + 1,
					"rate_limited":  key.RequestCount+1 >= ceiling,
					"last_used_at":  now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errAllocationConflict
			}

			key.RequestCount++
			key.RateLimited = key.RequestCount >= ceiling
			key.LastUsedAt = now
			return nil
		})

		switch {
		case err == nil:
			return &key, nil
		case errors.Is(err, errAllocationConflict):
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil
		default:
			return nil, err
		}
	}
}

// ResetAll zeroes every key's counter and clears the rate-limited flag
// in one bulk statement. Runs inside the same transactional boundary as
// Allocate so a concurrent allocation never sees a half-reset pool.
func (r *ProviderKeyRepository) ResetAll(ctx context.Context) (int64, error) {
	var affected int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).
			Model(&models.ProviderKey{}).
			Where("request_count > 0 OR rate_limited = ?", true).
			Updates(map[string]interface{}{
				"request_count": 0,
				"rate_limited":  false,
			})
		affected = res.RowsAffected
		return res.Error
	})

	return affected, err
}
