package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/storage"
	"gorm.io/gorm"
)

type ProductKeyRepository struct {
	db *storage.Database
}

func NewProductKeyRepository(db *storage.Database) *ProductKeyRepository {
	return &ProductKeyRepository{db: db}
}

func (r *ProductKeyRepository) Create(ctx context.Context, key *models.ProductKey) error {
	return r.db.DB.WithContext(ctx).Create(key).Error
}

// FindByHash loads a product key and its owning user in one read. The
// key's status is not filtered here so callers can distinguish revoked
// keys from unknown ones.
func (r *ProductKeyRepository) FindByHash(ctx context.Context, hash string) (*models.ProductKey, error) {
	var key models.ProductKey
	err := r.db.DB.WithContext(ctx).
		Preload("User").
		Where("key_hash = ?", hash).
		First(&key).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &key, err
}

func (r *ProductKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductKey, error) {
	var key models.ProductKey
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&key).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &key, err
}

func (r *ProductKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProductKey, error) {
	var keys []models.ProductKey
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error

	return keys, err
}

// Revoke soft-deletes a key. Revoked keys are kept for audit.
func (r *ProductKeyRepository) Revoke(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	res := r.db.DB.WithContext(ctx).
		Model(&models.ProductKey{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.ProductKeyStatusActive).
		Update("status", models.ProductKeyStatusRevoked)

	return res.RowsAffected, res.Error
}

func (r *ProductKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.ProductKey{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now().UTC()).Error
}
