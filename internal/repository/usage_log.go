package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/storage"
)

type UsageLogRepository struct {
	db *storage.Database
}

func NewUsageLogRepository(db *storage.Database) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

// Inserts a single ledger entry
func (r *UsageLogRepository) Create(ctx context.Context, entry *models.UsageLog) error {
	return r.db.DB.WithContext(ctx).Create(entry).Error
}

// Inserts a batch of ledger entries
func (r *UsageLogRepository) CreateBatch(ctx context.Context, entries []models.UsageLog) error {
	if len(entries) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&entries).Error
}

// CountByUserSince is the quota read: entries a user has accumulated
// from the window start up to now.
func (r *UsageLogRepository) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("user_id = ? AND timestamp >= ?", userID, since).
		Count(&count).Error

	return count, err
}

// Retrieves entries within a time range
func (r *UsageLogRepository) FindByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]models.UsageLog, error) {
	var entries []models.UsageLog
	err := r.db.DB.WithContext(ctx).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error

	return entries, err
}

// Retrieves entries for a specific product key
func (r *UsageLogRepository) FindByProductKey(ctx context.Context, keyID uuid.UUID, from, to time.Time, limit, offset int) ([]models.UsageLog, error) {
	var entries []models.UsageLog
	err := r.db.DB.WithContext(ctx).
		Where("product_key_id = ? AND timestamp BETWEEN ? AND ?", keyID, from, to).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error

	return entries, err
}

func (r *UsageLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

func (r *UsageLogRepository) CountByStatusCodeRange(ctx context.Context, minStatus, maxStatus int, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("status_code BETWEEN ? AND ? AND timestamp BETWEEN ? AND ?", minStatus, maxStatus, from, to).
		Count(&count).Error

	return count, err
}

func (r *UsageLogRepository) GetAverageResponseTime(ctx context.Context, from, to time.Time) (float64, error) {
	var avg float64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Select("COALESCE(AVG(response_time_ms), 0)").
		Scan(&avg).Error

	return avg, err
}

// GetPercentile computes a latency percentile. Postgres only.
func (r *UsageLogRepository) GetPercentile(ctx context.Context, from, to time.Time, percentile float64) (int, error) {
	var result int
	query := `
		SELECT PERCENTILE_CONT(?) WITHIN GROUP (ORDER BY response_time_ms)
		FROM usage_logs
		WHERE timestamp BETWEEN ? AND ?
	`

	err := r.db.DB.WithContext(ctx).Raw(query, percentile, from, to).Scan(&result).Error
	return result, err
}

// Returns the most frequently requested paths
func (r *UsageLogRepository) GetTopPaths(ctx context.Context, from, to time.Time, limit int) ([]map[string]interface{}, error) {
	var results []map[string]interface{}

	rows, err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Select("path, COUNT(*) as count").
		Where("timestamp BETWEEN ? AND ?", from, to).
		Group("path").
		Order("count DESC").
		Limit(limit).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		var count int64
		if err := rows.Scan(&path, &count); err != nil {
			return nil, err
		}

		results = append(results, map[string]interface{}{
			"path":  path,
			"count": count,
		})
	}

	return results, nil
}

// Returns request counts grouped by hour. Postgres only.
func (r *UsageLogRepository) GetHourlyStats(ctx context.Context, from, to time.Time) ([]map[string]interface{}, error) {
	var results []map[string]interface{}

	rows, err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Select("DATE_TRUNC('hour', timestamp) as hour, COUNT(*) as count, AVG(response_time_ms) as avg_response_time").
		Where("timestamp BETWEEN ? AND ?", from, to).
		Group("hour").
		Order("hour ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var hour time.Time
		var count int64
		var avgResponseTime float64
		if err := rows.Scan(&hour, &count, &avgResponseTime); err != nil {
			return nil, err
		}
		results = append(results, map[string]interface{}{
			"hour":              hour,
			"count":             count,
			"avg_response_time": avgResponseTime,
		})
	}

	return results, nil
}
