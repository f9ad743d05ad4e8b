package repository

import (
	"fmt"
	"time"

	"github.com/choosemypower/ziproute/app/models"
	"gorm.io/gorm"
)

// apiLogRepository implements the ApiLogRepository interface
type apiLogRepository struct {
	db *gorm.DB
}

// NewApiLogRepository creates a new API log repository instance
func NewApiLogRepository(db *gorm.DB) ApiLogRepository {
	return &apiLogRepository{db: db}
}

// Create appends one log row. Rows are never updated afterwards.
func (r *apiLogRepository) Create(entry *models.ApiLog) error {
	return r.db.Create(entry).Error
}

// GetSince returns all log rows created after the given time
func (r *apiLogRepository) GetSince(since time.Time) ([]models.ApiLog, error) {
	var logs []models.ApiLog
	err := r.db.Where("created_at > ?", since).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// PerformanceSince aggregates call counts and latency over the window
func (r *apiLogRepository) PerformanceSince(since time.Time) (*PerformanceStats, error) {
	var result struct {
		TotalCalls  int64
		FailedCalls int64
		AvgTimeMs   float64
		MaxTimeMs   int
	}

	err := r.db.Model(&models.ApiLog{}).
		Select("COUNT(*) as total_calls, "+
			"SUM(CASE WHEN response_status < 200 OR response_status >= 300 THEN 1 ELSE 0 END) as failed_calls, "+
			"COALESCE(AVG(response_time_ms), 0) as avg_time_ms, "+
			"COALESCE(MAX(response_time_ms), 0) as max_time_ms").
		Where("created_at > ?", since).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate api log performance: %w", err)
	}

	return &PerformanceStats{
		TotalCalls:        result.TotalCalls,
		FailedCalls:       result.FailedCalls,
		AvgResponseTimeMs: result.AvgTimeMs,
		MaxResponseTimeMs: result.MaxTimeMs,
	}, nil
}
