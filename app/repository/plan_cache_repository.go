package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/choosemypower/ziproute/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// planCacheRepository implements the PlanCacheRepository interface
type planCacheRepository struct {
	db *gorm.DB
}

// NewPlanCacheRepository creates a new plan cache repository instance
func NewPlanCacheRepository(db *gorm.DB) PlanCacheRepository {
	return &planCacheRepository{db: db}
}

// GetByKey retrieves a cache row by its cache key, expired or not.
// Returns (nil, nil) when no row exists; the caller decides validity.
func (r *planCacheRepository) GetByKey(key string) (*models.PlanCacheEntry, error) {
	var entry models.PlanCacheEntry
	err := r.db.Where("cache_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert writes a snapshot, overwriting any existing row for the same cache
// key. The original row's created_at is left untouched so refresh history is
// visible; last write wins under concurrent refreshes.
func (r *planCacheRepository) Upsert(entry *models.PlanCacheEntry) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tdsp_duns", "plans_data", "plan_count", "lowest_rate",
			"cached_at", "expires_at",
		}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert plan cache entry %s: %w", entry.CacheKey, err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry is at or before the given time.
// Only used by ops cleanup; the serving path never deletes.
func (r *planCacheRepository) DeleteExpired(before time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", before).Delete(&models.PlanCacheEntry{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Count returns the total number of cache rows
func (r *planCacheRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.PlanCacheEntry{}).Count(&count).Error
	return count, err
}
