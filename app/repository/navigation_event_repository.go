package repository

import (
	"fmt"
	"time"

	"github.com/choosemypower/ziproute/app/models"
	"gorm.io/gorm"
)

// navigationEventRepository implements the NavigationEventRepository interface
type navigationEventRepository struct {
	db *gorm.DB
}

// NewNavigationEventRepository creates a new navigation event repository instance
func NewNavigationEventRepository(db *gorm.DB) NavigationEventRepository {
	return &navigationEventRepository{db: db}
}

// Create appends one navigation event
func (r *navigationEventRepository) Create(event *models.NavigationEvent) error {
	return r.db.Create(event).Error
}

// CountSince returns the total number of events in the window
func (r *navigationEventRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.NavigationEvent{}).
		Where("created_at > ?", since).
		Count(&count).Error
	return count, err
}

// ErrorCountSince returns the number of error-flagged events in the window
func (r *navigationEventRepository) ErrorCountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.NavigationEvent{}).
		Where("created_at > ? AND is_error = ?", since, true).
		Count(&count).Error
	return count, err
}

// EventTypeCountsSince returns per-event-type counts in the window
func (r *navigationEventRepository) EventTypeCountsSince(since time.Time) (map[string]int64, error) {
	var rows []struct {
		EventType string
		Count     int64
	}

	err := r.db.Model(&models.NavigationEvent{}).
		Select("event_type, COUNT(*) as count").
		Where("created_at > ?", since).
		Group("event_type").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate event types: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}
	return counts, nil
}

// TopZipsSince returns the most frequently requested ZIPs in the window
func (r *navigationEventRepository) TopZipsSince(since time.Time, limit int) ([]ZipCount, error) {
	return r.zipCounts(since, limit, nil)
}

// CoverageGapsSince returns ZIPs that hit a coverage gap in the window,
// ranked by frequency. These drive the offline import backlog.
func (r *navigationEventRepository) CoverageGapsSince(since time.Time, limit int) ([]ZipCount, error) {
	eventType := models.EventZipCoverageGap
	return r.zipCounts(since, limit, &eventType)
}

func (r *navigationEventRepository) zipCounts(since time.Time, limit int, eventType *string) ([]ZipCount, error) {
	query := r.db.Model(&models.NavigationEvent{}).
		Select("zip_code, COUNT(*) as count").
		Where("created_at > ?", since)
	if eventType != nil {
		query = query.Where("event_type = ?", *eventType)
	}

	var results []ZipCount
	err := query.Group("zip_code").
		Order("count DESC, zip_code ASC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate zip counts: %w", err)
	}
	return results, nil
}
