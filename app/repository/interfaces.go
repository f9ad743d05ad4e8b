package repository

import (
	"time"

	"github.com/choosemypower/ziproute/app/models"
	"gorm.io/gorm"
)

// ZipMappingRepository defines the interface for ZIP-territory lookups.
// The mapping table is owned by the offline import job; the serving path
// only reads it.
type ZipMappingRepository interface {
	GetByZip(zip string) ([]models.ZipMapping, error)
	GetByZipAndCitySlug(zip, citySlug string) (*models.ZipMapping, error)
	GetByCitySlug(citySlug string) ([]models.ZipMapping, error)
	Upsert(mapping *models.ZipMapping) error
	List(offset, limit int) ([]models.ZipMapping, error)
	GetAll() ([]models.ZipMapping, error)
	Count() (int64, error)
}

// PlanCacheRepository defines the interface for plan snapshot storage.
// GetByKey returns (nil, nil) when no row exists for the key.
type PlanCacheRepository interface {
	GetByKey(key string) (*models.PlanCacheEntry, error)
	Upsert(entry *models.PlanCacheEntry) error
	DeleteExpired(before time.Time) (int64, error)
	Count() (int64, error)
}

// ApiLogRepository defines the interface for the append-only API call log.
type ApiLogRepository interface {
	Create(entry *models.ApiLog) error
	GetSince(since time.Time) ([]models.ApiLog, error)
	PerformanceSince(since time.Time) (*PerformanceStats, error)
}

// NavigationEventRepository defines the interface for ZIP navigation events.
type NavigationEventRepository interface {
	Create(event *models.NavigationEvent) error
	CountSince(since time.Time) (int64, error)
	ErrorCountSince(since time.Time) (int64, error)
	EventTypeCountsSince(since time.Time) (map[string]int64, error)
	TopZipsSince(since time.Time, limit int) ([]ZipCount, error)
	CoverageGapsSince(since time.Time, limit int) ([]ZipCount, error)
}

// ZipCount is one ZIP code with its event frequency in a window.
type ZipCount struct {
	ZipCode string `json:"zip_code"`
	Count   int64  `json:"count"`
}

// PerformanceStats aggregates upstream call latency over a window.
type PerformanceStats struct {
	TotalCalls        int64   `json:"total_calls"`
	FailedCalls       int64   `json:"failed_calls"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	MaxResponseTimeMs int     `json:"max_response_time_ms"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	ZipMapping      ZipMappingRepository
	PlanCache       PlanCacheRepository
	ApiLog          ApiLogRepository
	NavigationEvent NavigationEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ZipMapping:      NewZipMappingRepository(db),
		PlanCache:       NewPlanCacheRepository(db),
		ApiLog:          NewApiLogRepository(db),
		NavigationEvent: NewNavigationEventRepository(db),
	}
}
