package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetZipMappingRepository returns the ZIP mapping repository instance
func (f *Factory) GetZipMappingRepository() ZipMappingRepository {
	return f.GetRepositories().ZipMapping
}

// GetPlanCacheRepository returns the plan cache repository instance
func (f *Factory) GetPlanCacheRepository() PlanCacheRepository {
	return f.GetRepositories().PlanCache
}

// GetApiLogRepository returns the API log repository instance
func (f *Factory) GetApiLogRepository() ApiLogRepository {
	return f.GetRepositories().ApiLog
}

// GetNavigationEventRepository returns the navigation event repository instance
func (f *Factory) GetNavigationEventRepository() NavigationEventRepository {
	return f.GetRepositories().NavigationEvent
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
