package repository

import (
	"fmt"

	"github.com/choosemypower/ziproute/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// zipMappingRepository implements the ZipMappingRepository interface
type zipMappingRepository struct {
	db *gorm.DB
}

// NewZipMappingRepository creates a new ZIP mapping repository instance
func NewZipMappingRepository(db *gorm.DB) ZipMappingRepository {
	return &zipMappingRepository{db: db}
}

// GetByZip returns all mapping rows for a ZIP code. Rows come back ordered
// by priority (highest first) and city slug so callers see a stable order
// regardless of insertion order.
func (r *zipMappingRepository) GetByZip(zip string) ([]models.ZipMapping, error) {
	var mappings []models.ZipMapping
	err := r.db.Where("zip_code = ?", zip).
		Order("priority DESC, city_slug ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// GetByZipAndCitySlug retrieves the single row for a (zip, city) pair
func (r *zipMappingRepository) GetByZipAndCitySlug(zip, citySlug string) (*models.ZipMapping, error) {
	var mapping models.ZipMapping
	err := r.db.Where("zip_code = ? AND city_slug = ?", zip, citySlug).First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// GetByCitySlug returns all ZIP rows belonging to a city
func (r *zipMappingRepository) GetByCitySlug(citySlug string) ([]models.ZipMapping, error) {
	var mappings []models.ZipMapping
	err := r.db.Where("city_slug = ?", citySlug).
		Order("zip_code ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// Upsert inserts a mapping row or updates the existing (zip_code, city_slug)
// row in place. Used only by the offline import job.
func (r *zipMappingRepository) Upsert(mapping *models.ZipMapping) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "zip_code"}, {Name: "city_slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"zip_plus4_pattern", "city_name", "county_name", "tdsp_territory",
			"tdsp_duns", "is_deregulated", "market_zone", "priority",
			"last_validated", "data_source", "updated_at",
		}),
	}).Create(mapping).Error
	if err != nil {
		return fmt.Errorf("failed to upsert zip mapping %s/%s: %w", mapping.ZipCode, mapping.CitySlug, err)
	}
	return nil
}

// List returns a page of mapping rows
func (r *zipMappingRepository) List(offset, limit int) ([]models.ZipMapping, error) {
	var mappings []models.ZipMapping
	err := r.db.Order("zip_code ASC, city_slug ASC").
		Offset(offset).Limit(limit).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// GetAll returns every mapping row, used by the dataset export
func (r *zipMappingRepository) GetAll() ([]models.ZipMapping, error) {
	var mappings []models.ZipMapping
	err := r.db.Order("zip_code ASC, city_slug ASC").Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// Count returns the total number of mapping rows
func (r *zipMappingRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.ZipMapping{}).Count(&count).Error
	return count, err
}
