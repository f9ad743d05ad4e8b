package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Market zones the Texas grid is divided into. A ZIP code belongs to exactly
// one zone; the zone drives which seasonal rate tables apply.
const (
	MarketZoneNorth   = "North"
	MarketZoneCentral = "Central"
	MarketZoneCoast   = "Coast"
	MarketZoneSouth   = "South"
	MarketZoneWest    = "West"
)

// Provenance of a mapping row. Rows are seeded by the offline import job and
// the source decides how much we trust them when rows conflict.
const (
	DataSourceUSPS   = "USPS"
	DataSourceTDU    = "TDU"
	DataSourceManual = "MANUAL"
	DataSourcePUCT   = "PUCT"
)

// ZipMapping maps a ZIP code (optionally narrowed by a ZIP+4 pattern) to a
// city and its TDSP territory. A single ZIP may carry several rows when the
// ZIP straddles a city or utility boundary; (zip_code, city_slug) is unique.
type ZipMapping struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ZipCode         string     `gorm:"type:varchar(5);not null;index;uniqueIndex:idx_zip_city" json:"zip_code" validate:"required,len=5,numeric"`
	ZipPlus4Pattern string     `gorm:"type:varchar(10);default:null" json:"zip_plus4_pattern" validate:"max=10"`
	CityName        string     `gorm:"type:varchar(100);not null" json:"city_name" validate:"required,max=100"`
	CitySlug        string     `gorm:"type:varchar(100);not null;index;uniqueIndex:idx_zip_city" json:"city_slug" validate:"required,max=100"`
	CountyName      string     `gorm:"type:varchar(100)" json:"county_name" validate:"max=100"`
	TdspTerritory   string     `gorm:"type:varchar(100)" json:"tdsp_territory"`
	TdspDuns        string     `gorm:"type:varchar(20);not null;index" json:"tdsp_duns" validate:"required,max=20"`
	IsDeregulated   bool       `gorm:"default:true;index" json:"is_deregulated"`
	MarketZone      string     `gorm:"type:varchar(20);index" json:"market_zone" validate:"oneof=North Central Coast South West"`
	Priority        float64    `gorm:"type:decimal(4,2);default:1.0" json:"priority"`
	LookupCount     int64      `gorm:"default:0" json:"lookup_count"`
	LastValidated   *time.Time `gorm:"type:timestamp;default:null" json:"last_validated"`
	DataSource      string     `gorm:"type:varchar(10);default:'MANUAL'" json:"data_source" validate:"oneof=USPS TDU MANUAL PUCT"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (z *ZipMapping) Validate() error {
	v := validator.New()

	return v.Struct(z)
}

// TableName overrides the default pluralization to match the migration files.
func (ZipMapping) TableName() string {
	return "zip_mappings"
}
