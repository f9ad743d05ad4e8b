package models

import "time"

// Navigation event types recorded by the ZIP lookup endpoints.
const (
	EventZipResolved    = "zip_resolved"
	EventZipInvalid     = "zip_invalid"
	EventZipCoverageGap = "zip_coverage_gap"
	EventZipRegulated   = "zip_regulated"
)

// NavigationEvent is one ZIP-navigation interaction. Events are written by
// the HTTP layer after each resolution attempt and only ever read in
// aggregate by the analytics summarizer.
type NavigationEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ZipCode   string    `gorm:"type:varchar(5);not null;index" json:"zip_code"`
	EventType string    `gorm:"type:varchar(30);not null;index" json:"event_type"`
	IsError   bool      `gorm:"default:false" json:"is_error"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName overrides the default pluralization to match the migration files.
func (NavigationEvent) TableName() string {
	return "navigation_events"
}
