package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSON stores raw JSON documents in a database column.
type JSON json.RawMessage

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = JSON("[]")
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("invalid scan source")
	}
	*j = JSON(bytes)
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = JSON(data)
	return nil
}

// PlanCacheEntry is one cached snapshot of upstream plan results for a TDSP
// territory at a given usage tier. CacheKey is the canonical serialization of
// the query parameters, so there is at most one row per logical query.
// Refreshes overwrite the snapshot in place and keep the original CreatedAt.
type PlanCacheEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CacheKey   string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"cache_key"`
	TdspDuns   string    `gorm:"type:varchar(20);not null;index" json:"tdsp_duns"`
	PlansData  JSON      `gorm:"type:json" json:"plans_data"`
	PlanCount  int       `gorm:"type:int;default:0" json:"plan_count"`
	LowestRate float64   `gorm:"type:decimal(8,4);default:0" json:"lowest_rate"`
	CachedAt   time.Time `gorm:"type:datetime;not null" json:"cached_at"`
	ExpiresAt  time.Time `gorm:"type:datetime;not null;index" json:"expires_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsValid reports whether the entry may still be served. An entry whose
// expiry equals the probe time is already expired.
func (p *PlanCacheEntry) IsValid(now time.Time) bool {
	return p.ExpiresAt.After(now)
}

// TableName overrides the default pluralization to match the migration files.
func (PlanCacheEntry) TableName() string {
	return "plan_cache"
}
