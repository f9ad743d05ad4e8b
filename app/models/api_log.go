package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiLog is an append-only record of one upstream pricing-API call or cache
// outcome. Rows are never updated; they only feed observability queries.
type ApiLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RequestID      string    `gorm:"type:char(36);index" json:"request_id"`
	Endpoint       string    `gorm:"type:varchar(255);not null;index" json:"endpoint"`
	Params         string    `gorm:"type:text" json:"params"`
	ResponseStatus int       `gorm:"type:int" json:"response_status"`
	ResponseTimeMs int       `gorm:"type:int" json:"response_time_ms"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// BeforeCreate stamps a correlation ID when the caller did not supply one.
func (a *ApiLog) BeforeCreate(tx *gorm.DB) error {
	if a.RequestID == "" {
		a.RequestID = uuid.New().String()
	}
	return nil
}

// TableName overrides the default pluralization to match the migration files.
func (ApiLog) TableName() string {
	return "api_logs"
}
