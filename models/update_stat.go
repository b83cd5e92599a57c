package models

import (
	"time"

	"github.com/priceshield/priceshield-backend/utils"
	"gorm.io/gorm"
)

// UpdateStat records the outcome of one scheduled bulk catalog refresh
type UpdateStat struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StartedAt       time.Time `gorm:"not null" json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	ProductsSaved   int       `json:"products_saved"`
	ProductsUpdated int       `json:"products_updated"`
	AlertsCreated   int       `json:"alerts_created"`
	Errors          int       `json:"errors"`
	TermsProcessed  int       `json:"terms_processed"`
	UpdateType      string    `gorm:"size:32;default:'scheduled'" json:"update_type"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_update_stats_created_at" json:"created_at"`
}

// TableName returns the table name for the model
func (UpdateStat) TableName() string {
	return "update_stats"
}

// BeforeCreate is called before creating a new record
func (s *UpdateStat) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// UpdateStatFilter represents filter criteria for update stat queries
type UpdateStatFilter struct {
	ID            *uint
	UpdateType    *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
