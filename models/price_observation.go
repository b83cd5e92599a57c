package models

import (
	"time"

	"github.com/priceshield/priceshield-backend/utils"
	"gorm.io/gorm"
)

// PriceObservation is one point in a product identity's price time series.
// Rows are append-only: one row per detected price change, not one per scrape.
type PriceObservation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProductUniqueID string    `gorm:"size:128;not null;index:idx_price_obs_product" json:"product_unique_id"`
	Price           float64   `gorm:"not null" json:"price"`
	ObservedAt      time.Time `gorm:"not null;index:idx_price_obs_observed_at" json:"observed_at"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName returns the table name for the model
func (PriceObservation) TableName() string {
	return "price_observations"
}

// BeforeCreate is called before creating a new record
func (o *PriceObservation) BeforeCreate(tx *gorm.DB) error {
	if o.ObservedAt.IsZero() {
		o.ObservedAt = utils.UTCNow()
	}
	return nil
}

// PriceObservationFilter represents filter criteria for price observation queries
type PriceObservationFilter struct {
	ID              *uint
	ProductUniqueID *string
	ObservedAfter   *time.Time
	ObservedBefore  *time.Time
}
