package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/priceshield/priceshield-backend/utils"
	"gorm.io/gorm"
)

// AlertDirection represents the direction of a price change alert
type AlertDirection string

const (
	AlertDirectionIncrease AlertDirection = "increase"
	AlertDirectionDecrease AlertDirection = "decrease"
)

// String returns the string representation of the direction
func (d AlertDirection) String() string {
	return string(d)
}

// Valid checks if the direction is valid
func (d AlertDirection) Valid() bool {
	switch d {
	case AlertDirectionIncrease, AlertDirectionDecrease:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for AlertDirection
func (d *AlertDirection) Scan(value any) error {
	if value == nil {
		*d = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*d = AlertDirection(v)
	case []byte:
		*d = AlertDirection(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AlertDirection", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AlertDirection
func (d AlertDirection) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid AlertDirection: %s", d)
	}
	return string(d), nil
}

// Alert represents a user-visible price change notification for one product identity.
// Lifecycle: created active and unread, may become read and/or inactive (ignored).
// An ignored alert is never resurrected.
type Alert struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_alerts_uuid" json:"uuid"`
	ProductUniqueID  string         `gorm:"size:128;not null;index:idx_alerts_product" json:"product_unique_id"`
	ProductName      string         `gorm:"size:512" json:"product_name"`
	RetailerKey      string         `gorm:"size:32;index:idx_alerts_retailer_key" json:"retailer_key"`
	Retailer         string         `gorm:"size:64" json:"retailer"`
	ProductURL       string         `gorm:"size:1024" json:"product_url,omitempty"`
	Categories       pq.StringArray `gorm:"type:text[]" json:"categories,omitempty"`
	OldPrice         float64        `gorm:"not null" json:"old_price"`
	NewPrice         float64        `gorm:"not null" json:"new_price"`
	PriceDifference  float64        `gorm:"not null" json:"price_difference"`
	PercentageChange float64        `gorm:"not null" json:"percentage_change"`
	Direction        AlertDirection `gorm:"size:16;not null;index:idx_alerts_direction" json:"direction"`
	Active           bool           `gorm:"default:true;index:idx_alerts_active" json:"active"`
	IsRead           bool           `gorm:"default:false;index:idx_alerts_is_read" json:"is_read"`
	ReadAt           *time.Time     `json:"read_at,omitempty"`
	IgnoredAt        *time.Time     `json:"ignored_at,omitempty"`
	CreatedAt        time.Time      `gorm:"default:CURRENT_TIMESTAMP;index:idx_alerts_created_at" json:"created_at"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Alert) TableName() string {
	return "alerts"
}

// BeforeCreate is called before creating a new record
func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// IsIncrease reports whether the alert is for a price increase
func (a *Alert) IsIncrease() bool {
	return a.Direction == AlertDirectionIncrease
}

// AlertFilter represents filter criteria for alert queries
type AlertFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	ProductUniqueID *string
	RetailerKey     *string
	Category        *string
	Direction       *AlertDirection
	Active          *bool
	IsRead          *bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}

// AlertSummary aggregates active alert counts for the dashboard
type AlertSummary struct {
	TotalAlerts    int64 `json:"total_alerts"`
	UnreadAlerts   int64 `json:"unread_alerts"`
	ReadAlerts     int64 `json:"read_alerts"`
	PriceIncreases int64 `json:"price_increases"`
	PriceDecreases int64 `json:"price_decreases"`
}
