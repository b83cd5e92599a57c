// Package models contains domain entities and business models for the price tracking system
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/priceshield/priceshield-backend/utils"
	"gorm.io/gorm"
)

// QuantityUnit represents the normalized unit of measure extracted from a product name
type QuantityUnit string

const (
	UnitMilliliter QuantityUnit = "ml"
	UnitLiter      QuantityUnit = "l"
	UnitGram       QuantityUnit = "g"
	UnitKilogram   QuantityUnit = "kg"
	UnitCount      QuantityUnit = "unit"
)

// String returns the string representation of the unit
func (u QuantityUnit) String() string {
	return string(u)
}

// Valid checks if the unit is valid
func (u QuantityUnit) Valid() bool {
	switch u {
	case UnitMilliliter, UnitLiter, UnitGram, UnitKilogram, UnitCount:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for QuantityUnit
func (u *QuantityUnit) Scan(value any) error {
	if value == nil {
		*u = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*u = QuantityUnit(v)
	case []byte:
		*u = QuantityUnit(string(v))
	default:
		return fmt.Errorf("cannot scan %T into QuantityUnit", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for QuantityUnit
func (u QuantityUnit) Value() (driver.Value, error) {
	if u == "" {
		return nil, nil
	}
	if !u.Valid() {
		return nil, fmt.Errorf("invalid QuantityUnit: %s", u)
	}
	return string(u), nil
}

// ProductAttributes holds the structured attributes extracted from a raw product name.
// They are derived data, embedded in the product record so that identity collision
// checks do not need to re-extract from the stored name.
type ProductAttributes struct {
	Quantity          *float64       `gorm:"column:attr_quantity" json:"quantity,omitempty"`
	Unit              QuantityUnit   `gorm:"column:attr_unit;size:8" json:"unit,omitempty"`
	PackSize          *int           `gorm:"column:attr_pack_size" json:"pack_size,omitempty"`
	Brand             string         `gorm:"column:attr_brand;size:64" json:"brand,omitempty"`
	DescriptiveTokens pq.StringArray `gorm:"column:attr_tokens;type:text[]" json:"descriptive_tokens,omitempty"`
}

// ProductIdentity names one physical product at one retailer
type ProductIdentity struct {
	Key         string
	RetailerKey string
	RawName     string
	Attributes  ProductAttributes
}

// ProductRecord represents the live record for one product identity at one retailer
type ProductRecord struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	UniqueID        string            `gorm:"size:128;not null;uniqueIndex:uk_products_unique_id" json:"unique_id"`
	RetailerKey     string            `gorm:"size:32;not null;index:idx_products_retailer_key" json:"retailer_key"`
	Retailer        string            `gorm:"size:64" json:"retailer"`
	Name            string            `gorm:"size:512;not null" json:"name"`
	Brand           string            `gorm:"size:128" json:"brand,omitempty"`
	Description     string            `gorm:"type:text" json:"description,omitempty"`
	Price           float64           `gorm:"not null" json:"price"`
	OriginalPrice   float64           `json:"original_price,omitempty"`
	DiscountPercent float64           `json:"discount_percent,omitempty"`
	Currency        string            `gorm:"size:8;default:'PEN'" json:"currency"`
	Available       bool              `gorm:"default:false" json:"available"`
	Images          pq.StringArray    `gorm:"type:text[]" json:"images,omitempty"`
	Categories      pq.StringArray    `gorm:"type:text[];index:idx_products_categories,type:gin" json:"categories,omitempty"`
	URL             string            `gorm:"size:1024" json:"url,omitempty"`
	SearchQueries   pq.StringArray    `gorm:"type:text[]" json:"search_queries,omitempty"`
	Attributes      ProductAttributes `gorm:"embedded" json:"attributes"`
	ScrapedAt       time.Time         `gorm:"index:idx_products_scraped_at" json:"scraped_at"`
	FirstSeenAt     time.Time         `json:"first_seen_at"`
	LastUpdatedAt   time.Time         `gorm:"index:idx_products_last_updated_at" json:"last_updated_at"`
	UpdateCount     int               `gorm:"default:0" json:"update_count"`
}

// TableName returns the table name for the model
func (ProductRecord) TableName() string {
	return "products"
}

// BeforeCreate is called before creating a new record
func (p *ProductRecord) BeforeCreate(tx *gorm.DB) error {
	if p.Currency == "" {
		p.Currency = "PEN"
	}
	if p.FirstSeenAt.IsZero() {
		p.FirstSeenAt = utils.UTCNow()
	}
	if p.LastUpdatedAt.IsZero() {
		p.LastUpdatedAt = p.FirstSeenAt
	}
	return nil
}

// IsPromotional reports whether the record currently carries a promotional price
func (p *ProductRecord) IsPromotional() bool {
	return (p.OriginalPrice > 0 && p.OriginalPrice > p.Price) || p.DiscountPercent > 0
}

// ProductRecordFilter represents filter criteria for product queries
type ProductRecordFilter struct {
	ID            *uint
	UniqueID      *string
	RetailerKey   *string
	Brand         *string
	Category      *string
	Available     *bool
	NameLike      *string
	ScrapedAfter  *time.Time
	ScrapedBefore *time.Time
	UpdatedAfter  *time.Time
}
