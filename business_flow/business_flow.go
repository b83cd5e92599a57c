// Package businessflow contains the core business logic for the application.
package businessflow

import (
	"time"

	"github.com/priceshield/priceshield-backend/app/dto"
	"github.com/priceshield/priceshield-backend/models"
)

const RequestIDKey = "X-Request-ID"

// RawListing is one scraped record for a product at a point in time, before
// identity resolution and consolidation. It is produced by the catalog client
// and is the only input into the ingest pipeline.
type RawListing struct {
	RetailerKey     string    `json:"retailer_key"`
	Retailer        string    `json:"retailer"`
	RawName         string    `json:"raw_name"`
	Brand           string    `json:"brand,omitempty"`
	Description     string    `json:"description,omitempty"`
	Price           float64   `json:"price"`
	OriginalPrice   float64   `json:"original_price,omitempty"`
	DiscountPercent float64   `json:"discount_percent,omitempty"`
	Available       bool      `json:"available"`
	URL             string    `json:"url,omitempty"`
	Images          []string  `json:"images,omitempty"`
	Categories      []string  `json:"categories,omitempty"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Valid reports whether the listing passes boundary validation. Malformed
// listings are dropped before reaching the identity resolver.
func (l *RawListing) Valid() error {
	if l.RawName == "" {
		return ErrListingNameMissing
	}
	if l.Price <= 0 {
		return ErrListingPriceInvalid
	}
	return nil
}

// HasPromotion reports whether the listing carries a promotional price
func (l *RawListing) HasPromotion() bool {
	return (l.OriginalPrice > 0 && l.OriginalPrice > l.Price) || l.DiscountPercent > 0
}

// ClientMetadata holds client-related information for request tracking
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToProductDTO converts a product record to its API representation
func ToProductDTO(record models.ProductRecord) dto.ProductDTO {
	return dto.ProductDTO{
		UniqueID:        record.UniqueID,
		Name:            record.Name,
		Brand:           record.Brand,
		Description:     record.Description,
		Retailer:        record.Retailer,
		RetailerKey:     record.RetailerKey,
		Price:           record.Price,
		OriginalPrice:   record.OriginalPrice,
		DiscountPercent: record.DiscountPercent,
		Currency:        record.Currency,
		Available:       record.Available,
		Images:          record.Images,
		Categories:      record.Categories,
		URL:             record.URL,
		ScrapedAt:       record.ScrapedAt.Format(time.RFC3339),
		LastUpdatedAt:   record.LastUpdatedAt.Format(time.RFC3339),
		UpdateCount:     record.UpdateCount,
	}
}

// ToAlertDTO converts an alert to its API representation
func ToAlertDTO(alert models.Alert) dto.AlertDTO {
	d := dto.AlertDTO{
		UUID:             alert.UUID.String(),
		ProductUniqueID:  alert.ProductUniqueID,
		ProductName:      alert.ProductName,
		Retailer:         alert.Retailer,
		RetailerKey:      alert.RetailerKey,
		ProductURL:       alert.ProductURL,
		Categories:       alert.Categories,
		OldPrice:         alert.OldPrice,
		NewPrice:         alert.NewPrice,
		PriceDifference:  alert.PriceDifference,
		PercentageChange: alert.PercentageChange,
		Direction:        alert.Direction.String(),
		Active:           alert.Active,
		IsRead:           alert.IsRead,
		CreatedAt:        alert.CreatedAt.Format(time.RFC3339),
	}
	if alert.ReadAt != nil {
		d.ReadAt = alert.ReadAt.Format(time.RFC3339)
	}
	return d
}

// ToObservationDTO converts a price observation to its API representation
func ToObservationDTO(obs models.PriceObservation) dto.PriceObservationDTO {
	return dto.PriceObservationDTO{
		Price:      obs.Price,
		ObservedAt: obs.ObservedAt.Format(time.RFC3339),
	}
}
