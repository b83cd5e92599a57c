package businessflow

import "context"

// RetailerInfo describes one supported supermarket catalog.
type RetailerInfo struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// CatalogSource abstracts the retailer catalog APIs the flows search
// against. The production implementation lives in app/services.
type CatalogSource interface {
	// Search queries one retailer's catalog and returns normalized listings.
	Search(ctx context.Context, retailerKey, query string, limit int) ([]RawListing, error)
	// SearchAll queries every active retailer, keyed by retailer key.
	// Per-retailer failures are reported in the error map, not as a
	// global failure.
	SearchAll(ctx context.Context, query string, limit int) (map[string][]RawListing, map[string]error)
	// Retailers lists the supported catalogs.
	Retailers() []RetailerInfo
}
