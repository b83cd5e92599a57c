package dto

// ProductDTO represents one tracked product in responses
type ProductDTO struct {
	UniqueID        string   `json:"unique_id"`
	Name            string   `json:"name"`
	Brand           string   `json:"brand,omitempty"`
	Description     string   `json:"description,omitempty"`
	Retailer        string   `json:"supermarket"`
	RetailerKey     string   `json:"supermarket_key"`
	Price           float64  `json:"price"`
	OriginalPrice   float64  `json:"original_price,omitempty"`
	DiscountPercent float64  `json:"discount_percentage,omitempty"`
	Currency        string   `json:"currency"`
	Available       bool     `json:"available"`
	Images          []string `json:"images,omitempty"`
	Categories      []string `json:"categories,omitempty"`
	URL             string   `json:"url,omitempty"`
	ScrapedAt       string   `json:"scraped_at"`
	LastUpdatedAt   string   `json:"last_updated_at"`
	UpdateCount     int      `json:"update_count"`
}

// SearchProductsRequest represents a live catalog search
type SearchProductsRequest struct {
	Query       string `json:"q" query:"q" validate:"required,min=2,max=128"`
	Supermarket string `json:"supermarket" query:"supermarket" validate:"omitempty,alphanum"`
	Limit       int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=100"`
	Save        bool   `json:"save" query:"save"`
}

// SearchProductsResponse represents the live search outcome per supermarket
type SearchProductsResponse struct {
	Message      string                          `json:"message"`
	Query        string                          `json:"query"`
	TotalResults int                             `json:"total_results"`
	Results      map[string]SupermarketSearchDTO `json:"results"`
	Ingest       *IngestSummaryDTO               `json:"ingest,omitempty"`
}

// SupermarketSearchDTO represents one supermarket's slice of a search
type SupermarketSearchDTO struct {
	Supermarket string       `json:"supermarket"`
	Success     bool         `json:"success"`
	Error       string       `json:"error,omitempty"`
	Count       int          `json:"products_count"`
	Products    []ProductDTO `json:"products"`
}

// IngestSummaryDTO reports what a search batch did to the store
type IngestSummaryDTO struct {
	Received     int `json:"received"`
	Invalid      int `json:"invalid"`
	Duplicates   int `json:"duplicates"`
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Observations int `json:"observations"`
	Alerts       int `json:"alerts"`
	Failures     int `json:"failures"`
}

// SavedSearchRequest represents a search over already-tracked products
type SavedSearchRequest struct {
	Query       string `json:"q" query:"q" validate:"required,min=2,max=128"`
	Supermarket string `json:"supermarket" query:"supermarket" validate:"omitempty,alphanum"`
	Limit       int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
}

// SavedSearchResponse represents tracked products matching a query
type SavedSearchResponse struct {
	Message  string       `json:"message"`
	Query    string       `json:"query"`
	Count    int          `json:"count"`
	Products []ProductDTO `json:"products"`
}

// PriceComparisonResponse groups matching products across supermarkets,
// cheapest first
type PriceComparisonResponse struct {
	Message  string       `json:"message"`
	Query    string       `json:"query"`
	Cheapest *ProductDTO  `json:"cheapest,omitempty"`
	Products []ProductDTO `json:"products"`
}

// SupermarketDTO represents one supported catalog
type SupermarketDTO struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// SupermarketsResponse lists the supported catalogs
type SupermarketsResponse struct {
	Message      string           `json:"message"`
	Supermarkets []SupermarketDTO `json:"supermarkets"`
}

// PopularSearchDTO represents one popular search term
type PopularSearchDTO struct {
	Query          string `json:"query"`
	SearchCount    int64  `json:"search_count"`
	TotalResults   int64  `json:"total_results"`
	LastSearchedAt string `json:"last_searched_at"`
}

// PopularSearchesResponse lists the most frequent search terms
type PopularSearchesResponse struct {
	Message  string             `json:"message"`
	Searches []PopularSearchDTO `json:"searches"`
}

// ListProductsRequest represents a bounded product listing
type ListProductsRequest struct {
	Category string `json:"category" query:"category"`
	Limit    int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
	Offset   int    `json:"offset" query:"offset" validate:"omitempty,min=0"`
}

// ListProductsResponse represents a page of tracked products
type ListProductsResponse struct {
	Message  string       `json:"message"`
	Count    int          `json:"count"`
	Products []ProductDTO `json:"products"`
}

// CategoriesResponse lists distinct tracked categories
type CategoriesResponse struct {
	Message    string   `json:"message"`
	Categories []string `json:"categories"`
}

// BrandsResponse lists distinct tracked brands
type BrandsResponse struct {
	Message string   `json:"message"`
	Brands  []string `json:"brands"`
}

// StatisticsResponse summarizes the tracked catalog
type StatisticsResponse struct {
	Message        string  `json:"message"`
	TotalProducts  int64   `json:"total_products"`
	TotalAlerts    int64   `json:"total_alerts"`
	ActiveAlerts   int64   `json:"active_alerts"`
	Supermarkets   int     `json:"supermarkets"`
	LastUpdateAt   string  `json:"last_update_at,omitempty"`
	LastUpdateType string  `json:"last_update_type,omitempty"`
	LastUpdateSecs float64 `json:"last_update_duration_seconds,omitempty"`
}

// SubmitSearchJobRequest represents an async search submission
type SubmitSearchJobRequest struct {
	Query       string `json:"query" validate:"required,min=2,max=128"`
	Supermarket string `json:"supermarket" validate:"omitempty,alphanum"`
	Limit       int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

// SearchJobResponse reports an async search job's state
type SearchJobResponse struct {
	Message     string                  `json:"message"`
	JobID       string                  `json:"job_id"`
	Status      string                  `json:"status"`
	Query       string                  `json:"query"`
	SubmittedAt string                  `json:"submitted_at"`
	FinishedAt  string                  `json:"finished_at,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Result      *SearchProductsResponse `json:"result,omitempty"`
}

// PriceObservationDTO represents one ledger entry
type PriceObservationDTO struct {
	Price      float64 `json:"price"`
	ObservedAt string  `json:"observed_at"`
}
