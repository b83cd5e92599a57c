package dto

// DashboardStatsResponse aggregates the headline dashboard numbers
type DashboardStatsResponse struct {
	Message          string           `json:"message"`
	TotalProducts    int64            `json:"total_products"`
	TotalAlerts      int64            `json:"total_alerts"`
	UnreadAlerts     int64            `json:"unread_alerts"`
	PriceIncreases   int64            `json:"price_increases"`
	PriceDecreases   int64            `json:"price_decreases"`
	TrackedRetailers []SupermarketDTO `json:"tracked_supermarkets"`
	LastUpdateAt     string           `json:"last_update_at,omitempty"`
}

// ProductHistoryRequest asks for one product's unified history
type ProductHistoryRequest struct {
	UniqueID string `json:"-"`
	Days     int    `json:"days" query:"days" validate:"omitempty,min=1,max=365"`
}

// ProductHistoryResponse ties a product to its ledger and alerts
type ProductHistoryResponse struct {
	Message      string                `json:"message"`
	Product      ProductDTO            `json:"product"`
	Observations []PriceObservationDTO `json:"observations"`
	Alerts       []AlertDTO            `json:"alerts"`
}

// PriceTrendPoint is one day's average price for a product
type PriceTrendPoint struct {
	Day          string  `json:"day"`
	AveragePrice float64 `json:"average_price"`
	Observations int     `json:"observations"`
}

// PriceTrendResponse charts a product's daily average prices
type PriceTrendResponse struct {
	Message  string            `json:"message"`
	UniqueID string            `json:"unique_id"`
	Days     int               `json:"days"`
	Points   []PriceTrendPoint `json:"points"`
}

// RecentChangesResponse lists the latest accepted price movements
type RecentChangesResponse struct {
	Message string     `json:"message"`
	Count   int        `json:"count"`
	Changes []AlertDTO `json:"changes"`
}
