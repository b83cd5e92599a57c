package dto

// AlertDTO represents one price change alert in responses
type AlertDTO struct {
	UUID             string   `json:"uuid"`
	ProductUniqueID  string   `json:"product_unique_id"`
	ProductName      string   `json:"product_name"`
	Retailer         string   `json:"supermarket"`
	RetailerKey      string   `json:"supermarket_key"`
	ProductURL       string   `json:"product_url,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	OldPrice         float64  `json:"old_price"`
	NewPrice         float64  `json:"new_price"`
	PriceDifference  float64  `json:"price_difference"`
	PercentageChange float64  `json:"percentage_change"`
	Direction        string   `json:"direction"`
	Active           bool     `json:"active"`
	IsRead           bool     `json:"is_read"`
	ReadAt           string   `json:"read_at,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// ListAlertsRequest represents a bounded active alert listing
type ListAlertsRequest struct {
	Supermarket string `json:"supermarket" query:"supermarket" validate:"omitempty,alphanum"`
	Category    string `json:"category" query:"category"`
	Limit       int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
	Offset      int    `json:"offset" query:"offset" validate:"omitempty,min=0"`
}

// ListAlertsResponse represents a page of active alerts
type ListAlertsResponse struct {
	Message string     `json:"message"`
	Count   int        `json:"count"`
	Alerts  []AlertDTO `json:"alerts"`
}

// AlertCountResponse reports the active unread alert count
type AlertCountResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
	Cached  bool   `json:"cached"`
}

// AlertSummaryResponse summarizes the alert stream
type AlertSummaryResponse struct {
	Message        string `json:"message"`
	TotalAlerts    int64  `json:"total_alerts"`
	UnreadAlerts   int64  `json:"unread_alerts"`
	ReadAlerts     int64  `json:"read_alerts"`
	PriceIncreases int64  `json:"price_increases"`
	PriceDecreases int64  `json:"price_decreases"`
}

// MarkAlertReadResponse acknowledges a single mark-read
type MarkAlertReadResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
}

// IgnoreAlertResponse acknowledges an ignore
type IgnoreAlertResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
}

// BulkMarkReadRequest marks a set of alerts as read
type BulkMarkReadRequest struct {
	UUIDs []string `json:"uuids" validate:"required,min=1,max=200,dive,uuid"`
}

// BulkMarkReadResponse reports how many alerts were updated
type BulkMarkReadResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// MarkReadByProductResponse reports how many of a product's alerts were read
type MarkReadByProductResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}
