package utils

// ContextKey is the type for request-scoped context values
type ContextKey string

// Context keys used by handlers to pass request-scoped values into flows
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Catalog constants
const (
	// PENCurrency is the currency code for all tracked prices
	PENCurrency = "PEN"

	// MaxProductImages caps the number of image URLs stored per product
	MaxProductImages = 3

	// DefaultSearchLimit is the default number of listings requested per retailer
	DefaultSearchLimit = 100
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
