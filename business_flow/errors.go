// Package businessflow contains the core business logic and use cases for the price tracking pipeline
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Listing validation errors
	ErrListingNameMissing  = errors.New("listing has no product name")
	ErrListingPriceInvalid = errors.New("listing price must be positive")

	// Product-related errors
	ErrProductNotFound  = errors.New("product not found")
	ErrQueryRequired    = errors.New("search query is required")
	ErrUnknownRetailer  = errors.New("unknown retailer key")
	ErrRetailerInactive = errors.New("retailer is inactive")

	// Alert-related errors
	ErrAlertNotFound       = errors.New("alert not found")
	ErrAlertAlreadyIgnored = errors.New("alert is already ignored")
	ErrAlertIDRequired     = errors.New("alert id is required")

	// Search job errors
	ErrSearchJobNotFound = errors.New("search job not found")

	ErrCacheNotAvailable = errors.New("cache not available")
)

// BusinessError represents a business logic error with context
type BusinessError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsProductNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

func IsQueryRequired(err error) bool {
	return errors.Is(err, ErrQueryRequired)
}

func IsUnknownRetailer(err error) bool {
	return errors.Is(err, ErrUnknownRetailer)
}

func IsRetailerInactive(err error) bool {
	return errors.Is(err, ErrRetailerInactive)
}

func IsAlertNotFound(err error) bool {
	return errors.Is(err, ErrAlertNotFound)
}

func IsAlertAlreadyIgnored(err error) bool {
	return errors.Is(err, ErrAlertAlreadyIgnored)
}

func IsAlertIDInvalid(err error) bool {
	return errors.Is(err, ErrAlertIDRequired)
}

func IsSearchJobNotFound(err error) bool {
	return errors.Is(err, ErrSearchJobNotFound)
}
