// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/priceshield/priceshield-backend/app/dto"
	"github.com/priceshield/priceshield-backend/app/services"
	businessflow "github.com/priceshield/priceshield-backend/business_flow"
	"github.com/priceshield/priceshield-backend/utils"
)

// ProductHandlerInterface defines the contract for product handlers
type ProductHandlerInterface interface {
	SearchProducts(c fiber.Ctx) error
	SavedSearch(c fiber.Ctx) error
	ComparePrices(c fiber.Ctx) error
	PopularSearches(c fiber.Ctx) error
	Supermarkets(c fiber.Ctx) error
	ListProducts(c fiber.Ctx) error
	RecentProducts(c fiber.Ctx) error
	Categories(c fiber.Ctx) error
	Brands(c fiber.Ctx) error
	Statistics(c fiber.Ctx) error
	SubmitSearchJob(c fiber.Ctx) error
	SearchJobStatus(c fiber.Ctx) error
}

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	productFlow businessflow.ProductFlow
	searchJobs  *services.SearchJobService
	validator   *validator.Validate
}

// NewProductHandler creates a new product handler
func NewProductHandler(productFlow businessflow.ProductFlow, searchJobs *services.SearchJobService) *ProductHandler {
	return &ProductHandler{
		productFlow: productFlow,
		searchJobs:  searchJobs,
		validator:   validator.New(),
	}
}

func (h *ProductHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ProductHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SearchProducts handles live catalog searches across supermarkets
func (h *ProductHandler) SearchProducts(c fiber.Ctx) error {
	req := dto.SearchProductsRequest{
		Query:       c.Query("q"),
		Supermarket: c.Query("supermarket"),
		Limit:       queryInt(c, "limit", 0),
		Save:        queryBool(c, "save"),
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.productFlow.SearchProducts(h.createRequestContext(c, "/api/v1/products/search"), &req, metadata)
	if err != nil {
		if businessflow.IsUnknownRetailer(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown supermarket", "UNKNOWN_SUPERMARKET", nil)
		}
		if businessflow.IsRetailerInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Supermarket is not active", "SUPERMARKET_INACTIVE", nil)
		}
		if businessflow.IsQueryRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Search query is required", "SEARCH_QUERY_REQUIRED", nil)
		}

		log.Println("Product search failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Product search failed", "SEARCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// SavedSearch handles searches over already-tracked products
func (h *ProductHandler) SavedSearch(c fiber.Ctx) error {
	req := dto.SavedSearchRequest{
		Query:       c.Query("q"),
		Supermarket: c.Query("supermarket"),
		Limit:       queryInt(c, "limit", 0),
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.productFlow.SavedSearch(h.createRequestContext(c, "/api/v1/products/saved-search"), &req)
	if err != nil {
		if businessflow.IsQueryRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Search query is required", "SEARCH_QUERY_REQUIRED", nil)
		}

		log.Println("Saved search failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Saved search failed", "SAVED_SEARCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ComparePrices lists tracked products matching a query, cheapest first
func (h *ProductHandler) ComparePrices(c fiber.Ctx) error {
	query := c.Query("q")
	limit := queryInt(c, "limit", 0)

	result, err := h.productFlow.ComparePrices(h.createRequestContext(c, "/api/v1/products/compare"), query, limit)
	if err != nil {
		if businessflow.IsQueryRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Search query is required", "SEARCH_QUERY_REQUIRED", nil)
		}

		log.Println("Price comparison failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Price comparison failed", "PRICE_COMPARISON_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// PopularSearches lists the most frequent search terms
func (h *ProductHandler) PopularSearches(c fiber.Ctx) error {
	limit := queryInt(c, "limit", 0)

	result, err := h.productFlow.PopularSearches(h.createRequestContext(c, "/api/v1/products/popular-searches"), limit)
	if err != nil {
		log.Println("Popular searches lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load popular searches", "POPULAR_SEARCHES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Supermarkets lists the supported catalogs
func (h *ProductHandler) Supermarkets(c fiber.Ctx) error {
	result, err := h.productFlow.Supermarkets(h.createRequestContext(c, "/api/v1/supermarkets"))
	if err != nil {
		log.Println("Supermarkets lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load supermarkets", "SUPERMARKETS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListProducts pages through tracked products
func (h *ProductHandler) ListProducts(c fiber.Ctx) error {
	req := dto.ListProductsRequest{
		Category: c.Query("category"),
		Limit:    queryInt(c, "limit", 0),
		Offset:   queryInt(c, "offset", 0),
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.productFlow.ListProducts(h.createRequestContext(c, "/api/v1/products"), &req)
	if err != nil {
		log.Println("Product listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list products", "LIST_PRODUCTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// RecentProducts lists products updated within a window
func (h *ProductHandler) RecentProducts(c fiber.Ctx) error {
	hours := queryInt(c, "hours", 0)
	limit := queryInt(c, "limit", 0)

	result, err := h.productFlow.RecentProducts(h.createRequestContext(c, "/api/v1/products/recent"), hours, limit)
	if err != nil {
		log.Println("Recent products lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list recent products", "RECENT_PRODUCTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Categories lists distinct tracked categories
func (h *ProductHandler) Categories(c fiber.Ctx) error {
	result, err := h.productFlow.Categories(h.createRequestContext(c, "/api/v1/products/categories"))
	if err != nil {
		log.Println("Categories lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list categories", "CATEGORIES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Brands lists distinct tracked brands
func (h *ProductHandler) Brands(c fiber.Ctx) error {
	result, err := h.productFlow.Brands(h.createRequestContext(c, "/api/v1/products/brands"))
	if err != nil {
		log.Println("Brands lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list brands", "BRANDS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Statistics summarizes the tracked catalog
func (h *ProductHandler) Statistics(c fiber.Ctx) error {
	result, err := h.productFlow.Statistics(h.createRequestContext(c, "/api/v1/statistics"))
	if err != nil {
		log.Println("Statistics lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load statistics", "STATISTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// SubmitSearchJob enqueues an async catalog search
func (h *ProductHandler) SubmitSearchJob(c fiber.Ctx) error {
	var req dto.SubmitSearchJobRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	job, err := h.searchJobs.Submit(h.createRequestContext(c, "/api/v1/products/search-jobs"), req)
	if err != nil {
		log.Println("Search job submission failed", err)
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Search queue is full", "SEARCH_QUEUE_FULL", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Search job submitted", searchJobToDTO(job))
}

// SearchJobStatus reports an async search job's state
func (h *ProductHandler) SearchJobStatus(c fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Job id is required", "MISSING_JOB_ID", nil)
	}

	job, err := h.searchJobs.Status(h.createRequestContext(c, "/api/v1/products/search-jobs/"+jobID), jobID)
	if err != nil {
		if businessflow.IsSearchJobNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Search job not found", "SEARCH_JOB_NOT_FOUND", nil)
		}

		log.Println("Search job lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load search job", "SEARCH_JOB_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Search job retrieved", searchJobToDTO(job))
}

func searchJobToDTO(job *services.SearchJob) dto.SearchJobResponse {
	resp := dto.SearchJobResponse{
		Message:     "Search job " + string(job.Status),
		JobID:       job.ID,
		Status:      string(job.Status),
		Query:       job.Request.Query,
		SubmittedAt: job.SubmittedAt.Format(time.RFC3339),
		Error:       job.Error,
		Result:      job.Result,
	}
	if job.FinishedAt != nil {
		resp.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *ProductHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *ProductHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
