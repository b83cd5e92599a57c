// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/priceshield/priceshield-backend/app/dto"
	businessflow "github.com/priceshield/priceshield-backend/business_flow"
	"github.com/priceshield/priceshield-backend/utils"
)

// DashboardHandlerInterface defines the contract for dashboard handlers
type DashboardHandlerInterface interface {
	Stats(c fiber.Ctx) error
	ProductHistory(c fiber.Ctx) error
	PriceTrend(c fiber.Ctx) error
	RecentChanges(c fiber.Ctx) error
	ExportAlerts(c fiber.Ctx) error
}

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardFlow businessflow.DashboardFlow
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardFlow businessflow.DashboardFlow) *DashboardHandler {
	return &DashboardHandler{dashboardFlow: dashboardFlow}
}

func (h *DashboardHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DashboardHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Stats aggregates the headline dashboard numbers
func (h *DashboardHandler) Stats(c fiber.Ctx) error {
	result, err := h.dashboardFlow.Stats(h.createRequestContext(c, "/api/v1/dashboard/stats"))
	if err != nil {
		log.Println("Dashboard stats failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard stats", "DASHBOARD_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ProductHistory ties one product to its ledger and alerts
func (h *DashboardHandler) ProductHistory(c fiber.Ctx) error {
	uniqueID := c.Params("unique_id")
	if uniqueID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Product unique id is required", "MISSING_PRODUCT_ID", nil)
	}

	req := dto.ProductHistoryRequest{
		UniqueID: uniqueID,
		Days:     queryInt(c, "days", 0),
	}

	result, err := h.dashboardFlow.ProductHistory(h.createRequestContext(c, "/api/v1/dashboard/products/"+uniqueID+"/history"), &req)
	if err != nil {
		if businessflow.IsProductNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Product not found", "PRODUCT_NOT_FOUND", nil)
		}

		log.Println("Product history failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load product history", "PRODUCT_HISTORY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// PriceTrend charts one product's daily average prices
func (h *DashboardHandler) PriceTrend(c fiber.Ctx) error {
	uniqueID := c.Params("unique_id")
	if uniqueID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Product unique id is required", "MISSING_PRODUCT_ID", nil)
	}
	days := queryInt(c, "days", 0)

	result, err := h.dashboardFlow.PriceTrend(h.createRequestContext(c, "/api/v1/dashboard/products/"+uniqueID+"/trend"), uniqueID, days)
	if err != nil {
		if businessflow.IsProductNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Product not found", "PRODUCT_NOT_FOUND", nil)
		}

		log.Println("Price trend failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load price trend", "PRICE_TREND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// RecentChanges lists the latest accepted price movements
func (h *DashboardHandler) RecentChanges(c fiber.Ctx) error {
	hours := queryInt(c, "hours", 0)
	limit := queryInt(c, "limit", 0)

	result, err := h.dashboardFlow.RecentChanges(h.createRequestContext(c, "/api/v1/dashboard/recent-changes"), hours, limit)
	if err != nil {
		log.Println("Recent changes lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load recent changes", "RECENT_CHANGES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ExportAlerts streams an xlsx workbook of the active alerts
func (h *DashboardHandler) ExportAlerts(c fiber.Ctx) error {
	filename, data, err := h.dashboardFlow.ExportAlerts(h.createRequestContext(c, "/api/v1/dashboard/alerts/export"))
	if err != nil {
		log.Println("Alert export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export alerts", "EXPORT_ALERTS_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *DashboardHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *DashboardHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
