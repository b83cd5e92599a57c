// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/priceshield/priceshield-backend/app/dto"
	businessflow "github.com/priceshield/priceshield-backend/business_flow"
	"github.com/priceshield/priceshield-backend/utils"
)

// AlertHandlerInterface defines the contract for alert handlers
type AlertHandlerInterface interface {
	ListAlerts(c fiber.Ctx) error
	CountUnread(c fiber.Ctx) error
	Summary(c fiber.Ctx) error
	MarkRead(c fiber.Ctx) error
	Ignore(c fiber.Ctx) error
	MarkReadByProduct(c fiber.Ctx) error
	BulkMarkRead(c fiber.Ctx) error
	RecentAlerts(c fiber.Ctx) error
}

// AlertHandler handles alert-related HTTP requests
type AlertHandler struct {
	alertFlow businessflow.AlertFlow
	validator *validator.Validate
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertFlow businessflow.AlertFlow) *AlertHandler {
	return &AlertHandler{
		alertFlow: alertFlow,
		validator: validator.New(),
	}
}

func (h *AlertHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AlertHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListAlerts pages through active alerts
func (h *AlertHandler) ListAlerts(c fiber.Ctx) error {
	req := dto.ListAlertsRequest{
		Supermarket: c.Query("supermarket"),
		Category:    c.Query("category"),
		Limit:       queryInt(c, "limit", 0),
		Offset:      queryInt(c, "offset", 0),
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.alertFlow.ListAlerts(h.createRequestContext(c, "/api/v1/alerts"), &req)
	if err != nil {
		log.Println("Alert listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list alerts", "LIST_ALERTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CountUnread reports the active unread alert count
func (h *AlertHandler) CountUnread(c fiber.Ctx) error {
	result, err := h.alertFlow.CountUnread(h.createRequestContext(c, "/api/v1/alerts/count"))
	if err != nil {
		log.Println("Alert count failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count alerts", "ALERT_COUNT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Summary aggregates the alert stream
func (h *AlertHandler) Summary(c fiber.Ctx) error {
	result, err := h.alertFlow.Summary(h.createRequestContext(c, "/api/v1/alerts/summary"))
	if err != nil {
		log.Println("Alert summary failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to summarize alerts", "ALERT_SUMMARY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// MarkRead marks one alert as read
func (h *AlertHandler) MarkRead(c fiber.Ctx) error {
	alertUUID := c.Params("uuid")
	if alertUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Alert UUID is required", "MISSING_ALERT_UUID", nil)
	}

	result, err := h.alertFlow.MarkRead(h.createRequestContext(c, "/api/v1/alerts/"+alertUUID+"/read"), alertUUID)
	if err != nil {
		if businessflow.IsAlertIDInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Alert UUID is invalid", "ALERT_ID_INVALID", nil)
		}
		if businessflow.IsAlertNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Alert not found or already read", "ALERT_NOT_FOUND", nil)
		}

		log.Println("Mark alert read failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to mark alert as read", "MARK_READ_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Ignore deactivates an alert permanently
func (h *AlertHandler) Ignore(c fiber.Ctx) error {
	alertUUID := c.Params("uuid")
	if alertUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Alert UUID is required", "MISSING_ALERT_UUID", nil)
	}

	result, err := h.alertFlow.Ignore(h.createRequestContext(c, "/api/v1/alerts/"+alertUUID+"/ignore"), alertUUID)
	if err != nil {
		if businessflow.IsAlertIDInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Alert UUID is invalid", "ALERT_ID_INVALID", nil)
		}
		if businessflow.IsAlertAlreadyIgnored(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Alert not found or already ignored", "ALERT_ALREADY_IGNORED", nil)
		}

		log.Println("Ignore alert failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to ignore alert", "IGNORE_ALERT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// MarkReadByProduct marks all of one product's active alerts as read
func (h *AlertHandler) MarkReadByProduct(c fiber.Ctx) error {
	uniqueID := c.Params("unique_id")
	if uniqueID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Product unique id is required", "MISSING_PRODUCT_ID", nil)
	}

	result, err := h.alertFlow.MarkReadByProduct(h.createRequestContext(c, "/api/v1/alerts/product/"+uniqueID+"/read"), uniqueID)
	if err != nil {
		log.Println("Mark product alerts read failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to mark product alerts as read", "MARK_READ_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// BulkMarkRead marks a set of alerts as read
func (h *AlertHandler) BulkMarkRead(c fiber.Ctx) error {
	var req dto.BulkMarkReadRequest
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

	result, err := h.alertFlow.BulkMarkRead(h.createRequestContext(c, "/api/v1/alerts/bulk-read"), &req)
	if err != nil {
		if businessflow.IsAlertIDInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Alert UUID is invalid", "ALERT_ID_INVALID", nil)
		}

		log.Println("Bulk mark read failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to mark alerts as read", "BULK_MARK_READ_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// RecentAlerts lists active alerts created within a window
func (h *AlertHandler) RecentAlerts(c fiber.Ctx) error {
	hours := queryInt(c, "hours", 0)
	limit := queryInt(c, "limit", 0)

	result, err := h.alertFlow.RecentAlerts(h.createRequestContext(c, "/api/v1/alerts/recent"), hours, limit)
	if err != nil {
		log.Println("Recent alerts lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list recent alerts", "RECENT_ALERTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *AlertHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *AlertHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
