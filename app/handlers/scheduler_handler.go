package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/priceshield/priceshield-backend/app/dto"
	"github.com/priceshield/priceshield-backend/app/scheduler"
	"github.com/priceshield/priceshield-backend/utils"
)

// SchedulerHandlerInterface defines the contract for scheduler admin handlers
type SchedulerHandlerInterface interface {
	ForceUpdate(c fiber.Ctx) error
	Status(c fiber.Ctx) error
}

// SchedulerHandler exposes manual control over the catalog refresh scheduler
type SchedulerHandler struct {
	scheduler *scheduler.CatalogScheduler
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(s *scheduler.CatalogScheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: s}
}

func (h *SchedulerHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SchedulerHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ForceUpdate triggers one catalog refresh pass outside the schedule
func (h *SchedulerHandler) ForceUpdate(c fiber.Ctx) error {
	err := h.scheduler.ForceRefresh(h.createRequestContext(c, "/api/v1/scheduler/update"))
	if err != nil {
		if errors.Is(err, scheduler.ErrRefreshRunning) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A catalog refresh is already running", "REFRESH_IN_PROGRESS", nil)
		}
		log.Println("Force refresh failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start catalog refresh", "REFRESH_START_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Catalog refresh started", nil)
}

// Status reports the scheduler state and the most recent refresh outcome
func (h *SchedulerHandler) Status(c fiber.Ctx) error {
	status, err := h.scheduler.Status(h.createRequestContext(c, "/api/v1/scheduler/status"))
	if err != nil {
		log.Println("Scheduler status failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read scheduler status", "SCHEDULER_STATUS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Scheduler status retrieved successfully", status)
}

// createRequestContext creates a context with request metadata and timeout
func (h *SchedulerHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
