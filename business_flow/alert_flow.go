package businessflow

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/priceshield/priceshield-backend/app/dto"
	"github.com/priceshield/priceshield-backend/config"
	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/repository"
	"github.com/priceshield/priceshield-backend/utils"
	"github.com/redis/go-redis/v9"
)

const (
	alertCountCacheKey = "alerts:active_unread_count"
	alertCountCacheTTL = 30 * time.Second
)

// AlertFlow defines the operations over the alert stream.
type AlertFlow interface {
	ListAlerts(ctx context.Context, req *dto.ListAlertsRequest) (*dto.ListAlertsResponse, error)
	CountUnread(ctx context.Context) (*dto.AlertCountResponse, error)
	Summary(ctx context.Context) (*dto.AlertSummaryResponse, error)
	MarkRead(ctx context.Context, alertUUID string) (*dto.MarkAlertReadResponse, error)
	Ignore(ctx context.Context, alertUUID string) (*dto.IgnoreAlertResponse, error)
	MarkReadByProduct(ctx context.Context, productUniqueID string) (*dto.MarkReadByProductResponse, error)
	BulkMarkRead(ctx context.Context, req *dto.BulkMarkReadRequest) (*dto.BulkMarkReadResponse, error)
	RecentAlerts(ctx context.Context, hours, limit int) (*dto.ListAlertsResponse, error)
}

type AlertFlowImpl struct {
	alertRepo   repository.AlertRepository
	rc          *redis.Client
	cacheConfig *config.CacheConfig
}

// NewAlertFlow creates a new alert flow instance
func NewAlertFlow(alertRepo repository.AlertRepository, rc *redis.Client, cacheConfig *config.CacheConfig) AlertFlow {
	return &AlertFlowImpl{alertRepo: alertRepo, rc: rc, cacheConfig: cacheConfig}
}

// ListAlerts pages through active alerts, optionally filtered by supermarket
// or category.
func (s *AlertFlowImpl) ListAlerts(ctx context.Context, req *dto.ListAlertsRequest) (*dto.ListAlertsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		alerts []*models.Alert
		err    error
	)
	switch {
	case req.Supermarket != "":
		alerts, err = s.alertRepo.ListActiveByRetailer(ctx, req.Supermarket, limit)
	case req.Category != "":
		alerts, err = s.alertRepo.ListActiveByCategory(ctx, req.Category, limit)
	default:
		alerts, err = s.alertRepo.ListActive(ctx, limit, req.Offset)
	}
	if err != nil {
		return nil, NewBusinessError("LIST_ALERTS_FAILED", "Failed to list alerts", err)
	}

	return &dto.ListAlertsResponse{
		Message: "Alerts retrieved",
		Count:   len(alerts),
		Alerts:  alertsToDTOs(alerts),
	}, nil
}

// CountUnread returns the active unread alert count, served from cache when
// fresh.
func (s *AlertFlowImpl) CountUnread(ctx context.Context) (*dto.AlertCountResponse, error) {
	cacheKey := redisKey(s.cacheConfig, alertCountCacheKey)
	if s.rc != nil {
		if v, err := s.rc.Get(ctx, cacheKey).Result(); err == nil {
			if count, err := strconv.ParseInt(v, 10, 64); err == nil {
				return &dto.AlertCountResponse{Message: "Alert count retrieved", Count: count, Cached: true}, nil
			}
		}
	}

	count, err := s.alertRepo.CountActiveUnread(ctx)
	if err != nil {
		return nil, NewBusinessError("ALERT_COUNT_FAILED", "Failed to count alerts", err)
	}
	if s.rc != nil {
		_ = s.rc.Set(ctx, cacheKey, strconv.FormatInt(count, 10), alertCountCacheTTL).Err()
	}
	return &dto.AlertCountResponse{Message: "Alert count retrieved", Count: count}, nil
}

// Summary aggregates the whole alert stream.
func (s *AlertFlowImpl) Summary(ctx context.Context) (*dto.AlertSummaryResponse, error) {
	summary, err := s.alertRepo.Summary(ctx)
	if err != nil {
		return nil, NewBusinessError("ALERT_SUMMARY_FAILED", "Failed to summarize alerts", err)
	}
	return &dto.AlertSummaryResponse{
		Message:        "Alert summary retrieved",
		TotalAlerts:    summary.TotalAlerts,
		UnreadAlerts:   summary.UnreadAlerts,
		ReadAlerts:     summary.ReadAlerts,
		PriceIncreases: summary.PriceIncreases,
		PriceDecreases: summary.PriceDecreases,
	}, nil
}

// MarkRead marks one alert as read. Marking an already-read alert is a no-op
// reported as not found.
func (s *AlertFlowImpl) MarkRead(ctx context.Context, alertUUID string) (*dto.MarkAlertReadResponse, error) {
	id, err := uuid.Parse(alertUUID)
	if err != nil {
		return nil, NewBusinessError("ALERT_ID_INVALID", "Alert id is not a valid UUID", ErrAlertIDRequired)
	}
	updated, err := s.alertRepo.MarkRead(ctx, id)
	if err != nil {
		return nil, NewBusinessError("MARK_READ_FAILED", "Failed to mark alert as read", err)
	}
	if !updated {
		return nil, NewBusinessError("ALERT_NOT_FOUND", "Alert not found or already read", ErrAlertNotFound)
	}
	s.invalidateCount(ctx)
	return &dto.MarkAlertReadResponse{Message: "Alert marked as read", UUID: alertUUID}, nil
}

// Ignore deactivates an alert. An ignored alert is never resurrected.
func (s *AlertFlowImpl) Ignore(ctx context.Context, alertUUID string) (*dto.IgnoreAlertResponse, error) {
	id, err := uuid.Parse(alertUUID)
	if err != nil {
		return nil, NewBusinessError("ALERT_ID_INVALID", "Alert id is not a valid UUID", ErrAlertIDRequired)
	}
	updated, err := s.alertRepo.Ignore(ctx, id)
	if err != nil {
		return nil, NewBusinessError("IGNORE_ALERT_FAILED", "Failed to ignore alert", err)
	}
	if !updated {
		return nil, NewBusinessError("ALERT_ALREADY_IGNORED", "Alert not found or already ignored", ErrAlertAlreadyIgnored)
	}
	s.invalidateCount(ctx)
	return &dto.IgnoreAlertResponse{Message: "Alert ignored", UUID: alertUUID}, nil
}

// MarkReadByProduct marks all of one product's active alerts as read.
func (s *AlertFlowImpl) MarkReadByProduct(ctx context.Context, productUniqueID string) (*dto.MarkReadByProductResponse, error) {
	if productUniqueID == "" {
		return nil, NewBusinessError("PRODUCT_ID_REQUIRED", "Product unique id is required", ErrProductNotFound)
	}
	updated, err := s.alertRepo.MarkReadByProduct(ctx, productUniqueID)
	if err != nil {
		return nil, NewBusinessError("MARK_READ_FAILED", "Failed to mark product alerts as read", err)
	}
	s.invalidateCount(ctx)
	return &dto.MarkReadByProductResponse{Message: "Product alerts marked as read", Updated: updated}, nil
}

// BulkMarkRead marks a set of alerts as read in one statement.
func (s *AlertFlowImpl) BulkMarkRead(ctx context.Context, req *dto.BulkMarkReadRequest) (*dto.BulkMarkReadResponse, error) {
	ids := make([]uuid.UUID, 0, len(req.UUIDs))
	for _, raw := range req.UUIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, NewBusinessError("ALERT_ID_INVALID", "Alert id is not a valid UUID", ErrAlertIDRequired)
		}
		ids = append(ids, id)
	}
	updated, err := s.alertRepo.BulkMarkRead(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("BULK_MARK_READ_FAILED", "Failed to mark alerts as read", err)
	}
	s.invalidateCount(ctx)
	return &dto.BulkMarkReadResponse{Message: "Alerts marked as read", Updated: updated}, nil
}

// RecentAlerts lists active alerts created within the window.
func (s *AlertFlowImpl) RecentAlerts(ctx context.Context, hours, limit int) (*dto.ListAlertsResponse, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 {
		limit = 50
	}
	active := true
	since := utils.UTCNowAdd(-time.Duration(hours) * time.Hour)
	alerts, err := s.alertRepo.ByFilter(ctx, models.AlertFilter{Active: &active, CreatedAfter: &since}, "created_at DESC", limit, 0)
	if err != nil {
		return nil, NewBusinessError("RECENT_ALERTS_FAILED", "Failed to list recent alerts", err)
	}
	return &dto.ListAlertsResponse{
		Message: "Recent alerts retrieved",
		Count:   len(alerts),
		Alerts:  alertsToDTOs(alerts),
	}, nil
}

func (s *AlertFlowImpl) invalidateCount(ctx context.Context) {
	if s.rc == nil {
		return
	}
	_ = s.rc.Del(ctx, redisKey(s.cacheConfig, alertCountCacheKey)).Err()
}

func alertsToDTOs(alerts []*models.Alert) []dto.AlertDTO {
	out := make([]dto.AlertDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, ToAlertDTO(*a))
	}
	return out
}

// redisKey namespaces a cache key with the configured prefix.
func redisKey(cfg *config.CacheConfig, key string) string {
	if cfg == nil || cfg.RedisPrefix == "" {
		return key
	}
	return cfg.RedisPrefix + key
}
