package businessflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/priceshield/priceshield-backend/app/dto"
	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/repository"
	"github.com/priceshield/priceshield-backend/utils"
	"github.com/xuri/excelize/v2"
)

// DashboardFlow defines the aggregated read operations behind the dashboard.
type DashboardFlow interface {
	Stats(ctx context.Context) (*dto.DashboardStatsResponse, error)
	ProductHistory(ctx context.Context, req *dto.ProductHistoryRequest) (*dto.ProductHistoryResponse, error)
	PriceTrend(ctx context.Context, uniqueID string, days int) (*dto.PriceTrendResponse, error)
	RecentChanges(ctx context.Context, hours, limit int) (*dto.RecentChangesResponse, error)
	ExportAlerts(ctx context.Context) (string, []byte, error)
}

type DashboardFlowImpl struct {
	catalog     CatalogSource
	productRepo repository.ProductRecordRepository
	obsRepo     repository.PriceObservationRepository
	alertRepo   repository.AlertRepository
}

// NewDashboardFlow creates a new dashboard flow instance
func NewDashboardFlow(
	catalog CatalogSource,
	productRepo repository.ProductRecordRepository,
	obsRepo repository.PriceObservationRepository,
	alertRepo repository.AlertRepository,
) DashboardFlow {
	return &DashboardFlowImpl{
		catalog:     catalog,
		productRepo: productRepo,
		obsRepo:     obsRepo,
		alertRepo:   alertRepo,
	}
}

// Stats aggregates the headline dashboard numbers.
func (s *DashboardFlowImpl) Stats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	totalProducts, err := s.productRepo.Count(ctx, models.ProductRecordFilter{})
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_STATS_FAILED", "Failed to load dashboard stats", err)
	}
	summary, err := s.alertRepo.Summary(ctx)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_STATS_FAILED", "Failed to load dashboard stats", err)
	}

	infos := s.catalog.Retailers()
	retailers := make([]dto.SupermarketDTO, 0, len(infos))
	for _, r := range infos {
		retailers = append(retailers, dto.SupermarketDTO{Key: r.Key, Name: r.Name, Active: r.Active})
	}

	resp := &dto.DashboardStatsResponse{
		Message:          "Dashboard stats retrieved",
		TotalProducts:    totalProducts,
		TotalAlerts:      summary.TotalAlerts,
		UnreadAlerts:     summary.UnreadAlerts,
		PriceIncreases:   summary.PriceIncreases,
		PriceDecreases:   summary.PriceDecreases,
		TrackedRetailers: retailers,
	}
	if at, err := s.productRepo.LastUpdatedAt(ctx); err == nil && at != nil {
		resp.LastUpdateAt = at.Format(time.RFC3339)
	}
	return resp, nil
}

// ProductHistory ties one product to its price ledger and alert history.
func (s *DashboardFlowImpl) ProductHistory(ctx context.Context, req *dto.ProductHistoryRequest) (*dto.ProductHistoryResponse, error) {
	record, err := s.productRepo.ByUniqueID(ctx, req.UniqueID)
	if err != nil {
		return nil, NewBusinessError("PRODUCT_HISTORY_FAILED", "Failed to load product", err)
	}
	if record == nil {
		return nil, NewBusinessError("PRODUCT_NOT_FOUND", "Product not found", ErrProductNotFound)
	}

	days := req.Days
	if days <= 0 {
		days = 30
	}
	to := utils.UTCNow()
	from := to.AddDate(0, 0, -days)

	observations, err := s.obsRepo.ListByProduct(ctx, req.UniqueID, from, to)
	if err != nil {
		return nil, NewBusinessError("PRODUCT_HISTORY_FAILED", "Failed to load price history", err)
	}
	alerts, err := s.alertRepo.ListByProduct(ctx, req.UniqueID, 100)
	if err != nil {
		return nil, NewBusinessError("PRODUCT_HISTORY_FAILED", "Failed to load alert history", err)
	}

	obsDTOs := make([]dto.PriceObservationDTO, 0, len(observations))
	for _, o := range observations {
		obsDTOs = append(obsDTOs, ToObservationDTO(*o))
	}

	return &dto.ProductHistoryResponse{
		Message:      "Product history retrieved",
		Product:      ToProductDTO(*record),
		Observations: obsDTOs,
		Alerts:       alertsToDTOs(alerts),
	}, nil
}

// PriceTrend aggregates a product's ledger into daily average prices.
func (s *DashboardFlowImpl) PriceTrend(ctx context.Context, uniqueID string, days int) (*dto.PriceTrendResponse, error) {
	if days <= 0 {
		days = 30
	}
	record, err := s.productRepo.ByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, NewBusinessError("PRICE_TREND_FAILED", "Failed to load product", err)
	}
	if record == nil {
		return nil, NewBusinessError("PRODUCT_NOT_FOUND", "Product not found", ErrProductNotFound)
	}

	to := utils.UTCNow()
	from := to.AddDate(0, 0, -days)
	observations, err := s.obsRepo.ListByProduct(ctx, uniqueID, from, to)
	if err != nil {
		return nil, NewBusinessError("PRICE_TREND_FAILED", "Failed to load price history", err)
	}

	type bucket struct {
		sum   float64
		count int
	}
	byDay := make(map[string]*bucket)
	for _, o := range observations {
		day := utils.DayOf(o.ObservedAt)
		b, ok := byDay[day]
		if !ok {
			b = &bucket{}
			byDay[day] = b
		}
		b.sum += o.Price
		b.count++
	}

	orderedDays := make([]string, 0, len(byDay))
	for day := range byDay {
		orderedDays = append(orderedDays, day)
	}
	sort.Strings(orderedDays)

	points := make([]dto.PriceTrendPoint, 0, len(orderedDays))
	for _, day := range orderedDays {
		b := byDay[day]
		points = append(points, dto.PriceTrendPoint{
			Day:          day,
			AveragePrice: utils.RoundTo(b.sum/float64(b.count), 2),
			Observations: b.count,
		})
	}

	return &dto.PriceTrendResponse{
		Message:  "Price trend retrieved",
		UniqueID: uniqueID,
		Days:     days,
		Points:   points,
	}, nil
}

// RecentChanges lists the latest accepted price movements across the catalog.
func (s *DashboardFlowImpl) RecentChanges(ctx context.Context, hours, limit int) (*dto.RecentChangesResponse, error) {
	if hours <= 0 {
		hours = 48
	}
	if limit <= 0 {
		limit = 50
	}
	since := utils.UTCNowAdd(-time.Duration(hours) * time.Hour)
	alerts, err := s.alertRepo.ByFilter(ctx, models.AlertFilter{CreatedAfter: &since}, "created_at DESC", limit, 0)
	if err != nil {
		return nil, NewBusinessError("RECENT_CHANGES_FAILED", "Failed to load recent changes", err)
	}
	return &dto.RecentChangesResponse{
		Message: "Recent price changes retrieved",
		Count:   len(alerts),
		Changes: alertsToDTOs(alerts),
	}, nil
}

// ExportAlerts builds an xlsx workbook of the active alerts.
func (s *DashboardFlowImpl) ExportAlerts(ctx context.Context) (string, []byte, error) {
	active := true
	alerts, err := s.alertRepo.ByFilter(ctx, models.AlertFilter{Active: &active}, "created_at DESC", 10000, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_ALERTS_FAILED", "Failed to load alerts for export", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "alerts"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"uuid", "product", "supermarket", "old_price", "new_price", "difference", "percentage", "direction", "read", "created_at", "url"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, a := range alerts {
		record := []string{
			a.UUID.String(),
			a.ProductName,
			a.Retailer,
			strconv.FormatFloat(a.OldPrice, 'f', 2, 64),
			strconv.FormatFloat(a.NewPrice, 'f', 2, 64),
			strconv.FormatFloat(a.PriceDifference, 'f', 2, 64),
			strconv.FormatFloat(a.PercentageChange, 'f', 1, 64),
			a.Direction.String(),
			strconv.FormatBool(a.IsRead),
			a.CreatedAt.UTC().Format(time.RFC3339),
			a.ProductURL,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("active_alerts_%s.xlsx", utils.UTCNow().Format("20060102"))
	return filename, buf.Bytes(), nil
}
