package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/priceshield/priceshield-backend/app/dto"
	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/repository"
	"github.com/priceshield/priceshield-backend/utils"
)

// ProductFlow defines the read/search operations over the tracked catalog.
type ProductFlow interface {
	SearchProducts(ctx context.Context, req *dto.SearchProductsRequest, metadata *ClientMetadata) (*dto.SearchProductsResponse, error)
	SavedSearch(ctx context.Context, req *dto.SavedSearchRequest) (*dto.SavedSearchResponse, error)
	ComparePrices(ctx context.Context, query string, limit int) (*dto.PriceComparisonResponse, error)
	PopularSearches(ctx context.Context, limit int) (*dto.PopularSearchesResponse, error)
	Supermarkets(ctx context.Context) (*dto.SupermarketsResponse, error)
	ListProducts(ctx context.Context, req *dto.ListProductsRequest) (*dto.ListProductsResponse, error)
	RecentProducts(ctx context.Context, hours, limit int) (*dto.ListProductsResponse, error)
	Categories(ctx context.Context) (*dto.CategoriesResponse, error)
	Brands(ctx context.Context) (*dto.BrandsResponse, error)
	Statistics(ctx context.Context) (*dto.StatisticsResponse, error)
}

type ProductFlowImpl struct {
	catalog           CatalogSource
	ingest            IngestFlow
	productRepo       repository.ProductRecordRepository
	alertRepo         repository.AlertRepository
	searchHistoryRepo repository.SearchHistoryRepository
	updateStatRepo    repository.UpdateStatRepository
}

// NewProductFlow creates a new product flow instance
func NewProductFlow(
	catalog CatalogSource,
	ingest IngestFlow,
	productRepo repository.ProductRecordRepository,
	alertRepo repository.AlertRepository,
	searchHistoryRepo repository.SearchHistoryRepository,
	updateStatRepo repository.UpdateStatRepository,
) ProductFlow {
	return &ProductFlowImpl{
		catalog:           catalog,
		ingest:            ingest,
		productRepo:       productRepo,
		alertRepo:         alertRepo,
		searchHistoryRepo: searchHistoryRepo,
		updateStatRepo:    updateStatRepo,
	}
}

// SearchProducts runs a live catalog search across one or all supermarkets.
// With Save set, every fetched listing is also folded into the store through
// the ingest pipeline.
func (s *ProductFlowImpl) SearchProducts(ctx context.Context, req *dto.SearchProductsRequest, metadata *ClientMetadata) (*dto.SearchProductsResponse, error) {
	query := strings.TrimSpace(strings.ToLower(req.Query))
	if query == "" {
		return nil, NewBusinessError("SEARCH_QUERY_REQUIRED", "Search query is required", ErrQueryRequired)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = utils.DefaultSearchLimit
	}

	results := make(map[string][]RawListing)
	errs := make(map[string]error)
	if req.Supermarket != "" {
		listings, err := s.catalog.Search(ctx, req.Supermarket, query, limit)
		if err != nil {
			switch {
			case errors.Is(err, ErrUnknownRetailer):
				return nil, NewBusinessError("UNKNOWN_SUPERMARKET", fmt.Sprintf("Unknown supermarket %q", req.Supermarket), err)
			case errors.Is(err, ErrRetailerInactive):
				return nil, NewBusinessError("SUPERMARKET_INACTIVE", fmt.Sprintf("Supermarket %q is not active", req.Supermarket), err)
			default:
				errs[req.Supermarket] = err
			}
		} else {
			results[req.Supermarket] = listings
		}
	} else {
		results, errs = s.catalog.SearchAll(ctx, query, limit)
	}

	resp := &dto.SearchProductsResponse{
		Message: "Search completed",
		Query:   query,
		Results: make(map[string]dto.SupermarketSearchDTO),
	}

	retailerNames := make(map[string]string)
	for _, r := range s.catalog.Retailers() {
		retailerNames[r.Key] = r.Name
	}

	var all []RawListing
	for key, listings := range results {
		resp.Results[key] = dto.SupermarketSearchDTO{
			Supermarket: retailerNames[key],
			Success:     true,
			Count:       len(listings),
			Products:    listingsToDTOs(listings),
		}
		resp.TotalResults += len(listings)
		all = append(all, listings...)
	}
	for key, err := range errs {
		resp.Results[key] = dto.SupermarketSearchDTO{
			Supermarket: retailerNames[key],
			Success:     false,
			Error:       err.Error(),
			Products:    []dto.ProductDTO{},
		}
	}

	if req.Save && len(all) > 0 {
		summary, err := s.ingest.IngestBatch(ctx, all, query)
		if err != nil {
			return nil, NewBusinessError("SEARCH_INGEST_FAILED", "Failed to save search results", err)
		}
		resp.Ingest = toIngestSummaryDTO(summary)
	} else {
		// History is best-effort on read-only searches.
		if err := s.searchHistoryRepo.Touch(ctx, query, resp.TotalResults, utils.UTCNow()); err != nil {
			log.Printf("search: record history %q: %v", query, err)
		}
	}

	return resp, nil
}

// SavedSearch matches already-tracked products by name.
func (s *ProductFlowImpl) SavedSearch(ctx context.Context, req *dto.SavedSearchRequest) (*dto.SavedSearchResponse, error) {
	query := strings.TrimSpace(strings.ToLower(req.Query))
	if query == "" {
		return nil, NewBusinessError("SEARCH_QUERY_REQUIRED", "Search query is required", ErrQueryRequired)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = utils.DefaultSearchLimit
	}

	records, err := s.productRepo.SearchByName(ctx, query, req.Supermarket, "price ASC", limit)
	if err != nil {
		return nil, NewBusinessError("SAVED_SEARCH_FAILED", "Failed to search tracked products", err)
	}

	return &dto.SavedSearchResponse{
		Message:  "Saved search completed",
		Query:    query,
		Count:    len(records),
		Products: recordsToDTOs(records),
	}, nil
}

// ComparePrices lists tracked products matching the query across all
// supermarkets, cheapest first.
func (s *ProductFlowImpl) ComparePrices(ctx context.Context, query string, limit int) (*dto.PriceComparisonResponse, error) {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil, NewBusinessError("SEARCH_QUERY_REQUIRED", "Search query is required", ErrQueryRequired)
	}
	if limit <= 0 {
		limit = utils.DefaultSearchLimit
	}

	records, err := s.productRepo.SearchByName(ctx, query, "", "price ASC", limit)
	if err != nil {
		return nil, NewBusinessError("PRICE_COMPARISON_FAILED", "Failed to compare prices", err)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Price < records[j].Price })

	resp := &dto.PriceComparisonResponse{
		Message:  "Price comparison completed",
		Query:    query,
		Products: recordsToDTOs(records),
	}
	if len(resp.Products) > 0 {
		resp.Cheapest = &resp.Products[0]
	}
	return resp, nil
}

// PopularSearches lists the most frequent search terms.
func (s *ProductFlowImpl) PopularSearches(ctx context.Context, limit int) (*dto.PopularSearchesResponse, error) {
	if limit <= 0 {
		limit = 10
	}
	top, err := s.searchHistoryRepo.TopQueries(ctx, limit)
	if err != nil {
		return nil, NewBusinessError("POPULAR_SEARCHES_FAILED", "Failed to load popular searches", err)
	}

	searches := make([]dto.PopularSearchDTO, 0, len(top))
	for _, t := range top {
		searches = append(searches, dto.PopularSearchDTO{
			Query:          t.Query,
			SearchCount:    t.SearchCount,
			TotalResults:   t.TotalResults,
			LastSearchedAt: t.LastSearch.Format(time.RFC3339),
		})
	}
	return &dto.PopularSearchesResponse{Message: "Popular searches retrieved", Searches: searches}, nil
}

// Supermarkets lists the supported catalogs.
func (s *ProductFlowImpl) Supermarkets(ctx context.Context) (*dto.SupermarketsResponse, error) {
	infos := s.catalog.Retailers()
	out := make([]dto.SupermarketDTO, 0, len(infos))
	for _, r := range infos {
		out = append(out, dto.SupermarketDTO{Key: r.Key, Name: r.Name, Active: r.Active})
	}
	return &dto.SupermarketsResponse{Message: "Supermarkets retrieved", Supermarkets: out}, nil
}

// ListProducts pages through tracked products, optionally by category.
func (s *ProductFlowImpl) ListProducts(ctx context.Context, req *dto.ListProductsRequest) (*dto.ListProductsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = utils.DefaultSearchLimit
	}

	var (
		records []*models.ProductRecord
		err     error
	)
	if req.Category != "" {
		records, err = s.productRepo.ListByCategory(ctx, req.Category, limit)
	} else {
		records, err = s.productRepo.ByFilter(ctx, models.ProductRecordFilter{}, "last_updated_at DESC", limit, req.Offset)
	}
	if err != nil {
		return nil, NewBusinessError("LIST_PRODUCTS_FAILED", "Failed to list products", err)
	}

	return &dto.ListProductsResponse{
		Message:  "Products retrieved",
		Count:    len(records),
		Products: recordsToDTOs(records),
	}, nil
}

// RecentProducts lists products updated within the window.
func (s *ProductFlowImpl) RecentProducts(ctx context.Context, hours, limit int) (*dto.ListProductsResponse, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 {
		limit = utils.DefaultSearchLimit
	}
	since := utils.UTCNowAdd(-time.Duration(hours) * time.Hour)
	records, err := s.productRepo.ListRecent(ctx, since, limit)
	if err != nil {
		return nil, NewBusinessError("RECENT_PRODUCTS_FAILED", "Failed to list recent products", err)
	}
	return &dto.ListProductsResponse{
		Message:  "Recent products retrieved",
		Count:    len(records),
		Products: recordsToDTOs(records),
	}, nil
}

// Categories lists the distinct tracked categories.
func (s *ProductFlowImpl) Categories(ctx context.Context) (*dto.CategoriesResponse, error) {
	categories, err := s.productRepo.DistinctCategories(ctx)
	if err != nil {
		return nil, NewBusinessError("CATEGORIES_FAILED", "Failed to list categories", err)
	}
	return &dto.CategoriesResponse{Message: "Categories retrieved", Categories: categories}, nil
}

// Brands lists the distinct tracked brands.
func (s *ProductFlowImpl) Brands(ctx context.Context) (*dto.BrandsResponse, error) {
	brands, err := s.productRepo.DistinctBrands(ctx)
	if err != nil {
		return nil, NewBusinessError("BRANDS_FAILED", "Failed to list brands", err)
	}
	return &dto.BrandsResponse{Message: "Brands retrieved", Brands: brands}, nil
}

// Statistics summarizes the tracked catalog and the last scheduled refresh.
func (s *ProductFlowImpl) Statistics(ctx context.Context) (*dto.StatisticsResponse, error) {
	totalProducts, err := s.productRepo.Count(ctx, models.ProductRecordFilter{})
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to load statistics", err)
	}
	totalAlerts, err := s.alertRepo.Count(ctx, models.AlertFilter{})
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to load statistics", err)
	}
	active := true
	activeAlerts, err := s.alertRepo.Count(ctx, models.AlertFilter{Active: &active})
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to load statistics", err)
	}

	resp := &dto.StatisticsResponse{
		Message:       "Statistics retrieved",
		TotalProducts: totalProducts,
		TotalAlerts:   totalAlerts,
		ActiveAlerts:  activeAlerts,
		Supermarkets:  len(s.catalog.Retailers()),
	}

	if stat, err := s.updateStatRepo.Latest(ctx); err == nil && stat != nil {
		resp.LastUpdateAt = stat.StartedAt.Format(time.RFC3339)
		resp.LastUpdateType = stat.UpdateType
		resp.LastUpdateSecs = stat.DurationSeconds
	}
	return resp, nil
}

func listingsToDTOs(listings []RawListing) []dto.ProductDTO {
	out := make([]dto.ProductDTO, 0, len(listings))
	for _, l := range listings {
		out = append(out, dto.ProductDTO{
			Name:            l.RawName,
			Brand:           l.Brand,
			Description:     l.Description,
			Retailer:        l.Retailer,
			RetailerKey:     l.RetailerKey,
			Price:           l.Price,
			OriginalPrice:   l.OriginalPrice,
			DiscountPercent: l.DiscountPercent,
			Currency:        utils.PENCurrency,
			Available:       l.Available,
			Images:          l.Images,
			Categories:      l.Categories,
			URL:             l.URL,
			ScrapedAt:       l.ObservedAt.Format(time.RFC3339),
		})
	}
	return out
}

func recordsToDTOs(records []*models.ProductRecord) []dto.ProductDTO {
	out := make([]dto.ProductDTO, 0, len(records))
	for _, r := range records {
		out = append(out, ToProductDTO(*r))
	}
	return out
}

func toIngestSummaryDTO(s *IngestSummary) *dto.IngestSummaryDTO {
	if s == nil {
		return nil
	}
	return &dto.IngestSummaryDTO{
		Received:     s.Received,
		Invalid:      s.Invalid,
		Duplicates:   s.Duplicates,
		Created:      s.Created,
		Updated:      s.Updated,
		Observations: s.Observations,
		Alerts:       s.Alerts,
		Failures:     s.Failures,
	}
}
