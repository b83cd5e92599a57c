package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/lib/pq"
	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/repository"
	"github.com/priceshield/priceshield-backend/utils"
)

// IngestSummary reports what one batch did to the store.
type IngestSummary struct {
	Received     int `json:"received"`
	Invalid      int `json:"invalid"`
	Duplicates   int `json:"duplicates"`
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Observations int `json:"observations"`
	Alerts       int `json:"alerts"`
	Failures     int `json:"failures"`
}

// IngestFlow is the write path of the system: it takes a batch of raw
// listings from one scrape and folds it into product records, the price
// ledger and the alert stream.
type IngestFlow interface {
	IngestBatch(ctx context.Context, listings []RawListing, searchQuery string) (*IngestSummary, error)
}

type IngestFlowImpl struct {
	resolver          *IdentityResolver
	ledger            *PriceLedger
	policy            *AlertPolicy
	productRepo       repository.ProductRecordRepository
	searchHistoryRepo repository.SearchHistoryRepository
	locks             *identityLocks
}

func NewIngestFlow(
	resolver *IdentityResolver,
	ledger *PriceLedger,
	policy *AlertPolicy,
	productRepo repository.ProductRecordRepository,
	searchHistoryRepo repository.SearchHistoryRepository,
) IngestFlow {
	return &IngestFlowImpl{
		resolver:          resolver,
		ledger:            ledger,
		policy:            policy,
		productRepo:       productRepo,
		searchHistoryRepo: searchHistoryRepo,
		locks:             newIdentityLocks(),
	}
}

// IngestBatch validates, resolves and consolidates the listings, then
// applies each surviving listing to the store under a per-identity lock.
// A failure on one listing never aborts the rest of the batch.
func (f *IngestFlowImpl) IngestBatch(ctx context.Context, listings []RawListing, searchQuery string) (*IngestSummary, error) {
	summary := &IngestSummary{Received: len(listings)}

	resolved := make([]resolvedListing, 0, len(listings))
	for _, l := range listings {
		if err := l.Valid(); err != nil {
			summary.Invalid++
			ingestListingsTotal.WithLabelValues(l.RetailerKey, "invalid").Inc()
			continue
		}
		identity, err := f.resolver.Resolve(ctx, l.RetailerKey, l.RawName)
		if err != nil {
			summary.Failures++
			ingestListingsTotal.WithLabelValues(l.RetailerKey, "failed").Inc()
			log.Printf("ingest: resolve %q at %s: %v", l.RawName, l.RetailerKey, err)
			continue
		}
		resolved = append(resolved, resolvedListing{Listing: l, Identity: identity.Key})
	}

	consolidated := Consolidate(resolved)
	summary.Duplicates = len(resolved) - len(consolidated)

	for _, rl := range consolidated {
		if err := f.applyListing(ctx, rl, searchQuery, summary); err != nil {
			summary.Failures++
			ingestListingsTotal.WithLabelValues(rl.Listing.RetailerKey, "failed").Inc()
			log.Printf("ingest: apply %q: %v", rl.Identity, err)
		}
	}

	if searchQuery != "" {
		if err := f.searchHistoryRepo.Touch(ctx, searchQuery, len(consolidated), utils.UTCNow()); err != nil {
			log.Printf("ingest: record search %q: %v", searchQuery, err)
		}
	}

	return summary, nil
}

func (f *IngestFlowImpl) applyListing(ctx context.Context, rl resolvedListing, searchQuery string, summary *IngestSummary) error {
	f.locks.lock(rl.Identity)
	defer f.locks.unlock(rl.Identity)

	l := rl.Listing

	existing, err := f.productRepo.ByUniqueID(ctx, rl.Identity)
	if err != nil {
		return fmt.Errorf("load product %q: %w", rl.Identity, err)
	}
	if existing == nil {
		if err := f.createProduct(ctx, rl, searchQuery); err != nil {
			return err
		}
		summary.Created++
		summary.Observations++
		ingestListingsTotal.WithLabelValues(l.RetailerKey, "created").Inc()
		observationsRecordedTotal.WithLabelValues(l.RetailerKey).Inc()
		return nil
	}

	oldPrice := existing.Price

	recorded, err := f.ledger.RecordIfChanged(ctx, rl.Identity, l.Price, l.ObservedAt)
	if err != nil {
		return err
	}
	if recorded {
		summary.Observations++
		observationsRecordedTotal.WithLabelValues(l.RetailerKey).Inc()
	}

	f.refreshProduct(existing, l, searchQuery)
	if err := f.productRepo.Update(ctx, existing); err != nil {
		return fmt.Errorf("update product %q: %w", rl.Identity, err)
	}
	summary.Updated++
	ingestListingsTotal.WithLabelValues(l.RetailerKey, "updated").Inc()

	// Alerting is gated on a recorded price change; the ledger and the
	// alert stream otherwise evolve independently.
	if !recorded {
		return nil
	}

	subject := AlertSubject{
		ProductUniqueID: rl.Identity,
		ProductName:     existing.Name,
		RetailerKey:     existing.RetailerKey,
		Retailer:        existing.Retailer,
		ProductURL:      existing.URL,
		Categories:      existing.Categories,
	}
	alert, reason, err := f.policy.Evaluate(ctx, subject, oldPrice, l.Price, utils.UTCNow())
	if err != nil {
		return err
	}
	if alert != nil {
		summary.Alerts++
		alertsCreatedTotal.WithLabelValues(l.RetailerKey, alert.Direction.String()).Inc()
	} else if reason != RejectNone {
		alertsRejectedTotal.WithLabelValues(l.RetailerKey, string(reason)).Inc()
	}
	return nil
}

func (f *IngestFlowImpl) createProduct(ctx context.Context, rl resolvedListing, searchQuery string) error {
	l := rl.Listing
	attrs := ExtractAttributes(l.RawName)
	if attrs.Brand == "" && l.Brand != "" {
		attrs.Brand = normalizeName(l.Brand)
	}

	now := utils.UTCNow()
	record := &models.ProductRecord{
		UniqueID:        rl.Identity,
		RetailerKey:     l.RetailerKey,
		Retailer:        l.Retailer,
		Name:            l.RawName,
		Brand:           l.Brand,
		Description:     l.Description,
		Price:           l.Price,
		OriginalPrice:   l.OriginalPrice,
		DiscountPercent: l.DiscountPercent,
		Currency:        utils.PENCurrency,
		Available:       l.Available,
		Images:          pq.StringArray(capImages(l.Images)),
		Categories:      pq.StringArray(l.Categories),
		URL:             l.URL,
		Attributes:      attrs,
		ScrapedAt:       l.ObservedAt.UTC(),
		FirstSeenAt:     now,
		LastUpdatedAt:   now,
	}
	if searchQuery != "" {
		record.SearchQueries = pq.StringArray{searchQuery}
	}
	if err := f.productRepo.Save(ctx, record); err != nil {
		return fmt.Errorf("create product %q: %w", rl.Identity, err)
	}
	return f.ledger.RecordInitial(ctx, rl.Identity, l.Price, l.ObservedAt)
}

// refreshProduct folds the latest listing into an existing record. The raw
// name and extracted attributes are refreshed too, so a retailer renaming
// a listing does not leave stale identity attributes behind.
func (f *IngestFlowImpl) refreshProduct(record *models.ProductRecord, l RawListing, searchQuery string) {
	record.Name = l.RawName
	if l.Brand != "" {
		record.Brand = l.Brand
	}
	if l.Description != "" {
		record.Description = l.Description
	}
	record.Price = l.Price
	record.OriginalPrice = l.OriginalPrice
	record.DiscountPercent = l.DiscountPercent
	record.Available = l.Available
	if len(l.Images) > 0 {
		record.Images = pq.StringArray(capImages(l.Images))
	}
	if len(l.Categories) > 0 {
		record.Categories = pq.StringArray(l.Categories)
	}
	if l.URL != "" {
		record.URL = l.URL
	}
	record.Attributes = ExtractAttributes(l.RawName)
	record.ScrapedAt = l.ObservedAt.UTC()
	record.LastUpdatedAt = utils.UTCNow()
	record.UpdateCount++

	if searchQuery != "" && !containsString(record.SearchQueries, searchQuery) {
		record.SearchQueries = append(record.SearchQueries, searchQuery)
	}
}

func capImages(images []string) []string {
	if len(images) > utils.MaxProductImages {
		return images[:utils.MaxProductImages]
	}
	return images
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
