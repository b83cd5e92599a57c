package businessflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/utils"
)

// In-memory repositories backing the flow tests.

type fakeProductRepo struct {
	mu      sync.Mutex
	records map[string]*models.ProductRecord
	nextID  uint
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{records: make(map[string]*models.ProductRecord)}
}

func (r *fakeProductRepo) ByID(ctx context.Context, id uint) (*models.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *fakeProductRepo) ByFilter(ctx context.Context, filter models.ProductRecordFilter, orderBy string, limit, offset int) ([]*models.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ProductRecord
	for _, rec := range r.records {
		if filter.RetailerKey != nil && rec.RetailerKey != *filter.RetailerKey {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeProductRepo) Save(ctx context.Context, record *models.ProductRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.ID = r.nextID
	r.records[record.UniqueID] = record
	return nil
}

func (r *fakeProductRepo) SaveBatch(ctx context.Context, records []*models.ProductRecord) error {
	for _, rec := range records {
		if err := r.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeProductRepo) Count(ctx context.Context, filter models.ProductRecordFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records)), nil
}

func (r *fakeProductRepo) Exists(ctx context.Context, filter models.ProductRecordFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeProductRepo) ByUniqueID(ctx context.Context, uniqueID string) (*models.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[uniqueID], nil
}

func (r *fakeProductRepo) Update(ctx context.Context, record *models.ProductRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.UniqueID] = record
	return nil
}

func (r *fakeProductRepo) SearchByName(ctx context.Context, nameLike, retailerKey, orderBy string, limit int) ([]*models.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ProductRecord
	for _, rec := range r.records {
		if !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(nameLike)) {
			continue
		}
		if retailerKey != "" && rec.RetailerKey != retailerKey {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeProductRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]*models.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ProductRecord
	for _, rec := range r.records {
		if rec.LastUpdatedAt.After(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) ListByCategory(ctx context.Context, category string, limit int) ([]*models.ProductRecord, error) {
	return nil, nil
}

func (r *fakeProductRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (r *fakeProductRepo) DistinctBrands(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (r *fakeProductRepo) LastUpdatedAt(ctx context.Context) (*time.Time, error) {
	return nil, nil
}

func (r *fakeProductRepo) DeleteScrapedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for key, rec := range r.records {
		if rec.ScrapedAt.Before(cutoff) {
			delete(r.records, key)
			deleted++
		}
	}
	return deleted, nil
}

type fakeObservationRepo struct {
	mu           sync.Mutex
	observations []*models.PriceObservation
	nextID       uint
}

func newFakeObservationRepo() *fakeObservationRepo {
	return &fakeObservationRepo{}
}

func (r *fakeObservationRepo) ByID(ctx context.Context, id uint) (*models.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.observations {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (r *fakeObservationRepo) ByFilter(ctx context.Context, filter models.PriceObservationFilter, orderBy string, limit, offset int) ([]*models.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PriceObservation
	for _, o := range r.observations {
		if filter.ProductUniqueID != nil && o.ProductUniqueID != *filter.ProductUniqueID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeObservationRepo) Save(ctx context.Context, obs *models.PriceObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	obs.ID = r.nextID
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = utils.UTCNow()
	}
	r.observations = append(r.observations, obs)
	return nil
}

func (r *fakeObservationRepo) SaveBatch(ctx context.Context, observations []*models.PriceObservation) error {
	for _, o := range observations {
		if err := r.Save(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeObservationRepo) Count(ctx context.Context, filter models.PriceObservationFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *fakeObservationRepo) Exists(ctx context.Context, filter models.PriceObservationFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeObservationRepo) LastByProduct(ctx context.Context, productUniqueID string) (*models.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *models.PriceObservation
	for _, o := range r.observations {
		if o.ProductUniqueID == productUniqueID {
			last = o
		}
	}
	return last, nil
}

func (r *fakeObservationRepo) ListByProduct(ctx context.Context, productUniqueID string, from, to time.Time) ([]*models.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PriceObservation
	for _, o := range r.observations {
		if o.ProductUniqueID != productUniqueID {
			continue
		}
		if o.ObservedAt.Before(from) || o.ObservedAt.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeObservationRepo) DeleteObservedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.observations[:0]
	var deleted int64
	for _, o := range r.observations {
		if o.ObservedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, o)
	}
	r.observations = kept
	return deleted, nil
}

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []*models.Alert
	nextID uint
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{}
}

func (r *fakeAlertRepo) ByID(ctx context.Context, id uint) (*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAlertRepo) ByFilter(ctx context.Context, filter models.AlertFilter, orderBy string, limit, offset int) ([]*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Alert
	for _, a := range r.alerts {
		if filter.Active != nil && a.Active != *filter.Active {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAlertRepo) Save(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	alert.ID = r.nextID
	if alert.UUID == uuid.Nil {
		alert.UUID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = utils.UTCNow()
	}
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *fakeAlertRepo) SaveBatch(ctx context.Context, alerts []*models.Alert) error {
	for _, a := range alerts {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAlertRepo) Count(ctx context.Context, filter models.AlertFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *fakeAlertRepo) Exists(ctx context.Context, filter models.AlertFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeAlertRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.UUID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAlertRepo) ListActive(ctx context.Context, limit, offset int) ([]*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Alert
	for _, a := range r.alerts {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) ListActiveByRetailer(ctx context.Context, retailerKey string, limit int) ([]*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Alert
	for _, a := range r.alerts {
		if a.Active && a.RetailerKey == retailerKey {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) ListActiveByCategory(ctx context.Context, category string, limit int) ([]*models.Alert, error) {
	return nil, nil
}

func (r *fakeAlertRepo) ListByProduct(ctx context.Context, productUniqueID string, limit int) ([]*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Alert
	for _, a := range r.alerts {
		if a.ProductUniqueID == productUniqueID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) CountActiveUnread(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.alerts {
		if a.Active && !a.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeAlertRepo) HasRecentActive(ctx context.Context, productUniqueID string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.Active && a.ProductUniqueID == productUniqueID && a.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAlertRepo) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.UUID == id && !a.IsRead {
			now := utils.UTCNow()
			a.IsRead = true
			a.ReadAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAlertRepo) Ignore(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.UUID == id && a.Active {
			now := utils.UTCNow()
			a.Active = false
			a.IgnoredAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAlertRepo) MarkReadByProduct(ctx context.Context, productUniqueID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.alerts {
		if a.ProductUniqueID == productUniqueID && !a.IsRead {
			now := utils.UTCNow()
			a.IsRead = true
			a.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (r *fakeAlertRepo) BulkMarkRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range ids {
		updated, _ := r.MarkRead(ctx, id)
		if updated {
			n++
		}
	}
	return n, nil
}

func (r *fakeAlertRepo) Summary(ctx context.Context) (*models.AlertSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &models.AlertSummary{}
	for _, a := range r.alerts {
		if !a.Active {
			continue
		}
		s.TotalAlerts++
		if a.IsRead {
			s.ReadAlerts++
		} else {
			s.UnreadAlerts++
		}
		switch a.Direction {
		case models.AlertDirectionIncrease:
			s.PriceIncreases++
		case models.AlertDirectionDecrease:
			s.PriceDecreases++
		}
	}
	return s, nil
}

func (r *fakeAlertRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.alerts[:0]
	var deleted int64
	for _, a := range r.alerts {
		if a.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	r.alerts = kept
	return deleted, nil
}

type fakeSearchHistoryRepo struct {
	mu      sync.Mutex
	touched map[string]int
}

func newFakeSearchHistoryRepo() *fakeSearchHistoryRepo {
	return &fakeSearchHistoryRepo{touched: make(map[string]int)}
}

func (r *fakeSearchHistoryRepo) ByID(ctx context.Context, id uint) (*models.SearchHistory, error) {
	return nil, nil
}

func (r *fakeSearchHistoryRepo) ByFilter(ctx context.Context, filter models.SearchHistoryFilter, orderBy string, limit, offset int) ([]*models.SearchHistory, error) {
	return nil, nil
}

func (r *fakeSearchHistoryRepo) Save(ctx context.Context, entry *models.SearchHistory) error {
	return nil
}

func (r *fakeSearchHistoryRepo) SaveBatch(ctx context.Context, entries []*models.SearchHistory) error {
	return nil
}

func (r *fakeSearchHistoryRepo) Count(ctx context.Context, filter models.SearchHistoryFilter) (int64, error) {
	return 0, nil
}

func (r *fakeSearchHistoryRepo) Exists(ctx context.Context, filter models.SearchHistoryFilter) (bool, error) {
	return false, nil
}

func (r *fakeSearchHistoryRepo) Touch(ctx context.Context, query string, resultsCount int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[query]++
	return nil
}

func (r *fakeSearchHistoryRepo) TopQueries(ctx context.Context, limit int) ([]*models.PopularSearch, error) {
	return nil, nil
}

func (r *fakeSearchHistoryRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
