package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/repository"
)

// PriceLedger is the append-only history of observed prices. It records a
// new observation only when the price actually changed, so the ledger stays
// compact under repeated scrapes of an unchanged catalog. Ledger writes are
// independent of alerting: an observation is appended even when the change
// is too small to notify about.
type PriceLedger struct {
	observationRepo repository.PriceObservationRepository
}

func NewPriceLedger(observationRepo repository.PriceObservationRepository) *PriceLedger {
	return &PriceLedger{observationRepo: observationRepo}
}

// RecordIfChanged appends an observation for the product when price is
// positive and differs from the most recent recorded observation. It returns
// whether an observation was written.
func (l *PriceLedger) RecordIfChanged(ctx context.Context, productUniqueID string, price float64, observedAt time.Time) (bool, error) {
	if price <= 0 {
		return false, nil
	}

	last, err := l.observationRepo.LastByProduct(ctx, productUniqueID)
	if err != nil {
		return false, fmt.Errorf("load last observation for %q: %w", productUniqueID, err)
	}
	if last != nil && last.Price == price {
		return false, nil
	}

	obs := &models.PriceObservation{
		ProductUniqueID: productUniqueID,
		Price:           price,
		ObservedAt:      observedAt.UTC(),
	}
	if err := l.observationRepo.Save(ctx, obs); err != nil {
		return false, fmt.Errorf("append observation for %q: %w", productUniqueID, err)
	}
	return true, nil
}

// RecordInitial unconditionally appends the first observation for a newly
// discovered product.
func (l *PriceLedger) RecordInitial(ctx context.Context, productUniqueID string, price float64, observedAt time.Time) error {
	if price <= 0 {
		return nil
	}
	obs := &models.PriceObservation{
		ProductUniqueID: productUniqueID,
		Price:           price,
		ObservedAt:      observedAt.UTC(),
	}
	if err := l.observationRepo.Save(ctx, obs); err != nil {
		return fmt.Errorf("append initial observation for %q: %w", productUniqueID, err)
	}
	return nil
}
