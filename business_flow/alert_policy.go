package businessflow

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/repository"
	"github.com/priceshield/priceshield-backend/utils"
)

// RejectReason explains why a price change did not produce an alert.
type RejectReason string

const (
	RejectNone          RejectReason = ""
	RejectInvalidPrices RejectReason = "invalid_prices"
	RejectInsignificant RejectReason = "insignificant"
	RejectImplausible   RejectReason = "implausible"
	RejectCooldown      RejectReason = "cooldown"
)

const (
	// alertCooldown is the minimum interval between alerts for one product
	alertCooldown = 6 * time.Hour

	// maxPlausibleChangeRatio drops changes above 150 percent of the old
	// price, which in practice are catalog glitches rather than repricing
	maxPlausibleChangeRatio = 1.5
)

// priceBracket sets the minimum absolute and percentage movement, by old
// price range, for a change to be considered significant. Both thresholds
// must be exceeded.
type priceBracket struct {
	upTo       float64
	minAmount  float64
	minPercent float64
}

var priceBrackets = []priceBracket{
	{upTo: 10, minAmount: 0.30, minPercent: 8},
	{upTo: 20, minAmount: 0.30, minPercent: 8},
	{upTo: 50, minAmount: 0.50, minPercent: 5},
	{upTo: 100, minAmount: 0.75, minPercent: 3},
	{upTo: math.Inf(1), minAmount: 1.00, minPercent: 2},
}

func bracketFor(oldPrice float64) priceBracket {
	for _, b := range priceBrackets {
		if oldPrice < b.upTo {
			return b
		}
	}
	return priceBrackets[len(priceBrackets)-1]
}

// AlertSubject carries the product fields an alert denormalizes.
type AlertSubject struct {
	ProductUniqueID string
	ProductName     string
	RetailerKey     string
	Retailer        string
	ProductURL      string
	Categories      []string
}

// AlertPolicy decides whether an observed price change warrants an alert.
// The gates run in order: price validity, bracketed significance, a sanity
// bound on implausibly large swings, then the per-product cooldown.
type AlertPolicy struct {
	alertRepo repository.AlertRepository
}

func NewAlertPolicy(alertRepo repository.AlertRepository) *AlertPolicy {
	return &AlertPolicy{alertRepo: alertRepo}
}

// Evaluate applies the policy to a price movement. On acceptance it builds
// and persists the alert; otherwise it returns the reject reason. An error
// is returned only for storage failures.
func (p *AlertPolicy) Evaluate(ctx context.Context, subject AlertSubject, oldPrice, newPrice float64, now time.Time) (*models.Alert, RejectReason, error) {
	if oldPrice <= 0 || newPrice <= 0 || oldPrice == newPrice {
		return nil, RejectInvalidPrices, nil
	}

	diff := math.Abs(newPrice - oldPrice)
	percent := diff / oldPrice * 100

	bracket := bracketFor(oldPrice)
	if diff < bracket.minAmount || percent < bracket.minPercent {
		return nil, RejectInsignificant, nil
	}

	if diff > oldPrice*maxPlausibleChangeRatio {
		return nil, RejectImplausible, nil
	}

	recent, err := p.alertRepo.HasRecentActive(ctx, subject.ProductUniqueID, now.Add(-alertCooldown))
	if err != nil {
		return nil, RejectNone, fmt.Errorf("check alert cooldown for %q: %w", subject.ProductUniqueID, err)
	}
	if recent {
		return nil, RejectCooldown, nil
	}

	direction := models.AlertDirectionIncrease
	signedPercent := percent
	if newPrice < oldPrice {
		direction = models.AlertDirectionDecrease
		signedPercent = -percent
	}

	alert := &models.Alert{
		ProductUniqueID:  subject.ProductUniqueID,
		ProductName:      subject.ProductName,
		RetailerKey:      subject.RetailerKey,
		Retailer:         subject.Retailer,
		ProductURL:       subject.ProductURL,
		Categories:       pq.StringArray(subject.Categories),
		OldPrice:         oldPrice,
		NewPrice:         newPrice,
		PriceDifference:  utils.RoundTo(newPrice-oldPrice, 2),
		PercentageChange: utils.RoundTo(signedPercent, 1),
		Direction:        direction,
		Active:           true,
	}
	if err := p.alertRepo.Save(ctx, alert); err != nil {
		return nil, RejectNone, fmt.Errorf("save alert for %q: %w", subject.ProductUniqueID, err)
	}
	return alert, RejectNone, nil
}
