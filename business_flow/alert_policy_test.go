package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlertSubject() AlertSubject {
	return AlertSubject{
		ProductUniqueID: "wong_aceite_primor_1l_primor",
		ProductName:     "Aceite Primor 1L",
		RetailerKey:     "wong",
		Retailer:        "Wong",
		ProductURL:      "https://www.wong.pe/aceite-primor-1l/p",
		Categories:      []string{"Abarrotes", "Aceites"},
	}
}

func TestAlertPolicy_Evaluate_Rejections(t *testing.T) {
	ctx := context.Background()
	now := utils.UTCNow()

	tests := []struct {
		name     string
		oldPrice float64
		newPrice float64
		reason   RejectReason
	}{
		{name: "zero old price", oldPrice: 0, newPrice: 10, reason: RejectInvalidPrices},
		{name: "negative new price", oldPrice: 10, newPrice: -1, reason: RejectInvalidPrices},
		{name: "equal prices", oldPrice: 10, newPrice: 10, reason: RejectInvalidPrices},
		{name: "small absolute move on a cheap product", oldPrice: 5.00, newPrice: 5.20, reason: RejectInsignificant},
		{name: "small percentage move in the mid bracket", oldPrice: 20.00, newPrice: 20.99, reason: RejectInsignificant},
		{name: "small percentage move on an expensive product", oldPrice: 200.00, newPrice: 202.00, reason: RejectInsignificant},
		{name: "implausible jump", oldPrice: 5.00, newPrice: 40.00, reason: RejectImplausible},
		{name: "jump just past the sanity bound", oldPrice: 5.00, newPrice: 13.00, reason: RejectImplausible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeAlertRepo()
			policy := NewAlertPolicy(repo)

			alert, reason, err := policy.Evaluate(ctx, testAlertSubject(), tt.oldPrice, tt.newPrice, now)
			require.NoError(t, err)
			assert.Nil(t, alert)
			assert.Equal(t, tt.reason, reason)
			assert.Empty(t, repo.alerts)
		})
	}
}

func TestAlertPolicy_Evaluate_Acceptance(t *testing.T) {
	ctx := context.Background()
	now := utils.UTCNow()

	t.Run("significant increase produces an alert", func(t *testing.T) {
		repo := newFakeAlertRepo()
		policy := NewAlertPolicy(repo)

		alert, reason, err := policy.Evaluate(ctx, testAlertSubject(), 20.00, 21.10, now)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, RejectNone, reason)
		assert.Equal(t, models.AlertDirectionIncrease, alert.Direction)
		assert.Equal(t, 1.10, alert.PriceDifference)
		assert.Equal(t, 5.5, alert.PercentageChange)
		assert.True(t, alert.Active)
		assert.False(t, alert.IsRead)
		require.Len(t, repo.alerts, 1)
	})

	t.Run("significant decrease carries a signed percentage", func(t *testing.T) {
		repo := newFakeAlertRepo()
		policy := NewAlertPolicy(repo)

		alert, reason, err := policy.Evaluate(ctx, testAlertSubject(), 12.90, 11.50, now)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, RejectNone, reason)
		assert.Equal(t, models.AlertDirectionDecrease, alert.Direction)
		assert.Equal(t, -1.40, alert.PriceDifference)
		assert.Equal(t, -10.9, alert.PercentageChange)
	})

	t.Run("alert denormalizes the product fields", func(t *testing.T) {
		repo := newFakeAlertRepo()
		policy := NewAlertPolicy(repo)

		subject := testAlertSubject()
		alert, _, err := policy.Evaluate(ctx, subject, 20.00, 25.00, now)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, subject.ProductUniqueID, alert.ProductUniqueID)
		assert.Equal(t, subject.ProductName, alert.ProductName)
		assert.Equal(t, subject.Retailer, alert.Retailer)
		assert.Equal(t, subject.ProductURL, alert.ProductURL)
		assert.Equal(t, subject.Categories, []string(alert.Categories))
	})
}

func TestAlertPolicy_Evaluate_Cooldown(t *testing.T) {
	ctx := context.Background()
	now := utils.UTCNow()

	t.Run("recent alert suppresses the next one", func(t *testing.T) {
		repo := newFakeAlertRepo()
		policy := NewAlertPolicy(repo)

		first, reason, err := policy.Evaluate(ctx, testAlertSubject(), 20.00, 25.00, now)
		require.NoError(t, err)
		require.NotNil(t, first)
		require.Equal(t, RejectNone, reason)

		second, reason, err := policy.Evaluate(ctx, testAlertSubject(), 25.00, 30.00, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Nil(t, second)
		assert.Equal(t, RejectCooldown, reason)
		assert.Len(t, repo.alerts, 1)
	})

	t.Run("cooldown expires", func(t *testing.T) {
		repo := newFakeAlertRepo()
		policy := NewAlertPolicy(repo)

		stale := utils.UTCNowAdd(-7 * time.Hour)
		repo.alerts = append(repo.alerts, &models.Alert{
			ProductUniqueID: testAlertSubject().ProductUniqueID,
			Active:          true,
			CreatedAt:       stale,
		})

		alert, reason, err := policy.Evaluate(ctx, testAlertSubject(), 20.00, 25.00, now)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, RejectNone, reason)
	})

	t.Run("cooldown is per product", func(t *testing.T) {
		repo := newFakeAlertRepo()
		policy := NewAlertPolicy(repo)

		_, _, err := policy.Evaluate(ctx, testAlertSubject(), 20.00, 25.00, now)
		require.NoError(t, err)

		other := testAlertSubject()
		other.ProductUniqueID = "metro_arroz_costeno_5kg_costeno"
		alert, reason, err := policy.Evaluate(ctx, other, 18.00, 22.00, now)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, RejectNone, reason)
	})
}
