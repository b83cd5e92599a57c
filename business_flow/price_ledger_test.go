package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/priceshield/priceshield-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceLedger_RecordIfChanged(t *testing.T) {
	ctx := context.Background()
	now := utils.UTCNow()

	t.Run("first observation is recorded", func(t *testing.T) {
		repo := newFakeObservationRepo()
		ledger := NewPriceLedger(repo)

		recorded, err := ledger.RecordIfChanged(ctx, "wong_leche", 12.90, now)
		require.NoError(t, err)
		assert.True(t, recorded)

		last, err := repo.LastByProduct(ctx, "wong_leche")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, 12.90, last.Price)
	})

	t.Run("unchanged price is a no-op", func(t *testing.T) {
		repo := newFakeObservationRepo()
		ledger := NewPriceLedger(repo)

		recorded, err := ledger.RecordIfChanged(ctx, "wong_leche", 12.90, now)
		require.NoError(t, err)
		require.True(t, recorded)

		recorded, err = ledger.RecordIfChanged(ctx, "wong_leche", 12.90, now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, recorded)
		assert.Len(t, repo.observations, 1)
	})

	t.Run("changed price appends a new observation", func(t *testing.T) {
		repo := newFakeObservationRepo()
		ledger := NewPriceLedger(repo)

		_, err := ledger.RecordIfChanged(ctx, "wong_leche", 12.90, now)
		require.NoError(t, err)

		recorded, err := ledger.RecordIfChanged(ctx, "wong_leche", 11.50, now.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, recorded)
		require.Len(t, repo.observations, 2)
		assert.Equal(t, 11.50, repo.observations[1].Price)
	})

	t.Run("non-positive price is dropped", func(t *testing.T) {
		repo := newFakeObservationRepo()
		ledger := NewPriceLedger(repo)

		recorded, err := ledger.RecordIfChanged(ctx, "wong_leche", 0, now)
		require.NoError(t, err)
		assert.False(t, recorded)

		recorded, err = ledger.RecordIfChanged(ctx, "wong_leche", -3.50, now)
		require.NoError(t, err)
		assert.False(t, recorded)
		assert.Empty(t, repo.observations)
	})

	t.Run("histories of different products are independent", func(t *testing.T) {
		repo := newFakeObservationRepo()
		ledger := NewPriceLedger(repo)

		_, err := ledger.RecordIfChanged(ctx, "wong_leche", 12.90, now)
		require.NoError(t, err)

		recorded, err := ledger.RecordIfChanged(ctx, "metro_leche", 12.90, now)
		require.NoError(t, err)
		assert.True(t, recorded)
	})
}

func TestPriceLedger_RecordInitial(t *testing.T) {
	ctx := context.Background()
	now := utils.UTCNow()

	t.Run("always appends for a valid price", func(t *testing.T) {
		repo := newFakeObservationRepo()
		ledger := NewPriceLedger(repo)

		require.NoError(t, ledger.RecordInitial(ctx, "wong_arroz", 18.90, now))
		require.Len(t, repo.observations, 1)
		assert.Equal(t, 18.90, repo.observations[0].Price)
		assert.Equal(t, now.UTC(), repo.observations[0].ObservedAt)
	})

	t.Run("ignores non-positive prices", func(t *testing.T) {
		repo := newFakeObservationRepo()
		ledger := NewPriceLedger(repo)

		require.NoError(t, ledger.RecordInitial(ctx, "wong_arroz", 0, now))
		assert.Empty(t, repo.observations)
	})
}
