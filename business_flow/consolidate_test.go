package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidate(t *testing.T) {
	t.Run("distinct identities all survive in order", func(t *testing.T) {
		in := []resolvedListing{
			{Identity: "a", Listing: RawListing{RawName: "A", Price: 5}},
			{Identity: "b", Listing: RawListing{RawName: "B", Price: 7}},
			{Identity: "c", Listing: RawListing{RawName: "C", Price: 9}},
		}

		out := Consolidate(in)
		require.Len(t, out, 3)
		assert.Equal(t, "a", out[0].Identity)
		assert.Equal(t, "b", out[1].Identity)
		assert.Equal(t, "c", out[2].Identity)
	})

	t.Run("promotional copy wins even at a higher price", func(t *testing.T) {
		in := []resolvedListing{
			{Identity: "a", Listing: RawListing{Price: 7.00}},
			{Identity: "a", Listing: RawListing{Price: 9.00, OriginalPrice: 12.00}},
		}

		out := Consolidate(in)
		require.Len(t, out, 1)
		assert.Equal(t, 9.00, out[0].Listing.Price)
	})

	t.Run("promotional representative keeps its spot against a cheaper plain copy", func(t *testing.T) {
		in := []resolvedListing{
			{Identity: "a", Listing: RawListing{Price: 9.00, DiscountPercent: 20}},
			{Identity: "a", Listing: RawListing{Price: 7.00}},
		}

		out := Consolidate(in)
		require.Len(t, out, 1)
		assert.Equal(t, 9.00, out[0].Listing.Price)
	})

	t.Run("lower price wins when neither copy is promotional", func(t *testing.T) {
		in := []resolvedListing{
			{Identity: "a", Listing: RawListing{Price: 9.00}},
			{Identity: "a", Listing: RawListing{Price: 7.00}},
		}

		out := Consolidate(in)
		require.Len(t, out, 1)
		assert.Equal(t, 7.00, out[0].Listing.Price)
	})

	t.Run("exact tie keeps the first seen copy", func(t *testing.T) {
		in := []resolvedListing{
			{Identity: "a", Listing: RawListing{RawName: "first", Price: 7.00}},
			{Identity: "a", Listing: RawListing{RawName: "second", Price: 7.00}},
		}

		out := Consolidate(in)
		require.Len(t, out, 1)
		assert.Equal(t, "first", out[0].Listing.RawName)
	})

	t.Run("winner stays at the first seen position", func(t *testing.T) {
		in := []resolvedListing{
			{Identity: "a", Listing: RawListing{Price: 5}},
			{Identity: "b", Listing: RawListing{Price: 9.00}},
			{Identity: "c", Listing: RawListing{Price: 3}},
			{Identity: "b", Listing: RawListing{Price: 7.00}},
		}

		out := Consolidate(in)
		require.Len(t, out, 3)
		assert.Equal(t, "b", out[1].Identity)
		assert.Equal(t, 7.00, out[1].Listing.Price)
	})
}
