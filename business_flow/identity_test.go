package businessflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/priceshield/priceshield-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateKey(t *testing.T) {
	t.Run("deterministic and human readable", func(t *testing.T) {
		attrs := ExtractAttributes("Leche Gloria Entera 1L")

		key := CandidateKey("wong", attrs)
		assert.Equal(t, "wong_leche_gloria_entera_1l_gloria", key)
		assert.Equal(t, key, CandidateKey("wong", attrs))
	})

	t.Run("different package sizes get different keys", func(t *testing.T) {
		oneLiter := ExtractAttributes("Leche Gloria Entera 1L")
		small := ExtractAttributes("Leche Gloria Entera 400ml")

		assert.NotEqual(t, CandidateKey("wong", oneLiter), CandidateKey("wong", small))
	})

	t.Run("key is bounded and sanitized", func(t *testing.T) {
		attrs := ExtractAttributes("Quinua Organica Premium Seleccionada Especial Andina Tradicional 5kg")

		key := CandidateKey("plazavea", attrs)
		assert.LessOrEqual(t, len(key), maxIdentityKeyLength)
		assert.NotContains(t, key, " ")
		assert.NotContains(t, key, ".")
	})
}

func TestSameProduct(t *testing.T) {
	oneLiter := ExtractAttributes("Leche Gloria Entera 1L")
	smallCan := ExtractAttributes("Leche Gloria Entera 400ml")

	t.Run("identical attribute sets match", func(t *testing.T) {
		assert.True(t, SameProduct(oneLiter, oneLiter))
	})

	t.Run("different quantities never match", func(t *testing.T) {
		assert.False(t, SameProduct(oneLiter, smallCan))
	})

	t.Run("different brands never match", func(t *testing.T) {
		a := ExtractAttributes("Leche Gloria Entera 1L")
		b := ExtractAttributes("Leche Laive Entera 1L")
		assert.False(t, SameProduct(a, b))
	})

	t.Run("missing quantity on one side defers to tokens", func(t *testing.T) {
		a := ExtractAttributes("Palta Fuerte")
		b := ExtractAttributes("Palta Fuerte 1kg")
		assert.True(t, SameProduct(a, b))
	})

	t.Run("dissimilar tokens do not match", func(t *testing.T) {
		a := ExtractAttributes("Palta Fuerte")
		b := ExtractAttributes("Cebolla Roja")
		assert.False(t, SameProduct(a, b))
	})
}

func TestIdentityResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("new product gets the candidate key", func(t *testing.T) {
		repo := newFakeProductRepo()
		resolver := NewIdentityResolver(repo)

		identity, err := resolver.Resolve(ctx, "wong", "Aceite Primor Premium 1l")
		require.NoError(t, err)
		assert.Equal(t, "wong_aceite_primor_premium_1l_primor", identity.Key)
		assert.Equal(t, "wong", identity.RetailerKey)
	})

	t.Run("same product reuses the existing key", func(t *testing.T) {
		repo := newFakeProductRepo()
		resolver := NewIdentityResolver(repo)

		attrs := ExtractAttributes("Aceite Primor Premium 1l")
		require.NoError(t, repo.Save(ctx, &models.ProductRecord{
			UniqueID:   CandidateKey("wong", attrs),
			Attributes: attrs,
		}))

		identity, err := resolver.Resolve(ctx, "wong", "Aceite Primor Premium 1L")
		require.NoError(t, err)
		assert.Equal(t, CandidateKey("wong", attrs), identity.Key)
	})

	t.Run("collision with a different product mints an alternate key", func(t *testing.T) {
		repo := newFakeProductRepo()
		resolver := NewIdentityResolver(repo)

		// A structurally different product already owns the candidate key.
		key := CandidateKey("wong", ExtractAttributes("Aceite Primor Premium 1l"))
		require.NoError(t, repo.Save(ctx, &models.ProductRecord{
			UniqueID:   key,
			Attributes: ExtractAttributes("Detergente Ariel Polvo Floral 2kg"),
		}))

		identity, err := resolver.Resolve(ctx, "wong", "Aceite Primor Premium 1l")
		require.NoError(t, err)
		assert.Equal(t, key+"_alt_1", identity.Key)

		// The occupying record is untouched.
		occupant, err := repo.ByUniqueID(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, occupant)
		assert.Equal(t, 2.0, *occupant.Attributes.Quantity)
	})

	t.Run("alternate keys advance past further collisions", func(t *testing.T) {
		repo := newFakeProductRepo()
		resolver := NewIdentityResolver(repo)

		key := CandidateKey("wong", ExtractAttributes("Aceite Primor Premium 1l"))
		occupants := []string{"Detergente Ariel Polvo Floral 2kg", "Cebolla Roja Nacional"}
		require.NoError(t, repo.Save(ctx, &models.ProductRecord{
			UniqueID:   key,
			Attributes: ExtractAttributes(occupants[0]),
		}))
		require.NoError(t, repo.Save(ctx, &models.ProductRecord{
			UniqueID:   fmt.Sprintf("%s_alt_1", key),
			Attributes: ExtractAttributes(occupants[1]),
		}))

		identity, err := resolver.Resolve(ctx, "wong", "Aceite Primor Premium 1l")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%s_alt_2", key), identity.Key)
	})
}
