package businessflow

import (
	"testing"

	"github.com/priceshield/priceshield-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and collapses whitespace",
			input:    "  Leche   GLORIA  Entera ",
			expected: "leche gloria entera",
		},
		{
			name:     "strips accents",
			input:    "Arroz Costeño Añejo",
			expected: "arroz costeno anejo",
		},
		{
			name:     "replaces punctuation with spaces",
			input:    "Yogurt Gloria (Fresa) - 1kg!",
			expected: "yogurt gloria fresa 1kg",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeName(tt.input))
		})
	}
}

func TestExtractAttributes(t *testing.T) {
	t.Run("quantity and unit in liters", func(t *testing.T) {
		attrs := ExtractAttributes("Leche Gloria Entera 1L")

		require.NotNil(t, attrs.Quantity)
		assert.Equal(t, 1.0, *attrs.Quantity)
		assert.Equal(t, models.UnitLiter, attrs.Unit)
		assert.Nil(t, attrs.PackSize)
		assert.Equal(t, "gloria", attrs.Brand)
		assert.Equal(t, []string{"leche", "gloria", "entera"}, []string(attrs.DescriptiveTokens))
	})

	t.Run("quantity in milliliters", func(t *testing.T) {
		attrs := ExtractAttributes("Leche Gloria Entera 400ml")

		require.NotNil(t, attrs.Quantity)
		assert.Equal(t, 400.0, *attrs.Quantity)
		assert.Equal(t, models.UnitMilliliter, attrs.Unit)
	})

	t.Run("combined pack overrides plain quantity", func(t *testing.T) {
		attrs := ExtractAttributes("Cerveza Pilsen Callao 6 x 355 ml")

		require.NotNil(t, attrs.PackSize)
		assert.Equal(t, 6, *attrs.PackSize)
		require.NotNil(t, attrs.Quantity)
		assert.Equal(t, 355.0, *attrs.Quantity)
		assert.Equal(t, models.UnitMilliliter, attrs.Unit)
		assert.Equal(t, "pilsen", attrs.Brand)
	})

	t.Run("decimal quantity with comma", func(t *testing.T) {
		attrs := ExtractAttributes("Gaseosa Inka Kola 1,5 l")

		require.NotNil(t, attrs.Quantity)
		assert.Equal(t, 1.5, *attrs.Quantity)
		assert.Equal(t, models.UnitLiter, attrs.Unit)
		assert.Equal(t, "inka", attrs.Brand)
	})

	t.Run("kilograms with accented name", func(t *testing.T) {
		attrs := ExtractAttributes("Arroz Costeño Extra 5kg")

		require.NotNil(t, attrs.Quantity)
		assert.Equal(t, 5.0, *attrs.Quantity)
		assert.Equal(t, models.UnitKilogram, attrs.Unit)
		assert.Equal(t, "costeno", attrs.Brand)
	})

	t.Run("stopwords are dropped from tokens", func(t *testing.T) {
		attrs := ExtractAttributes("Filete de Pollo con Piel")

		assert.Equal(t, []string{"filete", "pollo", "piel"}, []string(attrs.DescriptiveTokens))
	})

	t.Run("no structured attributes", func(t *testing.T) {
		attrs := ExtractAttributes("Palta Fuerte")

		assert.Nil(t, attrs.Quantity)
		assert.Empty(t, attrs.Unit)
		assert.Nil(t, attrs.PackSize)
		assert.Empty(t, attrs.Brand)
		assert.Equal(t, []string{"palta", "fuerte"}, []string(attrs.DescriptiveTokens))
	})

	t.Run("empty name yields empty attributes", func(t *testing.T) {
		attrs := ExtractAttributes("")

		assert.Nil(t, attrs.Quantity)
		assert.Empty(t, attrs.DescriptiveTokens)
	})
}

func TestJaccardSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, jaccardSimilarity([]string{"leche", "entera"}, []string{"entera", "leche"}))
	assert.Equal(t, 0.0, jaccardSimilarity([]string{"leche"}, []string{"arroz"}))
	assert.Equal(t, 0.0, jaccardSimilarity(nil, []string{"arroz"}))
	assert.InDelta(t, 0.5, jaccardSimilarity([]string{"leche", "entera", "gloria"}, []string{"leche", "entera"}), 0.2)
}
