package businessflow

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/repository"
)

const (
	// maxIdentityKeyLength bounds the sanitized identity key
	maxIdentityKeyLength = 96

	// keyTokenCount is how many descriptive tokens feed the identity key
	keyTokenCount = 4

	// brandKeyLength is how much of the brand feeds the identity key
	brandKeyLength = 8

	// quantityEpsilon is the tolerance for numeric quantity equality
	quantityEpsilon = 0.001

	// tokenSimilarityThreshold is the minimum Jaccard similarity for two
	// attribute sets to be considered the same product when the structured
	// attributes alone cannot decide
	tokenSimilarityThreshold = 0.75

	// maxDisambiguationAttempts bounds the search for a free alternate key
	maxDisambiguationAttempts = 50
)

var keySanitizePattern = regexp.MustCompile(`[^a-z0-9_]+`)

// IdentityResolver derives stable identity keys for products and repairs
// key collisions between dissimilar products.
type IdentityResolver struct {
	productRepo repository.ProductRecordRepository
}

func NewIdentityResolver(productRepo repository.ProductRecordRepository) *IdentityResolver {
	return &IdentityResolver{productRepo: productRepo}
}

// CandidateKey computes the deterministic lookup key for a retailer and a set
// of extracted attributes. The key is a short, human-debuggable identifier;
// it is a lookup hint only. Correctness rests on the structural SameProduct
// check, never on key equality alone.
func CandidateKey(retailerKey string, attrs models.ProductAttributes) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(retailerKey))

	tokens := attrs.DescriptiveTokens
	if len(tokens) > keyTokenCount {
		tokens = tokens[:keyTokenCount]
	}
	for _, t := range tokens {
		b.WriteString("_")
		b.WriteString(t)
	}

	if attrs.Quantity != nil {
		b.WriteString("_")
		b.WriteString(strconv.FormatFloat(*attrs.Quantity, 'f', -1, 64))
	}
	if attrs.Unit != "" {
		b.WriteString(attrs.Unit.String())
	}
	if attrs.PackSize != nil {
		b.WriteString("_x")
		b.WriteString(strconv.Itoa(*attrs.PackSize))
	}
	if attrs.Brand != "" {
		brand := attrs.Brand
		if len(brand) > brandKeyLength {
			brand = brand[:brandKeyLength]
		}
		b.WriteString("_")
		b.WriteString(brand)
	}

	key := keySanitizePattern.ReplaceAllString(strings.ToLower(b.String()), "")
	if len(key) > maxIdentityKeyLength {
		key = key[:maxIdentityKeyLength]
	}
	return key
}

// SameProduct runs the structural equality check between two attribute sets.
// Quantity, unit and pack size must match exactly whenever both sides carry
// them: two package sizes of the same product must never share a price
// history. Brand must match when both sides have one. When the structured
// attributes cannot decide, descriptive token similarity decides.
func SameProduct(a, b models.ProductAttributes) bool {
	if a.Quantity != nil && b.Quantity != nil {
		if math.Abs(*a.Quantity-*b.Quantity) > quantityEpsilon {
			return false
		}
	}
	if a.Unit != "" && b.Unit != "" && a.Unit != b.Unit {
		return false
	}
	if a.PackSize != nil && b.PackSize != nil && *a.PackSize != *b.PackSize {
		return false
	}
	if a.Brand != "" && b.Brand != "" && a.Brand != b.Brand {
		return false
	}
	return jaccardSimilarity(a.DescriptiveTokens, b.DescriptiveTokens) >= tokenSimilarityThreshold
}

// Resolve derives the identity for a raw product name at a retailer. When the
// candidate key is already taken by a structurally different product (a
// truncation collision), a disambiguated key is minted and the existing
// record is left untouched, preserving both products' independent histories.
func (r *IdentityResolver) Resolve(ctx context.Context, retailerKey, rawName string) (models.ProductIdentity, error) {
	attrs := ExtractAttributes(rawName)
	key := CandidateKey(retailerKey, attrs)

	identity := models.ProductIdentity{
		Key:         key,
		RetailerKey: retailerKey,
		RawName:     rawName,
		Attributes:  attrs,
	}

	existing, err := r.productRepo.ByUniqueID(ctx, key)
	if err != nil {
		return models.ProductIdentity{}, fmt.Errorf("identity lookup for %q: %w", key, err)
	}
	if existing == nil || SameProduct(existing.Attributes, attrs) {
		return identity, nil
	}

	// Truncation collision with a different product: mint an alternate key.
	for n := 1; n <= maxDisambiguationAttempts; n++ {
		altKey := fmt.Sprintf("%s_alt_%d", key, n)
		altExisting, err := r.productRepo.ByUniqueID(ctx, altKey)
		if err != nil {
			return models.ProductIdentity{}, fmt.Errorf("identity lookup for %q: %w", altKey, err)
		}
		if altExisting == nil || SameProduct(altExisting.Attributes, attrs) {
			identity.Key = altKey
			return identity, nil
		}
	}

	return models.ProductIdentity{}, fmt.Errorf("could not disambiguate identity key %q after %d attempts", key, maxDisambiguationAttempts)
}
