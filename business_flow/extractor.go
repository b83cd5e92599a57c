package businessflow

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/priceshield/priceshield-backend/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxDescriptiveTokens caps the token list used for identity keys and
// similarity checks.
const maxDescriptiveTokens = 5

// Quantity and unit rules, most specific first. The combined pack pattern
// ("6 x 400 ml") subsumes a plain quantity match and must win the tie,
// otherwise "6 x 400ml" would resolve to quantity 6.
var (
	combinedPackPattern = regexp.MustCompile(`(\d+)\s*x\s*(\d+(?:[.,]\d+)?)\s*(ml|l|lt|litro|litros|g|gr|kg|un|und|unid|unidades)\b`)
	quantityPatterns    = []struct {
		re   *regexp.Regexp
		unit models.QuantityUnit
	}{
		{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:kg|kilo|kilos)\b`), models.UnitKilogram},
		{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:g|gr|grs|gramos)\b`), models.UnitGram},
		{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:ml)\b`), models.UnitMilliliter},
		{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:l|lt|litro|litros)\b`), models.UnitLiter},
		{regexp.MustCompile(`(\d+)\s*(?:un|und|unid|unidades)\b`), models.UnitCount},
	}
	packSizePattern = regexp.MustCompile(`(?:paquete|pack)\s*(\d+)\b|(\d+)\s*pack\b`)

	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9. ]+`)
	decimalComma    = regexp.MustCompile(`(\d),(\d)`)
	digitPattern    = regexp.MustCompile(`\d`)
)

// Known grocery brand tokens, matched case-insensitively against the
// normalized name. First match wins.
var knownBrands = []string{
	"gloria", "laive", "primor", "alacena", "costeno", "florida", "angel",
	"nestle", "milo", "sublime", "donofrio", "molitalia", "lavaggi", "sibarita",
	"bolivar", "sapolio", "ariel", "elite", "suave", "ideal", "pilsen",
	"cristal", "inka", "sporade", "cielo", "frugos", "pulp", "bells", "wong",
	"tottus", "metro", "vivanda",
}

// Spanish stopwords removed from descriptive tokens
var stopwords = map[string]bool{
	"de": true, "la": true, "el": true, "los": true, "las": true, "en": true,
	"con": true, "sin": true, "para": true, "por": true, "del": true,
	"al": true, "un": true, "una": true, "su": true, "y": true, "o": true,
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lower-cases, strips accents, replaces punctuation with spaces
// and collapses whitespace. Decimal separators between digits survive as dots
// so that quantities like "1,5 l" keep their value.
func normalizeName(raw string) string {
	lowered := strings.ToLower(raw)
	folded, _, err := transform.String(accentFolder, lowered)
	if err != nil {
		folded = lowered
	}
	folded = decimalComma.ReplaceAllString(folded, "$1.$2")
	cleaned := nonAlnumPattern.ReplaceAllString(folded, " ")

	fields := strings.Fields(cleaned)
	out := fields[:0]
	for _, w := range fields {
		if w = strings.Trim(w, "."); w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// ExtractAttributes turns a raw product name into comparable structured
// attributes. It never fails: attributes that cannot be extracted are simply
// left unset, which narrows the later similarity check instead of breaking it.
func ExtractAttributes(rawName string) models.ProductAttributes {
	attrs := models.ProductAttributes{}
	name := normalizeName(rawName)
	if name == "" {
		return attrs
	}

	remainder := name

	if m := combinedPackPattern.FindStringSubmatch(name); m != nil {
		if pack, err := strconv.Atoi(m[1]); err == nil && pack > 0 {
			attrs.PackSize = &pack
		}
		if qty, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64); err == nil && qty > 0 {
			attrs.Quantity = &qty
			attrs.Unit = canonicalUnit(m[3])
		}
		remainder = strings.Replace(remainder, m[0], " ", 1)
	} else {
		for _, rule := range quantityPatterns {
			m := rule.re.FindStringSubmatch(name)
			if m == nil {
				continue
			}
			if qty, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil && qty > 0 {
				attrs.Quantity = &qty
				attrs.Unit = rule.unit
				remainder = strings.Replace(remainder, m[0], " ", 1)
			}
			break
		}
		if m := packSizePattern.FindStringSubmatch(remainder); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if pack, err := strconv.Atoi(raw); err == nil && pack > 1 {
				attrs.PackSize = &pack
			}
			remainder = strings.Replace(remainder, m[0], " ", 1)
		}
	}

	for _, brand := range knownBrands {
		if containsWord(name, brand) {
			attrs.Brand = brand
			break
		}
	}

	attrs.DescriptiveTokens = descriptiveTokens(remainder)
	return attrs
}

// descriptiveTokens filters and orders the leftover words: stopwords out,
// single characters out, purely alphabetic tokens first, capped.
func descriptiveTokens(remainder string) []string {
	var alpha, numeric []string
	for _, word := range strings.Fields(remainder) {
		if len(word) <= 1 || stopwords[word] {
			continue
		}
		if digitPattern.MatchString(word) {
			numeric = append(numeric, word)
		} else {
			alpha = append(alpha, word)
		}
	}
	tokens := append(alpha, numeric...)
	if len(tokens) > maxDescriptiveTokens {
		tokens = tokens[:maxDescriptiveTokens]
	}
	return tokens
}

func canonicalUnit(raw string) models.QuantityUnit {
	switch raw {
	case "ml":
		return models.UnitMilliliter
	case "l", "lt", "litro", "litros":
		return models.UnitLiter
	case "g", "gr", "grs", "gramos":
		return models.UnitGram
	case "kg", "kilo", "kilos":
		return models.UnitKilogram
	default:
		return models.UnitCount
	}
}

func containsWord(haystack, word string) bool {
	return haystack == word ||
		strings.HasPrefix(haystack, word+" ") ||
		strings.HasSuffix(haystack, " "+word) ||
		strings.Contains(haystack, " "+word+" ")
}

// tokenSet builds the digit-stripped token set used for Jaccard similarity
func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		stripped := strings.Trim(digitPattern.ReplaceAllString(t, ""), ".")
		if stripped != "" {
			set[stripped] = true
		}
	}
	return set
}

// jaccardSimilarity computes token-set intersection over union
func jaccardSimilarity(a, b []string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
