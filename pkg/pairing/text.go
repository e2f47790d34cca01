package pairing

import (
	"regexp"
	"strings"
)

// corporateSuffixes are stripped from brand strings before comparison so that
// "Acme Inc." and "Acme" compare equal
var corporateSuffixes = []string{
	"inc", "inc.", "llc", "ltd", "ltd.", "co", "co.", "corp", "corp.",
	"company", "gmbh", "limited", "corporation",
}

// stopwords are short filler tokens excluded from similarity comparisons
var stopwords = map[string]bool{
	"with": true, "from": true, "pack": true, "size": true, "this": true,
	"that": true, "your": true, "each": true, "item": true,
}

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeBrand lower-cases a brand string and strips corporate suffixes
func NormalizeBrand(brand string) string {
	normalized := strings.ToLower(strings.TrimSpace(brand))
	if normalized == "" {
		return ""
	}

	words := strings.Fields(normalized)
	for len(words) > 1 {
		last := words[len(words)-1]
		isSuffix := false
		for _, suffix := range corporateSuffixes {
			if last == suffix {
				isSuffix = true
				break
			}
		}
		if !isSuffix {
			break
		}
		words = words[:len(words)-1]
	}

	return strings.Join(words, " ")
}

// TokenizeText splits a string into lower-cased alphanumeric tokens longer
// than minLen characters, excluding stopwords
func TokenizeText(text string, minLen int) []string {
	lowered := strings.ToLower(text)
	parts := nonAlphaNum.Split(lowered, -1)

	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) <= minLen {
			continue
		}
		if stopwords[part] {
			continue
		}
		tokens = append(tokens, part)
	}
	return tokens
}

// Jaccard computes the Jaccard similarity between two token lists
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, token := range a {
		setA[token] = true
	}
	setB := make(map[string]bool, len(b))
	for _, token := range b {
		setB[token] = true
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// unitAliases maps size unit spellings to a canonical unit token
var unitAliases = map[string]string{
	"ml": "ml", "milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"l": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"g": "g", "gram": "g", "grams": "g", "gr": "g",
	"kg": "kg", "kilogram": "kg", "kilograms": "kg",
	"mg": "mg",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"floz": "floz",
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"ct": "ct", "count": "ct", "caps": "ct", "capsules": "ct", "tablets": "ct",
	"softgels": "ct", "gummies": "ct", "servings": "ct", "pieces": "ct",
}

var sizePattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(fl\.?\s*oz|[a-z]+)`)

// NormalizeSize reduces a printed size string to a canonical quantity+unit
// form ("500 ml", "16.9 floz"). Returns empty string when no size is parseable.
func NormalizeSize(size string) string {
	lowered := strings.ToLower(strings.TrimSpace(size))
	if lowered == "" {
		return ""
	}

	match := sizePattern.FindStringSubmatch(lowered)
	if match == nil {
		return ""
	}

	quantity := strings.ReplaceAll(match[1], ",", ".")
	quantity = strings.TrimSuffix(quantity, ".0")

	unit := nonAlphaNum.ReplaceAllString(match[2], "")
	if strings.HasPrefix(unit, "floz") || unit == "oz" && strings.Contains(lowered, "fl") {
		unit = "floz"
	}
	canonical, ok := unitAliases[unit]
	if !ok {
		return ""
	}

	return quantity + " " + canonical
}

var barcodePattern = regexp.MustCompile(`\b\d{8}\b|\b\d{12,14}\b`)

// ExtractBarcode finds a UPC/EAN-looking digit run in the key text or raw OCR
// text. Returns empty string when none is present.
func ExtractBarcode(keyText []string, ocrText string) string {
	for _, token := range keyText {
		if code := barcodePattern.FindString(token); code != "" {
			return code
		}
	}
	return barcodePattern.FindString(ocrText)
}
