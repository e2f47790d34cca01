package pairing

import (
	"sort"
	"strings"

	"github.com/shelfsnap/shelfsnap-go/pkg/models"
)

// Scoring weights. Additive so each signal contributes independently and a
// missing signal degrades to zero instead of zeroing the whole score.
const (
	brandMatchScore    = 3.0
	brandMismatchScore = -2.0
	emptyBrandPenalty  = -0.5
	productWeight      = 2.0
	variantWeight      = 1.0
	sizeMatchScore     = 1.5
	packagingScore     = 3.0
	colorExactScore    = 2.5
	colorCloseScore    = 2.0
	proximityScore     = 1.0
	barcodeScore       = 2.0
)

// colorAdjacency groups dominant-color labels that commonly describe the
// same physical color under different lighting
var colorAdjacency = map[string][]string{
	"blue":   {"light blue", "light-blue", "navy", "dark blue", "teal"},
	"red":    {"dark red", "dark-red", "maroon", "burgundy"},
	"green":  {"light green", "dark green", "olive", "mint"},
	"yellow": {"gold", "amber", "cream"},
	"white":  {"cream", "off-white", "ivory"},
	"black":  {"dark gray", "dark grey", "charcoal"},
	"gray":   {"grey", "silver", "light gray", "light grey"},
	"orange": {"amber", "peach"},
	"purple": {"violet", "lavender"},
	"brown":  {"tan", "beige", "bronze"},
}

// ScorerOptions holds the tunable parameters of candidate scoring
type ScorerOptions struct {
	TopK            int
	CategoryWeight  float64
	ProximityWindow int
}

// DefaultScorerOptions returns the empirically tuned scorer defaults
func DefaultScorerOptions() ScorerOptions {
	return ScorerOptions{
		TopK:            8,
		CategoryWeight:  1.0,
		ProximityWindow: 3,
	}
}

// ScorePair computes the pre-score for a (front, back) hypothesis. The
// function is pure: identical features always produce identical scores.
func ScorePair(front, back models.Feature, opts ScorerOptions) models.Candidate {
	breakdown := models.ScoreBreakdown{
		BrandFlag: models.BrandUnknown,
		ColorTier: models.ColorNone,
	}
	score := 0.0

	// Brand: strong positive on agreement, penalty on outright disagreement,
	// a small penalty when either side carries no brand at all. The empty
	// penalty is kept deliberately small so a strong visual-only match can
	// still out-score same-brand-different-product candidates.
	switch {
	case front.NormalizedBrand != "" && back.NormalizedBrand != "":
		if front.NormalizedBrand == back.NormalizedBrand {
			breakdown.BrandFlag = models.BrandEqual
			breakdown.BrandScore = brandMatchScore
		} else {
			breakdown.BrandFlag = models.BrandMismatch
			breakdown.BrandScore = brandMismatchScore
		}
	default:
		breakdown.BrandFlag = models.BrandUnknown
		if front.NormalizedBrand == "" {
			breakdown.BrandScore += emptyBrandPenalty
		}
		if back.NormalizedBrand == "" {
			breakdown.BrandScore += emptyBrandPenalty
		}
	}
	score += breakdown.BrandScore

	// Product and variant text similarity
	breakdown.ProductJaccard = Jaccard(front.ProductTokens, back.ProductTokens)
	breakdown.VariantJaccard = Jaccard(front.VariantTokens, back.VariantTokens)
	score += breakdown.ProductJaccard * productWeight
	score += breakdown.VariantJaccard * variantWeight

	// Size equality. Sizes are often printed on only one panel, so a
	// mismatch alone is not penalized.
	frontSize := NormalizeSize(front.Size)
	backSize := NormalizeSize(back.Size)
	if frontSize != "" && frontSize == backSize {
		breakdown.SizeEqual = true
		score += sizeMatchScore
	}

	// Packaging shape
	if front.PackagingType != "" && front.PackagingType != models.PackagingUnknown &&
		front.PackagingType == back.PackagingType {
		breakdown.PackagingMatch = true
		score += packagingScore
	}

	// Dominant color
	breakdown.ColorTier = colorMatchTier(front.ColorSignature, back.ColorSignature)
	switch breakdown.ColorTier {
	case models.ColorExact:
		score += colorExactScore
	case models.ColorClose:
		score += colorCloseScore
	}

	// Category compatibility
	breakdown.CategoryScore = bucketCompat(featureBucket(front), featureBucket(back), opts.CategoryWeight)
	score += breakdown.CategoryScore

	// Capture proximity: photos shot back-to-back are very likely the same
	// product, decaying quickly with distance
	breakdown.ProximityBoost = proximityBoost(front.CaptureIndex, back.CaptureIndex, opts.ProximityWindow)
	score += breakdown.ProximityBoost

	// Barcode: rare but decisive
	frontCode := ExtractBarcode(front.KeyText, front.OCRText)
	if frontCode != "" && frontCode == ExtractBarcode(back.KeyText, back.OCRText) {
		breakdown.BarcodeBoost = barcodeScore
		score += barcodeScore
	}

	return models.Candidate{
		FrontKey:  front.ImageKey,
		BackKey:   back.ImageKey,
		PreScore:  score,
		Breakdown: breakdown,
	}
}

// ScoreCandidates builds the bounded top-K candidate list for every front.
// Fronts with no back-eligible features get an empty list.
func ScoreCandidates(features map[string]models.Feature, opts ScorerOptions) map[string][]models.Candidate {
	if opts.TopK <= 0 {
		opts = DefaultScorerOptions()
	}

	candidates := make(map[string][]models.Candidate)
	for frontKey, front := range features {
		if !front.IsFront {
			continue
		}

		scored := make([]models.Candidate, 0)
		for backKey, back := range features {
			if backKey == frontKey || !back.IsBack {
				continue
			}
			scored = append(scored, ScorePair(front, back, opts))
		}

		sort.Slice(scored, func(i, j int) bool {
			if scored[i].PreScore != scored[j].PreScore {
				return scored[i].PreScore > scored[j].PreScore
			}
			return scored[i].BackKey < scored[j].BackKey
		})

		if len(scored) > opts.TopK {
			scored = scored[:opts.TopK]
		}
		candidates[frontKey] = scored
	}

	return candidates
}

// featureBucket derives the category bucket from a feature's textual signals
func featureBucket(feature models.Feature) CategoryBucket {
	var parts []string
	if feature.ProductName != "" {
		parts = append(parts, feature.ProductName)
	}
	if feature.Variant != "" {
		parts = append(parts, feature.Variant)
	}
	if feature.VisualDescription != "" {
		parts = append(parts, feature.VisualDescription)
	}
	return BucketFor(strings.Join(parts, " "))
}

// colorMatchTier compares dominant color labels: exact label overlap first,
// then the adjacency table
func colorMatchTier(frontColors, backColors []string) models.ColorTier {
	if len(frontColors) == 0 || len(backColors) == 0 {
		return models.ColorNone
	}

	backSet := make(map[string]bool, len(backColors))
	for _, color := range backColors {
		backSet[strings.ToLower(strings.TrimSpace(color))] = true
	}

	for _, color := range frontColors {
		if backSet[strings.ToLower(strings.TrimSpace(color))] {
			return models.ColorExact
		}
	}

	for _, frontColor := range frontColors {
		normalized := strings.ToLower(strings.TrimSpace(frontColor))
		for _, adjacent := range colorAdjacency[normalized] {
			if backSet[adjacent] {
				return models.ColorClose
			}
		}
		// Check the reverse direction of the table too
		for base, adjacents := range colorAdjacency {
			if !backSet[base] {
				continue
			}
			for _, adjacent := range adjacents {
				if adjacent == normalized {
					return models.ColorClose
				}
			}
		}
	}

	return models.ColorNone
}

// proximityBoost rewards small capture-index distance, full boost at distance
// one and halving until the window runs out
func proximityBoost(frontIdx, backIdx *int, window int) float64 {
	if frontIdx == nil || backIdx == nil || window <= 0 {
		return 0
	}

	distance := *frontIdx - *backIdx
	if distance < 0 {
		distance = -distance
	}
	if distance == 0 || distance > window {
		return 0
	}

	boost := proximityScore
	for i := 1; i < distance; i++ {
		boost /= 2
	}
	return boost
}
