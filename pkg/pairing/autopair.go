package pairing

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/shelfsnap/shelfsnap-go/utils"
)

// AutoPairResult holds the outcome of the greedy pass
type AutoPairResult struct {
	Pairs      []models.Pair
	Consumed   map[string]bool
	Unresolved []string // fronts that failed the acceptance rule
}

// AutoPair commits high-confidence pairs greedily. A front's top candidate is
// accepted only when its score clears the absolute floor AND its margin over
// the runner-up clears the minimum gap: a score can be high in isolation yet
// still ambiguous relative to a close second choice. Committed images are
// removed from every remaining pool immediately so no image is used twice.
func AutoPair(features map[string]models.Feature, candidates map[string][]models.Candidate, floor, gap float64) AutoPairResult {
	logger := utils.GetLogger()
	result := AutoPairResult{
		Consumed: make(map[string]bool),
	}

	for _, frontKey := range sortedFrontKeys(features, candidates) {
		available := filterConsumed(candidates[frontKey], result.Consumed)
		if len(available) == 0 {
			result.Unresolved = append(result.Unresolved, frontKey)
			continue
		}

		top := available[0]
		margin := top.PreScore
		if len(available) > 1 {
			margin = top.PreScore - available[1].PreScore
		}

		if top.PreScore < floor || margin < gap {
			result.Unresolved = append(result.Unresolved, frontKey)
			continue
		}

		front := features[frontKey]
		result.Pairs = append(result.Pairs, models.Pair{
			ID:         uuid.New().String(),
			Front:      frontKey,
			Back:       top.BackKey,
			Confidence: confidenceFromScore(top.PreScore),
			Brand:      front.Brand,
			Product:    front.ProductName,
			Evidence:   buildEvidence(front, top),
			Source:     models.PairSourceAuto,
		})
		result.Consumed[frontKey] = true
		result.Consumed[top.BackKey] = true

		logger.Debug("Auto-paired",
			utils.String("front", frontKey),
			utils.String("back", top.BackKey),
			utils.Float("score", top.PreScore),
			utils.Float("margin", margin),
			utils.Component("autopair"))
	}

	return result
}

// sortedFrontKeys orders fronts by capture index, then key, so the greedy
// pass is deterministic across runs
func sortedFrontKeys(features map[string]models.Feature, candidates map[string][]models.Candidate) []string {
	keys := make([]string, 0, len(candidates))
	for frontKey := range candidates {
		keys = append(keys, frontKey)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := features[keys[i]], features[keys[j]]
		switch {
		case a.CaptureIndex != nil && b.CaptureIndex != nil && *a.CaptureIndex != *b.CaptureIndex:
			return *a.CaptureIndex < *b.CaptureIndex
		case a.CaptureIndex != nil && b.CaptureIndex == nil:
			return true
		case a.CaptureIndex == nil && b.CaptureIndex != nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	return keys
}

// filterConsumed drops candidates whose back has already been claimed
func filterConsumed(candidates []models.Candidate, consumed map[string]bool) []models.Candidate {
	available := make([]models.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if !consumed[candidate.BackKey] {
			available = append(available, candidate)
		}
	}
	return available
}

// confidenceFromScore maps a raw pre-score onto a 0..1 confidence
func confidenceFromScore(score float64) float64 {
	if score <= 0 {
		return 0
	}
	confidence := score / 10.0
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// buildEvidence renders a human-readable trail of the signals behind a pair
func buildEvidence(front models.Feature, candidate models.Candidate) []string {
	breakdown := candidate.Breakdown
	var evidence []string

	if breakdown.BrandFlag == models.BrandEqual {
		evidence = append(evidence, fmt.Sprintf("Brand match: %s", front.NormalizedBrand))
	}
	if breakdown.ProductJaccard > 0 {
		evidence = append(evidence, fmt.Sprintf("Product text similarity %.2f", breakdown.ProductJaccard))
	}
	if breakdown.VariantJaccard > 0 {
		evidence = append(evidence, fmt.Sprintf("Variant text similarity %.2f", breakdown.VariantJaccard))
	}
	if breakdown.SizeEqual {
		evidence = append(evidence, "Size match")
	}
	if breakdown.PackagingMatch {
		evidence = append(evidence, fmt.Sprintf("Packaging match (%s)", front.PackagingType))
	}
	switch breakdown.ColorTier {
	case models.ColorExact:
		evidence = append(evidence, "Exact color match")
	case models.ColorClose:
		evidence = append(evidence, "Close color match")
	}
	if breakdown.ProximityBoost > 0 {
		evidence = append(evidence, "Captured adjacently")
	}
	if breakdown.BarcodeBoost > 0 {
		evidence = append(evidence, "Barcode match")
	}

	evidence = append(evidence, fmt.Sprintf("Pre-score %.2f", candidate.PreScore))
	return evidence
}
