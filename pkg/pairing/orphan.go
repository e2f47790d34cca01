package pairing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/shelfsnap/shelfsnap-go/utils"
)

// Orphan matching uses a reduced three-signal similarity. The contributions
// sum to a confidence capped at 1.0.
const (
	orphanTextWeight   = 0.5
	orphanVisualWeight = 0.4
	orphanColorWeight  = 0.3

	// DefaultOrphanThreshold is the minimum confidence for reassignment
	DefaultOrphanThreshold = 0.5
)

// MatchOrphanToGroup scores an orphaned image against one existing group.
// Returns the capped confidence and a human-readable reason.
func MatchOrphanToGroup(orphan models.ImageInsight, group models.Group, insights map[string]models.ImageInsight) (float64, string) {
	if len(group.Images) == 0 {
		return 0, "Empty group"
	}

	orphanText := orphanTextTokens(orphan)
	orphanVisual := TokenizeText(orphan.VisualDescription, 2)
	orphanColors := normalizeColors(orphan.ColorSignature)

	best := 0.0
	bestReason := "No overlap with group members"
	scoredAny := false

	for _, memberKey := range group.Images {
		member, ok := insights[memberKey]
		if !ok {
			continue
		}
		scoredAny = true

		textSim := Jaccard(orphanText, orphanTextTokens(member))
		visualSim := Jaccard(orphanVisual, TokenizeText(member.VisualDescription, 2))
		colorSim := colorOverlapRatio(orphanColors, normalizeColors(member.ColorSignature))

		confidence := textSim*orphanTextWeight + visualSim*orphanVisualWeight + colorSim*orphanColorWeight
		if confidence > 1.0 {
			confidence = 1.0
		}

		if confidence > best {
			best = confidence
			bestReason = fmt.Sprintf("Text similarity %.2f, visual similarity %.2f, color overlap %.2f with %s",
				textSim, visualSim, colorSim, memberKey)
		}
	}

	if !scoredAny {
		return 0, "No member data"
	}
	return best, bestReason
}

// ReassignOrphans scores each orphan against every group and reattaches it to
// the best group above the threshold. An exact tie between two groups means
// no reassignment: guessing between equally plausible groups is worse than
// leaving the orphan for review.
func ReassignOrphans(orphans []string, groups []models.Group, insights map[string]models.ImageInsight, threshold float64) []models.OrphanMatch {
	logger := utils.GetLogger()
	if threshold <= 0 {
		threshold = DefaultOrphanThreshold
	}

	matches := make([]models.OrphanMatch, 0)
	for _, orphanKey := range orphans {
		orphan, ok := insights[orphanKey]
		if !ok {
			logger.Warn("Orphan has no insight record, skipping",
				utils.String("orphan", orphanKey),
				utils.Component("orphan"))
			continue
		}

		bestConfidence := 0.0
		bestReason := ""
		bestGroup := ""
		tied := false

		for _, group := range sortedGroups(groups) {
			confidence, reason := MatchOrphanToGroup(orphan, group, insights)
			if confidence > bestConfidence {
				bestConfidence = confidence
				bestReason = reason
				bestGroup = group.ID
				tied = false
			} else if confidence == bestConfidence && confidence > 0 && group.ID != bestGroup {
				tied = true
			}
		}

		if bestGroup == "" || bestConfidence < threshold {
			continue
		}
		if tied {
			logger.Info("Orphan tied between groups, not reassigning",
				utils.String("orphan", orphanKey),
				utils.Float("confidence", bestConfidence),
				utils.Component("orphan"))
			continue
		}

		matches = append(matches, models.OrphanMatch{
			OrphanKey:      orphanKey,
			MatchedGroupID: bestGroup,
			Confidence:     bestConfidence,
			Reason:         bestReason,
		})
	}

	return matches
}

// orphanTextTokens combines OCR text and key text into one token set
func orphanTextTokens(insight models.ImageInsight) []string {
	combined := insight.OCRText
	if len(insight.KeyText) > 0 {
		combined += " " + strings.Join(insight.KeyText, " ")
	}
	if insight.ProductName != "" {
		combined += " " + insight.ProductName
	}
	return TokenizeText(combined, 2)
}

// normalizeColors lower-cases and trims color labels
func normalizeColors(colors []string) []string {
	normalized := make([]string, 0, len(colors))
	for _, color := range colors {
		trimmed := strings.ToLower(strings.TrimSpace(color))
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}

// colorOverlapRatio is the share of the smaller label set that appears
// exactly in the other
func colorOverlapRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setB := make(map[string]bool, len(b))
	for _, color := range b {
		setB[color] = true
	}

	matched := 0
	for _, color := range a {
		if setB[color] {
			matched++
		}
	}

	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(matched) / float64(smaller)
}

// sortedGroups returns groups in a stable order so tie detection is
// deterministic
func sortedGroups(groups []models.Group) []models.Group {
	ordered := make([]models.Group, len(groups))
	copy(ordered, groups)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}
