package pairing

import (
	"sort"
	"strings"

	"github.com/shelfsnap/shelfsnap-go/pkg/models"
)

// backMarkers are text fragments that strongly indicate a back or side panel
var backMarkers = []string{
	"nutrition facts", "supplement facts", "ingredients", "directions",
	"warnings", "warning", "allergen", "storage", "distributed by",
	"barcode", "best before", "expiry", "serving size",
}

// roleSwapMargin is how decisively the signals must disagree with the
// assigned role before the reconciler proposes a relabel
const roleSwapMargin = 1.0

// roleSignal holds the independent front/back confidence of one image
type roleSignal struct {
	imageKey string
	role     models.ImageRole
	net      float64 // positive leans front, negative leans back
}

// RoleConfidence computes independent front and back confidence scores for an
// image. Front confidence comes from marketing-panel signals (brand, product
// name), back confidence from regulatory-panel text markers.
func RoleConfidence(insight models.ImageInsight) (frontScore, backScore float64) {
	if insight.Brand != "" {
		frontScore += 2.0
	}
	if insight.ProductName != "" {
		frontScore += 1.5
	}
	if insight.Variant != "" {
		frontScore += 0.5
	}

	haystack := strings.ToLower(insight.OCRText + " " + strings.Join(insight.KeyText, " "))
	for _, marker := range backMarkers {
		if strings.Contains(haystack, marker) {
			backScore += 1.5
		}
	}
	for _, trigger := range insight.EvidenceTriggers {
		lowered := strings.ToLower(trigger)
		for _, marker := range backMarkers {
			if strings.Contains(lowered, marker) {
				backScore += 2.0
				break
			}
		}
	}

	return frontScore, backScore
}

// ReconcileRoles cross-checks each group's role assignments against the
// independent role confidence and returns proposed corrections. Corrections
// are never applied in place: the caller applies them between scan cycles,
// before the next candidate generation, which keeps repeated passes from
// oscillating. A group's only back (or only front) is never converted unless
// another member takes the vacated role in the same correction set.
func ReconcileRoles(groups []models.Group, insights map[string]models.ImageInsight) []models.RoleCorrection {
	corrections := make([]models.RoleCorrection, 0)

	for _, group := range groups {
		signals := groupSignals(group, insights)
		if len(signals) < 2 {
			continue
		}

		var fronts, backs []roleSignal
		for _, signal := range signals {
			if signal.role == models.RoleFront {
				fronts = append(fronts, signal)
			} else {
				backs = append(backs, signal)
			}
		}

		switch {
		case len(fronts) >= 2 && len(backs) == 0:
			// Two images both labeled front: keep the strongest, relabel the
			// rest as backs
			sort.Slice(fronts, func(i, j int) bool { return fronts[i].net > fronts[j].net })
			for _, weaker := range fronts[1:] {
				corrections = append(corrections, models.RoleCorrection{
					ImageKey:      weaker.imageKey,
					OriginalRole:  weaker.role,
					CorrectedRole: models.RoleBack,
					Reason:        "Group has multiple fronts; this image has the weaker front signals",
				})
			}

		case len(backs) >= 2 && len(fronts) == 0:
			// No front at all: promote the member whose signals lean front
			sort.Slice(backs, func(i, j int) bool { return backs[i].net > backs[j].net })
			if backs[0].net > roleSwapMargin {
				corrections = append(corrections, models.RoleCorrection{
					ImageKey:      backs[0].imageKey,
					OriginalRole:  backs[0].role,
					CorrectedRole: models.RoleFront,
					Reason:        "Group has no front; this image carries front-panel signals",
				})
			}

		case len(fronts) == 1 && len(backs) == 1:
			// A swap is proposed only when both assignments look wrong, so the
			// vacated role is always refilled
			front, back := fronts[0], backs[0]
			if front.net < -roleSwapMargin && back.net > roleSwapMargin {
				corrections = append(corrections,
					models.RoleCorrection{
						ImageKey:      front.imageKey,
						OriginalRole:  front.role,
						CorrectedRole: models.RoleBack,
						Reason:        "Labeled front but carries back-panel signals; swapping with group partner",
					},
					models.RoleCorrection{
						ImageKey:      back.imageKey,
						OriginalRole:  back.role,
						CorrectedRole: models.RoleFront,
						Reason:        "Labeled back but carries front-panel signals; swapping with group partner",
					})
			}
		}
	}

	return corrections
}

// groupSignals resolves the role signals for every group member with an
// insight record
func groupSignals(group models.Group, insights map[string]models.ImageInsight) []roleSignal {
	signals := make([]roleSignal, 0, len(group.Images))
	for _, imageKey := range group.Images {
		insight, ok := insights[imageKey]
		if !ok {
			continue
		}
		frontScore, backScore := RoleConfidence(insight)
		signals = append(signals, roleSignal{
			imageKey: imageKey,
			role:     insight.Role,
			net:      frontScore - backScore,
		})
	}
	return signals
}
