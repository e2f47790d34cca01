package pairing

import (
	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/shelfsnap/shelfsnap-go/utils"
)

// RoleCounts summarizes the resolved roles of a feature set
type RoleCounts struct {
	Fronts int `json:"fronts"`
	Backs  int `json:"backs"`
	Others int `json:"others"`
}

// BuildFeatures normalizes raw image insights into the engine's Feature
// records. Insights missing a key or role are dropped with a warning rather
// than failing the batch. An "other" role is treated as back-eligible: the
// vision classifier regularly labels side and ingredient panels "other" even
// though they pair like backs.
func BuildFeatures(insights map[string]models.ImageInsight) (map[string]models.Feature, RoleCounts) {
	logger := utils.GetLogger()
	features := make(map[string]models.Feature, len(insights))
	counts := RoleCounts{}

	for key, insight := range insights {
		if insight.ImageKey == "" {
			insight.ImageKey = key
		}
		if insight.ImageKey == "" || insight.Role == "" {
			logger.Warn("Dropping insight with missing key or role",
				utils.String("image_key", key),
				utils.Component("features"))
			continue
		}

		feature := models.Feature{
			ImageInsight:    insight,
			NormalizedBrand: NormalizeBrand(insight.Brand),
			ProductTokens:   TokenizeText(insight.ProductName, 3),
			VariantTokens:   TokenizeText(insight.Variant, 3),
		}

		switch insight.Role {
		case models.RoleFront:
			feature.IsFront = true
			counts.Fronts++
		case models.RoleBack, models.RoleOther:
			feature.IsBack = true
			counts.Backs++
		case models.RoleUnclear:
			// An unclear label with a non-negative classifier score still
			// carries signal; keep it back-eligible so it can be absorbed.
			if insight.RoleScore >= 0 {
				feature.IsBack = true
				counts.Backs++
			} else {
				feature.IsOther = true
				counts.Others++
			}
		default:
			logger.Warn("Dropping insight with unknown role",
				utils.String("image_key", insight.ImageKey),
				utils.String("role", string(insight.Role)),
				utils.Component("features"))
			continue
		}

		features[insight.ImageKey] = feature
	}

	logger.Info("Built features",
		utils.Int("images", len(features)),
		utils.Int("fronts", counts.Fronts),
		utils.Int("backs", counts.Backs),
		utils.Int("others", counts.Others),
		utils.Component("features"))

	return features, counts
}
