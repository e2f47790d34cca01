package pairing

import (
	"testing"

	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleConfidence(t *testing.T) {
	front, back := RoleConfidence(models.ImageInsight{
		Brand:       "Acme",
		ProductName: "Vitamin Serum",
		Variant:     "Extra Strength",
	})
	assert.Equal(t, 4.0, front)
	assert.Equal(t, 0.0, back)

	front, back = RoleConfidence(models.ImageInsight{
		OCRText: "Supplement Facts Serving Size 2 capsules Warnings keep out of reach",
	})
	assert.Equal(t, 0.0, front)
	// supplement facts + serving size + warnings + warning (substring)
	assert.Equal(t, 6.0, back)

	_, back = RoleConfidence(models.ImageInsight{
		EvidenceTriggers: []string{"Nutrition Facts panel visible"},
	})
	assert.Equal(t, 2.0, back)
}

func TestReconcileRolesMultiFrontGroup(t *testing.T) {
	insights := map[string]models.ImageInsight{
		"strong.jpg": {
			ImageKey:    "strong.jpg",
			Role:        models.RoleFront,
			Brand:       "Acme",
			ProductName: "Vitamin Serum",
		},
		"weak.jpg": {
			ImageKey: "weak.jpg",
			Role:     models.RoleFront,
			OCRText:  "ingredients water glycerin directions apply daily",
		},
	}
	groups := []models.Group{{ID: "g1", Images: []string{"strong.jpg", "weak.jpg"}}}

	corrections := ReconcileRoles(groups, insights)
	require.Len(t, corrections, 1)
	assert.Equal(t, "weak.jpg", corrections[0].ImageKey)
	assert.Equal(t, models.RoleFront, corrections[0].OriginalRole)
	assert.Equal(t, models.RoleBack, corrections[0].CorrectedRole)
}

func TestReconcileRolesPromotesFrontFromAllBacks(t *testing.T) {
	insights := map[string]models.ImageInsight{
		"mislabeled.jpg": {
			ImageKey:    "mislabeled.jpg",
			Role:        models.RoleBack,
			Brand:       "Acme",
			ProductName: "Vitamin Serum",
		},
		"trueback.jpg": {
			ImageKey: "trueback.jpg",
			Role:     models.RoleBack,
			OCRText:  "supplement facts ingredients warnings",
		},
	}
	groups := []models.Group{{ID: "g1", Images: []string{"mislabeled.jpg", "trueback.jpg"}}}

	corrections := ReconcileRoles(groups, insights)
	require.Len(t, corrections, 1)
	assert.Equal(t, "mislabeled.jpg", corrections[0].ImageKey)
	assert.Equal(t, models.RoleFront, corrections[0].CorrectedRole)
}

func TestReconcileRolesAllBacksNoClearFront(t *testing.T) {
	insights := map[string]models.ImageInsight{
		"b1.jpg": {ImageKey: "b1.jpg", Role: models.RoleBack, OCRText: "ingredients list"},
		"b2.jpg": {ImageKey: "b2.jpg", Role: models.RoleBack, OCRText: "storage directions"},
	}
	groups := []models.Group{{ID: "g1", Images: []string{"b1.jpg", "b2.jpg"}}}

	// Neither member leans front past the margin: no promotion
	corrections := ReconcileRoles(groups, insights)
	assert.Empty(t, corrections)
}

func TestReconcileRolesSwapsMisassignedPair(t *testing.T) {
	insights := map[string]models.ImageInsight{
		"labeledfront.jpg": {
			ImageKey: "labeledfront.jpg",
			Role:     models.RoleFront,
			OCRText:  "supplement facts serving size warnings",
		},
		"labeledback.jpg": {
			ImageKey:    "labeledback.jpg",
			Role:        models.RoleBack,
			Brand:       "Acme",
			ProductName: "Vitamin Serum",
		},
	}
	groups := []models.Group{{ID: "g1", Images: []string{"labeledfront.jpg", "labeledback.jpg"}}}

	corrections := ReconcileRoles(groups, insights)
	require.Len(t, corrections, 2)

	byKey := make(map[string]models.RoleCorrection, 2)
	for _, correction := range corrections {
		byKey[correction.ImageKey] = correction
	}
	assert.Equal(t, models.RoleBack, byKey["labeledfront.jpg"].CorrectedRole)
	assert.Equal(t, models.RoleFront, byKey["labeledback.jpg"].CorrectedRole)
}

func TestReconcileRolesProtectsOnlyBack(t *testing.T) {
	// The back leans front slightly but the front is fine: a one-sided swap
	// would leave the group without a back, so nothing is proposed
	insights := map[string]models.ImageInsight{
		"front.jpg": {
			ImageKey:    "front.jpg",
			Role:        models.RoleFront,
			Brand:       "Acme",
			ProductName: "Vitamin Serum",
		},
		"back.jpg": {
			ImageKey:    "back.jpg",
			Role:        models.RoleBack,
			ProductName: "Vitamin Serum",
		},
	}
	groups := []models.Group{{ID: "g1", Images: []string{"front.jpg", "back.jpg"}}}

	corrections := ReconcileRoles(groups, insights)
	assert.Empty(t, corrections)
}

func TestReconcileRolesSkipsSingletonGroups(t *testing.T) {
	insights := map[string]models.ImageInsight{
		"solo.jpg": {ImageKey: "solo.jpg", Role: models.RoleFront, OCRText: "supplement facts warnings"},
	}
	groups := []models.Group{{ID: "g1", Images: []string{"solo.jpg"}}}

	corrections := ReconcileRoles(groups, insights)
	assert.Empty(t, corrections)
}
