package pairing

import (
	"testing"

	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(front, back string, score float64) models.Candidate {
	return models.Candidate{FrontKey: front, BackKey: back, PreScore: score}
}

func TestAutoPairAcceptsClearWinner(t *testing.T) {
	features := scenarioFeatures(t, 1)
	candidates := map[string][]models.Candidate{
		"product-00-front.jpg": {
			candidate("product-00-front.jpg", "product-00-back.jpg", 6.0),
			candidate("product-00-front.jpg", "decoy.jpg", 2.0),
		},
	}

	result := AutoPair(features, candidates, 1.5, 1.0)
	require.Len(t, result.Pairs, 1)

	pair := result.Pairs[0]
	assert.Equal(t, "product-00-front.jpg", pair.Front)
	assert.Equal(t, "product-00-back.jpg", pair.Back)
	assert.Equal(t, models.PairSourceAuto, pair.Source)
	assert.NotEmpty(t, pair.ID)
	assert.NotEmpty(t, pair.Evidence)
	assert.InDelta(t, 0.6, pair.Confidence, 1e-9)

	assert.True(t, result.Consumed["product-00-front.jpg"])
	assert.True(t, result.Consumed["product-00-back.jpg"])
	assert.Empty(t, result.Unresolved)
}

func TestAutoPairRejectsBelowFloor(t *testing.T) {
	features := scenarioFeatures(t, 1)
	candidates := map[string][]models.Candidate{
		"product-00-front.jpg": {
			candidate("product-00-front.jpg", "product-00-back.jpg", 1.2),
		},
	}

	result := AutoPair(features, candidates, 1.5, 1.0)
	assert.Empty(t, result.Pairs)
	assert.Equal(t, []string{"product-00-front.jpg"}, result.Unresolved)
}

func TestAutoPairRejectsNarrowMargin(t *testing.T) {
	features := scenarioFeatures(t, 1)
	candidates := map[string][]models.Candidate{
		"product-00-front.jpg": {
			candidate("product-00-front.jpg", "product-00-back.jpg", 6.0),
			candidate("product-00-front.jpg", "decoy.jpg", 5.5),
		},
	}

	// Score clears the floor but the runner-up is too close to call
	result := AutoPair(features, candidates, 1.5, 1.0)
	assert.Empty(t, result.Pairs)
	assert.Equal(t, []string{"product-00-front.jpg"}, result.Unresolved)
}

func TestAutoPairSoleCandidateMarginIsScore(t *testing.T) {
	features := scenarioFeatures(t, 1)
	candidates := map[string][]models.Candidate{
		"product-00-front.jpg": {
			candidate("product-00-front.jpg", "product-00-back.jpg", 2.0),
		},
	}

	result := AutoPair(features, candidates, 1.5, 1.0)
	require.Len(t, result.Pairs, 1)
}

func TestAutoPairNoDoubleUse(t *testing.T) {
	features := scenarioFeatures(t, 2)

	// Both fronts want the same back. The earlier capture index wins and the
	// later front must not reuse the consumed image.
	shared := "product-00-back.jpg"
	candidates := map[string][]models.Candidate{
		"product-00-front.jpg": {
			candidate("product-00-front.jpg", shared, 7.0),
			candidate("product-00-front.jpg", "product-01-back.jpg", 2.0),
		},
		"product-01-front.jpg": {
			candidate("product-01-front.jpg", shared, 6.5),
		},
	}

	result := AutoPair(features, candidates, 1.5, 1.0)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, "product-00-front.jpg", result.Pairs[0].Front)
	assert.Equal(t, shared, result.Pairs[0].Back)
	assert.Equal(t, []string{"product-01-front.jpg"}, result.Unresolved)

	seen := make(map[string]bool)
	for _, pair := range result.Pairs {
		assert.False(t, seen[pair.Front])
		assert.False(t, seen[pair.Back])
		seen[pair.Front] = true
		seen[pair.Back] = true
	}
}

func TestAutoPairDeterministicOrder(t *testing.T) {
	features := scenarioFeatures(t, 3)
	candidates := ScoreCandidates(features, DefaultScorerOptions())

	first := AutoPair(features, candidates, 1.5, 1.0)
	second := AutoPair(features, candidates, 1.5, 1.0)

	require.Equal(t, len(first.Pairs), len(second.Pairs))
	for i := range first.Pairs {
		assert.Equal(t, first.Pairs[i].Front, second.Pairs[i].Front)
		assert.Equal(t, first.Pairs[i].Back, second.Pairs[i].Back)
	}
}

// Raising the floor can only shrink the committed set, never grow it
func TestAutoPairFloorMonotonicity(t *testing.T) {
	features := scenarioFeatures(t, 6)
	candidates := ScoreCandidates(features, DefaultScorerOptions())

	previous := len(features)
	for _, floor := range []float64{0.5, 1.5, 3.0, 6.0, 12.0} {
		result := AutoPair(features, candidates, floor, 1.0)
		assert.LessOrEqual(t, len(result.Pairs), previous, "floor %.1f", floor)
		previous = len(result.Pairs)
	}
}

func TestConfidenceFromScore(t *testing.T) {
	assert.Equal(t, 0.0, confidenceFromScore(-1.0))
	assert.Equal(t, 0.0, confidenceFromScore(0.0))
	assert.InDelta(t, 0.35, confidenceFromScore(3.5), 1e-9)
	assert.Equal(t, 1.0, confidenceFromScore(10.0))
	assert.Equal(t, 1.0, confidenceFromScore(25.0))
}

func TestBuildEvidenceAlwaysIncludesScore(t *testing.T) {
	front := makeFeature("f", models.RoleFront, nil)
	evidence := buildEvidence(front, candidate("f", "b", 4.25))
	require.NotEmpty(t, evidence)
	assert.Equal(t, "Pre-score 4.25", evidence[len(evidence)-1])
}
