// Package tiebreak is the boundary to the external tie-break model. The
// pairing engine hands it a bounded, pre-scored candidate list for each
// ambiguous front and accepts back a verdict naming one back key, or no
// match. It is the only nondeterministic stage in the pipeline.
package tiebreak

import (
	"context"

	"github.com/shelfsnap/shelfsnap-go/pkg/models"
)

// Request packages one ambiguous front with its surviving candidates
type Request struct {
	Front      models.Feature     `json:"front"`
	Candidates []models.Candidate `json:"candidates"`
}

// Verdict is the tie-break model's answer. A nil BackKey means "no match".
type Verdict struct {
	BackKey   *string `json:"back_key"`
	Rationale string  `json:"rationale,omitempty"`
}

// Resolver decides which candidate back, if any, belongs to a front
type Resolver interface {
	Resolve(ctx context.Context, request Request) (*Verdict, error)
}

// StaticResolver returns pre-seeded verdicts keyed by front image key. Used
// in tests and as a stand-in when no model is configured.
type StaticResolver struct {
	Verdicts map[string]*Verdict
}

// Resolve returns the seeded verdict for the front, or "no match"
func (r *StaticResolver) Resolve(_ context.Context, request Request) (*Verdict, error) {
	if verdict, ok := r.Verdicts[request.Front.ImageKey]; ok {
		return verdict, nil
	}
	return &Verdict{}, nil
}
