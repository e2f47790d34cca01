package pairing

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shelfsnap/shelfsnap-go/pkg/kvstore"
	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/shelfsnap/shelfsnap-go/pkg/tiebreak"
	"github.com/shelfsnap/shelfsnap-go/utils"
)

// EngineOptions holds the engine's tunable thresholds
type EngineOptions struct {
	Scorer          ScorerOptions
	ScoreFloor      float64
	MarginGap       float64
	OrphanThreshold float64
	TieBreakTimeout time.Duration
	ResultTTL       time.Duration
}

// DefaultEngineOptions returns the empirically tuned engine defaults
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Scorer:          DefaultScorerOptions(),
		ScoreFloor:      1.5,
		MarginGap:       1.0,
		OrphanThreshold: DefaultOrphanThreshold,
		TieBreakTimeout: 30 * time.Second,
		ResultTTL:       time.Hour,
	}
}

// Engine runs the full pairing pipeline for a batch of image insights.
// Everything up to the tie-break stage is a pure function of the input;
// the tie-break resolver is the only nondeterministic collaborator.
type Engine struct {
	opts     EngineOptions
	resolver tiebreak.Resolver // nil disables escalation
	store    kvstore.Store     // nil disables result caching
	logger   *utils.Logger
}

// NewEngine creates a pairing engine. Resolver and store may be nil.
func NewEngine(opts EngineOptions, resolver tiebreak.Resolver, store kvstore.Store) *Engine {
	if opts.Scorer.TopK <= 0 {
		opts.Scorer = DefaultScorerOptions()
	}
	if opts.TieBreakTimeout <= 0 {
		opts.TieBreakTimeout = 30 * time.Second
	}
	return &Engine{
		opts:     opts,
		resolver: resolver,
		store:    store,
		logger:   utils.GetLogger(),
	}
}

// tieBreakOutcome carries one front's verdict back to the reconciliation pass
type tieBreakOutcome struct {
	frontKey string
	verdict  *tiebreak.Verdict
	err      error
}

// Scan pairs a batch of classified images into front/back products. The
// result always carries the metrics block, even when individual stages fail
// soft. A batch of all singletons is a valid outcome, not an error.
func (e *Engine) Scan(ctx context.Context, batchID string, insights map[string]models.ImageInsight) (*models.ScanResult, error) {
	if cached := e.cachedResult(ctx, batchID); cached != nil {
		e.logger.Info("Returning cached scan result",
			utils.String("batch_id", batchID),
			utils.Component("engine"))
		return cached, nil
	}

	result := &models.ScanResult{
		BatchID:    batchID,
		Pairs:      []models.Pair{},
		Singletons: []models.Singleton{},
	}
	result.Metrics.Images = len(insights)

	features, counts := BuildFeatures(insights)
	result.Metrics.Fronts = counts.Fronts
	result.Metrics.Backs = counts.Backs

	candidates := ScoreCandidates(features, e.opts.Scorer)
	for _, list := range candidates {
		result.Metrics.Candidates += len(list)
	}

	auto := AutoPair(features, candidates, e.opts.ScoreFloor, e.opts.MarginGap)
	result.Pairs = append(result.Pairs, auto.Pairs...)
	result.Metrics.AutoPairs = len(auto.Pairs)

	consumed := auto.Consumed
	e.escalate(ctx, features, candidates, auto.Unresolved, consumed, result)

	e.collectLeftovers(features, consumed, result)

	groups := groupsFromPairs(result.Pairs)
	result.Orphans = e.reassignDropped(insights, features, groups, result)
	result.Corrections = ReconcileRoles(groups, insights)

	result.Metrics.Singletons = len(result.Singletons)

	e.logger.Info("Scan complete",
		utils.String("batch_id", batchID),
		utils.Int("images", result.Metrics.Images),
		utils.Int("auto_pairs", result.Metrics.AutoPairs),
		utils.Int("model_pairs", result.Metrics.ModelPairs),
		utils.Int("singletons", result.Metrics.Singletons),
		utils.Component("engine"))

	e.cacheResult(ctx, batchID, result)
	return result, nil
}

// escalate sends unresolved fronts to the tie-break model. Calls run
// concurrently since fronts are independent, but verdicts are merged by a
// single-threaded reconciliation pass: two fronts could otherwise race to
// claim the same back.
func (e *Engine) escalate(ctx context.Context, features map[string]models.Feature, candidates map[string][]models.Candidate, unresolved []string, consumed map[string]bool, result *models.ScanResult) {
	requests := make(map[string]tiebreak.Request)
	for _, frontKey := range unresolved {
		available := filterConsumed(candidates[frontKey], consumed)
		if e.resolver == nil || len(available) == 0 {
			result.Singletons = append(result.Singletons, models.Singleton{
				ImagePath:   frontKey,
				Reason:      "No candidate cleared the auto-pair rule",
				NeedsReview: true,
			})
			continue
		}
		requests[frontKey] = tiebreak.Request{
			Front:      features[frontKey],
			Candidates: available,
		}
	}
	if len(requests) == 0 {
		return
	}

	outcomes := make(chan tieBreakOutcome, len(requests))
	var wg sync.WaitGroup
	for frontKey, request := range requests {
		wg.Add(1)
		go func(frontKey string, request tiebreak.Request) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, e.opts.TieBreakTimeout)
			defer cancel()
			verdict, err := e.resolver.Resolve(callCtx, request)
			outcomes <- tieBreakOutcome{frontKey: frontKey, verdict: verdict, err: err}
		}(frontKey, request)
	}
	wg.Wait()
	close(outcomes)

	collected := make(map[string]tieBreakOutcome, len(requests))
	for outcome := range outcomes {
		collected[outcome.frontKey] = outcome
	}

	// Reconciliation: deterministic order, consumed set enforced here and
	// only here
	ordered := make([]string, 0, len(requests))
	for frontKey := range requests {
		ordered = append(ordered, frontKey)
	}
	sort.Strings(ordered)

	for _, frontKey := range ordered {
		outcome := collected[frontKey]
		singleton := func(reason string) {
			result.Singletons = append(result.Singletons, models.Singleton{
				ImagePath:   frontKey,
				Reason:      reason,
				NeedsReview: true,
			})
		}

		if outcome.err != nil {
			e.logger.Warn("Tie-break call failed, demoting front to singleton",
				utils.String("front", frontKey),
				utils.String("error", outcome.err.Error()),
				utils.Component("engine"))
			singleton("Tie-break call failed")
			continue
		}
		if outcome.verdict == nil || outcome.verdict.BackKey == nil {
			singleton("Tie-break found no match")
			continue
		}

		backKey := *outcome.verdict.BackKey
		chosen, ok := findCandidate(requests[frontKey].Candidates, backKey)
		if !ok {
			e.logger.Warn("Tie-break named a back outside the candidate list",
				utils.String("front", frontKey),
				utils.String("back", backKey),
				utils.Component("engine"))
			singleton("Tie-break verdict rejected")
			continue
		}
		if consumed[backKey] {
			e.logger.Warn("Tie-break named an already consumed back",
				utils.String("front", frontKey),
				utils.String("back", backKey),
				utils.Component("engine"))
			singleton("Tie-break verdict rejected")
			continue
		}
		if chosen.PreScore < e.opts.ScoreFloor {
			e.logger.Warn("Tie-break verdict below score floor",
				utils.String("front", frontKey),
				utils.Float("score", chosen.PreScore),
				utils.Component("engine"))
			singleton("Tie-break verdict rejected")
			continue
		}

		front := features[frontKey]
		evidence := buildEvidence(front, chosen)
		if outcome.verdict.Rationale != "" {
			evidence = append(evidence, "Model: "+outcome.verdict.Rationale)
		}
		result.Pairs = append(result.Pairs, models.Pair{
			ID:         uuid.New().String(),
			Front:      frontKey,
			Back:       backKey,
			Confidence: confidenceFromScore(chosen.PreScore),
			Brand:      front.Brand,
			Product:    front.ProductName,
			Evidence:   evidence,
			Source:     models.PairSourceModel,
		})
		result.Metrics.ModelPairs++
		consumed[frontKey] = true
		consumed[backKey] = true
	}
}

// collectLeftovers turns every featured image that was never consumed and
// never resolved into a singleton
func (e *Engine) collectLeftovers(features map[string]models.Feature, consumed map[string]bool, result *models.ScanResult) {
	placed := make(map[string]bool, len(features))
	for key := range consumed {
		placed[key] = true
	}
	for _, singleton := range result.Singletons {
		placed[singleton.ImagePath] = true
	}

	keys := make([]string, 0, len(features))
	for key := range features {
		if !placed[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		feature := features[key]
		reason := "No matching front"
		if feature.IsFront {
			reason = "No matching back"
		} else if feature.IsOther {
			reason = "Unclear role"
		}
		result.Singletons = append(result.Singletons, models.Singleton{
			ImagePath:   key,
			Reason:      reason,
			NeedsReview: true,
		})
	}
}

// reassignDropped runs the orphan pass over input images that never entered
// feature building. Unmatched orphans become singletons.
func (e *Engine) reassignDropped(insights map[string]models.ImageInsight, features map[string]models.Feature, groups []models.Group, result *models.ScanResult) []models.OrphanMatch {
	var orphanKeys []string
	for key := range insights {
		if _, ok := features[key]; !ok {
			orphanKeys = append(orphanKeys, key)
		}
	}
	if len(orphanKeys) == 0 {
		return nil
	}
	sort.Strings(orphanKeys)

	matches := ReassignOrphans(orphanKeys, groups, insights, e.opts.OrphanThreshold)

	matched := make(map[string]bool, len(matches))
	for _, match := range matches {
		matched[match.OrphanKey] = true
	}
	for _, key := range orphanKeys {
		if !matched[key] {
			result.Singletons = append(result.Singletons, models.Singleton{
				ImagePath:   key,
				Reason:      "Dropped from feature extraction",
				NeedsReview: true,
			})
		}
	}

	return matches
}

// groupsFromPairs views committed pairs as groups for the orphan and role
// passes
func groupsFromPairs(pairs []models.Pair) []models.Group {
	groups := make([]models.Group, 0, len(pairs))
	for _, pair := range pairs {
		groups = append(groups, models.Group{
			ID:     pair.ID,
			Images: []string{pair.Front, pair.Back},
		})
	}
	return groups
}

// findCandidate looks up a back key in a candidate list
func findCandidate(candidates []models.Candidate, backKey string) (models.Candidate, bool) {
	for _, candidate := range candidates {
		if candidate.BackKey == backKey {
			return candidate, true
		}
	}
	return models.Candidate{}, false
}

const scanCachePrefix = "pairing:scan:"

// cachedResult returns a previously cached scan result for the batch, if any
func (e *Engine) cachedResult(ctx context.Context, batchID string) *models.ScanResult {
	if e.store == nil || batchID == "" {
		return nil
	}

	raw, err := e.store.Get(ctx, scanCachePrefix+batchID)
	if err != nil {
		return nil
	}

	var result models.ScanResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		e.logger.Warn("Discarding unreadable cached scan result",
			utils.String("batch_id", batchID),
			utils.Component("engine"))
		return nil
	}
	return &result
}

// cacheResult stores a scan result under the batch ID with a TTL
func (e *Engine) cacheResult(ctx context.Context, batchID string, result *models.ScanResult) {
	if e.store == nil || batchID == "" {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, scanCachePrefix+batchID, string(raw), e.opts.ResultTTL); err != nil {
		e.logger.Warn("Failed to cache scan result",
			utils.String("batch_id", batchID),
			utils.String("error", err.Error()),
			utils.Component("engine"))
	}
}
