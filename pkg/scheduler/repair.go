// Package scheduler runs the retroactive orphan repair sweep. Repair
// requests are queued in the key-value store by operators or upstream
// services; each sweep drains the queue and reattaches orphans to their
// groups with the standalone reassignment entry point.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shelfsnap/shelfsnap-go/pkg/kvstore"
	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/shelfsnap/shelfsnap-go/pkg/pairing"
	"github.com/shelfsnap/shelfsnap-go/utils"
)

const (
	repairQueueKey     = "pairing:repair:queue"
	repairResultPrefix = "pairing:repair:result:"
	repairResultTTL    = 24 * time.Hour
)

// RepairRequest is one queued orphan repair job
type RepairRequest struct {
	ID        string                         `json:"id"`
	Orphans   []string                       `json:"orphans"`
	Groups    []models.Group                 `json:"groups"`
	Insights  map[string]models.ImageInsight `json:"insights"`
	Threshold float64                        `json:"threshold,omitempty"`
}

// RepairResult is the stored outcome of a repair job
type RepairResult struct {
	RequestID   string               `json:"request_id"`
	Matches     []models.OrphanMatch `json:"matches"`
	CompletedAt time.Time            `json:"completed_at"`
}

// RepairScheduler periodically drains the repair queue
type RepairScheduler struct {
	cron   *cron.Cron
	store  kvstore.Store
	logger *utils.Logger
}

// NewRepairScheduler creates a scheduler backed by the given store
func NewRepairScheduler(store kvstore.Store) *RepairScheduler {
	return &RepairScheduler{
		cron:   cron.New(),
		store:  store,
		logger: utils.GetLogger(),
	}
}

// Start registers the sweep on the given cron schedule and starts the cron
// runner
func (s *RepairScheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.logger.Error("Repair sweep failed", err, utils.Component("scheduler"))
		}
	}); err != nil {
		return fmt.Errorf("failed to register repair schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Repair scheduler started",
		utils.String("schedule", schedule),
		utils.Component("scheduler"))
	return nil
}

// Stop stops the cron runner and waits for a running sweep to finish
func (s *RepairScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep drains every queued repair request. A malformed request is dropped
// with a warning; it must not wedge the queue.
func (s *RepairScheduler) Sweep(ctx context.Context) error {
	processed := 0
	for {
		raw, err := s.store.ListPop(ctx, repairQueueKey)
		if errors.Is(err, kvstore.ErrNotFound) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to pop repair request: %w", err)
		}

		var request RepairRequest
		if err := json.Unmarshal([]byte(raw), &request); err != nil {
			s.logger.Warn("Dropping malformed repair request",
				utils.String("error", err.Error()),
				utils.Component("scheduler"))
			continue
		}

		matches := pairing.ReassignOrphans(request.Orphans, request.Groups, request.Insights, request.Threshold)
		if err := s.storeResult(ctx, request.ID, matches); err != nil {
			s.logger.Error("Failed to store repair result", err,
				utils.String("request_id", request.ID),
				utils.Component("scheduler"))
		}
		processed++
	}

	if processed > 0 {
		s.logger.Info("Repair sweep complete",
			utils.Int("processed", processed),
			utils.Component("scheduler"))
	}
	return nil
}

// EnqueueRepair adds a repair request to the queue
func (s *RepairScheduler) EnqueueRepair(ctx context.Context, request RepairRequest) error {
	raw, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal repair request: %w", err)
	}
	return s.store.ListPush(ctx, repairQueueKey, string(raw))
}

func (s *RepairScheduler) storeResult(ctx context.Context, requestID string, matches []models.OrphanMatch) error {
	result := RepairResult{
		RequestID:   requestID,
		Matches:     matches,
		CompletedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal repair result: %w", err)
	}
	return s.store.Set(ctx, repairResultPrefix+requestID, string(raw), repairResultTTL)
}
