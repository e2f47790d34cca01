package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shelfsnap/shelfsnap-go/pkg/kvstore"
	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repairFixture() RepairRequest {
	return RepairRequest{
		ID:      "req-1",
		Orphans: []string{"orphan.jpg"},
		Groups: []models.Group{
			{ID: "g1", Images: []string{"member.jpg"}},
		},
		Insights: map[string]models.ImageInsight{
			"orphan.jpg": {
				ImageKey:          "orphan.jpg",
				OCRText:           "collagen peptides unflavored powder",
				VisualDescription: "white plastic tub",
			},
			"member.jpg": {
				ImageKey:          "member.jpg",
				OCRText:           "collagen peptides unflavored powder",
				VisualDescription: "white plastic tub",
			},
		},
		Threshold: 0.5,
	}
}

func TestSweepProcessesQueuedRequests(t *testing.T) {
	store := kvstore.NewMemoryStore()
	scheduler := NewRepairScheduler(store)
	ctx := context.Background()

	require.NoError(t, scheduler.EnqueueRepair(ctx, repairFixture()))
	require.NoError(t, scheduler.Sweep(ctx))

	raw, err := store.Get(ctx, repairResultPrefix+"req-1")
	require.NoError(t, err)

	var result RepairResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	assert.Equal(t, "req-1", result.RequestID)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "orphan.jpg", result.Matches[0].OrphanKey)
	assert.Equal(t, "g1", result.Matches[0].MatchedGroupID)
	assert.False(t, result.CompletedAt.IsZero())

	// Queue is drained
	_, err = store.ListPop(ctx, repairQueueKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestSweepEmptyQueue(t *testing.T) {
	scheduler := NewRepairScheduler(kvstore.NewMemoryStore())
	assert.NoError(t, scheduler.Sweep(context.Background()))
}

func TestSweepDropsMalformedRequest(t *testing.T) {
	store := kvstore.NewMemoryStore()
	scheduler := NewRepairScheduler(store)
	ctx := context.Background()

	require.NoError(t, store.ListPush(ctx, repairQueueKey, "not json"))
	require.NoError(t, scheduler.EnqueueRepair(ctx, repairFixture()))

	// The bad entry is skipped and the good one still runs
	require.NoError(t, scheduler.Sweep(ctx))

	_, err := store.Get(ctx, repairResultPrefix+"req-1")
	assert.NoError(t, err)
}

func TestSweepStoresEmptyMatchSet(t *testing.T) {
	store := kvstore.NewMemoryStore()
	scheduler := NewRepairScheduler(store)
	ctx := context.Background()

	request := repairFixture()
	request.ID = "req-2"
	request.Insights["orphan.jpg"] = models.ImageInsight{
		ImageKey: "orphan.jpg",
		OCRText:  "completely unrelated text",
	}
	require.NoError(t, scheduler.EnqueueRepair(ctx, request))
	require.NoError(t, scheduler.Sweep(ctx))

	raw, err := store.Get(ctx, repairResultPrefix+"req-2")
	require.NoError(t, err)

	var result RepairResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	assert.Empty(t, result.Matches)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	scheduler := NewRepairScheduler(kvstore.NewMemoryStore())
	assert.Error(t, scheduler.Start("not a schedule"))
}
