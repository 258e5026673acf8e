package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db)
}

func testConfig(baseRate float64) reward.CampaignRewardConfig {
	return reward.CampaignRewardConfig{
		BaseRate: baseRate,
		PlatformWeight: map[reward.Platform]float64{
			reward.PlatformTikTok:    1.2,
			reward.PlatformInstagram: 1.0,
		},
		CampaignDurationDays: 15,
		BonusRules: []reward.BonusRule{
			reward.MetricBonus("viral", 0.5, reward.MetricViews, reward.OpGreaterEqual, 1_000_000),
		},
		Rounding: reward.RoundingPolicy{Places: reward.PayoutPlaces(2), Mode: reward.RoundHalfUp},
	}
}

func TestRepository_ConfigVersionsAreAppendOnly(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	v1, err := repo.CreateConfigVersion(ctx, "summer-launch", testConfig(0.01))
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, "summer-launch", v1.Config.CampaignID)

	v2, err := repo.CreateConfigVersion(ctx, "summer-launch", testConfig(0.02))
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	other, err := repo.CreateConfigVersion(ctx, "winter-sale", testConfig(0.05))
	require.NoError(t, err)
	assert.Equal(t, 1, other.Version, "versions are numbered per campaign")

	first, err := repo.GetConfigVersion(ctx, "summer-launch", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.01, first.Config.BaseRate, "publishing v2 leaves v1 untouched")
	assert.Equal(t, 1, first.Config.Version)
	require.Len(t, first.Config.BonusRules, 1)
	assert.Equal(t, "viral", first.Config.BonusRules[0].Name)
	assert.Equal(t, reward.RoundHalfUp, first.Config.Rounding.Mode)
	require.NotNil(t, first.Config.Rounding.Places)
	assert.Equal(t, int32(2), *first.Config.Rounding.Places)

	latest, err := repo.GetLatestConfig(ctx, "summer-launch")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, 0.02, latest.Config.BaseRate)

	history, err := repo.ListConfigVersions(ctx, "summer-launch")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, 2, history[1].Version)
}

func TestRepository_ConfigNotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetLatestConfig(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetConfigVersion(ctx, "missing", 3)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.ResolveConfig(ctx, "missing", 0)
	assert.ErrorIs(t, err, settlement.ErrConfigNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := repo.ListConfigVersions(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRepository_ConcurrentPublishesGetDistinctVersions(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CreateConfigVersion(ctx, "race", testConfig(0.01)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	history, err := repo.ListConfigVersions(ctx, "race")
	require.NoError(t, err)
	require.Len(t, history, writers)
	for i, cv := range history {
		assert.Equal(t, i+1, cv.Version)
	}
}

func TestRepository_SettlementRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	breakdown := &reward.RewardBreakdown{
		ReachFactor:        4.398,
		EngagementFactor:   0.8,
		DurationMultiplier: 1.5,
		PlatformWeight:     1.2,
		TotalReward:        0.09377,
		Payout:             decimal.RequireFromString("0.0938"),
	}

	require.NoError(t, repo.RecordItem(ctx, "batch-1", settlement.ItemResult{
		RecordID:      "post-1",
		CampaignID:    "summer-launch",
		ConfigVersion: 1,
		Status:        settlement.StatusSettled,
		Breakdown:     breakdown,
	}))
	require.NoError(t, repo.RecordItem(ctx, "batch-1", settlement.ItemResult{
		RecordID:      "post-2",
		CampaignID:    "summer-launch",
		ConfigVersion: 1,
		Status:        settlement.StatusRejected,
		ErrorKind:     string(reward.KindInvalidMetric),
		Field:         "likes",
		Message:       "must be >= 0, got -1",
	}))

	items, err := repo.ListSettlementsByBatch(ctx, "batch-1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	settled := items[0]
	assert.Equal(t, "post-1", settled.RecordID)
	assert.Equal(t, "settled", settled.Status)
	assert.Equal(t, "0.0938", settled.Payout.String())
	require.NotNil(t, settled.Breakdown)
	assert.Equal(t, 1.5, settled.Breakdown.DurationMultiplier)
	assert.Empty(t, settled.ErrorKind)

	rejected := items[1]
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "InvalidMetric", rejected.ErrorKind)
	assert.Equal(t, "likes", rejected.ErrorField)
	assert.Nil(t, rejected.Breakdown)
	assert.True(t, rejected.Payout.IsZero())

	byID, err := repo.GetSettlement(ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, settled.RecordID, byID.RecordID)

	summary, err := repo.SummarizeBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Settled)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, "0.0938", summary.TotalPayout.String())
}

func TestRepository_DuplicateRecordInBatchFails(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	item := settlement.ItemResult{RecordID: "post-1", CampaignID: "c", Status: settlement.StatusRejected}

	exists, err := repo.BatchExists(ctx, "batch-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.RecordItem(ctx, "batch-1", item))

	exists, err = repo.BatchExists(ctx, "batch-1")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Error(t, repo.RecordItem(ctx, "batch-1", item))
	assert.NoError(t, repo.RecordItem(ctx, "batch-2", item))
}

func TestRepository_SettlementNotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetSettlement(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.SummarizeBatch(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfigService_Publish(t *testing.T) {
	svc := NewConfigService(newTestRepository(t))
	ctx := context.Background()

	tests := []struct {
		name       string
		campaignID string
		config     reward.CampaignRewardConfig
		field      string
	}{
		{name: "valid", campaignID: "summer-launch", config: testConfig(0.01)},
		{name: "blank campaign", campaignID: "  ", config: testConfig(0.01), field: "campaign_id"},
		{name: "zero base rate", campaignID: "summer-launch", config: testConfig(0), field: "base_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv, err := svc.Publish(ctx, tt.campaignID, tt.config)
			if tt.field == "" {
				require.NoError(t, err)
				assert.Equal(t, 1, cv.Version)
				return
			}

			var rerr *reward.Error
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, reward.KindInvalidConfig, rerr.Kind)
			assert.Equal(t, tt.field, rerr.Field)
		})
	}

	history, err := svc.History(ctx, "summer-launch")
	require.NoError(t, err)
	assert.Len(t, history, 1, "rejected configs are not stored")
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked wrapped", fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"other", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBusy(tt.err))
		})
	}
}
