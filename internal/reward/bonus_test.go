package reward

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Matches(t *testing.T) {
	launch := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	snap := EngagementSnapshot{
		Followers: 5000,
		Likes:     400,
		Comments:  80,
		Shares:    20,
		Views:     10000,
		Clicks:    250,
		Platform:  PlatformInstagram,
		PostedAt:  launch.Add(6 * time.Hour),
		Verified:  true,
	}

	tests := []struct {
		name      string
		condition Condition
		expected  bool
	}{
		{"verified creator", Condition{Kind: ConditionVerifiedCreator}, true},
		{"posted inside window", Condition{Kind: ConditionPostedWithin, Since: launch, WithinHours: 24}, true},
		{"posted on window edge", Condition{Kind: ConditionPostedWithin, Since: launch, WithinHours: 6}, true},
		{"posted after window", Condition{Kind: ConditionPostedWithin, Since: launch, WithinHours: 2}, false},
		{"posted before start", Condition{Kind: ConditionPostedWithin, Since: launch.Add(12 * time.Hour), WithinHours: 24}, false},
		{"followers gte", Condition{Kind: ConditionMetric, Metric: MetricFollowers, Operator: OpGreaterEqual, Value: 5000}, true},
		{"followers gt", Condition{Kind: ConditionMetric, Metric: MetricFollowers, Operator: OpGreater, Value: 5000}, false},
		{"interactions eq", Condition{Kind: ConditionMetric, Metric: MetricInteractions, Operator: OpEqual, Value: 500}, true},
		{"engagement rate", Condition{Kind: ConditionMetric, Metric: MetricEngagementRate, Operator: OpGreaterEqual, Value: 0.05}, true},
		{"ctr lt", Condition{Kind: ConditionMetric, Metric: MetricClickThroughRate, Operator: OpLess, Value: 0.01}, false},
		{"clicks lte", Condition{Kind: ConditionMetric, Metric: MetricClicks, Operator: OpLessEqual, Value: 250}, true},
		{"platform matches", Condition{Kind: ConditionPlatform, Platform: PlatformInstagram}, true},
		{"platform differs", Condition{Kind: ConditionPlatform, Platform: PlatformTikTok}, false},
		{"unknown kind never matches", Condition{Kind: "lunar"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.condition.Matches(snap))
		})
	}
}

func TestCondition_PostedWithinIgnoresMissingTimestamp(t *testing.T) {
	c := Condition{Kind: ConditionPostedWithin, Since: time.Unix(0, 0).UTC(), WithinHours: 1e6}
	assert.False(t, c.Matches(EngagementSnapshot{}))
}

func TestCondition_PostedWithinLongWindows(t *testing.T) {
	launch := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		within   float64
		postedAt time.Time
		expected bool
	}{
		{"window beyond duration range", 3e6, launch.Add(time.Hour), true},
		{"far post inside huge window", 5e6, launch.AddDate(400, 0, 0), true},
		{"far post outside huge window", 3e6, launch.AddDate(400, 0, 0), false},
		{"sub-hour window", 0.5, launch.Add(20 * time.Minute), true},
		{"sub-hour window missed", 0.5, launch.Add(31 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Condition{Kind: ConditionPostedWithin, Since: launch, WithinHours: tt.within}
			require.NoError(t, c.Validate())
			assert.Equal(t, tt.expected, c.Matches(EngagementSnapshot{PostedAt: tt.postedAt}))
		})
	}
}

func TestCondition_Validate(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{"verified", Condition{Kind: ConditionVerifiedCreator}, false},
		{"posted within", Condition{Kind: ConditionPostedWithin, Since: time.Now(), WithinHours: 24}, false},
		{"posted within missing since", Condition{Kind: ConditionPostedWithin, WithinHours: 24}, true},
		{"posted within zero window", Condition{Kind: ConditionPostedWithin, Since: time.Now()}, true},
		{"metric", Condition{Kind: ConditionMetric, Metric: MetricViews, Operator: OpGreater, Value: 1}, false},
		{"metric unknown name", Condition{Kind: ConditionMetric, Metric: "saves", Operator: OpGreater}, true},
		{"metric unknown operator", Condition{Kind: ConditionMetric, Metric: MetricViews, Operator: "~"}, true},
		{"platform", Condition{Kind: ConditionPlatform, Platform: PlatformYouTube}, false},
		{"platform empty", Condition{Kind: ConditionPlatform}, true},
		{"empty kind", Condition{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.condition.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBonusRule_PredicateTakesPrecedence(t *testing.T) {
	rule := BonusRule{
		Name:      "always",
		Amount:    1,
		Condition: Condition{Kind: ConditionVerifiedCreator},
		Predicate: PredicateFunc(func(EngagementSnapshot) bool { return true }),
	}
	assert.True(t, rule.Matches(EngagementSnapshot{Verified: false}))
}

func TestBonusRule_JSONKeepsCondition(t *testing.T) {
	launch := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rule := EarlyPostBonus(0.5, launch, 24*time.Hour)

	raw, err := json.Marshal(rule)
	require.NoError(t, err)

	var decoded BonusRule
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "early_post", decoded.Name)
	assert.Equal(t, ConditionPostedWithin, decoded.Condition.Kind)
	assert.Equal(t, 24.0, decoded.Condition.WithinHours)
	assert.True(t, decoded.Condition.Since.Equal(launch))
	assert.Nil(t, decoded.Predicate)
}

func TestEvaluateBonuses(t *testing.T) {
	rules := []BonusRule{
		VerifiedCreatorBonus(0.2),
		MetricBonus("big_audience", 0.3, MetricFollowers, OpGreaterEqual, 100000),
		MetricBonus("clicky", 0.1, MetricClicks, OpGreater, 0),
	}

	total, applied := evaluateBonuses(rules, EngagementSnapshot{Verified: true, Clicks: 5, Views: 100})
	assert.InDelta(t, 0.3, total, 1e-12)
	assert.Equal(t, []AppliedBonus{
		{Name: "verified_creator", Amount: 0.2},
		{Name: "clicky", Amount: 0.1},
	}, applied)

	total, applied = evaluateBonuses(nil, EngagementSnapshot{})
	assert.Equal(t, 0.0, total)
	assert.Empty(t, applied)
}

func TestCondition_InteractionsOnHugeCounters(t *testing.T) {
	snap := EngagementSnapshot{Likes: math.MaxInt64, Comments: math.MaxInt64, Views: math.MaxInt64}

	c := Condition{Kind: ConditionMetric, Metric: MetricInteractions, Operator: OpGreater, Value: 1e18}
	require.NoError(t, c.Validate())
	assert.True(t, c.Matches(snap))

	rate := Condition{Kind: ConditionMetric, Metric: MetricEngagementRate, Operator: OpGreaterEqual, Value: 1.5}
	assert.True(t, rate.Matches(snap))
}
