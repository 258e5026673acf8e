package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReachFactor(t *testing.T) {
	tests := []struct {
		name      string
		followers int64
		expected  float64
	}{
		{name: "zero followers", followers: 0, expected: 0},
		{name: "nine followers", followers: 9, expected: 1},
		{name: "99999 followers", followers: 99999, expected: 5},
		{name: "worked example", followers: 25000, expected: math.Log10(25001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ReachFactor(tt.followers), 1e-12)
		})
	}
}

func TestReachFactor_CompressesAudienceSize(t *testing.T) {
	small := ReachFactor(25000)
	large := ReachFactor(250000)
	assert.Less(t, large/small, 1.3, "10x the followers must not give anywhere near 10x the reach")
}

func TestEngagementFactor(t *testing.T) {
	tests := []struct {
		name     string
		snapshot EngagementSnapshot
		expected float64
	}{
		{
			name:     "no views",
			snapshot: EngagementSnapshot{Likes: 50, Comments: 5, Shares: 2},
			expected: 0,
		},
		{
			name:     "eight percent engagement",
			snapshot: EngagementSnapshot{Likes: 60, Comments: 15, Shares: 5, Views: 1000},
			expected: 0.8,
		},
		{
			name:     "more interactions than views",
			snapshot: EngagementSnapshot{Likes: 300, Views: 100},
			expected: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, EngagementFactor(tt.snapshot), 1e-12)
		})
	}
}

func TestEngagementFactor_MonotonicInViewsAtFixedRate(t *testing.T) {
	prev := -1.0
	for views := int64(100); views <= 1_000_000; views *= 10 {
		interactions := views * 8 / 100
		ef := EngagementFactor(EngagementSnapshot{Likes: interactions, Views: views})
		assert.GreaterOrEqual(t, ef, prev)
		prev = ef
	}
}

func TestEngagementSnapshot_InteractionsDoesNotWrap(t *testing.T) {
	s := EngagementSnapshot{Likes: math.MaxInt64, Comments: 1, Shares: 1, Views: math.MaxInt64}

	assert.Greater(t, s.Interactions(), 0.0)
	assert.InDelta(t, float64(math.MaxInt64), s.Interactions(), 1e6)
	assert.InDelta(t, 10, EngagementFactor(s), 1e-9)
}

func TestClickThroughRate(t *testing.T) {
	assert.Equal(t, 0.0, ClickThroughRate(EngagementSnapshot{Clicks: 10}))
	assert.InDelta(t, 0.02, ClickThroughRate(EngagementSnapshot{Clicks: 600, Views: 30000}), 1e-12)
}

func TestPerformanceFactor(t *testing.T) {
	tests := []struct {
		name     string
		snapshot EngagementSnapshot
		expected float64
	}{
		{
			name:     "no followers",
			snapshot: EngagementSnapshot{Views: 1000, Clicks: 100},
			expected: 0,
		},
		{
			name:     "no views",
			snapshot: EngagementSnapshot{Followers: 1000, Clicks: 100},
			expected: 0,
		},
		{
			name:     "worked example",
			snapshot: EngagementSnapshot{Followers: 25000, Views: 30000, Clicks: 600},
			expected: 0.012,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PerformanceFactor(tt.snapshot), 1e-12)
		})
	}
}

func TestDurationMultiplier(t *testing.T) {
	assert.Equal(t, 1.5, DurationMultiplier(15))
	assert.Equal(t, 2.0, DurationMultiplier(30))

	prev := 0.0
	for days := 1; days <= 3650; days++ {
		m := DurationMultiplier(days)
		assert.GreaterOrEqual(t, m, prev)
		prev = m
	}
}
