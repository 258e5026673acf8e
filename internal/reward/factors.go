package reward

import "math"

const (
	engagementScale  = 10.0
	performanceScale = 0.5
	durationPeriod   = 30.0
)

// ReachFactor computes log10(followers + 1). The +1 keeps zero-follower accounts at 0.
func ReachFactor(followers int64) float64 {
	return math.Log10(float64(followers) + 1)
}

// EngagementFactor computes ((likes+comments+shares)/views) * 10, or 0 without views.
func EngagementFactor(s EngagementSnapshot) float64 {
	if s.Views <= 0 {
		return 0
	}
	interactions := s.Interactions()
	return (interactions / float64(s.Views)) * engagementScale
}

// ClickThroughRate computes clicks/views, or 0 without views.
func ClickThroughRate(s EngagementSnapshot) float64 {
	if s.Views <= 0 {
		return 0
	}
	return float64(s.Clicks) / float64(s.Views)
}

// PerformanceFactor computes (views/followers) * CTR * 0.5, or 0 without followers.
func PerformanceFactor(s EngagementSnapshot) float64 {
	if s.Followers <= 0 {
		return 0
	}
	return (float64(s.Views) / float64(s.Followers)) * ClickThroughRate(s) * performanceScale
}

// DurationMultiplier computes 1 + days/30. It is intentionally uncapped.
func DurationMultiplier(days int) float64 {
	return 1 + float64(days)/durationPeriod
}
