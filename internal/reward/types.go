package reward

import (
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies the social network a post was published on.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformDiscord   Platform = "discord"
)

// CampaignRewardConfig holds the tunable parameters of one campaign version.
// A config is never mutated once a settlement references it; changes are new versions.
type CampaignRewardConfig struct {
	CampaignID           string               `json:"campaign_id,omitempty" yaml:"campaign_id,omitempty"`
	Version              int                  `json:"version,omitempty" yaml:"version,omitempty"`
	BaseRate             float64              `json:"base_rate" yaml:"base_rate"`
	PlatformWeight       map[Platform]float64 `json:"platform_weight" yaml:"platform_weight"`
	CampaignDurationDays int                  `json:"campaign_duration_days" yaml:"campaign_duration_days"`
	BonusRules           []BonusRule          `json:"bonus_rules,omitempty" yaml:"bonus_rules,omitempty"`
	Rounding             RoundingPolicy       `json:"rounding" yaml:"rounding"`
}

// EngagementSnapshot is the observed performance of one influencer on one post.
type EngagementSnapshot struct {
	Followers int64     `json:"followers" yaml:"followers"`
	Likes     int64     `json:"likes" yaml:"likes"`
	Comments  int64     `json:"comments" yaml:"comments"`
	Shares    int64     `json:"shares" yaml:"shares"`
	Views     int64     `json:"views" yaml:"views"`
	Clicks    int64     `json:"clicks" yaml:"clicks"`
	Platform  Platform  `json:"platform" yaml:"platform"`
	PostedAt  time.Time `json:"posted_at" yaml:"posted_at"`
	Verified  bool      `json:"verified,omitempty" yaml:"verified,omitempty"`
}

// Interactions is likes + comments + shares, summed in float64 so large counters cannot overflow.
func (s EngagementSnapshot) Interactions() float64 {
	return float64(s.Likes) + float64(s.Comments) + float64(s.Shares)
}

// AppliedBonus records a bonus rule that triggered for a snapshot.
type AppliedBonus struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// RewardBreakdown exposes every factor of a computed reward for audit.
type RewardBreakdown struct {
	ReachFactor        float64         `json:"reach_factor"`
	EngagementFactor   float64         `json:"engagement_factor"`
	PerformanceFactor  float64         `json:"performance_factor"`
	DurationMultiplier float64         `json:"duration_multiplier"`
	PlatformWeight     float64         `json:"platform_weight"`
	BonusTotal         float64         `json:"bonus_total"`
	Bonuses            []AppliedBonus  `json:"bonuses"`
	TotalReward        float64         `json:"total_reward"`
	Payout             decimal.Decimal `json:"payout"`
}
