package reward

import (
	"math"
	"strconv"
)

// ComputeReward converts a snapshot into a reward under config.
//
// Validation runs to completion before any arithmetic, first failure wins:
// unknown platform, base rate, campaign duration, remaining config checks, then metrics.
// The function is pure and safe to call concurrently.
func ComputeReward(config CampaignRewardConfig, snapshot EngagementSnapshot) (RewardBreakdown, error) {
	weight, err := validate(config, snapshot)
	if err != nil {
		return RewardBreakdown{}, err
	}

	reach := ReachFactor(snapshot.Followers)
	engagement := EngagementFactor(snapshot)
	performance := PerformanceFactor(snapshot)
	duration := DurationMultiplier(config.CampaignDurationDays)
	bonusTotal, applied := evaluateBonuses(config.BonusRules, snapshot)

	total := config.BaseRate*weight*(reach+engagement+performance)*duration + bonusTotal
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return RewardBreakdown{}, invalidConfig("base_rate", "reward overflows float64 for base rate %v", config.BaseRate)
	}

	return RewardBreakdown{
		ReachFactor:        reach,
		EngagementFactor:   engagement,
		PerformanceFactor:  performance,
		DurationMultiplier: duration,
		PlatformWeight:     weight,
		BonusTotal:         bonusTotal,
		Bonuses:            applied,
		TotalReward:        total,
		Payout:             config.Rounding.Apply(total),
	}, nil
}

// ValidateConfig checks the parts of a config that do not depend on a snapshot.
// Stores call it before accepting a new config version.
func ValidateConfig(config CampaignRewardConfig) error {
	if err := validateRates(config); err != nil {
		return err
	}
	if len(config.PlatformWeight) == 0 {
		return invalidConfig("platform_weight", "at least one platform weight is required")
	}
	for p, w := range config.PlatformWeight {
		if err := validateWeight(p, w); err != nil {
			return err
		}
	}
	return validateRules(config)
}

func validate(config CampaignRewardConfig, s EngagementSnapshot) (float64, error) {
	weight, ok := config.PlatformWeight[s.Platform]
	if !ok {
		return 0, unknownPlatform(s.Platform)
	}
	if err := validateRates(config); err != nil {
		return 0, err
	}
	if err := validateWeight(s.Platform, weight); err != nil {
		return 0, err
	}
	if err := validateRules(config); err != nil {
		return 0, err
	}
	if err := validateMetrics(s); err != nil {
		return 0, err
	}
	return weight, nil
}

func validateRates(config CampaignRewardConfig) error {
	if !(config.BaseRate > 0) || math.IsInf(config.BaseRate, 1) {
		return invalidConfig("base_rate", "must be a finite number > 0, got %v", config.BaseRate)
	}
	if config.CampaignDurationDays <= 0 {
		return invalidConfig("campaign_duration_days", "must be > 0, got %d", config.CampaignDurationDays)
	}
	return nil
}

func validateWeight(p Platform, w float64) error {
	if !(w > 0) || math.IsInf(w, 1) {
		return invalidConfig("platform_weight."+string(p), "must be a finite number > 0, got %v", w)
	}
	return nil
}

func validateRules(config CampaignRewardConfig) error {
	for i, rule := range config.BonusRules {
		if err := rule.validate(); err != nil {
			return invalidConfig(ruleField(i, rule), "%v", err)
		}
	}
	if err := config.Rounding.Validate(); err != nil {
		return invalidConfig("rounding", "%v", err)
	}
	return nil
}

func ruleField(i int, rule BonusRule) string {
	if rule.Name != "" {
		return "bonus_rules." + rule.Name
	}
	return "bonus_rules[" + strconv.Itoa(i) + "]"
}

func validateMetrics(s EngagementSnapshot) error {
	counters := []struct {
		name  string
		value int64
	}{
		{"followers", s.Followers},
		{"likes", s.Likes},
		{"comments", s.Comments},
		{"shares", s.Shares},
		{"views", s.Views},
		{"clicks", s.Clicks},
	}
	for _, c := range counters {
		if c.value < 0 {
			return invalidMetric(c.name, c.value)
		}
	}
	return nil
}
