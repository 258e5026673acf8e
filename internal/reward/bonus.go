package reward

import (
	"fmt"
	"math"
	"time"
)

// Predicate decides whether a bonus applies to a snapshot.
type Predicate interface {
	Matches(s EngagementSnapshot) bool
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(s EngagementSnapshot) bool

func (f PredicateFunc) Matches(s EngagementSnapshot) bool { return f(s) }

// ConditionKind selects the declarative predicate a Condition evaluates.
type ConditionKind string

const (
	ConditionVerifiedCreator ConditionKind = "verified_creator"
	ConditionPostedWithin    ConditionKind = "posted_within"
	ConditionMetric          ConditionKind = "metric"
	ConditionPlatform        ConditionKind = "platform"
)

// Metric names accepted by metric conditions.
const (
	MetricFollowers        = "followers"
	MetricLikes            = "likes"
	MetricComments         = "comments"
	MetricShares           = "shares"
	MetricViews            = "views"
	MetricClicks           = "clicks"
	MetricInteractions     = "interactions"
	MetricEngagementRate   = "engagement_rate"
	MetricClickThroughRate = "click_through_rate"
)

// Comparison operators accepted by metric conditions.
const (
	OpGreater      = "gt"
	OpGreaterEqual = "gte"
	OpLess         = "lt"
	OpLessEqual    = "lte"
	OpEqual        = "eq"
)

// Condition is a serializable predicate, so bonus rules can be stored with a config version.
type Condition struct {
	Kind        ConditionKind `json:"kind" yaml:"kind"`
	Metric      string        `json:"metric,omitempty" yaml:"metric,omitempty"`
	Operator    string        `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value       float64       `json:"value,omitempty" yaml:"value,omitempty"`
	Platform    Platform      `json:"platform,omitempty" yaml:"platform,omitempty"`
	Since       time.Time     `json:"since,omitempty" yaml:"since,omitempty"`
	WithinHours float64       `json:"within_hours,omitempty" yaml:"within_hours,omitempty"`
}

// Validate reports whether the condition can be evaluated.
func (c Condition) Validate() error {
	switch c.Kind {
	case ConditionVerifiedCreator:
		return nil
	case ConditionPostedWithin:
		if c.Since.IsZero() {
			return fmt.Errorf("posted_within requires since")
		}
		if !(c.WithinHours > 0) || math.IsInf(c.WithinHours, 0) {
			return fmt.Errorf("posted_within requires a positive within_hours")
		}
		return nil
	case ConditionMetric:
		if _, ok := metricValue(c.Metric, EngagementSnapshot{}); !ok {
			return fmt.Errorf("unknown metric %q", c.Metric)
		}
		switch c.Operator {
		case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual:
		default:
			return fmt.Errorf("unknown operator %q", c.Operator)
		}
		if math.IsNaN(c.Value) {
			return fmt.Errorf("metric threshold is NaN")
		}
		return nil
	case ConditionPlatform:
		if c.Platform == "" {
			return fmt.Errorf("platform condition requires platform")
		}
		return nil
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}

// Matches evaluates the condition. Invalid conditions never match.
func (c Condition) Matches(s EngagementSnapshot) bool {
	switch c.Kind {
	case ConditionVerifiedCreator:
		return s.Verified
	case ConditionPostedWithin:
		if s.PostedAt.IsZero() || s.PostedAt.Before(c.Since) {
			return false
		}
		return hoursBetween(c.Since, s.PostedAt) <= c.WithinHours
	case ConditionMetric:
		v, ok := metricValue(c.Metric, s)
		if !ok {
			return false
		}
		return compare(v, c.Operator, c.Value)
	case ConditionPlatform:
		return s.Platform == c.Platform
	}
	return false
}

// hoursBetween avoids time.Duration, which saturates at about 2.5 million hours
func hoursBetween(from, to time.Time) float64 {
	seconds := float64(to.Unix() - from.Unix())
	nanos := float64(to.Nanosecond() - from.Nanosecond())
	return seconds/3600 + nanos/float64(time.Hour)
}

func metricValue(name string, s EngagementSnapshot) (float64, bool) {
	switch name {
	case MetricFollowers:
		return float64(s.Followers), true
	case MetricLikes:
		return float64(s.Likes), true
	case MetricComments:
		return float64(s.Comments), true
	case MetricShares:
		return float64(s.Shares), true
	case MetricViews:
		return float64(s.Views), true
	case MetricClicks:
		return float64(s.Clicks), true
	case MetricInteractions:
		return s.Interactions(), true
	case MetricEngagementRate:
		if s.Views <= 0 {
			return 0, true
		}
		return s.Interactions() / float64(s.Views), true
	case MetricClickThroughRate:
		return ClickThroughRate(s), true
	}
	return 0, false
}

func compare(v float64, op string, threshold float64) bool {
	switch op {
	case OpGreater:
		return v > threshold
	case OpGreaterEqual:
		return v >= threshold
	case OpLess:
		return v < threshold
	case OpLessEqual:
		return v <= threshold
	case OpEqual:
		return v == threshold
	}
	return false
}

// BonusRule adds Amount to a reward when its predicate matches. A non-nil Predicate takes
// precedence over Condition; only Condition survives serialization.
type BonusRule struct {
	Name      string    `json:"name" yaml:"name"`
	Amount    float64   `json:"amount" yaml:"amount"`
	Condition Condition `json:"condition" yaml:"condition"`
	Predicate Predicate `json:"-" yaml:"-"`
}

// Matches evaluates the rule against a snapshot.
func (r BonusRule) Matches(s EngagementSnapshot) bool {
	if r.Predicate != nil {
		return r.Predicate.Matches(s)
	}
	return r.Condition.Matches(s)
}

func (r BonusRule) validate() error {
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount < 0 {
		return fmt.Errorf("amount must be a finite, non-negative number, got %v", r.Amount)
	}
	if r.Predicate != nil {
		return nil
	}
	return r.Condition.Validate()
}

// VerifiedCreatorBonus rewards creators whose account is verified.
func VerifiedCreatorBonus(amount float64) BonusRule {
	return BonusRule{
		Name:      "verified_creator",
		Amount:    amount,
		Condition: Condition{Kind: ConditionVerifiedCreator},
	}
}

// EarlyPostBonus rewards posts published within the given window after since.
func EarlyPostBonus(amount float64, since time.Time, within time.Duration) BonusRule {
	return BonusRule{
		Name:   "early_post",
		Amount: amount,
		Condition: Condition{
			Kind:        ConditionPostedWithin,
			Since:       since,
			WithinHours: within.Hours(),
		},
	}
}

// MetricBonus rewards snapshots whose metric satisfies op against value.
func MetricBonus(name string, amount float64, metric, op string, value float64) BonusRule {
	return BonusRule{
		Name:      name,
		Amount:    amount,
		Condition: Condition{Kind: ConditionMetric, Metric: metric, Operator: op, Value: value},
	}
}

func evaluateBonuses(rules []BonusRule, s EngagementSnapshot) (float64, []AppliedBonus) {
	total := 0.0
	applied := make([]AppliedBonus, 0, len(rules))
	for _, rule := range rules {
		if !rule.Matches(s) {
			continue
		}
		total += rule.Amount
		applied = append(applied, AppliedBonus{Name: rule.Name, Amount: rule.Amount})
	}
	return total, applied
}
