package reward

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how a reward is rounded before it is handed to a payout system.
type RoundingMode string

const (
	// RoundHalfEven is banker's rounding: ties go to the even neighbour.
	RoundHalfEven RoundingMode = "half_even"
	// RoundHalfUp sends ties away from zero. Rewards are non-negative, so this is half-up.
	RoundHalfUp RoundingMode = "half_up"
)

const DefaultPayoutPlaces int32 = 4

// RoundingPolicy controls the payout value derived from TotalReward.
// The zero value means banker's rounding to DefaultPayoutPlaces. Places set to
// zero pays whole units.
type RoundingPolicy struct {
	Places *int32       `json:"places,omitempty" yaml:"places,omitempty"`
	Mode   RoundingMode `json:"mode" yaml:"mode"`
}

// PayoutPlaces returns a pointer for RoundingPolicy.Places.
func PayoutPlaces(n int32) *int32 {
	return &n
}

// Normalize fills unset fields with defaults.
func (p RoundingPolicy) Normalize() RoundingPolicy {
	if p.Mode == "" {
		p.Mode = RoundHalfEven
	}
	if p.Places == nil {
		p.Places = PayoutPlaces(DefaultPayoutPlaces)
	}
	return p
}

func (p RoundingPolicy) places() int32 {
	if p.Places == nil {
		return DefaultPayoutPlaces
	}
	return *p.Places
}

// Validate reports whether the policy can be applied.
func (p RoundingPolicy) Validate() error {
	if places := p.places(); places < 0 || places > 18 {
		return fmt.Errorf("places must be between 0 and 18, got %d", places)
	}
	n := p.Normalize()
	switch n.Mode {
	case RoundHalfEven, RoundHalfUp:
		return nil
	}
	return fmt.Errorf("unknown rounding mode %q", p.Mode)
}

// Apply rounds value under the policy.
func (p RoundingPolicy) Apply(value float64) decimal.Decimal {
	n := p.Normalize()
	d := decimal.NewFromFloat(value)
	if n.Mode == RoundHalfUp {
		return d.Round(n.places())
	}
	return d.RoundBank(n.places())
}
