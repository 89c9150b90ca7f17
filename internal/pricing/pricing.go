package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// Tier is one bracket of the member-count fee schedule. FeePercent is on the
// 0-100 scale.
type Tier struct {
	MinMembers  int
	FeePercent  decimal.Decimal
	Description string
}

// Schedule is an immutable, validated fee schedule ordered by ascending
// MinMembers.
type Schedule struct {
	tiers []Tier
}

// NewSchedule validates and builds a fee schedule. Tiers must be non-empty,
// strictly ascending by MinMembers, with percentages in [0, 100].
func NewSchedule(tiers []Tier) (*Schedule, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("schedule requires at least one tier")
	}
	hundred := decimal.NewFromInt(100)
	for i, tier := range tiers {
		if tier.MinMembers < 0 {
			return nil, fmt.Errorf("tier %d: negative member threshold %d", i, tier.MinMembers)
		}
		if i > 0 && tier.MinMembers <= tiers[i-1].MinMembers {
			return nil, fmt.Errorf("tier %d: member threshold %d not above previous threshold %d",
				i, tier.MinMembers, tiers[i-1].MinMembers)
		}
		if tier.FeePercent.IsNegative() || tier.FeePercent.GreaterThan(hundred) {
			return nil, fmt.Errorf("tier %d: fee percentage %s outside [0, 100]", i, tier.FeePercent)
		}
	}
	return &Schedule{tiers: slices.Clone(tiers)}, nil
}

// DefaultSchedule returns the standard contribution fee schedule.
func DefaultSchedule() *Schedule {
	return &Schedule{tiers: []Tier{
		{MinMembers: 1, FeePercent: decimal.NewFromFloat(2.0), Description: "Starter (1-4 members)"},
		{MinMembers: 5, FeePercent: decimal.NewFromFloat(1.5), Description: "Growing (5-9 members)"},
		{MinMembers: 10, FeePercent: decimal.NewFromFloat(1.0), Description: "Established (10-24 members)"},
		{MinMembers: 25, FeePercent: decimal.NewFromFloat(0.5), Description: "Community (25+ members)"},
	}}
}

// Tiers returns a copy of the configured tiers.
func (s *Schedule) Tiers() []Tier {
	return slices.Clone(s.tiers)
}

// TransactionFee applies the fee percentage of the highest tier whose
// MinMembers threshold the member count meets. Selection is an explicit
// max-threshold scan: tiers are stored ascending but the largest qualifying
// threshold wins, not the first. A member count below every threshold falls
// back to the first tier. No input validation is performed.
func (s *Schedule) TransactionFee(amount decimal.Decimal, memberCount int) decimal.Decimal {
	selected := -1
	for i, tier := range s.tiers {
		if tier.MinMembers <= memberCount && (selected < 0 || tier.MinMembers > s.tiers[selected].MinMembers) {
			selected = i
		}
	}
	if selected < 0 {
		selected = 0
	}
	return amount.Mul(s.tiers[selected].FeePercent).Div(decimal.NewFromInt(100))
}

// loyaltyBands are evaluated longest tenure first; the first threshold met
// wins. Discounts are multipliers on the 0-1 scale, unlike tier percentages.
var loyaltyBands = []struct {
	minDays  int
	discount decimal.Decimal
}{
	{365, decimal.NewFromFloat(0.5)},
	{180, decimal.NewFromFloat(0.25)},
	{90, decimal.NewFromFloat(0.1)},
}

// LoyaltyDiscount returns the discount multiplier in [0, 1) earned by a
// membership tenure in days.
func LoyaltyDiscount(membershipDays int) decimal.Decimal {
	for _, band := range loyaltyBands {
		if membershipDays >= band.minDays {
			return band.discount
		}
	}
	return decimal.Zero
}

// DiscountedFee composes TransactionFee and LoyaltyDiscount as
// fee * (1 - discount).
func (s *Schedule) DiscountedFee(amount decimal.Decimal, memberCount, membershipDays int) decimal.Decimal {
	fee := s.TransactionFee(amount, memberCount)
	return fee.Mul(decimal.NewFromInt(1).Sub(LoyaltyDiscount(membershipDays)))
}
