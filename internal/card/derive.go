package card

import (
	"fmt"
	"math"
	"strings"
)

// ApplyMultiplier scales value and truncates toward zero. Chains of
// multipliers truncate at every step.
func ApplyMultiplier(value int, multiplier float64) int {
	return int(math.Trunc(float64(value) * multiplier))
}

// PriorityFromAllocation is how far an allocation lowers priority from
// MaxPriority. The result is clamped to [0, MaxPriority].
func PriorityFromAllocation(allocation int, rarity Rarity, tables Tables) int {
	if allocation <= 0 {
		return 0
	}
	p := ApplyMultiplier(allocation, tables.PriorityModifier(rarity))
	if tables.PriorityRounding() == RoundOdd && p > 0 && p%2 == 0 {
		p++
	}
	return min(max(p, 0), MaxPriority)
}

// PriorityFromBudget is how far the budget left after the effect lowers
// priority: nothing when the budget went negative, otherwise the scaled
// leftover plus one, capped at MaxPriority.
func PriorityFromBudget(budget int, tables Tables) int {
	if budget < 0 {
		return 0
	}
	return min(ApplyMultiplier(budget, tables.PowerToPriority())+1, MaxPriority)
}

// BarnaclesFromEffect converts a resolved effect into its share of cast cost.
func BarnaclesFromEffect(e Effect) int {
	return ApplyMultiplier(e.Magnitude, e.Kind.BarnacleRate())
}

// Barnacles is the cast cost: effect cost plus range cost, scaled by the
// inverse of efficiency.
func Barnacles(e Effect, r Range, efficiency Efficiency) int {
	return ApplyMultiplier(BarnaclesFromEffect(e)+r.Cost(), 1/efficiency.Multiplier())
}

// Card is a finished, feasible card.
type Card struct {
	Name       string     `json:"name" yaml:"name"`
	Rarity     Rarity     `json:"rarity" yaml:"rarity"`
	Efficiency Efficiency `json:"efficiency" yaml:"efficiency"`
	Power      int        `json:"power" yaml:"power"`
	Allocation int        `json:"allocation" yaml:"allocation"`
	Budget     int        `json:"budget" yaml:"budget"` // left over after all debits
	Priority   int        `json:"priority" yaml:"priority"`
	Barnacles  int        `json:"barnacles" yaml:"barnacles"`
	Range      Range      `json:"range" yaml:"range"`
	Effect     Effect     `json:"effect" yaml:"effect"`
	Debits     []Debit    `json:"debits,omitempty" yaml:"debits,omitempty"`
}

// Recast is the price of casting the card again.
func (c Card) Recast() int {
	return ApplyMultiplier(c.Barnacles, 1.5)
}

// Withdraw is the refund for pulling the card back, never less than 1.
func (c Card) Withdraw() int {
	return max(c.Barnacles/3, 1)
}

// Report formats the card as the text written to .card files.
func (c Card) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: \n", c.Name)
	fmt.Fprintf(&sb, "\tPriority: %d\n", c.Priority)
	fmt.Fprintf(&sb, "\tRarity: %s\n", c.Rarity)
	fmt.Fprintf(&sb, "\tCast: %d barnacles\n", c.Barnacles)
	fmt.Fprintf(&sb, "\tRecast: %d barnacles\n", c.Recast())
	fmt.Fprintf(&sb, "\tWithdraw: %d barnacles\n", c.Withdraw())
	fmt.Fprintf(&sb, "\tEffect: %s, Range: %s", c.Effect, c.Range)
	return sb.String()
}
