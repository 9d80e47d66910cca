package card

import (
	"fmt"
	"math/rand"
)

// Order selects which of range and effect is debited first.
type Order int

const (
	OrderRangeFirst Order = iota
	OrderEffectFirst
)

func (o Order) String() string {
	if o == OrderEffectFirst {
		return "effect_first"
	}
	return "range_first"
}

func (o Order) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Order) UnmarshalText(b []byte) error {
	switch key(string(b)) {
	case "", "range_first":
		*o = OrderRangeFirst
	case "effect_first":
		*o = OrderEffectFirst
	default:
		return fmt.Errorf("unknown order %q", b)
	}
	return nil
}

// Plan is a complete set of designer choices for one card.
type Plan struct {
	Name       string
	Rarity     Rarity
	Efficiency Efficiency
	Allocation  int // 0 skips the allocation step
	Range       Range
	Effect      EffectKind
	EffectShare float64 // fraction of the budget the effect may use; 0 means all of it
	Order       Order
}

// Draft runs every step of the plan in its declared order.
func (p Plan) Draft(tables Tables, rng *rand.Rand) Draft {
	d := New(p.Name, p.Rarity, p.Efficiency, tables, rng)
	if p.Allocation != 0 {
		d = d.AllocatePriority(p.Allocation)
	}
	if p.EffectShare != 0 {
		d = d.WithEffectShare(p.EffectShare)
	}
	if p.Order == OrderEffectFirst {
		return d.DeclareRange(p.Range).SelectEffect(p.Effect).SelectRange(p.Range)
	}
	return d.SelectRange(p.Range).SelectEffect(p.Effect)
}

// Resolve drafts and builds the plan.
func Resolve(p Plan, tables Tables, rng *rand.Rand) (Card, error) {
	return p.Draft(tables, rng).Build()
}
