package card

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
)

// MaxPriority is the priority of a card that spent nothing on speed.
const MaxPriority = 11

// Tables is the read-only modifier lookup a draft resolves against.
// config.Config satisfies it by value, so a draft never observes later
// edits to the configuration it was started with.
type Tables interface {
	Power(r Rarity, rng *rand.Rand) int
	PriorityModifier(r Rarity) float64
	RangeModifier(k EffectKind, r Range) float64
	PriorityRounding() Rounding
	PrioritySource() PrioritySource
	PowerToPriority() float64
}

// ErrUnresolved is returned when building a draft whose range or effect
// has not been selected.
var ErrUnresolved = errors.New("card is unresolved: select a range and an effect before building")

// InfeasibleError reports a draft whose choices do not produce a playable
// card. Retrying with different choices may succeed.
type InfeasibleError struct {
	Name      string
	Priority  int
	Budget    int
	Barnacles int
}

func (e *InfeasibleError) Error() string {
	if e.Barnacles == 0 {
		return fmt.Sprintf("card %q costs 0 barnacles (prio %d, budget %d)", e.Name, e.Priority, e.Budget)
	}
	return fmt.Sprintf("card %q prio %d due to budget: %d", e.Name, e.Priority, e.Budget)
}

// Step identifies a pipeline stage in the debit trace.
type Step int

const (
	StepInitialize Step = iota
	StepAllocatePriority
	StepSelectRange
	StepSelectEffect
)

func (s Step) String() string {
	switch s {
	case StepInitialize:
		return "Initialize"
	case StepAllocatePriority:
		return "AllocatePriority"
	case StepSelectRange:
		return "SelectRange"
	case StepSelectEffect:
		return "SelectEffect"
	default:
		return "Unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Step) UnmarshalText(b []byte) error {
	for _, v := range []Step{StepInitialize, StepAllocatePriority, StepSelectRange, StepSelectEffect} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", b)
}

// Debit is one entry of a draft's running budget trace.
type Debit struct {
	Step        Step   `json:"step" yaml:"step"`
	Amount      int    `json:"amount" yaml:"amount"`
	BudgetAfter int    `json:"budget_after" yaml:"budget_after"`
	Detail      string `json:"detail" yaml:"detail"`
}

// Draft is a card under construction. Every step returns a new Draft and
// leaves the receiver untouched, so a draft can be forked to preview
// alternatives.
//
// Steps must be applied in order: AllocatePriority (optional), then
// SelectRange, then SelectEffect. DeclareRange lets a caller cost the
// effect before paying for the range. Using the steps out of order is a
// programming error and panics.
type Draft struct {
	name       string
	rarity     Rarity
	efficiency Efficiency
	tables     Tables

	power      int
	budget     int
	allocation int
	allocated  bool

	rng       Range
	hasRange  bool
	rangePaid bool

	share     float64 // fraction of the budget the effect may use
	effect    Effect
	hasEffect bool

	debits []Debit
}

// New starts a draft with a budget rolled from the rarity's power range and
// scaled by efficiency.
func New(name string, rarity Rarity, efficiency Efficiency, tables Tables, rng *rand.Rand) Draft {
	if tables == nil {
		panic("card: New called without modifier tables")
	}
	power := tables.Power(rarity, rng)
	budget := ApplyMultiplier(power, efficiency.Multiplier())
	d := Draft{
		name:       name,
		rarity:     rarity,
		efficiency: efficiency,
		tables:     tables,
		power:      power,
		budget:     budget,
		share:      1,
	}
	return d.record(StepInitialize, 0, fmt.Sprintf("%s power %d x %s efficiency %g", rarity, power, efficiency, efficiency.Multiplier()))
}

func (d Draft) Name() string           { return d.name }
func (d Draft) Rarity() Rarity         { return d.rarity }
func (d Draft) Efficiency() Efficiency { return d.efficiency }
func (d Draft) Power() int             { return d.power }
func (d Draft) Budget() int            { return d.budget }
func (d Draft) Allocation() int        { return d.allocation }
func (d Draft) EffectShare() float64   { return d.share }

// PrioritySource reports what Build will derive priority from.
func (d Draft) PrioritySource() PrioritySource { return d.tables.PrioritySource() }

// Range returns the declared range, if any.
func (d Draft) Range() (Range, bool) { return d.rng, d.hasRange }

// Effect returns the resolved effect, if any.
func (d Draft) Effect() (Effect, bool) { return d.effect, d.hasEffect }

// Debits returns a copy of the running budget trace.
func (d Draft) Debits() []Debit { return slices.Clone(d.debits) }

// record appends to a clipped trace so forked drafts never share storage.
func (d Draft) record(step Step, amount int, detail string) Draft {
	d.debits = append(slices.Clip(d.debits), Debit{
		Step:        step,
		Amount:      amount,
		BudgetAfter: d.budget,
		Detail:      detail,
	})
	return d
}

// AllocatePriority spends n budget points on speed. Any integer is
// accepted; bounds are enforced by whoever collects the input.
func (d Draft) AllocatePriority(n int) Draft {
	if d.allocated {
		panic("card: priority already allocated")
	}
	if d.hasRange || d.hasEffect {
		panic("card: priority must be allocated before range and effect")
	}
	d.allocation = n
	d.allocated = true
	d.budget -= n
	return d.record(StepAllocatePriority, n, fmt.Sprintf("allocated %d to priority", n))
}

// DeclareRange fixes the range used for effect costing without paying for
// it yet. SelectRange must follow with the same range.
func (d Draft) DeclareRange(r Range) Draft {
	if d.hasRange {
		panic(fmt.Sprintf("card: range already declared as %s", d.rng))
	}
	d.rng = r
	d.hasRange = true
	return d
}

// SelectRange declares the range (if needed) and debits its flat cost.
// The budget may go negative; feasibility is only checked by Build.
func (d Draft) SelectRange(r Range) Draft {
	if d.rangePaid {
		panic(fmt.Sprintf("card: range already selected as %s", d.rng))
	}
	if d.hasRange && d.rng != r {
		panic(fmt.Sprintf("card: range declared as %s, selected %s", d.rng, r))
	}
	d.rng = r
	d.hasRange = true
	d.rangePaid = true
	d.budget -= r.Cost()
	return d.record(StepSelectRange, r.Cost(), fmt.Sprintf("%s range costs %d", r, r.Cost()))
}

// WithEffectShare limits the effect to a fraction of the remaining
// budget. The rest stays unspent and, when priority is derived from the
// leftover budget, buys speed instead.
func (d Draft) WithEffectShare(share float64) Draft {
	if d.hasEffect {
		panic("card: effect share set after the effect was selected")
	}
	if share < 0 || share > 1 {
		panic(fmt.Sprintf("card: effect share %g outside [0, 1]", share))
	}
	d.share = share
	return d
}

// EffectCost previews SelectEffect: the effect it would produce and the
// amount it would debit. Panics if no range has been declared.
func (d Draft) EffectCost(k EffectKind) (Effect, int) {
	if !d.hasRange {
		panic("card: effect costed before a range was declared")
	}
	modifier := d.tables.RangeModifier(k, d.rng)
	available := ApplyMultiplier(max(d.budget, 0), d.share)
	scaled := ApplyMultiplier(available, 1/modifier)
	return Effect{Kind: k, Magnitude: scaled}, ApplyMultiplier(scaled, modifier)
}

// SelectEffect resolves the effect's magnitude from the remaining budget.
// The divide-then-multiply truncation can leave budget unspent; that
// spillage is part of the economy.
func (d Draft) SelectEffect(k EffectKind) Draft {
	if d.hasEffect {
		panic(fmt.Sprintf("card: effect already selected as %s", d.effect.Kind))
	}
	effect, used := d.EffectCost(k)
	d.effect = effect
	d.hasEffect = true
	d.budget -= used
	detail := fmt.Sprintf("%s magnitude %d costs %d", k, effect.Magnitude, used)
	if d.share < 1 {
		detail += fmt.Sprintf(" (share %g)", d.share)
	}
	return d.record(StepSelectEffect, used, detail)
}

// Build computes priority and cast cost. It does not change the draft, so
// calling it again returns the same result.
func (d Draft) Build() (Card, error) {
	if !d.rangePaid || !d.hasEffect {
		return Card{}, ErrUnresolved
	}

	var reduction int
	if d.tables.PrioritySource() == PriorityFromLeftover {
		reduction = PriorityFromBudget(d.budget, d.tables)
	} else {
		reduction = PriorityFromAllocation(d.allocation, d.rarity, d.tables)
	}
	priority := MaxPriority - reduction
	barnacles := Barnacles(d.effect, d.rng, d.efficiency)
	if priority == MaxPriority || barnacles == 0 {
		return Card{}, &InfeasibleError{
			Name:      d.name,
			Priority:  priority,
			Budget:    d.budget,
			Barnacles: barnacles,
		}
	}

	return Card{
		Name:       d.name,
		Rarity:     d.rarity,
		Efficiency: d.efficiency,
		Power:      d.power,
		Allocation: d.allocation,
		Budget:     d.budget,
		Priority:   priority,
		Barnacles:  barnacles,
		Range:      d.rng,
		Effect:     d.effect,
		Debits:     slices.Clone(d.debits),
	}, nil
}
