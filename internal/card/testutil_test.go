package card

import (
	"math/rand"
	"testing"
)

// fixedTables is a Tables implementation for tests: every rarity rolls its
// fixed power and every modifier is looked up from small maps.
type fixedTables struct {
	power     map[Rarity]int
	priority  map[Rarity]float64
	modifiers map[EffectKind]map[Range]float64
	rounding  Rounding
	source    PrioritySource
	perPower  float64
}

func newFixedTables(power int) *fixedTables {
	t := &fixedTables{
		power:     map[Rarity]int{},
		priority:  map[Rarity]float64{},
		modifiers: map[EffectKind]map[Range]float64{},
		perPower:  1.0,
	}
	for _, r := range Rarities {
		t.power[r] = power
		t.priority[r] = 1.0
	}
	for _, k := range EffectKinds {
		t.modifiers[k] = map[Range]float64{}
		for _, r := range Ranges {
			t.modifiers[k][r] = 1.0
		}
	}
	return t
}

func (t *fixedTables) withModifier(k EffectKind, r Range, m float64) *fixedTables {
	t.modifiers[k][r] = m
	return t
}

func (t *fixedTables) Power(r Rarity, _ *rand.Rand) int { return t.power[r] }

func (t *fixedTables) PriorityModifier(r Rarity) float64 { return t.priority[r] }

func (t *fixedTables) RangeModifier(k EffectKind, r Range) float64 { return t.modifiers[k][r] }

func (t *fixedTables) PriorityRounding() Rounding { return t.rounding }

func (t *fixedTables) PrioritySource() PrioritySource { return t.source }

func (t *fixedTables) PowerToPriority() float64 { return t.perPower }

// mustPanic fails the test if fn returns normally.
func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		_ = recover()
	}()
	fn()
	t.Fatalf("%s: expected panic", name)
}
