package card

import (
	"fmt"
	"strings"
)

// --- Enums ---

type Rarity int

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
	Legendary
)

// Rarities lists every tier from weakest to strongest.
var Rarities = []Rarity{Common, Uncommon, Rare, Epic, Legendary}

func (r Rarity) String() string {
	switch r {
	case Common:
		return "Common"
	case Uncommon:
		return "Uncommon"
	case Rare:
		return "Rare"
	case Epic:
		return "Epic"
	case Legendary:
		return "Legendary"
	default:
		return "Unknown"
	}
}

type Efficiency int

const (
	EfficiencyBad Efficiency = iota
	EfficiencyNormal
	EfficiencyGood
)

var Efficiencies = []Efficiency{EfficiencyBad, EfficiencyNormal, EfficiencyGood}

func (e Efficiency) String() string {
	switch e {
	case EfficiencyBad:
		return "Bad"
	case EfficiencyNormal:
		return "Normal"
	case EfficiencyGood:
		return "Good"
	default:
		return "Unknown"
	}
}

// Multiplier is the factor applied to rolled rarity power.
func (e Efficiency) Multiplier() float64 {
	switch e {
	case EfficiencyBad:
		return 0.75
	case EfficiencyGood:
		return 1.5
	default:
		return 1.0
	}
}

type Range int

const (
	RangeSingle Range = iota
	RangeMultiple
	RangeAoE
	RangeExtendedAoE
)

var Ranges = []Range{RangeSingle, RangeMultiple, RangeAoE, RangeExtendedAoE}

func (r Range) String() string {
	switch r {
	case RangeSingle:
		return "Single"
	case RangeMultiple:
		return "Multiple"
	case RangeAoE:
		return "AoE"
	case RangeExtendedAoE:
		return "ExtendedAoE"
	default:
		return "Unknown"
	}
}

// Cost is the flat budget cost of targeting with this range.
func (r Range) Cost() int {
	switch r {
	case RangeMultiple:
		return 1
	case RangeAoE:
		return 2
	case RangeExtendedAoE:
		return 4
	default:
		return 0
	}
}

// EffectKind is an effect as chosen by a designer, before it has a magnitude.
type EffectKind int

const (
	Damage EffectKind = iota
	Heal
	AcidHeal
	Shield
)

var EffectKinds = []EffectKind{Damage, Heal, AcidHeal, Shield}

func (k EffectKind) String() string {
	switch k {
	case Damage:
		return "Damage"
	case Heal:
		return "Heal"
	case AcidHeal:
		return "AcidHeal"
	case Shield:
		return "Shield"
	default:
		return "Unknown"
	}
}

// BarnacleRate converts effect magnitude into cast cost. It is independent
// of the range modifiers used while debiting the budget.
func (k EffectKind) BarnacleRate() float64 {
	switch k {
	case Heal:
		return 1.25
	case AcidHeal:
		return 1.125
	case Shield:
		return 1.375
	default:
		return 1.0
	}
}

// Effect is a resolved effect.
type Effect struct {
	Kind      EffectKind `json:"kind" yaml:"kind"`
	Magnitude int        `json:"magnitude" yaml:"magnitude"`
}

func (e Effect) String() string {
	return fmt.Sprintf("%s(%d)", e.Kind, e.Magnitude)
}

// Rounding selects how an allocation is turned into a priority reduction.
type Rounding int

const (
	RoundFloor Rounding = iota
	RoundOdd            // nonzero even reductions are nudged up by one
)

func (r Rounding) String() string {
	if r == RoundOdd {
		return "odd"
	}
	return "floor"
}

// PrioritySource selects what a built card's priority is derived from.
type PrioritySource int

const (
	PriorityFromAllocated PrioritySource = iota // points spent by AllocatePriority
	PriorityFromLeftover                        // budget left after the effect
)

func (p PrioritySource) String() string {
	if p == PriorityFromLeftover {
		return "budget"
	}
	return "allocation"
}

// --- Text names ---
//
// Templates and config files spell enums in lower snake case.

func key(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// Key returns the lower snake case name used in files.
func (r Rarity) Key() string { return key(r.String()) }

func (e Efficiency) Key() string { return key(e.String()) }

func (r Range) Key() string {
	if r == RangeExtendedAoE {
		return "extended_aoe"
	}
	return key(r.String())
}

func (k EffectKind) Key() string {
	if k == AcidHeal {
		return "acid_heal"
	}
	return key(k.String())
}

func ParseRarity(s string) (Rarity, error) {
	for _, r := range Rarities {
		if key(s) == r.Key() {
			return r, nil
		}
	}
	return Common, fmt.Errorf("unknown rarity %q", s)
}

func ParseEfficiency(s string) (Efficiency, error) {
	for _, e := range Efficiencies {
		if key(s) == e.Key() {
			return e, nil
		}
	}
	return EfficiencyNormal, fmt.Errorf("unknown efficiency %q", s)
}

func ParseRange(s string) (Range, error) {
	k := key(s)
	if k == "extendedaoe" || k == "aoe_extended" {
		return RangeExtendedAoE, nil
	}
	for _, r := range Ranges {
		if k == r.Key() {
			return r, nil
		}
	}
	return RangeSingle, fmt.Errorf("unknown range %q", s)
}

func ParseEffectKind(s string) (EffectKind, error) {
	k := key(s)
	if k == "acidheal" {
		return AcidHeal, nil
	}
	for _, e := range EffectKinds {
		if k == e.Key() {
			return e, nil
		}
	}
	return Damage, fmt.Errorf("unknown effect %q", s)
}

func ParseRounding(s string) (Rounding, error) {
	switch key(s) {
	case "", "floor":
		return RoundFloor, nil
	case "odd":
		return RoundOdd, nil
	}
	return RoundFloor, fmt.Errorf("unknown priority rounding %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) { return []byte(r.Key()), nil }

func (r *Rarity) UnmarshalText(b []byte) error {
	v, err := ParseRarity(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (e Efficiency) MarshalText() ([]byte, error) { return []byte(e.Key()), nil }

func (e *Efficiency) UnmarshalText(b []byte) error {
	v, err := ParseEfficiency(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

func (r Range) MarshalText() ([]byte, error) { return []byte(r.Key()), nil }

func (r *Range) UnmarshalText(b []byte) error {
	v, err := ParseRange(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (k EffectKind) MarshalText() ([]byte, error) { return []byte(k.Key()), nil }

func (k *EffectKind) UnmarshalText(b []byte) error {
	v, err := ParseEffectKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func ParsePrioritySource(s string) (PrioritySource, error) {
	switch key(s) {
	case "", "allocation":
		return PriorityFromAllocated, nil
	case "budget":
		return PriorityFromLeftover, nil
	}
	return PriorityFromAllocated, fmt.Errorf("unknown priority source %q", s)
}

func (p PrioritySource) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PrioritySource) UnmarshalText(b []byte) error {
	v, err := ParsePrioritySource(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (r Rounding) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Rounding) UnmarshalText(b []byte) error {
	v, err := ParseRounding(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
