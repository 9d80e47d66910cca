// Package config holds the modifier tables of the card economy and the
// process settings that locate them.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"github.com/peterkuimelis/barnacle/internal/card"
	"gopkg.in/yaml.v3"
)

// PowerRange is the inclusive power a rarity can roll. Files may spell it
// as a single number (a fixed value) or as a [min, max] pair.
type PowerRange struct {
	Min int
	Max int
}

// Fixed returns a range that always rolls v.
func Fixed(v int) PowerRange { return PowerRange{Min: v, Max: v} }

func (p PowerRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Min, p.Max})
}

func (p *PowerRange) UnmarshalJSON(data []byte) error {
	var fixed int
	if err := json.Unmarshal(data, &fixed); err == nil {
		*p = Fixed(fixed)
		return nil
	}
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("power range must be a number or [min, max]: %w", err)
	}
	return p.setPair(pair)
}

func (p PowerRange) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range []int{p.Min, p.Max} {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(v)})
	}
	return n, nil
}

func (p *PowerRange) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var fixed int
		if err := value.Decode(&fixed); err != nil {
			return err
		}
		*p = Fixed(fixed)
		return nil
	}
	var pair []int
	if err := value.Decode(&pair); err != nil {
		return fmt.Errorf("power range must be a number or [min, max]: %w", err)
	}
	return p.setPair(pair)
}

func (p *PowerRange) setPair(pair []int) error {
	if len(pair) != 2 {
		return fmt.Errorf("power range needs exactly 2 values, got %d", len(pair))
	}
	*p = PowerRange{Min: pair[0], Max: pair[1]}
	return nil
}

// RarityRanges holds one power range per rarity.
type RarityRanges struct {
	Common    PowerRange `json:"common" yaml:"common"`
	Uncommon  PowerRange `json:"uncommon" yaml:"uncommon"`
	Rare      PowerRange `json:"rare" yaml:"rare"`
	Epic      PowerRange `json:"epic" yaml:"epic"`
	Legendary PowerRange `json:"legendary" yaml:"legendary"`
}

func (r RarityRanges) Get(rarity card.Rarity) PowerRange {
	switch rarity {
	case card.Uncommon:
		return r.Uncommon
	case card.Rare:
		return r.Rare
	case card.Epic:
		return r.Epic
	case card.Legendary:
		return r.Legendary
	default:
		return r.Common
	}
}

// RarityModifiers holds one multiplier per rarity.
type RarityModifiers struct {
	Common    float64 `json:"common" yaml:"common"`
	Uncommon  float64 `json:"uncommon" yaml:"uncommon"`
	Rare      float64 `json:"rare" yaml:"rare"`
	Epic      float64 `json:"epic" yaml:"epic"`
	Legendary float64 `json:"legendary" yaml:"legendary"`
}

func (m RarityModifiers) Get(rarity card.Rarity) float64 {
	switch rarity {
	case card.Uncommon:
		return m.Uncommon
	case card.Rare:
		return m.Rare
	case card.Epic:
		return m.Epic
	case card.Legendary:
		return m.Legendary
	default:
		return m.Common
	}
}

// RangeModifiers scales an effect's budget cost per targeting range.
type RangeModifiers struct {
	Single      float64 `json:"single" yaml:"single"`
	Multiple    float64 `json:"multiple" yaml:"multiple"`
	AoE         float64 `json:"aoe" yaml:"aoe"`
	ExtendedAoE float64 `json:"extended_aoe" yaml:"extended_aoe"`
}

func (m RangeModifiers) Get(r card.Range) float64 {
	switch r {
	case card.RangeMultiple:
		return m.Multiple
	case card.RangeAoE:
		return m.AoE
	case card.RangeExtendedAoE:
		return m.ExtendedAoE
	default:
		return m.Single
	}
}

func flatRangeModifiers() RangeModifiers {
	return RangeModifiers{Single: 1.0, Multiple: 1.0, AoE: 1.0, ExtendedAoE: 1.0}
}

// EffectModifiers holds a range table per effect kind.
type EffectModifiers struct {
	Damage   RangeModifiers `json:"damage" yaml:"damage"`
	Heal     RangeModifiers `json:"heal" yaml:"heal"`
	AcidHeal RangeModifiers `json:"acid_heal" yaml:"acid_heal"`
	Shield   RangeModifiers `json:"shield" yaml:"shield"`
}

func (m EffectModifiers) Get(k card.EffectKind) RangeModifiers {
	switch k {
	case card.Heal:
		return m.Heal
	case card.AcidHeal:
		return m.AcidHeal
	case card.Shield:
		return m.Shield
	default:
		return m.Damage
	}
}

// PowerPick is how a value is drawn from a rarity's power range.
type PowerPick string

const (
	PickEndpoint PowerPick = "endpoint" // min or max, at random
	PickUniform  PowerPick = "uniform"  // any value in [min, max]
	PickMin      PowerPick = "min"
	PickMax      PowerPick = "max"
)

// Config is the economy a card is resolved against. It holds no reference
// types, so copying a Config copies all of its tables.
type Config struct {
	RarityRanges      RarityRanges    `json:"rarity_ranges" yaml:"rarity_ranges"`
	PriorityModifiers RarityModifiers `json:"priority_modifiers" yaml:"priority_modifiers"`
	RangeModifiers    EffectModifiers `json:"range_modifiers" yaml:"range_modifiers"`
	PowerPick         PowerPick       `json:"power_pick" yaml:"power_pick"`
	Rounding          card.Rounding   `json:"priority_rounding" yaml:"priority_rounding"`

	// PrioritySource picks what lowers priority: the allocated points, or
	// the budget left after the effect scaled by PriorityPerPower.
	Source           card.PrioritySource `json:"priority_source" yaml:"priority_source"`
	PriorityPerPower float64             `json:"power_to_priority" yaml:"power_to_priority"`
}

// Default returns the economy used when no configuration file exists.
func Default() Config {
	return Config{
		RarityRanges: RarityRanges{
			Common:    PowerRange{Min: 2, Max: 2},
			Uncommon:  PowerRange{Min: 3, Max: 4},
			Rare:      PowerRange{Min: 5, Max: 6},
			Epic:      PowerRange{Min: 7, Max: 8},
			Legendary: PowerRange{Min: 9, Max: 10},
		},
		PriorityModifiers: RarityModifiers{
			Common:    1.0,
			Uncommon:  1.0,
			Rare:      1.25,
			Epic:      1.25,
			Legendary: 1.5,
		},
		RangeModifiers: EffectModifiers{
			Damage:   flatRangeModifiers(),
			Heal:     flatRangeModifiers(),
			AcidHeal: flatRangeModifiers(),
			Shield:   flatRangeModifiers(),
		},
		PowerPick:        PickEndpoint,
		Rounding:         card.RoundFloor,
		Source:           card.PriorityFromAllocated,
		PriorityPerPower: 1.0,
	}
}

// Power draws a power value for the rarity. A nil rng uses the shared
// math/rand source.
func (c Config) Power(rarity card.Rarity, rng *rand.Rand) int {
	r := c.RarityRanges.Get(rarity)
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	if c.PriorityPerPower < 0 {
		errs = append(errs, fmt.Errorf("power_to_priority: must not be negative, got %g", c.PriorityPerPower))
	}
	switch c.PowerPick {
	case PickMin:
		return r.Min
	case PickMax:
		return r.Max
	case PickUniform:
		return r.Min + intn(r.Max-r.Min+1)
	default:
		if intn(2) == 0 {
			return r.Min
		}
		return r.Max
	}
}

func (c Config) PriorityModifier(rarity card.Rarity) float64 {
	return c.PriorityModifiers.Get(rarity)
}

func (c Config) RangeModifier(k card.EffectKind, r card.Range) float64 {
	return c.RangeModifiers.Get(k).Get(r)
}

func (c Config) PriorityRounding() card.Rounding {
	return c.Rounding
}

func (c Config) PrioritySource() card.PrioritySource {
	return c.Source
}

// PowerToPriority is the leftover-budget multiplier. Files written before
// it existed leave it at zero, which reads as 1.
func (c Config) PowerToPriority() float64 {
	if c.PriorityPerPower == 0 {
		return 1.0
	}
	return c.PriorityPerPower
}

// Validate checks that every table can be resolved against.
func (c Config) Validate() error {
	var errs []error
	for _, r := range card.Rarities {
		pr := c.RarityRanges.Get(r)
		if pr.Min < 0 || pr.Min > pr.Max {
			errs = append(errs, fmt.Errorf("rarity_ranges.%s: invalid range [%d, %d]", r.Key(), pr.Min, pr.Max))
		}
		if m := c.PriorityModifiers.Get(r); m <= 0 {
			errs = append(errs, fmt.Errorf("priority_modifiers.%s: must be positive, got %g", r.Key(), m))
		}
	}
	for _, k := range card.EffectKinds {
		for _, r := range card.Ranges {
			if m := c.RangeModifier(k, r); m <= 0 {
				errs = append(errs, fmt.Errorf("range_modifiers.%s.%s: must be positive, got %g", k.Key(), r.Key(), m))
			}
		}
	}
	switch c.PowerPick {
	case "", PickEndpoint, PickUniform, PickMin, PickMax:
	default:
		errs = append(errs, fmt.Errorf("power_pick: unknown policy %q", c.PowerPick))
	}
	return errors.Join(errs...)
}
