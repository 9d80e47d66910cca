package deck

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterkuimelis/barnacle/internal/card"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingTemplate     = errors.New("deck template not found")
	ErrUnparseableTemplate = errors.New("deck template cannot be parsed")
)

// CardInput is the saved set of choices for one slot.
type CardInput struct {
	Slot       int             `json:"slot,omitempty" yaml:"slot,omitempty"`
	Name       string          `json:"name" yaml:"name"`
	Rarity     card.Rarity     `json:"rarity" yaml:"rarity"`
	Efficiency card.Efficiency `json:"efficiency" yaml:"efficiency"`
	Allocation int             `json:"allocation" yaml:"allocation"`
	Range      card.Range      `json:"range" yaml:"range"`
	Effect     card.EffectKind `json:"effect" yaml:"effect"`
	Order      card.Order      `json:"order,omitempty" yaml:"order,omitempty"`

	// EffectShare is the fraction of the budget the effect may use; 0
	// means all of it.
	EffectShare float64 `json:"effect_share,omitempty" yaml:"effect_share,omitempty"`
}

// Plan converts the input into engine choices.
func (in CardInput) Plan() card.Plan {
	return card.Plan{
		Name:       in.Name,
		Rarity:     in.Rarity,
		Efficiency: in.Efficiency,
		Allocation: in.Allocation,
		Range:      in.Range,
		Effect:     in.Effect,
		Order:      in.Order,

		EffectShare: in.EffectShare,
	}
}

// InputFromPlan records the choices that resolved a slot.
func InputFromPlan(slot int, p card.Plan) CardInput {
	return CardInput{
		Slot:       slot,
		Name:       p.Name,
		Rarity:     p.Rarity,
		Efficiency: p.Efficiency,
		Allocation: p.Allocation,
		Range:      p.Range,
		Effect:     p.Effect,
		Order:      p.Order,

		EffectShare: p.EffectShare,
	}
}

// Tiers is the simple template scheme: inputs keyed by rarity. The rarity
// of each entry comes from its key.
type Tiers struct {
	Common    []CardInput `json:"common,omitempty" yaml:"common,omitempty"`
	Uncommon  []CardInput `json:"uncommon,omitempty" yaml:"uncommon,omitempty"`
	Rare      []CardInput `json:"rare,omitempty" yaml:"rare,omitempty"`
	Epic      []CardInput `json:"epic,omitempty" yaml:"epic,omitempty"`
	Legendary []CardInput `json:"legendary,omitempty" yaml:"legendary,omitempty"`
}

func (t *Tiers) get(r card.Rarity) []CardInput {
	switch r {
	case card.Uncommon:
		return t.Uncommon
	case card.Rare:
		return t.Rare
	case card.Epic:
		return t.Epic
	case card.Legendary:
		return t.Legendary
	default:
		return t.Common
	}
}

// DeckInputs is a deck template. It holds either a list of named slots
// (Cards) or inputs keyed by rarity (Tiers).
type DeckInputs struct {
	Name  string      `json:"name" yaml:"name"`
	Type  Type        `json:"type" yaml:"type"`
	Seed  int64       `json:"seed,omitempty" yaml:"seed,omitempty"`
	Cards []CardInput `json:"cards,omitempty" yaml:"cards,omitempty"`
	Tiers *Tiers      `json:"tiers,omitempty" yaml:"tiers,omitempty"`
}

// Inputs normalises both schemes into one input per slot, sorted by slot.
// Inputs without a slot number take their position.
func (d DeckInputs) Inputs() []CardInput {
	var out []CardInput
	switch {
	case len(d.Cards) > 0:
		out = slices.Clone(d.Cards)
	case d.Tiers != nil:
		for _, r := range card.Rarities {
			for _, in := range d.Tiers.get(r) {
				in.Rarity = r
				out = append(out, in)
			}
		}
	}
	for i := range out {
		if out[i].Slot == 0 {
			out[i].Slot = i + 1
		}
	}
	slices.SortStableFunc(out, func(a, b CardInput) int { return cmp.Compare(a.Slot, b.Slot) })
	return out
}

// Validate checks that the inputs fill the deck type's curve exactly.
func (d DeckInputs) Validate() error {
	curve := d.Type.Curve()
	inputs := d.Inputs()
	if len(inputs) != len(curve) {
		return fmt.Errorf("%s deck needs %d cards, template has %d", d.Type, len(curve), len(inputs))
	}
	var errs []error
	for i, in := range inputs {
		if in.Slot != i+1 {
			errs = append(errs, fmt.Errorf("slot %d: expected slot number %d", in.Slot, i+1))
			continue
		}
		if in.Rarity != curve[i] {
			errs = append(errs, fmt.Errorf("slot %d: %s deck expects %s, got %s", in.Slot, d.Type, curve[i], in.Rarity))
		}
		if in.Allocation < 0 {
			errs = append(errs, fmt.Errorf("slot %d: negative allocation %d", in.Slot, in.Allocation))
		}
		if in.EffectShare < 0 || in.EffectShare > 1 {
			errs = append(errs, fmt.Errorf("slot %d: effect share %g outside [0, 1]", in.Slot, in.EffectShare))
		}
	}
	return errors.Join(errs...)
}

// Blank returns a fill-in template for the deck type. Names are left empty
// so generated display names are used until the designer fills them in.
func Blank(name string, t Type) DeckInputs {
	d := DeckInputs{Name: name, Type: t}
	for i, r := range t.Curve() {
		d.Cards = append(d.Cards, CardInput{
			Slot:       i + 1,
			Rarity:     r,
			Efficiency: card.EfficiencyNormal,
			Allocation: 1,
			Range:      card.RangeSingle,
			Effect:     card.Damage,
		})
	}
	return d
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// MarshalTemplate encodes d as YAML for .yaml/.yml paths and as indented
// JSON otherwise.
func MarshalTemplate(path string, d DeckInputs) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(d)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// UnmarshalTemplate decodes a template. Errors wrap ErrUnparseableTemplate.
func UnmarshalTemplate(path string, data []byte) (DeckInputs, error) {
	var d DeckInputs
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, &d)
	} else {
		err = json.Unmarshal(data, &d)
	}
	if err != nil {
		return DeckInputs{}, fmt.Errorf("%w: %s: %v", ErrUnparseableTemplate, path, err)
	}
	return d, nil
}

// ReadTemplate loads and validates the template at path.
func ReadTemplate(path string) (DeckInputs, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DeckInputs{}, fmt.Errorf("%w: %s", ErrMissingTemplate, path)
	}
	if err != nil {
		return DeckInputs{}, fmt.Errorf("read template: %w", err)
	}
	d, err := UnmarshalTemplate(path, data)
	if err != nil {
		return DeckInputs{}, err
	}
	if err := d.Validate(); err != nil {
		return DeckInputs{}, fmt.Errorf("%w: %s: %v", ErrUnparseableTemplate, path, err)
	}
	return d, nil
}

// WriteTemplate writes d to path, truncating any previous file.
func WriteTemplate(path string, d DeckInputs) error {
	data, err := MarshalTemplate(path, d)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}
