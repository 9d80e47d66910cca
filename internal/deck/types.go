// Package deck assembles fixed-size rosters of cards from a rarity curve.
package deck

import (
	"fmt"
	"strings"

	"github.com/peterkuimelis/barnacle/internal/card"
)

// Type is a deck tier. Each tier pre-assigns a rarity to every slot.
type Type int

const (
	StarterDeck Type = iota
	JourneymanDeck
	LegendaryDeck
)

var Types = []Type{StarterDeck, JourneymanDeck, LegendaryDeck}

func (t Type) String() string {
	switch t {
	case StarterDeck:
		return "Starter"
	case JourneymanDeck:
		return "Journeyman"
	case LegendaryDeck:
		return "Legendary"
	default:
		return "Unknown"
	}
}

// Curve returns the rarity of each slot, in slot order.
func (t Type) Curve() []card.Rarity {
	switch t {
	case JourneymanDeck:
		return []card.Rarity{card.Uncommon, card.Rare, card.Rare, card.Epic, card.Epic}
	case LegendaryDeck:
		return []card.Rarity{card.Rare, card.Epic, card.Epic, card.Legendary, card.Legendary}
	default:
		return []card.Rarity{card.Common, card.Common, card.Uncommon, card.Rare, card.Rare}
	}
}

func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if strings.EqualFold(strings.TrimSpace(s), t.String()) {
			return t, nil
		}
	}
	return StarterDeck, fmt.Errorf("unknown deck type %q", s)
}

func (t Type) MarshalText() ([]byte, error) { return []byte(strings.ToLower(t.String())), nil }

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
