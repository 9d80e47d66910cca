package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/log"
)

// RecordsFile is the name of the resolved roster written next to the cards.
const RecordsFile = "records.json"

// TemplateFile is the name of the blank template emitted by the template
// command.
const TemplateFile = "Deck_Template.json"

// FindTemplate locates the template of a deck directory: <dir>/<base>.deck,
// falling back to .json, .yaml and .yml.
func FindTemplate(dir string) (string, error) {
	base := filepath.Base(filepath.Clean(dir))
	for _, ext := range []string{".deck", ".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no %s.deck in %s", ErrMissingTemplate, base, dir)
}

// CardFileName is the file a card's report is written to.
func CardFileName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	return safe + ".card"
}

// ClearCards removes every .card file in dir and returns how many were
// removed. A failure leaves the directory partly cleared.
func ClearCards(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read deck dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".card" {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("remove stale card: %w", err)
		}
		removed++
	}
	return removed, nil
}

// BuildFromDir regenerates a deck directory from its template. The template
// is loaded before anything is removed, so a missing or unparseable one
// leaves the directory untouched. Stale .card files are then cleared; if
// that fails the deck is not regenerated.
func BuildFromDir(ctx context.Context, dir string, tables card.Tables, opts Options) (Roster, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard{}
		opts.Logger = logger
	}

	path, err := FindTemplate(dir)
	if err != nil {
		return Roster{}, err
	}
	d, err := ReadTemplate(path)
	if err != nil {
		return Roster{}, err
	}
	if d.Name == "" {
		d.Name = filepath.Base(filepath.Clean(dir))
	}

	removed, err := ClearCards(dir)
	if err != nil {
		return Roster{}, err
	}
	logger.Log(log.NewFilesClearedEvent(d.Name, dir, removed))

	roster, err := Assemble(ctx, d, tables, opts)
	if err != nil {
		return Roster{}, err
	}
	WriteRoster(dir, roster, logger)
	return roster, nil
}

// WriteRoster writes one .card report per record and the records file.
// A card whose file name is already taken in this roster gets its slot
// number appended.
// Failures are logged per file and do not stop the batch; the number of
// failed files is returned.
func WriteRoster(dir string, r Roster, logger log.EventLogger) int {
	if logger == nil {
		logger = log.Discard{}
	}
	failed := 0
	write := func(path string, data []byte) {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.Log(log.NewFileFailedEvent(r.Name, path, err))
			failed++
			return
		}
		logger.Log(log.NewFileWrittenEvent(r.Name, path))
	}

	taken := map[string]bool{}
	for _, rec := range r.Records {
		name := CardFileName(rec.Card.Name)
		for n := 0; taken[strings.ToLower(name)]; n++ {
			label := fmt.Sprintf("%s (slot %d)", rec.Card.Name, rec.Slot)
			if n > 0 {
				label = fmt.Sprintf("%s %d", label, n+1)
			}
			name = CardFileName(label)
		}
		taken[strings.ToLower(name)] = true
		write(filepath.Join(dir, name), []byte(rec.Card.Report()))
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		logger.Log(log.NewFileFailedEvent(r.Name, RecordsFile, err))
		return failed + 1
	}
	write(filepath.Join(dir, RecordsFile), append(data, '\n'))
	return failed
}

// ReadRoster loads a records file written by WriteRoster.
func ReadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	var r Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("parse roster: %w", err)
	}
	return r, nil
}

// ExampleTemplate returns a filled-in template for the deck type.
func ExampleTemplate(t Type) DeckInputs {
	type choice struct {
		name   string
		eff    card.Efficiency
		alloc  int
		rng    card.Range
		effect card.EffectKind
		order  card.Order
	}
	var choices []choice
	switch t {
	case JourneymanDeck:
		choices = []choice{
			{"Kelp Lash", card.EfficiencyNormal, 1, card.RangeSingle, card.Damage, card.OrderRangeFirst},
			{"Rockpool Rest", card.EfficiencyNormal, 2, card.RangeMultiple, card.Heal, card.OrderRangeFirst},
			{"Crusted Hide", card.EfficiencyGood, 2, card.RangeSingle, card.Shield, card.OrderRangeFirst},
			{"Riptide", card.EfficiencyNormal, 2, card.RangeAoE, card.Damage, card.OrderEffectFirst},
			{"Brackish Mend", card.EfficiencyBad, 1, card.RangeMultiple, card.AcidHeal, card.OrderRangeFirst},
		}
	case LegendaryDeck:
		choices = []choice{
			{"Whale Song", card.EfficiencyNormal, 2, card.RangeMultiple, card.Heal, card.OrderRangeFirst},
			{"Reef Wall", card.EfficiencyNormal, 2, card.RangeAoE, card.Shield, card.OrderRangeFirst},
			{"Maelstrom", card.EfficiencyGood, 3, card.RangeExtendedAoE, card.Damage, card.OrderRangeFirst},
			{"Abyssal Tide", card.EfficiencyNormal, 3, card.RangeExtendedAoE, card.AcidHeal, card.OrderEffectFirst},
			{"Leviathan Bite", card.EfficiencyGood, 4, card.RangeSingle, card.Damage, card.OrderRangeFirst},
		}
	default:
		choices = []choice{
			{"Barnacle Pinch", card.EfficiencyNormal, 1, card.RangeSingle, card.Damage, card.OrderRangeFirst},
			{"Tidewash", card.EfficiencyGood, 1, card.RangeSingle, card.Heal, card.OrderRangeFirst},
			{"Shell Up", card.EfficiencyNormal, 1, card.RangeMultiple, card.Shield, card.OrderRangeFirst},
			{"Brine Spray", card.EfficiencyNormal, 2, card.RangeAoE, card.AcidHeal, card.OrderRangeFirst},
			{"Undertow", card.EfficiencyBad, 1, card.RangeMultiple, card.Damage, card.OrderEffectFirst},
		}
	}

	d := DeckInputs{Name: t.String() + " Example", Type: t}
	for i, r := range t.Curve() {
		c := choices[i]
		d.Cards = append(d.Cards, CardInput{
			Slot:       i + 1,
			Name:       c.name,
			Rarity:     r,
			Efficiency: c.eff,
			Allocation: c.alloc,
			Range:      c.rng,
			Effect:     c.effect,
			Order:      c.order,
		})
	}
	return d
}

// Examples assembles one example deck per tier.
func Examples(ctx context.Context, tables card.Tables, seed int64, logger log.EventLogger) ([]Roster, error) {
	var rosters []Roster
	var errs []error
	for _, t := range Types {
		d := ExampleTemplate(t)
		d.Seed = seed
		r, err := Assemble(ctx, d, tables, Options{Logger: logger})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
			continue
		}
		rosters = append(rosters, r)
	}
	return rosters, errors.Join(errs...)
}
