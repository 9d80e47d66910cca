package prompt

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/deck"
	"github.com/peterkuimelis/barnacle/internal/log"
)

// Cards runs the standalone card loop: it asks for cards until an empty
// name is entered (or input ends), writing <name>.card into dir for every
// card that builds. Failed cards are reported and the loop goes on.
func (p *Prompter) Cards(ctx context.Context, tables card.Tables, rng *rand.Rand, dir string, logger log.EventLogger) ([]card.Card, error) {
	if logger == nil {
		logger = log.Discard{}
	}
	var built []card.Card
	for {
		if err := ctx.Err(); err != nil {
			return built, err
		}
		name, err := p.Line("Enter card name (<Enter> to exit): ")
		if errors.Is(err, ErrClosed) || (err == nil && name == "") {
			return built, nil
		}
		if err != nil {
			return built, err
		}

		rarity, err := p.Rarity()
		if err != nil {
			return built, ignoreClosed(err)
		}
		_, d, err := p.design(name, rarity, tables, func() *rand.Rand { return rng })
		if err != nil {
			return built, ignoreClosed(err)
		}
		for _, debit := range d.Debits() {
			logger.Log(log.NewDebitEvent("", 0, name, debit))
		}

		c, err := d.Build()
		if err != nil {
			fmt.Fprintf(p.w, "ERROR: %v\n", err)
			logger.Log(log.NewInfeasibleEvent("", 0, name, err))
			continue
		}
		logger.Log(log.NewBuildEvent("", 0, c))
		built = append(built, c)
		fmt.Fprintf(p.w, "\nGenerated Card:\n%s\n", c.Report())

		path := filepath.Join(dir, deck.CardFileName(c.Name))
		if err := os.WriteFile(path, []byte(c.Report()), 0o644); err != nil {
			fmt.Fprintf(p.w, "Could not write file: %s\n", path)
			logger.Log(log.NewFileFailedEvent("", path, err))
			continue
		}
		fmt.Fprintf(p.w, "Wrote card to file: %s\n", path)
		logger.Log(log.NewFileWrittenEvent("", path))
	}
}

// design asks for an efficiency and walks the new draft, asking again while
// the rolled budget is too small to allocate priority.
func (p *Prompter) design(name string, rarity card.Rarity, tables card.Tables, rng func() *rand.Rand) (card.Plan, card.Draft, error) {
	for {
		efficiency, err := p.Efficiency()
		if err != nil {
			return card.Plan{}, card.Draft{}, err
		}
		plan, d, err := p.Walk(card.New(name, rarity, efficiency, tables, rng()))
		if errors.Is(err, ErrBudgetTooSmall) {
			continue
		}
		return plan, d, err
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// Source asks a designer for every slot of a deck. It previews costs
// against the exact power the assembler will roll and never gives up on a
// slot; only closed input or a cancelled context end it.
type Source struct {
	p      *Prompter
	tables card.Tables
}

func NewSource(p *Prompter, tables card.Tables) *Source {
	return &Source{p: p, tables: tables}
}

func (s *Source) Choose(ctx context.Context, slot deck.Slot, attempt int) (card.Plan, error) {
	if err := ctx.Err(); err != nil {
		return card.Plan{}, err
	}
	fmt.Fprintf(s.p.w, "\nSlot %d: %s", slot.Index, slot.Rarity)
	if attempt > 1 {
		fmt.Fprintf(s.p.w, " (attempt %d)", attempt)
	}
	fmt.Fprintln(s.p.w)

	name, err := s.p.Line(fmt.Sprintf("Enter card name (<Enter> for %q): ", slot.Name))
	if err != nil {
		return card.Plan{}, err
	}
	if name == "" {
		name = slot.Name
	}
	plan, _, err := s.p.design(name, slot.Rarity, s.tables, slot.Rand)
	return plan, err
}

func (s *Source) Rejected(_ deck.Slot, err error) {
	fmt.Fprintf(s.p.w, "ERROR: %v\nTry again.\n", err)
}
