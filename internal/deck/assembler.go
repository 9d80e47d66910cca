package deck

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/log"
)

// State is the assembler's position in the roster.
type State int

const (
	StateEmpty State = iota
	StateCollecting
	StateResolved
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateCollecting:
		return "Collecting"
	case StateResolved:
		return "Resolved"
	case StateComplete:
		return "Complete"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

var (
	// ErrSlotExhausted is returned by a ChoiceSource that has no more
	// choices to offer for a slot. The slot is skipped.
	ErrSlotExhausted = errors.New("no feasible choices left for slot")

	// ErrFinished is returned when stepping a complete or aborted assembler.
	ErrFinished = errors.New("deck assembly already finished")
)

// Slot describes the roster position being filled.
type Slot struct {
	Index  int         // 1-based
	Rarity card.Rarity // fixed by the deck curve
	Name   string      // generated display name, used when the plan has none
	Seed   int64       // power roll seed of the current attempt
}

// Rand returns the generator the assembler rolls this attempt's power with,
// so a source can preview the exact budget its plan will get.
func (s Slot) Rand() *rand.Rand { return rand.New(rand.NewSource(s.Seed)) }

// ChoiceSource supplies designer choices for each slot.
type ChoiceSource interface {
	// Choose returns the plan for the given attempt (1-based) at a slot.
	Choose(ctx context.Context, slot Slot, attempt int) (card.Plan, error)
	// Rejected reports why the previous plan did not build.
	Rejected(slot Slot, err error)
}

// Record is one resolved card of a roster.
type Record struct {
	ID   uuid.UUID `json:"id" yaml:"id"`
	Slot int       `json:"slot" yaml:"slot"`
	Card card.Card `json:"card" yaml:"card"`
}

// Roster is a finished deck: the replayable template and the cards it
// produced.
type Roster struct {
	Name     string     `json:"name" yaml:"name"`
	Type     Type       `json:"type" yaml:"type"`
	Template DeckInputs `json:"template" yaml:"template"`
	Records  []Record   `json:"records" yaml:"records"`
	Skipped  []int      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Cards returns the resolved cards in slot order.
func (r Roster) Cards() []card.Card {
	cards := make([]card.Card, len(r.Records))
	for i, rec := range r.Records {
		cards[i] = rec.Card
	}
	return cards
}

// Assembler fills a deck's slots one at a time.
type Assembler struct {
	name   string
	typ    Type
	curve  []card.Rarity
	tables card.Tables
	seed   int64
	rng    *rand.Rand
	logger log.EventLogger

	state State
	next  int // index of the next slot to fill
	err   error

	counts  map[card.Rarity]int
	inputs  []CardInput
	records []Record
	skipped []int
}

// NewAssembler starts an empty deck. The seed derives every attempt's power
// roll, so replaying the same template with the same seed yields the same
// cards.
func NewAssembler(name string, t Type, tables card.Tables, seed int64, logger log.EventLogger) *Assembler {
	if logger == nil {
		logger = log.Discard{}
	}
	return &Assembler{
		name:   name,
		typ:    t,
		curve:  t.Curve(),
		tables: tables,
		seed:   seed,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
		counts: map[card.Rarity]int{},
	}
}

func (a *Assembler) State() State { return a.state }

// Err returns the cause of an abort.
func (a *Assembler) Err() error { return a.err }

// displayName is the generated name for the next card of rarity r.
func (a *Assembler) displayName(r card.Rarity) string {
	name := fmt.Sprintf("%s %s", a.name, r)
	if n := a.counts[r] + 1; n > 1 {
		name = fmt.Sprintf("%s %d", name, n)
	}
	return name
}

// Step fills the next slot, asking src again for as long as the plan it
// returns does not build.
func (a *Assembler) Step(ctx context.Context, src ChoiceSource) error {
	if a.state == StateComplete || a.state == StateAborted {
		return ErrFinished
	}
	rarity := a.curve[a.next]
	slot := Slot{Index: a.next + 1, Rarity: rarity, Name: a.displayName(rarity)}
	a.state = StateCollecting

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return a.abort(err)
		}
		slot.Seed = a.rng.Int63()
		plan, err := src.Choose(ctx, slot, attempt)
		if errors.Is(err, ErrSlotExhausted) {
			a.skip(slot, err)
			return nil
		}
		if err != nil {
			return a.abort(fmt.Errorf("slot %d: %w", slot.Index, err))
		}
		if plan.Name == "" {
			plan.Name = slot.Name
		}
		plan.Rarity = rarity

		d := plan.Draft(a.tables, slot.Rand())
		for _, debit := range d.Debits() {
			a.logger.Log(log.NewDebitEvent(a.name, slot.Index, plan.Name, debit))
		}
		c, err := d.Build()
		if err != nil {
			var infeasible *card.InfeasibleError
			if !errors.As(err, &infeasible) {
				return a.abort(fmt.Errorf("slot %d: %w", slot.Index, err))
			}
			a.logger.Log(log.NewInfeasibleEvent(a.name, slot.Index, plan.Name, err))
			src.Rejected(slot, err)
			continue
		}

		a.logger.Log(log.NewBuildEvent(a.name, slot.Index, c))
		a.logger.Log(log.NewSlotResolvedEvent(a.name, slot.Index, c.Name, attempt))
		a.counts[rarity]++
		a.inputs = append(a.inputs, InputFromPlan(slot.Index, plan))
		a.records = append(a.records, Record{ID: uuid.New(), Slot: slot.Index, Card: c})
		a.advance()
		return nil
	}
}

func (a *Assembler) skip(slot Slot, err error) {
	a.logger.Log(log.NewSlotSkippedEvent(a.name, slot.Index, err.Error()))
	a.skipped = append(a.skipped, slot.Index)
	a.advance()
}

func (a *Assembler) advance() {
	a.next++
	a.state = StateResolved
	if a.next == len(a.curve) {
		a.state = StateComplete
		a.logger.Log(log.NewDeckCompleteEvent(a.name, len(a.records), len(a.skipped)))
	}
}

func (a *Assembler) abort(err error) error {
	a.state = StateAborted
	a.err = err
	a.logger.Log(log.NewDeckAbortedEvent(a.name, err))
	return err
}

// Run steps until the deck is complete or aborted.
func (a *Assembler) Run(ctx context.Context, src ChoiceSource) (Roster, error) {
	for a.state != StateComplete {
		if err := a.Step(ctx, src); err != nil {
			return Roster{}, err
		}
	}
	return a.Roster(), nil
}

// Roster returns the deck assembled so far.
func (a *Assembler) Roster() Roster {
	return Roster{
		Name: a.name,
		Type: a.typ,
		Template: DeckInputs{
			Name:  a.name,
			Type:  a.typ,
			Seed:  a.seed,
			Cards: append([]CardInput(nil), a.inputs...),
		},
		Records: append([]Record(nil), a.records...),
		Skipped: append([]int(nil), a.skipped...),
	}
}

// DefaultAttempts bounds how often a replayed slot is re-rolled.
const DefaultAttempts = 3

// Options controls Assemble and BuildFromDir.
type Options struct {
	Seed     int64        // overrides the template seed when nonzero
	Attempts int          // replay attempts per slot; DefaultAttempts if zero
	Source   ChoiceSource // nil replays the template
	Logger   log.EventLogger
}

func (o Options) seed(template int64) int64 {
	switch {
	case o.Seed != 0:
		return o.Seed
	case template != 0:
		return template
	default:
		return time.Now().UnixNano()
	}
}

// Assemble builds the deck described by d. With no Source in opts the
// template's inputs are replayed and must fill the curve exactly.
func Assemble(ctx context.Context, d DeckInputs, tables card.Tables, opts Options) (Roster, error) {
	if d.Name == "" {
		return Roster{}, fmt.Errorf("%w: deck has no name", ErrUnparseableTemplate)
	}
	src := opts.Source
	if src == nil {
		if err := d.Validate(); err != nil {
			return Roster{}, fmt.Errorf("%w: %v", ErrUnparseableTemplate, err)
		}
		src = NewTemplateSource(d, opts.Attempts)
	}
	a := NewAssembler(d.Name, d.Type, tables, opts.seed(d.Seed), opts.Logger)
	roster, err := a.Run(ctx, src)
	if err != nil {
		return Roster{}, err
	}
	roster.Template.Cards = keepSkipped(roster.Template.Cards, d.Inputs(), roster.Skipped)
	return roster, nil
}

// keepSkipped carries the template inputs of skipped slots into the
// resolved template so it can still be replayed.
func keepSkipped(resolved, template []CardInput, skipped []int) []CardInput {
	if len(skipped) == 0 {
		return resolved
	}
	for _, in := range template {
		if slices.Contains(skipped, in.Slot) {
			resolved = append(resolved, in)
		}
	}
	slices.SortStableFunc(resolved, func(a, b CardInput) int { return cmp.Compare(a.Slot, b.Slot) })
	return resolved
}
