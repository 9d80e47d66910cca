package deck

import (
	"context"
	"fmt"

	"github.com/peterkuimelis/barnacle/internal/card"
)

// TemplateSource replays saved inputs. An infeasible slot is re-rolled with
// the same inputs up to a bounded number of attempts, then skipped.
type TemplateSource struct {
	inputs   map[int]CardInput
	attempts int
}

func NewTemplateSource(d DeckInputs, attempts int) *TemplateSource {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	s := &TemplateSource{inputs: map[int]CardInput{}, attempts: attempts}
	for _, in := range d.Inputs() {
		s.inputs[in.Slot] = in
	}
	return s
}

func (s *TemplateSource) Choose(_ context.Context, slot Slot, attempt int) (card.Plan, error) {
	in, ok := s.inputs[slot.Index]
	if !ok {
		return card.Plan{}, fmt.Errorf("slot %d has no input: %w", slot.Index, ErrSlotExhausted)
	}
	if attempt > s.attempts {
		return card.Plan{}, fmt.Errorf("slot %d gave up after %d attempts: %w", slot.Index, s.attempts, ErrSlotExhausted)
	}
	return in.Plan(), nil
}

func (s *TemplateSource) Rejected(Slot, error) {}

// SourceFunc adapts a function to a ChoiceSource that ignores rejections.
type SourceFunc func(ctx context.Context, slot Slot, attempt int) (card.Plan, error)

func (f SourceFunc) Choose(ctx context.Context, slot Slot, attempt int) (card.Plan, error) {
	return f(ctx, slot, attempt)
}

func (f SourceFunc) Rejected(Slot, error) {}
