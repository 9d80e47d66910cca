package live

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/log"
)

// Session is a card being built one decision at a time.
type Session struct {
	mu      sync.Mutex
	draft   card.Draft
	pending DecisionType
	logger  *log.MemoryLogger
	shown   int
	built   *card.Card
}

// NewSession rolls the budget for a new card and waits for the priority
// allocation. When priority comes from the leftover budget there is no
// allocation and the session waits for the range.
func NewSession(name string, rarity card.Rarity, efficiency card.Efficiency, tables card.Tables, seed int64) *Session {
	s := &Session{
		draft:   card.New(name, rarity, efficiency, tables, rand.New(rand.NewSource(seed))),
		pending: DecisionAllocate,
		logger:  log.NewMemoryLogger(),
	}
	if s.draft.PrioritySource() == card.PriorityFromLeftover {
		s.pending = DecisionRange
	}
	s.logDebits(0)
	return s
}

// Start parses a "start" message and opens a session for it.
func Start(msg ClientMessage, tables card.Tables) (*Session, error) {
	name := strings.TrimSpace(msg.Name)
	if name == "" {
		return nil, fmt.Errorf("a card name is required")
	}
	rarity, err := card.ParseRarity(msg.Rarity)
	if err != nil {
		return nil, err
	}
	eff := msg.Efficiency
	if eff == "" {
		eff = card.EfficiencyNormal.Key()
	}
	efficiency, err := card.ParseEfficiency(eff)
	if err != nil {
		return nil, err
	}
	if msg.Share < 0 || msg.Share > 1 {
		return nil, fmt.Errorf("effect share %g outside [0, 1]", msg.Share)
	}
	s := NewSession(name, rarity, efficiency, tables, msg.Seed)
	if msg.Share != 0 {
		s.draft = s.draft.WithEffectShare(msg.Share)
	}
	return s, nil
}

// Pending returns the decision the session is waiting for, or "" once the
// effect has been chosen.
func (s *Session) Pending() DecisionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Built returns the finished card, if the session built one.
func (s *Session) Built() (card.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built == nil {
		return card.Card{}, false
	}
	return *s.built, true
}

// Handle applies a decision message.
func (s *Session) Handle(msg ClientMessage) (*ServerMessage, error) {
	switch msg.Type {
	case MsgAllocate:
		return s.Allocate(msg.Amount)
	case MsgRange:
		return s.ChooseRange(msg.Index)
	case MsgEffect:
		return s.ChooseEffect(msg.Index)
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// Allocate spends n on priority. Zero skips the allocation.
func (s *Session) Allocate(n int) (*ServerMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != DecisionAllocate {
		return nil, s.wrongMove(DecisionAllocate)
	}
	if hi := allocationMax(s.draft); n < 0 || n > hi {
		return nil, fmt.Errorf("allocation %d out of range, must be 0-%d", n, hi)
	}
	before := len(s.draft.Debits())
	if n > 0 {
		s.draft = s.draft.AllocatePriority(n)
	}
	s.pending = DecisionRange
	s.logDebits(before)
	return s.state(), nil
}

// ChooseRange pays for the range at index i of card.Ranges. Choosing a
// range while the allocation is pending skips the allocation.
func (s *Session) ChooseRange(i int) (*ServerMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != DecisionAllocate && s.pending != DecisionRange {
		return nil, s.wrongMove(DecisionRange)
	}
	if i < 0 || i >= len(card.Ranges) {
		return nil, fmt.Errorf("invalid range index %d, must be 0-%d", i, len(card.Ranges)-1)
	}
	before := len(s.draft.Debits())
	s.draft = s.draft.SelectRange(card.Ranges[i])
	s.pending = DecisionEffect
	s.logDebits(before)
	return s.state(), nil
}

// ChooseEffect resolves the effect at index i of card.EffectKinds and
// builds the card. The session is finished afterwards, feasible or not.
func (s *Session) ChooseEffect(i int) (*ServerMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != DecisionEffect {
		return nil, s.wrongMove(DecisionEffect)
	}
	if i < 0 || i >= len(card.EffectKinds) {
		return nil, fmt.Errorf("invalid effect index %d, must be 0-%d", i, len(card.EffectKinds)-1)
	}
	before := len(s.draft.Debits())
	s.draft = s.draft.SelectEffect(card.EffectKinds[i])
	s.pending = ""
	s.logDebits(before)

	c, err := s.draft.Build()
	if err != nil {
		s.logger.Log(log.NewInfeasibleEvent("", 0, s.draft.Name(), err))
		msg := s.state()
		msg.Type = MsgInfeasible
		msg.Reason = err.Error()
		return msg, nil
	}
	s.built = &c
	s.logger.Log(log.NewBuildEvent("", 0, c))
	msg := s.state()
	msg.Type = MsgBuilt
	msg.Card = NewCardView(c)
	return msg, nil
}

// View returns the current state with the full event history.
func (s *Session) View() *ServerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.state()
	msg.Events = formatEvents(s.logger.Events())
	return msg
}

func (s *Session) wrongMove(want DecisionType) error {
	if s.pending == "" {
		return fmt.Errorf("card is finished, start a new one")
	}
	return fmt.Errorf("pending decision is '%s', not '%s'", s.pending, want)
}

func (s *Session) logDebits(from int) {
	for _, d := range s.draft.Debits()[from:] {
		s.logger.Log(log.NewDebitEvent("", 0, s.draft.Name(), d))
	}
}

// drainEvents returns the events logged since the last call.
func (s *Session) drainEvents() []string {
	events := s.logger.Events()
	lines := formatEvents(events[s.shown:])
	s.shown = len(events)
	return lines
}

// state builds a "state" message with new events and the pending decision.
func (s *Session) state() *ServerMessage {
	msg := &ServerMessage{
		Type:   MsgState,
		Events: s.drainEvents(),
		Budget: s.draft.Budget(),
	}
	switch s.pending {
	case DecisionAllocate:
		msg.Pending = &PendingView{Type: DecisionAllocate, Max: allocationMax(s.draft)}
	case DecisionRange:
		p := &PendingView{Type: DecisionRange}
		for i, r := range card.Ranges {
			p.Options = append(p.Options, OptionView{Index: i, Name: r.String(), Cost: r.Cost()})
		}
		msg.Pending = p
	case DecisionEffect:
		p := &PendingView{Type: DecisionEffect}
		for i, k := range card.EffectKinds {
			effect, cost := s.draft.EffectCost(k)
			p.Options = append(p.Options, OptionView{Index: i, Name: fmt.Sprintf("%s %d", effect.Kind, effect.Magnitude), Cost: cost})
		}
		msg.Pending = p
	}
	return msg
}

// allocationMax matches the interactive prompt: at least one point is left
// for the effect, so a budget below 2 only allows skipping.
func allocationMax(d card.Draft) int {
	return max(d.Budget()-1, 0)
}

func formatEvents(events []log.Event) []string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, log.FormatEvent(e))
	}
	return lines
}

// ErrorMessage wraps err for the designer.
func ErrorMessage(err error) *ServerMessage {
	return &ServerMessage{Type: MsgError, Events: []string{}, Reason: err.Error()}
}
