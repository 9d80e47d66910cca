package log

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/peterkuimelis/barnacle/internal/card"
)

// EventLogger is the interface for logging generator events.
type EventLogger interface {
	Log(event Event)
	Events() []Event
}

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
}

func (l *MemoryLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []Event {
	var result []Event
	for _, e := range l.Events() {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() Event {
	events := l.Events()
	if len(events) == 0 {
		return Event{}
	}
	return events[len(events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event Event) {
	l.MemoryLogger.Log(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// Discard drops every event.
type Discard struct{}

func (Discard) Log(Event)        {}
func (Discard) Events() []Event { return nil }

// --- Formatting ---

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e Event) string {
	where := e.Deck
	if e.Slot > 0 {
		where = fmt.Sprintf("%s #%d", where, e.Slot)
	}
	// Pad location to 16 chars for alignment
	for len(where) < 16 {
		where += " "
	}
	return fmt.Sprintf("%s| %s", where, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []Event) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- Helper constructors for common events ---

// NewDebitEvent reports one step of a card's budget trace.
func NewDebitEvent(deck string, slot int, cardName string, d card.Debit) Event {
	t := EventInitialize
	switch d.Step {
	case card.StepAllocatePriority:
		t = EventAllocatePriority
	case card.StepSelectRange:
		t = EventSelectRange
	case card.StepSelectEffect:
		t = EventSelectEffect
	}
	return Event{
		Deck:    deck,
		Slot:    slot,
		Type:    t,
		Card:    cardName,
		Budget:  d.BudgetAfter,
		Details: fmt.Sprintf("%s: %s → budget %d", cardName, d.Detail, d.BudgetAfter),
	}
}

func NewBuildEvent(deck string, slot int, c card.Card) Event {
	return Event{
		Deck:    deck,
		Slot:    slot,
		Type:    EventBuild,
		Card:    c.Name,
		Budget:  c.Budget,
		Details: fmt.Sprintf("%s built: priority %d, cast %d barnacles, %s %s", c.Name, c.Priority, c.Barnacles, c.Effect, c.Range),
	}
}

func NewInfeasibleEvent(deck string, slot int, cardName string, err error) Event {
	return Event{
		Deck:    deck,
		Slot:    slot,
		Type:    EventInfeasible,
		Card:    cardName,
		Details: fmt.Sprintf("ERROR: %v", err),
	}
}

func NewSlotResolvedEvent(deck string, slot int, cardName string, attempts int) Event {
	return Event{
		Deck:    deck,
		Slot:    slot,
		Type:    EventSlotResolved,
		Card:    cardName,
		Details: fmt.Sprintf("slot %d resolved as %s after %d attempt(s)", slot, cardName, attempts),
	}
}

func NewSlotSkippedEvent(deck string, slot int, reason string) Event {
	return Event{
		Deck:    deck,
		Slot:    slot,
		Type:    EventSlotSkipped,
		Details: fmt.Sprintf("slot %d skipped (%s)", slot, reason),
	}
}

func NewDeckCompleteEvent(deck string, cards, skipped int) Event {
	return Event{
		Deck:    deck,
		Type:    EventDeckComplete,
		Details: fmt.Sprintf("deck %s complete: %d card(s), %d skipped", deck, cards, skipped),
	}
}

func NewDeckAbortedEvent(deck string, err error) Event {
	return Event{
		Deck:    deck,
		Type:    EventDeckAborted,
		Details: fmt.Sprintf("deck %s aborted: %v", deck, err),
	}
}

func NewFilesClearedEvent(deck string, dir string, n int) Event {
	return Event{
		Deck:    deck,
		Type:    EventFilesCleared,
		Details: fmt.Sprintf("removed %d stale card file(s) from %s", n, dir),
	}
}

func NewFileWrittenEvent(deck string, path string) Event {
	return Event{
		Deck:    deck,
		Type:    EventFileWritten,
		Details: fmt.Sprintf("Wrote %s", path),
	}
}

func NewFileFailedEvent(deck string, path string, err error) Event {
	return Event{
		Deck:    deck,
		Type:    EventFileFailed,
		Details: fmt.Sprintf("Could not write %s: %v", path, err),
	}
}

func NewConfigRegeneratedEvent(path string, cause error) Event {
	return Event{
		Type:    EventConfigRegenerated,
		Details: fmt.Sprintf("config %s regenerated with defaults (%v)", path, cause),
	}
}

func NewConfigReloadedEvent(path string) Event {
	return Event{
		Type:    EventConfigReloaded,
		Details: fmt.Sprintf("config %s reloaded", path),
	}
}
