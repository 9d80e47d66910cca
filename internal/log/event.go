package log

// EventType enumerates all observable generator events.
type EventType int

const (
	EventInitialize EventType = iota
	EventAllocatePriority
	EventSelectRange
	EventSelectEffect
	EventBuild
	EventInfeasible
	EventSlotResolved
	EventSlotSkipped
	EventDeckComplete
	EventDeckAborted
	EventFilesCleared
	EventFileWritten
	EventFileFailed
	EventConfigRegenerated
	EventConfigReloaded
)

func (e EventType) String() string {
	switch e {
	case EventInitialize:
		return "Initialize"
	case EventAllocatePriority:
		return "AllocatePriority"
	case EventSelectRange:
		return "SelectRange"
	case EventSelectEffect:
		return "SelectEffect"
	case EventBuild:
		return "Build"
	case EventInfeasible:
		return "Infeasible"
	case EventSlotResolved:
		return "SlotResolved"
	case EventSlotSkipped:
		return "SlotSkipped"
	case EventDeckComplete:
		return "DeckComplete"
	case EventDeckAborted:
		return "DeckAborted"
	case EventFilesCleared:
		return "FilesCleared"
	case EventFileWritten:
		return "FileWritten"
	case EventFileFailed:
		return "FileFailed"
	case EventConfigRegenerated:
		return "ConfigRegenerated"
	case EventConfigReloaded:
		return "ConfigReloaded"
	default:
		return "Unknown"
	}
}

// Event represents a single observable event while generating cards.
type Event struct {
	Seq     int       // monotonic sequence number
	Deck    string    // deck name, empty for standalone cards
	Slot    int       // roster slot (1-based), 0 outside a deck
	Type    EventType // event type
	Card    string    // card name (if applicable)
	Budget  int       // running budget after the event (debit events only)
	Details string    // human-readable detail string
}
