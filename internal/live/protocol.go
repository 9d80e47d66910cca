// Package live builds one card a decision at a time for remote designers.
// The web builder speaks its messages over a websocket; the MCP tools drive
// a Session directly.
package live

import "github.com/peterkuimelis/barnacle/internal/card"

// --- Client → Server messages ---

// ClientMessage is the envelope for all designer-to-server messages.
type ClientMessage struct {
	Type string `json:"type"` // "start", "allocate", "range" or "effect"

	// For "start"
	Name       string `json:"name,omitempty"`
	Rarity     string `json:"rarity,omitempty"`
	Efficiency string `json:"efficiency,omitempty"`
	Seed       int64  `json:"seed,omitempty"`
	// Share is the fraction of the budget the effect may use; 0 means all.
	Share float64 `json:"share,omitempty"`

	// For "allocate"
	Amount int `json:"amount,omitempty"`

	// For "range" and "effect": 0-based option index
	Index int `json:"index,omitempty"`
}

const (
	MsgStart    = "start"
	MsgAllocate = "allocate"
	MsgRange    = "range"
	MsgEffect   = "effect"
)

// --- Server → Client messages ---

// ServerMessage is the envelope for all server-to-designer messages.
type ServerMessage struct {
	Type string `json:"type"` // "state", "built", "infeasible" or "error"

	Events  []string     `json:"events"`
	Budget  int          `json:"budget"`
	Pending *PendingView `json:"pending,omitempty"`

	// For "built"
	Card *CardView `json:"card,omitempty"`

	// For "infeasible" and "error"
	Reason string `json:"reason,omitempty"`

	// Set when the card was built but could not be recorded.
	Warning string `json:"warning,omitempty"`
}

const (
	MsgState      = "state"
	MsgBuilt      = "built"
	MsgInfeasible = "infeasible"
	MsgError      = "error"
)

// DecisionType identifies which choice an open card is waiting for.
type DecisionType string

const (
	DecisionAllocate DecisionType = "allocate_priority"
	DecisionRange    DecisionType = "choose_range"
	DecisionEffect   DecisionType = "choose_effect"
)

// OptionView is one selectable option, costed against the current budget.
type OptionView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Cost  int    `json:"cost"`
}

// PendingView is the next choice the designer has to make.
type PendingView struct {
	Type    DecisionType `json:"type"`
	Max     int          `json:"max,omitempty"`
	Options []OptionView `json:"options,omitempty"`
}

// CardView is a built card with its derived prices and report text.
type CardView struct {
	card.Card
	Recast   int    `json:"recast"`
	Withdraw int    `json:"withdraw"`
	Report   string `json:"report"`
}

// NewCardView derives the view of c.
func NewCardView(c card.Card) *CardView {
	return &CardView{Card: c, Recast: c.Recast(), Withdraw: c.Withdraw(), Report: c.Report()}
}
