package mcp

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/peterkuimelis/barnacle/internal/deck"
	"github.com/peterkuimelis/barnacle/internal/live"
)

// activeSession is the card being built step by step (one per stdio process).
var (
	sessionMu     sync.Mutex
	activeSession *live.Session
)

func currentSession() *live.Session {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return activeSession
}

func setSession(s *live.Session) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	activeSession = s
}

// endSession clears the active session if it is still s.
func endSession(s *live.Session) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if activeSession == s {
		activeSession = nil
	}
}

// DeckResponse is the JSON returned by build_deck.
type DeckResponse struct {
	Roster  deck.Roster `json:"roster"`
	Events  []string    `json:"events"`
	Warning string      `json:"warning,omitempty"`
}

// respondJSON marshals a tool response to a JSON string.
func respondJSON(resp any) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
