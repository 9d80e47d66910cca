package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/config"
	"github.com/peterkuimelis/barnacle/internal/deck"
	"github.com/peterkuimelis/barnacle/internal/live"
	elog "github.com/peterkuimelis/barnacle/internal/log"
	"github.com/peterkuimelis/barnacle/internal/storage/sqlite"
)

//go:embed static
var staticFiles embed.FS

// maxBody bounds request bodies; templates are small.
const maxBody = 1 << 20

// CardRequest is the body of POST /api/cards. Efficiency defaults to
// normal and order to range first.
type CardRequest struct {
	deck.CardInput
	Seed int64 `json:"seed,omitempty"`
}

// DeckResponse is the JSON returned when a deck is built.
type DeckResponse struct {
	Roster  deck.Roster `json:"roster"`
	Events  []string    `json:"events"`
	Warning string      `json:"warning,omitempty"`
}

// Server is the barnacle web UI server.
type Server struct {
	store    *config.Store
	ledger   *sqlite.Store // may be nil
	decksDir string        // empty disables the deck directory routes
	mux      *http.ServeMux
}

// NewServer creates a new web server.
func NewServer(store *config.Store, ledger *sqlite.Store, decksDir string) (*Server, error) {
	if store == nil {
		return nil, errors.New("web: a config store is required")
	}
	s := &Server{
		store:    store,
		ledger:   ledger,
		decksDir: decksDir,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	// Embedded static files
	staticFS, _ := fs.Sub(staticFiles, "static")

	// Serve index.html at root
	s.mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("index.html")
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()
		io.Copy(w, f.(io.Reader))
	})

	// Static CSS/JS
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// API endpoints
	s.mux.HandleFunc("GET /api/config", s.handleConfig)
	s.mux.HandleFunc("POST /api/config/reload", s.handleReload)
	s.mux.HandleFunc("POST /api/cards", s.handleResolveCard)
	s.mux.HandleFunc("GET /api/cards", s.handleLedger)
	s.mux.HandleFunc("GET /api/decks/{type}/template", s.handleTemplate)
	s.mux.HandleFunc("POST /api/decks", s.handleBuildDeck)
	s.mux.HandleFunc("GET /api/decks", s.handleListDecks)
	s.mux.HandleFunc("POST /api/decks/{name}/build", s.handleBuildDir)

	// Live builder
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reload(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleResolveCard(w http.ResponseWriter, r *http.Request) {
	req := CardRequest{CardInput: deck.CardInput{Efficiency: card.EfficiencyNormal}}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode card: %w", err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("a card name is required"))
		return
	}
	if req.Allocation < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("allocation %d must not be negative", req.Allocation))
		return
	}
	if req.EffectShare < 0 || req.EffectShare > 1 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("effect share %g outside [0, 1]", req.EffectShare))
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	plan := req.Plan()
	d := plan.Draft(s.store.Snapshot(), rand.New(rand.NewSource(seed)))
	msg := &live.ServerMessage{Type: live.MsgBuilt, Budget: d.Budget()}
	for _, debit := range d.Debits() {
		msg.Events = append(msg.Events, elog.FormatEvent(elog.NewDebitEvent("", 0, plan.Name, debit)))
	}
	c, err := d.Build()
	if err != nil {
		msg.Type = live.MsgInfeasible
		msg.Reason = err.Error()
		writeJSON(w, http.StatusUnprocessableEntity, msg)
		return
	}
	msg.Card = live.NewCardView(c)
	if err := s.record(r.Context(), c); err != nil {
		msg.Warning = fmt.Sprintf("card not recorded: %v", err)
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusNotFound, errors.New("no ledger is configured"))
		return
	}
	var (
		entries []sqlite.Entry
		err     error
	)
	if name := r.URL.Query().Get("deck"); name != "" {
		entries, err = s.ledger.ListDeck(r.Context(), name)
	} else {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if limit, err = strconv.Atoi(v); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
				return
			}
		}
		entries, err = s.ledger.Recent(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	views := make([]*live.CardView, 0, len(entries))
	for _, e := range entries {
		views = append(views, live.NewCardView(e.Card))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := deck.ParseType(r.PathValue("type"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Deck_Template"
	}
	path, contentType := "template.json", "application/json"
	if r.URL.Query().Get("format") == "yaml" {
		path, contentType = "template.yaml", "application/yaml"
	}
	data, err := deck.MarshalTemplate(path, deck.Blank(name, t))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleBuildDeck(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	path := "template.json"
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		path = "template.yaml"
	}
	d, err := deck.UnmarshalTemplate(path, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var seed int64
	if v := r.URL.Query().Get("seed"); v != "" {
		if seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("seed: %w", err))
			return
		}
	}

	logger := elog.NewMemoryLogger()
	roster, err := deck.Assemble(r.Context(), d, s.store.Snapshot(), deck.Options{Seed: seed, Logger: logger})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeRoster(w, r.Context(), roster, logger)
}

func (s *Server) writeRoster(w http.ResponseWriter, ctx context.Context, roster deck.Roster, logger *elog.MemoryLogger) {
	resp := DeckResponse{Roster: roster, Events: []string{}}
	for _, e := range logger.Events() {
		resp.Events = append(resp.Events, elog.FormatEvent(e))
	}
	if s.ledger != nil {
		if err := s.ledger.AppendRoster(ctx, roster); err != nil {
			resp.Warning = fmt.Sprintf("deck not recorded: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow connections from any origin
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}
	defer wsConn.CloseNow()

	tables := func() card.Tables { return s.store.Snapshot() }
	err = live.Serve(r.Context(), socket{wsConn}, tables, s.record)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
	default:
		if !errors.Is(err, context.Canceled) {
			log.Printf("WebSocket builder: %v", err)
		}
	}
	wsConn.Close(websocket.StatusNormalClosure, "builder closed")
}

// socket carries builder messages as JSON text frames.
type socket struct {
	c *websocket.Conn
}

func (s socket) Read(ctx context.Context) (live.ClientMessage, error) {
	var msg live.ClientMessage
	err := wsjson.Read(ctx, s.c, &msg)
	return msg, err
}

func (s socket) Write(ctx context.Context, msg *live.ServerMessage) error {
	return wsjson.Write(ctx, s.c, msg)
}

func (s *Server) record(ctx context.Context, c card.Card) error {
	if s.ledger == nil {
		return nil
	}
	_, err := s.ledger.Append(ctx, sqlite.Entry{Card: c})
	return err
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
