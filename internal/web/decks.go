package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterkuimelis/barnacle/internal/deck"
	elog "github.com/peterkuimelis/barnacle/internal/log"
)

// DeckInfo is the JSON representation of a deck directory for /api/decks.
type DeckInfo struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Template string   `json:"template"`
	Cards    []string `json:"cards"`
	Error    string   `json:"error,omitempty"`
}

// listDecks describes every subdirectory of dir that holds a template.
// Unreadable templates are listed with their error.
func listDecks(dir string) ([]DeckInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read decks dir: %w", err)
	}
	decks := []DeckInfo{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path, err := deck.FindTemplate(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		di := DeckInfo{Name: e.Name(), Template: filepath.Base(path), Cards: []string{}}
		d, err := deck.ReadTemplate(path)
		if err != nil {
			di.Error = err.Error()
			decks = append(decks, di)
			continue
		}
		di.Type = d.Type.String()
		for _, in := range d.Inputs() {
			di.Cards = append(di.Cards, in.Name)
		}
		decks = append(decks, di)
	}
	sort.Slice(decks, func(i, j int) bool { return decks[i].Name < decks[j].Name })
	return decks, nil
}

// deckDir resolves a deck name to its directory, refusing anything that
// is not a plain child of the decks directory.
func (s *Server) deckDir(name string) (string, error) {
	if s.decksDir == "" {
		return "", errors.New("no decks directory is configured")
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid deck name %q", name)
	}
	return filepath.Join(s.decksDir, name), nil
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	if s.decksDir == "" {
		writeError(w, http.StatusNotFound, errors.New("no decks directory is configured"))
		return
	}
	decks, err := listDecks(s.decksDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, decks)
}

func (s *Server) handleBuildDir(w http.ResponseWriter, r *http.Request) {
	dir, err := s.deckDir(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	logger := elog.NewMemoryLogger()
	roster, err := deck.BuildFromDir(r.Context(), dir, s.store.Snapshot(), deck.Options{Logger: logger})
	switch {
	case errors.Is(err, deck.ErrMissingTemplate):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, deck.ErrUnparseableTemplate):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeRoster(w, r.Context(), roster, logger)
}
