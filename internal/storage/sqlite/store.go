// Package sqlite provides a SQLite-backed ledger of every card built.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/deck"
	"github.com/peterkuimelis/barnacle/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound indicates a requested card is not in the ledger.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a card with the same ID was already recorded.
	ErrAlreadyExists = errors.New("record already exists")
)

// Entry is one ledger row: a built card and where it was built.
type Entry struct {
	ID        uuid.UUID
	Deck      string // empty for standalone cards
	Slot      int    // 0 for standalone cards
	Card      card.Card
	CreatedAt time.Time
}

// Store persists built cards and their debit traces.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite ledger and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// Append records one card with its debit trace. A zero ID is replaced by a
// new one, and a zero CreatedAt by the current time.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if err := s.ready(ctx); err != nil {
		return Entry{}, err
	}
	if strings.TrimSpace(e.Card.Name) == "" {
		return Entry{}, fmt.Errorf("card name is required")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = fromMillis(toMillis(e.CreatedAt))

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c := e.Card
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cards (
		   id, deck, slot, name, rarity, efficiency, power, allocation, budget,
		   priority, barnacles, range_kind, effect_kind, magnitude, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Deck, e.Slot, c.Name,
		c.Rarity.Key(), c.Efficiency.Key(), c.Power, c.Allocation, c.Budget,
		c.Priority, c.Barnacles, c.Range.Key(), c.Effect.Kind.Key(), c.Effect.Magnitude,
		toMillis(e.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Entry{}, ErrAlreadyExists
		}
		return Entry{}, fmt.Errorf("insert card: %w", err)
	}
	for i, d := range c.Debits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO card_debits (card_id, seq, step, amount, budget_after, detail) VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID.String(), i, d.Step.String(), d.Amount, d.BudgetAfter, d.Detail,
		); err != nil {
			return Entry{}, fmt.Errorf("insert debit %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit append: %w", err)
	}
	return e, nil
}

// AppendRoster records every card of a roster under the roster's name.
func (s *Store) AppendRoster(ctx context.Context, r deck.Roster) error {
	for _, rec := range r.Records {
		if _, err := s.Append(ctx, Entry{ID: rec.ID, Deck: r.Name, Slot: rec.Slot, Card: rec.Card}); err != nil {
			return fmt.Errorf("record %s: %w", rec.Card.Name, err)
		}
	}
	return nil
}

const selectCards = `SELECT id, deck, slot, name, rarity, efficiency, power, allocation, budget,
       priority, barnacles, range_kind, effect_kind, magnitude, created_at
  FROM cards`

// Get returns one card by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	if err := s.ready(ctx); err != nil {
		return Entry{}, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, selectCards+` WHERE id = ?`, id.String())
	if err != nil {
		return Entry{}, fmt.Errorf("get card: %w", err)
	}
	entries, err := s.scan(ctx, rows)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// ListDeck returns the cards recorded for a deck, in slot order, oldest
// build first.
func (s *Store) ListDeck(ctx context.Context, deckName string) ([]Entry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, selectCards+` WHERE deck = ? ORDER BY created_at, slot, rowid`, deckName)
	if err != nil {
		return nil, fmt.Errorf("list deck: %w", err)
	}
	return s.scan(ctx, rows)
}

// Recent returns up to limit cards, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx, selectCards+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	return s.scan(ctx, rows)
}

// scan reads card rows, then loads each card's debit trace.
func (s *Store) scan(ctx context.Context, rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e                            Entry
			id, rarity, eff, rng, effect string
			createdAt                    int64
		)
		if err := rows.Scan(
			&id, &e.Deck, &e.Slot, &e.Card.Name, &rarity, &eff,
			&e.Card.Power, &e.Card.Allocation, &e.Card.Budget,
			&e.Card.Priority, &e.Card.Barnacles, &rng, &effect, &e.Card.Effect.Magnitude,
			&createdAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan card: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("parse card id: %w", err)
		}
		e.ID = parsed
		e.CreatedAt = fromMillis(createdAt)
		if err := decodeEnums(&e.Card, rarity, eff, rng, effect); err != nil {
			_ = rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	_ = rows.Close()

	for i := range entries {
		debits, err := s.debits(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Card.Debits = debits
	}
	return entries, nil
}

func decodeEnums(c *card.Card, rarity, eff, rng, effect string) error {
	if err := c.Rarity.UnmarshalText([]byte(rarity)); err != nil {
		return fmt.Errorf("decode card: %w", err)
	}
	if err := c.Efficiency.UnmarshalText([]byte(eff)); err != nil {
		return fmt.Errorf("decode card: %w", err)
	}
	if err := c.Range.UnmarshalText([]byte(rng)); err != nil {
		return fmt.Errorf("decode card: %w", err)
	}
	if err := c.Effect.Kind.UnmarshalText([]byte(effect)); err != nil {
		return fmt.Errorf("decode card: %w", err)
	}
	return nil
}

func (s *Store) debits(ctx context.Context, id uuid.UUID) ([]card.Debit, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT step, amount, budget_after, detail FROM card_debits WHERE card_id = ? ORDER BY seq`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list debits: %w", err)
	}
	defer rows.Close()

	var debits []card.Debit
	for rows.Next() {
		var d card.Debit
		var step string
		if err := rows.Scan(&step, &d.Amount, &d.BudgetAfter, &d.Detail); err != nil {
			return nil, fmt.Errorf("scan debit: %w", err)
		}
		if err := d.Step.UnmarshalText([]byte(step)); err != nil {
			return nil, fmt.Errorf("decode debit: %w", err)
		}
		debits = append(debits, d)
	}
	return debits, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
