package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/itemsearch/pkg/core"
)

// ErrNotFound is returned by Store.Get for unknown ids.
var ErrNotFound = errors.New("catalog entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id     INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	rarity TEXT NOT NULL DEFAULT 'Unknown',
	icon   TEXT NOT NULL DEFAULT ''
)`

// Store keeps the catalog in a local sqlite database so it does not have to
// be downloaded on every start.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces entries in a single transaction.
func (s *Store) Save(ctx context.Context, entries []core.CatalogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO items (id, name, rarity, icon) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Name, e.Rarity.String(), e.Icon); err != nil {
			return fmt.Errorf("inserting item %d: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing items: %w", err)
	}
	return nil
}

// Load reads every entry, ordered by id.
func (s *Store) Load(ctx context.Context) (*Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, rarity, icon FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var entries []core.CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return New(entries), nil
}

// Get reads a single entry.
func (s *Store) Get(ctx context.Context, id int) (core.CatalogEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, rarity, icon FROM items WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CatalogEntry{}, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return e, err
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (core.CatalogEntry, error) {
	var (
		e      core.CatalogEntry
		rarity string
	)
	if err := row.Scan(&e.ID, &e.Name, &rarity, &e.Icon); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scanning item: %w", err)
	}
	e.Rarity = core.ParseRarity(rarity)
	return e, nil
}
