package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/cartsync/internal/cart"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (carts, cart_items)
const currentSchemaVersion = 1

// CartStore is the remote cart store contract.
// All operations are keyed by (identityID, productID).
//
// Implementations must make UpsertOrIncrement's increment atomic on the
// server side; callers never read-modify-write quantities.
type CartStore interface {
	// ListItems returns every item for the identity. Ordering is store-defined.
	ListItems(ctx context.Context, identityID string) ([]cart.Item, error)

	// UpsertOrIncrement increments an existing item's quantity by item.Quantity
	// (default 1) or creates the item with the supplied fields.
	UpsertOrIncrement(ctx context.Context, identityID string, item cart.Item) error

	// SetQuantity deletes the item when quantity <= 0, otherwise merges the
	// quantity into the existing item. Other fields are preserved.
	SetQuantity(ctx context.Context, identityID, productID string, quantity int) error

	// DeleteItem removes the item. Deleting an absent item is not an error.
	DeleteItem(ctx context.Context, identityID, productID string) error

	// ClearAll reads the item list and deletes every item concurrently.
	// A failure part way leaves the remaining items in place.
	ClearAll(ctx context.Context, identityID string) error

	// EnsureCart creates the per-identity cart marker if it does not exist.
	EnsureCart(ctx context.Context, identityID string) error
}

// Store is the SQLite implementation of CartStore.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

var _ CartStore = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// Use ":memory:" for an ephemeral store; the single pooled connection keeps
// the in-memory database alive until Close.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps the schema version.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
