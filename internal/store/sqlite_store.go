package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is the SQLite-backed data store.
// Thread-safe for concurrent WASM callbacks.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines both collections. Insertion order is the rowid order,
// which keeps folder display order and per-folder card order stable
// across sessions without an explicit position column.
// No foreign keys - referential integrity (cascade on folder delete)
// is managed by the effect layer.
const schema = `
CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    card_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    folder_id TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    correct INTEGER NOT NULL DEFAULT 0,
    incorrect INTEGER NOT NULL DEFAULT 0,
    last_reviewed TEXT
);

CREATE INDEX IF NOT EXISTS idx_cards_folder ON cards(folder_id);
`

// New creates a new in-memory SQLite store.
func New() (*SQLiteStore, error) {
	return Open(":memory:")
}

// Open creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
// Schema creation is idempotent, so reopening an existing database is
// safe. Open failures come back as *InitError and are retryable.
func Open(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &InitError{Cause: err}
	}

	// A second pooled connection to ":memory:" would see a separate
	// empty database, so the pool is capped at one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &InitError{Cause: fmt.Errorf("create schema: %w", err)}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection. Subsequent operations fail
// with ErrNotInitialized.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// conn guards every operation against use before Open / after Close.
// Callers must hold s.mu.
func (s *SQLiteStore) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// =============================================================================
// Folder CRUD
// =============================================================================

// CreateFolder inserts a new folder record. Fails with ErrDuplicateKey
// if the id already exists.
func (s *SQLiteStore) CreateFolder(f *Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	var exists int
	err = db.QueryRow(`SELECT 1 FROM folders WHERE id = ?`, f.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("folder %s: %w", f.ID, ErrDuplicateKey)
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO folders (id, name, card_count)
		VALUES (?, ?, ?)
	`, f.ID, f.Name, f.CardCount)
	return err
}

// GetFolder retrieves a folder by ID. Returns nil on miss.
func (s *SQLiteStore) GetFolder(id string) (*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var f Folder
	err = db.QueryRow(`
		SELECT id, name, card_count FROM folders WHERE id = ?
	`, id).Scan(&f.ID, &f.Name, &f.CardCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// ListFolders returns all folders in insertion order.
func (s *SQLiteStore) ListFolders() ([]*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT id, name, card_count FROM folders ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.CardCount); err != nil {
			return nil, err
		}
		folders = append(folders, &f)
	}

	return folders, rows.Err()
}

// UpdateFolderName renames a folder. Fails with ErrNotFound if the id
// is absent.
func (s *SQLiteStore) UpdateFolderName(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	res, err := db.Exec(`UPDATE folders SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	return requireHit(res, id)
}

// IncrementCardCount adjusts a folder's denormalized card count by
// delta, clamped at a floor of zero so racing deletes can never drive
// the cache negative. Single UPDATE, so concurrent increments on the
// same folder are never lost.
func (s *SQLiteStore) IncrementCardCount(id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	res, err := db.Exec(`
		UPDATE folders SET card_count = MAX(0, card_count + ?) WHERE id = ?
	`, delta, id)
	if err != nil {
		return err
	}
	return requireHit(res, id)
}

// RemoveFolder deletes the folder record only. Cascading to the
// folder's cards is the effect layer's job, via RemoveCardsByFolder.
func (s *SQLiteStore) RemoveFolder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	res, err := db.Exec(`DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireHit(res, id)
}

// CountFolders returns the total number of folders.
func (s *SQLiteStore) CountFolders() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM folders`).Scan(&count)
	return count, err
}

// =============================================================================
// Card CRUD
// =============================================================================

// CreateCard inserts a new card record. Fails with ErrDuplicateKey if
// the id already exists.
func (s *SQLiteStore) CreateCard(c *Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	var exists int
	err = db.QueryRow(`SELECT 1 FROM cards WHERE id = ?`, c.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("card %s: %w", c.ID, ErrDuplicateKey)
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO cards (id, folder_id, front, back, correct, incorrect, last_reviewed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.FolderID, c.Front, c.Back, c.Correct, c.Incorrect, nullable(c.LastReviewed))
	return err
}

// GetCard retrieves a card by ID. Returns nil on miss.
func (s *SQLiteStore) GetCard(id string) (*Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var c Card
	var lastReviewed sql.NullString
	err = db.QueryRow(`
		SELECT id, folder_id, front, back, correct, incorrect, last_reviewed
		FROM cards WHERE id = ?
	`, id).Scan(&c.ID, &c.FolderID, &c.Front, &c.Back, &c.Correct, &c.Incorrect, &lastReviewed)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lastReviewed.Valid {
		c.LastReviewed = lastReviewed.String
	}
	return &c, nil
}

// ListCards returns all cards across all folders in insertion order.
func (s *SQLiteStore) ListCards() ([]*Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, folder_id, front, back, correct, incorrect, last_reviewed
		FROM cards ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCards(rows)
}

// ListCardsByFolder is the secondary-index scan: all cards for a
// folder in insertion order. Empty slice (nil) for unknown folders.
func (s *SQLiteStore) ListCardsByFolder(folderID string) ([]*Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, folder_id, front, back, correct, incorrect, last_reviewed
		FROM cards WHERE folder_id = ? ORDER BY rowid
	`, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCards(rows)
}

// UpdateCardContent applies a partial front/back update. Fails with
// ErrNotFound if the card is absent.
func (s *SQLiteStore) UpdateCardContent(id string, patch CardPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	var front, back string
	err = db.QueryRow(`SELECT front, back FROM cards WHERE id = ?`, id).Scan(&front, &back)
	if err == sql.ErrNoRows {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if patch.Front != nil {
		front = *patch.Front
	}
	if patch.Back != nil {
		back = *patch.Back
	}

	_, err = db.Exec(`UPDATE cards SET front = ?, back = ? WHERE id = ?`, front, back, id)
	return err
}

// UpdateCardStats bumps the answer counters in place. The increments
// happen inside a single UPDATE, so two un-awaited calls on the same
// card still land both: the store never loses a stats update to this
// race. An empty lastReviewed leaves the stored timestamp untouched.
func (s *SQLiteStore) UpdateCardStats(id string, correctDelta, incorrectDelta int, lastReviewed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	res, err := db.Exec(`
		UPDATE cards
		SET correct = MAX(0, correct + ?),
		    incorrect = MAX(0, incorrect + ?),
		    last_reviewed = COALESCE(NULLIF(?, ''), last_reviewed)
		WHERE id = ?
	`, correctDelta, incorrectDelta, lastReviewed, id)
	if err != nil {
		return err
	}
	return requireHit(res, id)
}

// DeleteCard removes a card record. Fails with ErrNotFound if the id
// is absent.
func (s *SQLiteStore) DeleteCard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	res, err := db.Exec(`DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireHit(res, id)
}

// RemoveCardsByFolder deletes every card referencing the folder and
// reports how many rows went. Zero is not an error; a folder may
// legitimately be empty.
func (s *SQLiteStore) RemoveCardsByFolder(folderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	res, err := db.Exec(`DELETE FROM cards WHERE folder_id = ?`, folderID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountCards returns the total number of cards.
func (s *SQLiteStore) CountCards() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM cards`).Scan(&count)
	return count, err
}

// =============================================================================
// Import/export support
// =============================================================================

// BulkInsert writes all folders and cards in one transaction.
// All-or-nothing: any failing record rolls back the whole batch and
// no rows from it remain.
func (s *SQLiteStore) BulkInsert(folders []*Folder, cards []*Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}
	defer tx.Rollback()

	for _, f := range folders {
		if _, err := tx.Exec(`
			INSERT INTO folders (id, name, card_count) VALUES (?, ?, ?)
		`, f.ID, f.Name, f.CardCount); err != nil {
			return fmt.Errorf("bulk insert folder %s: %w", f.ID, err)
		}
	}

	for _, c := range cards {
		if _, err := tx.Exec(`
			INSERT INTO cards (id, folder_id, front, back, correct, incorrect, last_reviewed)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.FolderID, c.Front, c.Back, c.Correct, c.Incorrect, nullable(c.LastReviewed)); err != nil {
			return fmt.Errorf("bulk insert card %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}
	return nil
}

// Clear empties both collections atomically.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}
	defer tx.Rollback()

	for _, table := range []string{"cards", "folders"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func scanCards(rows *sql.Rows) ([]*Card, error) {
	var cards []*Card
	for rows.Next() {
		var c Card
		var lastReviewed sql.NullString
		if err := rows.Scan(&c.ID, &c.FolderID, &c.Front, &c.Back,
			&c.Correct, &c.Incorrect, &lastReviewed); err != nil {
			return nil, err
		}
		if lastReviewed.Valid {
			c.LastReviewed = lastReviewed.String
		}
		cards = append(cards, &c)
	}
	return cards, rows.Err()
}

// requireHit converts a zero-row UPDATE/DELETE into ErrNotFound.
func requireHit(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
