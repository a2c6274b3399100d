package localstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a small key-value settings store backed by SQLite. Values are
// opaque JSON blobs; last write wins.
type Store struct {
	db *sql.DB
}

// Well-known settings keys. The names match the blobs the mobile app kept in
// device storage so an exported settings file can be imported as-is.
const (
	KeyDeviceLimits   = "deviceLimits"
	KeyVisibleDevices = "visibleDevices"
	KeyDeviceList     = "deviceList"
	KeyPanelSettings  = "panelSettings"
	KeyIncomeHistory  = "tulosHistory"
)

// Open opens (and if needed creates) the settings database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("localstore: path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate settings db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the raw JSON stored under key, or ok=false when absent.
func (s *Store) Get(key string) (json.RawMessage, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// Set stores the raw JSON under key, replacing any previous value.
func (s *Store) Set(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("set %q: value is not valid JSON", key)
	}
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, key, string(value))
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
