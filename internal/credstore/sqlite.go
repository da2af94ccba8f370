package credstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/robby/taskdeck/internal/domain"
)

// SQLiteStore keeps the entries in a kv table. It suits setups that already
// keep other client state in a local database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at dbPath and ensures the kv table exists.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save implements Store. Both entries are written in one transaction.
func (s *SQLiteStore) Save(token string, principal domain.Principal) error {
	user, err := encodePrincipal(principal)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.Exec(upsert, KeyToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if _, err := tx.Exec(upsert, KeyUser, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return tx.Commit()
}

// Load implements Store.
func (s *SQLiteStore) Load() (string, domain.Principal, error) {
	rows, err := s.db.Query(`SELECT key, value FROM kv WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return "", domain.Principal{}, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return "", domain.Principal{}, fmt.Errorf("scan credentials: %w", err)
		}
		entries[k] = v
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", domain.Principal{}, fmt.Errorf("load credentials: %w", err)
	}
	return decodeEntries(entries)
}

// Clear implements Store.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key IN (?, ?)`, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
