package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

const pointerKey = "last_active_session"

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed session store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		last_activity INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity);

	CREATE TABLE IF NOT EXISTS app_state (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Get retrieves a session record by key, or nil if absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &session, nil
}

// Set creates or overwrites the record under key.
func (s *SQLiteStore) Set(ctx context.Context, key string, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}

	query := `
	INSERT INTO sessions (key, data, last_activity) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		data = excluded.data,
		last_activity = excluded.last_activity`

	_, err = s.db.ExecContext(ctx, query, key, string(data), session.LastActivity.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Enumerate returns all persisted records keyed by session key.
func (s *SQLiteStore) Enumerate(ctx context.Context) (map[string]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, data FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make(map[string]*models.Session)
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		var session models.Session
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", key, err)
		}
		sessions[key] = &session
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// GetPointer returns the last-active session key, or "" if never set.
func (s *SQLiteStore) GetPointer(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM app_state WHERE k = ?`, pointerKey).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scan pointer row: %w", err)
	}
	return v, nil
}

// SetPointer records the last-active session key.
func (s *SQLiteStore) SetPointer(ctx context.Context, key string) error {
	query := `
	INSERT INTO app_state (k, v) VALUES (?, ?)
	ON CONFLICT(k) DO UPDATE SET v = excluded.v`

	if _, err := s.db.ExecContext(ctx, query, pointerKey, key); err != nil {
		return fmt.Errorf("upsert pointer: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
