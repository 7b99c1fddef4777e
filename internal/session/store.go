// Package session persists conversation history per student session.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/muqeet1001/shikshasetu/pkg/types"
)

// Store persists sessions to a SQLite database
type Store struct {
	db         *sql.DB
	maxHistory int
}

// NewStore opens (or creates) the session database at dbPath. History
// is trimmed to maxHistory messages per session on save; maxHistory <= 0
// keeps everything.
func NewStore(dbPath string, maxHistory int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrent write performance
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			profile TEXT NOT NULL DEFAULT '',
			messages TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db, maxHistory: maxHistory}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save persists a session (upsert). The stored profile excludes the
// message history, which lives in its own column.
func (s *Store) Save(id string, profile *types.StudentContext, messages []types.Message) error {
	if s.maxHistory > 0 && len(messages) > s.maxHistory {
		messages = messages[len(messages)-s.maxHistory:]
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	profileJSON := ""
	if profile != nil {
		p := *profile
		p.PreviousMessages = nil
		raw, err := json.Marshal(&p)
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}
		profileJSON = string(raw)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (id, profile, messages, updated_at)
		VALUES (?, ?, ?, ?)
	`, id, profileJSON, string(data), time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Load retrieves a session. An unknown id returns nil values without an
// error.
func (s *Store) Load(id string) (*types.StudentContext, []types.Message, error) {
	var profileJSON, messagesJSON string

	err := s.db.QueryRow(`
		SELECT profile, messages FROM sessions WHERE id = ?
	`, id).Scan(&profileJSON, &messagesJSON)

	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}

	var messages []types.Message
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}

	var profile *types.StudentContext
	if profileJSON != "" {
		profile = &types.StudentContext{}
		if err := json.Unmarshal([]byte(profileJSON), profile); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal profile: %w", err)
		}
	}

	return profile, messages, nil
}

// Append adds a student/counselor exchange to a session's history and
// saves it in one step.
func (s *Store) Append(id string, profile *types.StudentContext, question, answer types.Message) error {
	_, messages, err := s.Load(id)
	if err != nil {
		return err
	}
	messages = append(messages, question, answer)
	return s.Save(id, profile, messages)
}

// Delete removes a session
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListIDs returns all session ids, most recently updated first
func (s *Store) ListIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DefaultDBPath returns the default database path
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".shikshasetu", "sessions.db")
}
