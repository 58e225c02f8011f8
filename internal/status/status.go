// Package status persists local message flags (read, archived) in SQLite.
package status

import (
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"github.com/civicinbox/inboxd/internal/inbox"
)

//go:embed schema.sql
var schema string

const defaultSQLiteParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

// Store persists message statuses in a SQLite database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Compile-time check that Store implements inbox.StatusStore.
var _ inbox.StatusStore = (*Store)(nil)

// Open opens or creates the status database at the given path and applies
// the schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, eris.Wrap(err, "create db directory")
	}

	db, err := sql.Open("sqlite3", dbPath+defaultSQLiteParams)
	if err != nil {
		return nil, eris.Wrap(err, "open status database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "ping status database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "apply status schema")
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns every persisted status, keyed by message id.
func (s *Store) Load() (map[string]inbox.Status, error) {
	rows, err := s.db.Query("SELECT message_id, is_read, is_archived FROM message_status")
	if err != nil {
		return nil, eris.Wrap(err, "query statuses")
	}
	defer rows.Close()

	out := make(map[string]inbox.Status)
	for rows.Next() {
		var id string
		var st inbox.Status
		if err := rows.Scan(&id, &st.IsRead, &st.IsArchived); err != nil {
			return nil, eris.Wrap(err, "scan status row")
		}
		out[id] = st
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate status rows")
	}
	return out, nil
}

// Put upserts one message's status.
func (s *Store) Put(id string, st inbox.Status) error {
	_, err := s.db.Exec(`
		INSERT INTO message_status (message_id, is_read, is_archived, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(message_id) DO UPDATE SET
			is_read = excluded.is_read,
			is_archived = excluded.is_archived,
			updated_at = excluded.updated_at`,
		id, st.IsRead, st.IsArchived)
	if err != nil {
		return eris.Wrapf(err, "put status %s", id)
	}
	return nil
}

// maxDeleteChunk bounds the number of bind parameters per DELETE statement.
const maxDeleteChunk = 500

// Delete removes the statuses of pruned messages.
func (s *Store) Delete(ids []string) error {
	for len(ids) > 0 {
		chunk := ids
		if len(chunk) > maxDeleteChunk {
			chunk = chunk[:maxDeleteChunk]
		}
		ids = ids[len(chunk):]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := "DELETE FROM message_status WHERE message_id IN (" + placeholders + ")"
		if _, err := s.db.Exec(query, args...); err != nil {
			return eris.Wrap(err, "delete statuses")
		}
	}
	return nil
}
