package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Title     string
	Heading   string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Heading string `json:"heading,omitempty"`
	Snippet string `json:"snippet"`
}

// UpsertNote inserts or replaces a note and its FTS entry within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO notes (title, heading, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET
			heading    = excluded.heading,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Title, n.Heading, n.Checksum, string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, n.Title, n.Heading, body, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// RenameNote moves an indexed note to a new title, replacing any row
// already stored under newTitle.
func (db *DB) RenameNote(oldTitle, newTitle string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, newTitle)
	_, _ = tx.Exec(`DELETE FROM notes WHERE title = ?`, newTitle)
	if _, err := tx.Exec(`UPDATE notes SET title = ? WHERE title = ?`, newTitle, oldTitle); err != nil {
		return fmt.Errorf("index: rename note: %w", err)
	}
	if err := ftsRename(tx, oldTitle, newTitle); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNote removes a note and its FTS entry.
func (db *DB) DeleteNote(title string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, title)
	if _, err := tx.Exec(`DELETE FROM notes WHERE title = ?`, title); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not indexed.
func (db *DB) GetChecksum(title string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE title = ?`, title).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetNote returns one indexed row, or nil when the title is not indexed.
func (db *DB) GetNote(title string) (*NoteRow, error) {
	var (
		n        NoteRow
		tagsJSON string
	)
	err := db.conn.QueryRow(`SELECT title, heading, checksum, tags, updated_at FROM notes WHERE title = ?`, title).
		Scan(&n.Title, &n.Heading, &n.Checksum, &tagsJSON, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	return &n, nil
}

// AllChecksums returns every indexed title mapped to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT title, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var t, cs string
		if err := rows.Scan(&t, &cs); err != nil {
			return nil, err
		}
		out[t] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed notes.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
