//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			title,
			heading,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, title, heading, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE title = ?`, title)
	_, err := tx.Exec(`INSERT INTO notes_fts (title, heading, body, tags) VALUES (?, ?, ?, ?)`,
		title, heading, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsRename(tx *sql.Tx, oldTitle, newTitle string) error {
	if _, err := tx.Exec(`UPDATE notes_fts SET title = ? WHERE title = ?`, newTitle, oldTitle); err != nil {
		return fmt.Errorf("index: rename fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, title string) {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE title = ?`, title)
}

// matchQuery turns free text into an FTS5 expression: every term is quoted
// so punctuation is never parsed as query syntax, and the last term matches
// as a prefix so search-as-you-type works.
func matchQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	if n := len(terms); n > 0 {
		terms[n-1] += "*"
	}
	return strings.Join(terms, " ")
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	match := matchQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT title,
		       heading,
		       snippet(notes_fts, 2, '<b>', '</b>', '...', 64)
		FROM notes_fts
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Title, &r.Heading, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
