// Package testutil provides shared test helpers for setting up
// repositories and databases.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/marknote/internal/dialog"
	"github.com/starford/marknote/internal/index"
	"github.com/starford/marknote/internal/repository"
	"github.com/starford/marknote/internal/rootdir"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRepository creates a repository pinned to a fresh temporary root.
func TestRepository(t *testing.T, caps dialog.Capabilities) (string, *repository.Repository) {
	t.Helper()
	dir := t.TempDir()
	res := rootdir.New(rootdir.Options{})
	if err := res.Set(dir); err != nil {
		t.Fatal(err)
	}
	return dir, repository.New(res, caps, nil)
}
