package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/marknote/internal/storage"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type callbackLog struct {
	mu     sync.Mutex
	events []string
}

func (c *callbackLog) record(kind, title string) {
	c.mu.Lock()
	c.events = append(c.events, kind+":"+title)
	c.mu.Unlock()
}

func (c *callbackLog) has(ev string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == ev {
			return true
		}
	}
	return false
}

func startWatch(t *testing.T, db NoteIndex, fs *storage.FS, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, fs, quietLogger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	dir, fs := testNotes(t)
	db := testDB(t)
	log := &callbackLog{}
	startWatch(t, db, fs, log.record)

	_ = os.WriteFile(filepath.Join(dir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new")
		return cs != ""
	}, "new file not indexed by watcher")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:new")
	}, "expected created:new callback")
}

func TestWatcher_IgnoresTempAndSubdirs(t *testing.T) {
	dir, fs := testNotes(t)
	db := testDB(t)
	startWatch(t, db, fs, nil)

	_ = os.WriteFile(filepath.Join(dir, storage.TempPrefix+"123.md"), []byte("tmp"), 0o644)
	_ = os.MkdirAll(filepath.Join(dir, "sub"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "sub", "deep.md"), []byte("# Deep"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "marker.md"), []byte("# Marker"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("marker")
		return cs != ""
	}, "marker not indexed")

	all, _ := db.AllChecksums()
	if len(all) != 1 {
		t.Errorf("indexed = %v, want only marker", all)
	}
}

func TestWatcher_OwnWritesAreSilent(t *testing.T) {
	dir, fs := testNotes(t)
	db := testDB(t)
	log := &callbackLog{}

	content := []byte("# Mine")
	if err := IndexNote(db, "mine", content, time.Now()); err != nil {
		t.Fatal(err)
	}
	startWatch(t, db, fs, log.record)

	if err := fs.Write("mine", content); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(dir, "other.md"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:other")
	}, "expected created:other callback")
	if log.has("created:mine") || log.has("updated:mine") {
		t.Errorf("write already in the index reported as external: %v", log.events)
	}
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	dir, fs := testNotes(t)
	db := testDB(t)

	_ = os.WriteFile(filepath.Join(dir, "del.md"), []byte("# Delete Me"), 0o644)
	if err := Sync(db, fs, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("del"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	log := &callbackLog{}
	startWatch(t, db, fs, log.record)
	_ = os.Remove(filepath.Join(dir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del")
		return cs == "" && log.has("deleted:del")
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, fs := testNotes(t)
	db := testDB(t)

	_ = os.WriteFile(filepath.Join(dir, "old.md"), []byte("# Rename"), 0o644)
	if err := Sync(db, fs, quietLogger()); err != nil {
		t.Fatal(err)
	}

	startWatch(t, db, fs, nil)
	_ = os.Rename(filepath.Join(dir, "old.md"), filepath.Join(dir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old")
		newCS, _ := db.GetChecksum("renamed")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old title should be removed and new title indexed")
}

func TestNoteTitle(t *testing.T) {
	root := "/notes"
	cases := map[string]struct {
		title string
		ok    bool
	}{
		"/notes/a.md":                           {"a", true},
		"/notes/a.txt":                          {"", false},
		"/notes/sub/a.md":                       {"", false},
		"/notes/" + storage.TempPrefix + "1.md": {"", false},
	}
	for path, want := range cases {
		title, ok := noteTitle(root, path)
		if title != want.title || ok != want.ok {
			t.Errorf("noteTitle(%q) = %q, %v; want %q, %v", path, title, ok, want.title, want.ok)
		}
	}
}
