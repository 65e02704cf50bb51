package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/marknote/internal/checksum"
	"github.com/starford/marknote/internal/models"
	"github.com/starford/marknote/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, title string)

// Watch starts an fsnotify watcher on the notes root and processes file
// change events until ctx is cancelled. Only notes directly under the root
// are considered; subdirectories and in-flight temp files are ignored.
//
// Events whose content already matches the index (the store's own writes,
// indexed synchronously by Indexer) do not reach cb, so cb only sees
// edits made outside the process.
func Watch(ctx context.Context, db NoteIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			title, ok := noteTitle(root, ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
					continue
				}
				kind, changed := reindex(db, store, title, logger)
				if changed && cb != nil {
					cb(kind, title)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old name only; the new name
				// arrives as a Create, and reconcile catches moves that
				// leave the directory.
				if removed := forget(db, title, logger); removed && cb != nil {
					cb("deleted", title)
				}
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// noteTitle maps an event path to a title when it names a note file
// directly under root.
func noteTitle(root, path string) (string, bool) {
	if filepath.Dir(path) != filepath.Clean(root) {
		return "", false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, storage.TempPrefix) || strings.HasPrefix(base, ".") {
		return "", false
	}
	if !strings.HasSuffix(base, models.NoteExt) {
		return "", false
	}
	return strings.TrimSuffix(base, models.NoteExt), true
}

// reindex indexes title if its content differs from the index. It reports
// the kind of change and whether anything changed.
func reindex(db NoteIndex, store storage.Provider, title string, logger *slog.Logger) (string, bool) {
	data, err := store.Read(title)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("title", title), slog.String("error", err.Error()))
		return "", false
	}
	prev, err := db.GetChecksum(title)
	if err != nil {
		logger.Warn("watcher: checksum failed", slog.String("title", title), slog.String("error", err.Error()))
		return "", false
	}
	if prev == checksum.Sum(data) {
		return "", false
	}
	mtime := time.Now()
	if info, err := store.Stat(title); err == nil {
		mtime = info.LastEditTime
	}
	if err := IndexNote(db, title, data, mtime); err != nil {
		logger.Warn("watcher: index failed", slog.String("title", title), slog.String("error", err.Error()))
		return "", false
	}
	kind := "updated"
	if prev == "" {
		kind = "created"
	}
	logger.Debug("watcher: indexed", slog.String("title", title), slog.String("op", kind))
	return kind, true
}

// forget removes title from the index if it is indexed.
func forget(db NoteIndex, title string, logger *slog.Logger) bool {
	prev, err := db.GetChecksum(title)
	if err != nil || prev == "" {
		return false
	}
	if err := db.DeleteNote(title); err != nil {
		logger.Warn("watcher: delete failed", slog.String("title", title), slog.String("error", err.Error()))
		return false
	}
	logger.Debug("watcher: deleted", slog.String("title", title))
	return true
}

// reconcile removes index entries without a file on disk and indexes files
// that are missing from the index.
func reconcile(db NoteIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	infos, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		disk[info.Title] = struct{}{}
	}

	for t := range checksums {
		if _, ok := disk[t]; ok {
			continue
		}
		if forget(db, t, logger) && cb != nil {
			cb("deleted", t)
		}
	}
	for t := range disk {
		if _, ok := checksums[t]; ok {
			continue
		}
		if kind, changed := reindex(db, store, t, logger); changed && cb != nil {
			cb(kind, t)
		}
	}
}
