package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/marknote/internal/checksum"
	"github.com/starford/marknote/internal/notestore"
	"github.com/starford/marknote/internal/parser"
	"github.com/starford/marknote/internal/storage"
)

// Sync scans the notes directory and brings the index up to date:
//   - new/changed notes are parsed and upserted
//   - notes removed from disk are deleted from the index
func Sync(db NoteIndex, store storage.Provider, logger *slog.Logger) error {
	infos, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		disk[info.Title] = struct{}{}

		data, err := store.Read(info.Title)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("title", info.Title), slog.String("error", err.Error()))
			continue
		}
		if checksums[info.Title] == checksum.Sum(data) {
			continue
		}
		if err := IndexNote(db, info.Title, data, info.LastEditTime); err != nil {
			logger.Warn("sync: index failed", slog.String("title", info.Title), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("title", info.Title))
		}
	}

	for t := range checksums {
		if _, ok := disk[t]; !ok {
			if err := db.DeleteNote(t); err != nil {
				logger.Warn("sync: delete failed", slog.String("title", t), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("title", t))
			}
		}
	}

	return nil
}

// IndexNote parses data and upserts it under title.
func IndexNote(db NoteIndex, title string, data []byte, updated time.Time) error {
	res := parser.Parse(data)
	return db.UpsertNote(NoteRow{
		Title:     title,
		Heading:   res.Heading,
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		UpdatedAt: updated,
	}, res.Body)
}

// Indexer keeps the index in step with committed store mutations.
type Indexer struct {
	DB     NoteIndex
	Store  storage.Provider
	Logger *slog.Logger
	Now    func() time.Time
}

// NoteChanged implements notestore.Observer.
func (ix *Indexer) NoteChanged(_ context.Context, ev notestore.Event) {
	now := time.Now
	if ix.Now != nil {
		now = ix.Now
	}

	var err error
	switch ev.Kind {
	case notestore.EventCreated:
		err = IndexNote(ix.DB, ev.Title, nil, now())
	case notestore.EventSaved, notestore.EventReordered:
		err = IndexNote(ix.DB, ev.Title, []byte(ev.Content), now())
	case notestore.EventRenamed:
		err = ix.DB.RenameNote(ev.OldTitle, ev.Title)
	case notestore.EventDeleted:
		err = ix.DB.DeleteNote(ev.Title)
	case notestore.EventReloaded:
		if ix.Store != nil {
			err = Sync(ix.DB, ix.Store, ix.Logger)
		}
	default:
		return
	}
	if err != nil {
		ix.Logger.Warn("index: apply event failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("title", ev.Title),
			slog.String("error", err.Error()))
	}
}

var _ notestore.Observer = (*Indexer)(nil)
