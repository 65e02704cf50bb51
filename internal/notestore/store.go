// Package notestore keeps the ordered note list and the selection pointer
// in memory, consistent with what the repository has committed to disk.
//
// The list is loaded once and afterwards updated in place by each mutation's
// own result. It is always sorted by LastEditTime, newest first. The
// selection is either none or a valid index into the current list.
package notestore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/marknote/internal/apperr"
	"github.com/starford/marknote/internal/blocks"
	"github.com/starford/marknote/internal/checksum"
	"github.com/starford/marknote/internal/models"
	"github.com/starford/marknote/internal/repository"
)

// NoSelection is the selection index when no note is open.
const NoSelection = -1

// Repository is the durable side of the store.
type Repository interface {
	List(ctx context.Context) ([]models.NoteInfo, error)
	Read(ctx context.Context, title string) (string, error)
	Write(ctx context.Context, title, content string) error
	Create(ctx context.Context, title string) (string, repository.Outcome)
	Rename(ctx context.Context, oldTitle, newTitle string) repository.Outcome
	Delete(ctx context.Context, title string) repository.Outcome
}

// Recorder receives the duration and result of every store operation.
type Recorder interface {
	ObserveOperation(op, status string, elapsed time.Duration)
}

// Store is the reactive projection of the notes directory.
type Store struct {
	repo      Repository
	now       func() time.Time
	observers []Observer
	recorder  Recorder
	logger    *slog.Logger

	mu       sync.Mutex
	notes    []models.NoteInfo
	selected int
	loaded   bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used to stamp created and saved notes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithObservers registers observers notified after every committed mutation.
func WithObservers(obs ...Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, obs...) }
}

// WithRecorder sets the operation recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store over repo. Nothing is read until the first call.
func New(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		now:      time.Now,
		logger:   slog.Default(),
		selected: NoSelection,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Notes returns a copy of the ordered list, loading it on first use.
func (s *Store) Notes(ctx context.Context) ([]models.NoteInfo, error) {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		s.record("list", start, err)
		return nil, err
	}
	s.record("list", start, nil)
	return s.snapshot(), nil
}

// Select opens the note at index.
func (s *Store) Select(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if index < 0 || index >= len(s.notes) {
		return fmt.Errorf("notestore: select %d of %d: %w", index, len(s.notes), apperr.ErrValidation)
	}
	s.selected = index
	s.emit(ctx, Event{Kind: EventSelected, Title: s.notes[index].Title})
	return nil
}

// ClearSelection closes the open note, if any.
func (s *Store) ClearSelection(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == NoSelection {
		return
	}
	s.selected = NoSelection
	s.emit(ctx, Event{Kind: EventSelected})
}

// Selection returns the selected index and whether there is one.
func (s *Store) Selection() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != NoSelection
}

// SelectedNote reads the selected note. It returns nil without error when
// nothing is selected.
func (s *Store) SelectedNote(ctx context.Context) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == NoSelection {
		return nil, nil
	}
	info := s.notes[s.selected]
	content, err := s.repo.Read(ctx, info.Title)
	if err != nil {
		return nil, fmt.Errorf("notestore: read selected: %w", err)
	}
	return &models.Note{NoteInfo: info, Content: content}, nil
}

// CreateEmpty creates an empty note and selects it. On anything but
// Success the list and selection are left as they were.
func (s *Store) CreateEmpty(ctx context.Context, title string) (models.NoteInfo, repository.Outcome) {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		out := repository.Outcome{Status: repository.Failed, Err: err}
		s.recordOutcome("create", start, out)
		return models.NoteInfo{}, out
	}

	created, out := s.repo.Create(ctx, title)
	s.recordOutcome("create", start, out)
	if !out.OK() {
		return models.NoteInfo{}, out
	}

	info := models.NoteInfo{Title: created, LastEditTime: s.now()}
	kept := make([]models.NoteInfo, 0, len(s.notes)+1)
	kept = append(kept, info)
	for _, n := range s.notes {
		if n.Title != created {
			kept = append(kept, n)
		}
	}
	s.notes = kept
	s.resort()
	s.selected = s.indexOf(created)

	s.emit(ctx, Event{Kind: EventCreated, Title: created})
	return info, out
}

// Rename gives the selected note a new title. Its position and
// LastEditTime do not change.
func (s *Store) Rename(ctx context.Context, newTitle string) repository.Outcome {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == NoSelection {
		out := repository.Outcome{Status: repository.Failed, Err: fmt.Errorf("notestore: rename: %w", apperr.ErrNoSelection)}
		s.recordOutcome("rename", start, out)
		return out
	}
	old := s.notes[s.selected].Title
	if newTitle == old {
		s.recordOutcome("rename", start, repository.Outcome{})
		return repository.Outcome{Status: repository.Success}
	}

	out := s.repo.Rename(ctx, old, newTitle)
	s.recordOutcome("rename", start, out)
	if !out.OK() {
		return out
	}
	s.notes[s.selected].Title = newTitle
	s.emit(ctx, Event{Kind: EventRenamed, Title: newTitle, OldTitle: old})
	return out
}

// Delete removes the selected note after confirmation and clears the
// selection.
func (s *Store) Delete(ctx context.Context) repository.Outcome {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == NoSelection {
		out := repository.Outcome{Status: repository.Failed, Err: fmt.Errorf("notestore: delete: %w", apperr.ErrNoSelection)}
		s.recordOutcome("delete", start, out)
		return out
	}
	title := s.notes[s.selected].Title

	out := s.repo.Delete(ctx, title)
	s.recordOutcome("delete", start, out)
	if !out.OK() {
		return out
	}
	s.notes = append(s.notes[:s.selected:s.selected], s.notes[s.selected+1:]...)
	s.selected = NoSelection
	s.emit(ctx, Event{Kind: EventDeleted, Title: title})
	return out
}

// Save overwrites the selected note, stamps it with the current time and
// moves the selection to wherever the note lands in the resorted list.
func (s *Store) Save(ctx context.Context, content string) (models.NoteInfo, error) {
	return s.SaveIfMatch(ctx, content, "")
}

// SaveIfMatch is Save guarded by a checksum of the content on disk. A
// non-empty ifMatch (bare or ETag-quoted) that differs from the current
// checksum is ErrConflict and nothing is written.
func (s *Store) SaveIfMatch(ctx context.Context, content, ifMatch string) (models.NoteInfo, error) {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == NoSelection {
		err := fmt.Errorf("notestore: save: %w", apperr.ErrNoSelection)
		s.record("save", start, err)
		return models.NoteInfo{}, err
	}
	if checksum.Normalize(ifMatch) != "" {
		current, err := s.repo.Read(ctx, s.notes[s.selected].Title)
		if err != nil {
			err = fmt.Errorf("notestore: save: %w", err)
			s.record("save", start, err)
			return models.NoteInfo{}, err
		}
		if !checksum.Matches(current, ifMatch) {
			err := fmt.Errorf("notestore: save %q: %w", s.notes[s.selected].Title, apperr.ErrConflict)
			s.record("save", start, err)
			return models.NoteInfo{}, err
		}
	}

	info, err := s.saveLocked(ctx, content, EventSaved)
	s.record("save", start, err)
	return info, err
}

func (s *Store) saveLocked(ctx context.Context, content string, kind EventKind) (models.NoteInfo, error) {
	title := s.notes[s.selected].Title
	if err := s.repo.Write(ctx, title, content); err != nil {
		return models.NoteInfo{}, fmt.Errorf("notestore: save: %w", err)
	}
	s.notes[s.selected].LastEditTime = s.now()
	info := s.notes[s.selected]
	s.resort()
	s.selected = s.indexOf(title)

	s.emit(ctx, Event{Kind: kind, Title: title, Content: content})
	return info, nil
}

// Blocks segments the selected note.
func (s *Store) Blocks(ctx context.Context) ([]blocks.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == NoSelection {
		return nil, fmt.Errorf("notestore: blocks: %w", apperr.ErrNoSelection)
	}
	content, err := s.repo.Read(ctx, s.notes[s.selected].Title)
	if err != nil {
		return nil, fmt.Errorf("notestore: blocks: %w", err)
	}
	return blocks.Segment(content), nil
}

// Reorder moves one block of the selected note and saves the result. It
// reports false, writing nothing, when the move is a no-op.
func (s *Store) Reorder(ctx context.Context, from, to int) (bool, error) {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == NoSelection {
		err := fmt.Errorf("notestore: reorder: %w", apperr.ErrNoSelection)
		s.record("reorder", start, err)
		return false, err
	}
	content, err := s.repo.Read(ctx, s.notes[s.selected].Title)
	if err != nil {
		err = fmt.Errorf("notestore: reorder: %w", err)
		s.record("reorder", start, err)
		return false, err
	}
	moved, ok := blocks.Move(content, from, to)
	if !ok {
		s.record("reorder", start, nil)
		return false, nil
	}
	_, err = s.saveLocked(ctx, moved, EventReordered)
	s.record("reorder", start, err)
	return err == nil, err
}

// Reload re-reads the list from disk. The selection follows the previously
// selected title or is cleared if that note is gone.
func (s *Store) Reload(ctx context.Context) error {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var title string
	if s.selected != NoSelection {
		title = s.notes[s.selected].Title
	}
	notes, err := s.repo.List(ctx)
	if err != nil {
		err = fmt.Errorf("notestore: reload: %w", err)
		s.record("reload", start, err)
		return err
	}
	s.notes = notes
	s.loaded = true
	s.resort()
	s.selected = NoSelection
	if title != "" {
		s.selected = s.indexOf(title)
	}
	s.record("reload", start, nil)
	s.emit(ctx, Event{Kind: EventReloaded})
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	notes, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("notestore: load: %w", err)
	}
	s.notes = notes
	s.loaded = true
	s.resort()
	s.logger.Debug("notes loaded", slog.Int("count", len(notes)))
	return nil
}

func (s *Store) resort() {
	sort.SliceStable(s.notes, func(i, j int) bool {
		return s.notes[i].LastEditTime.After(s.notes[j].LastEditTime)
	})
}

func (s *Store) indexOf(title string) int {
	for i, n := range s.notes {
		if n.Title == title {
			return i
		}
	}
	return NoSelection
}

func (s *Store) snapshot() []models.NoteInfo {
	out := make([]models.NoteInfo, len(s.notes))
	copy(out, s.notes)
	return out
}

func (s *Store) record(op string, start time.Time, err error) {
	status := repository.Success
	if err != nil {
		status = repository.Failed
	}
	s.recordOutcome(op, start, repository.Outcome{Status: status, Err: err})
}

func (s *Store) recordOutcome(op string, start time.Time, out repository.Outcome) {
	if out.Status == repository.Failed {
		s.logger.Warn("note operation failed", slog.String("op", op), slog.Any("error", out.Err))
	}
	if s.recorder != nil {
		s.recorder.ObserveOperation(op, out.Status.String(), s.now().Sub(start))
	}
}
