// Package repository implements note CRUD keyed by title inside the resolved
// root directory. It is stateless apart from the storage handle for the
// current root and is the only layer that prompts the user.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/marknote/internal/apperr"
	"github.com/starford/marknote/internal/dialog"
	"github.com/starford/marknote/internal/models"
	"github.com/starford/marknote/internal/storage"
)

// DefaultNewTitle is offered by the save dialog when no title is given.
const DefaultNewTitle = "Untitled"

// RootResolver yields the notes root directory.
type RootResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Repository implements the note CRUD contract.
type Repository struct {
	resolver RootResolver
	caps     dialog.Capabilities
	logger   *slog.Logger

	mu    sync.Mutex
	store *storage.FS
}

// New creates a Repository. Nil capabilities get headless defaults.
func New(resolver RootResolver, caps dialog.Capabilities, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		resolver: resolver,
		caps:     caps.WithDefaults(logger),
		logger:   logger,
	}
}

// provider returns storage for the current root, creating the directory if
// it has gone missing.
func (r *Repository) provider(ctx context.Context) (*storage.FS, error) {
	root, err := r.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil || r.store.Root() != root {
		s, err := storage.Open(root)
		if err != nil {
			return nil, fmt.Errorf("repository: %w: %w", apperr.ErrIO, err)
		}
		r.store = s
	}
	return r.store, nil
}

// Root returns the resolved notes directory.
func (r *Repository) Root(ctx context.Context) (string, error) {
	s, err := r.provider(ctx)
	if err != nil {
		return "", err
	}
	return s.Root(), nil
}

// List returns every note directly under the root. An empty directory is
// seeded with the welcome note first.
func (r *Repository) List(ctx context.Context) ([]models.NoteInfo, error) {
	s, err := r.provider(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.List()
	if err != nil {
		return nil, wrap("list", err)
	}
	if len(notes) > 0 {
		return notes, nil
	}

	if err := s.Write(WelcomeTitle, []byte(WelcomeContent)); err != nil {
		return nil, wrap("seed welcome note", err)
	}
	info, err := s.Stat(WelcomeTitle)
	if err != nil {
		return nil, wrap("seed welcome note", err)
	}
	r.logger.Info("seeded welcome note", slog.String("root", s.Root()))
	return []models.NoteInfo{info}, nil
}

// Read returns a note's content.
func (r *Repository) Read(ctx context.Context, title string) (string, error) {
	s, err := r.provider(ctx)
	if err != nil {
		return "", err
	}
	data, err := s.Read(title)
	if err != nil {
		return "", wrap("read "+title, err)
	}
	return string(data), nil
}

// Write replaces a note's content.
func (r *Repository) Write(ctx context.Context, title, content string) error {
	s, err := r.provider(ctx)
	if err != nil {
		return err
	}
	if err := s.Write(title, []byte(content)); err != nil {
		return wrap("write "+title, err)
	}
	return nil
}

// Stat returns the on-disk metadata of one note.
func (r *Repository) Stat(ctx context.Context, title string) (models.NoteInfo, error) {
	s, err := r.provider(ctx)
	if err != nil {
		return models.NoteInfo{}, err
	}
	info, err := s.Stat(title)
	if err != nil {
		return models.NoteInfo{}, wrap("stat "+title, err)
	}
	return info, nil
}

// Create makes an empty note and returns its title.
//
// With a title, an existing note of that name is never touched and the
// outcome is Failed(ErrAlreadyExists). Without one, the save dialog is
// asked for a path; it must name a file directly inside the root, and
// choosing an existing file overwrites it.
func (r *Repository) Create(ctx context.Context, title string) (string, Outcome) {
	s, err := r.provider(ctx)
	if err != nil {
		return "", failed(err)
	}

	if title != "" {
		if err := s.Create(title, nil); err != nil {
			return "", failed(wrap("create "+title, err))
		}
		r.logger.Debug("note created", slog.String("title", title))
		return title, succeeded()
	}

	def := filepath.Join(s.Root(), models.FileName(DefaultNewTitle))
	picked, ok, err := r.caps.SavePath.PickSavePath(ctx, def)
	if err != nil {
		return "", failed(fmt.Errorf("repository: pick save path: %w", err))
	}
	if !ok || picked == "" {
		return "", declined()
	}

	title, err = r.titleFromPath(s.Root(), picked)
	if err != nil {
		r.caps.Notify.NotifyError(ctx, "Notes must be saved directly inside "+s.Root()+". Please choose a location in that folder.")
		return "", failed(err)
	}
	if err := s.Write(title, nil); err != nil {
		return "", failed(wrap("create "+title, err))
	}
	r.logger.Debug("note created", slog.String("title", title), slog.String("path", picked))
	return title, succeeded()
}

// titleFromPath accepts only paths whose parent is exactly root.
func (r *Repository) titleFromPath(root, picked string) (string, error) {
	abs, err := filepath.Abs(picked)
	if err != nil {
		return "", fmt.Errorf("repository: resolve %s: %w", picked, apperr.ErrValidation)
	}
	if filepath.Dir(abs) != filepath.Clean(root) {
		return "", fmt.Errorf("repository: %s is outside %s: %w", picked, root, apperr.ErrValidation)
	}
	title := strings.TrimSuffix(filepath.Base(abs), models.NoteExt)
	if title == "" {
		return "", fmt.Errorf("repository: empty file name: %w", apperr.ErrValidation)
	}
	return title, nil
}

// Rename moves oldTitle to newTitle. It fails, leaving both files as they
// were, when the source is missing or the target exists.
func (r *Repository) Rename(ctx context.Context, oldTitle, newTitle string) Outcome {
	s, err := r.provider(ctx)
	if err != nil {
		return failed(err)
	}
	if err := s.Move(oldTitle, newTitle); err != nil {
		err = wrap("rename "+oldTitle, err)
		r.logger.Debug("rename failed", slog.String("from", oldTitle), slog.String("to", newTitle), slog.String("error", err.Error()))
		return failed(err)
	}
	r.logger.Debug("note renamed", slog.String("from", oldTitle), slog.String("to", newTitle))
	return succeeded()
}

// Delete removes a note after explicit confirmation. Anything other than a
// yes is Declined and performs no I/O.
func (r *Repository) Delete(ctx context.Context, title string) Outcome {
	yes, err := r.caps.Confirm.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete %q?", title))
	if err != nil {
		return failed(fmt.Errorf("repository: confirm delete: %w", err))
	}
	if !yes {
		return declined()
	}
	s, err := r.provider(ctx)
	if err != nil {
		return failed(err)
	}
	if err := s.Delete(title); err != nil {
		return failed(wrap("delete "+title, err))
	}
	r.logger.Debug("note deleted", slog.String("title", title))
	return succeeded()
}

// wrap tags a storage error with the matching sentinel while keeping the
// original in the chain.
func wrap(op string, err error) error {
	var kind error
	switch {
	case errors.Is(err, storage.ErrInvalidTitle):
		kind = apperr.ErrValidation
	case errors.Is(err, fs.ErrNotExist):
		kind = apperr.ErrNotFound
	case errors.Is(err, fs.ErrExist):
		kind = apperr.ErrAlreadyExists
	default:
		kind = apperr.ErrIO
	}
	return fmt.Errorf("repository: %s: %w: %w", op, kind, err)
}
