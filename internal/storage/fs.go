package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/marknote/internal/models"
)

// TempPrefix marks in-flight atomic writes. Watchers should ignore it.
const TempPrefix = ".marknote-tmp-"

// ErrInvalidTitle is returned for titles that cannot map to a file directly
// under the root.
var ErrInvalidTitle = errors.New("invalid title")

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the notes directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Open creates root if it is missing and returns a provider for it.
func Open(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return NewFS(root)
}

// Root returns the absolute notes directory.
func (f *FS) Root() string {
	return f.root
}

// notePath maps a title to <root>/<title>.md and rejects any title that would
// land outside the flat root (separators, traversal, empty names).
func (f *FS) notePath(title string) (string, error) {
	if title == "" || title == "." || title == ".." {
		return "", fmt.Errorf("storage: %w: %q", ErrInvalidTitle, title)
	}
	if strings.ContainsAny(title, `/\`) || strings.ContainsRune(title, os.PathSeparator) {
		return "", fmt.Errorf("storage: %w: path separator in %q", ErrInvalidTitle, title)
	}
	abs := filepath.Join(f.root, models.FileName(title))
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("storage: %w: %q escapes notes root", ErrInvalidTitle, title)
	}
	return abs, nil
}

// List returns metadata for every .md file directly under the root.
// Subdirectories are not traversed.
func (f *FS) List() ([]models.NoteInfo, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := make([]models.NoteInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, models.NoteExt) || strings.HasPrefix(name, TempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between ReadDir and Info.
				continue
			}
			return nil, fmt.Errorf("storage: stat %s: %w", name, err)
		}
		out = append(out, models.NoteInfo{
			Title:        strings.TrimSuffix(name, models.NoteExt),
			LastEditTime: info.ModTime(),
		})
	}
	return out, nil
}

// Stat returns metadata for a single note.
func (f *FS) Stat(title string) (models.NoteInfo, error) {
	abs, err := f.notePath(title)
	if err != nil {
		return models.NoteInfo{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.NoteInfo{}, fmt.Errorf("storage: stat %s: %w", title, err)
	}
	return models.NoteInfo{Title: title, LastEditTime: info.ModTime()}, nil
}

// Read returns the raw bytes of a note.
func (f *FS) Read(title string) ([]byte, error) {
	abs, err := f.notePath(title)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", title, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(title string, content []byte) error {
	abs, err := f.notePath(title)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Create writes a new note with O_EXCL semantics.
func (f *FS) Create(title string, content []byte) error {
	abs, err := f.notePath(title)
	if err != nil {
		return err
	}
	fh, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", title, err)
	}
	if _, err := fh.Write(content); err != nil {
		_ = fh.Close()
		return fmt.Errorf("storage: create %s: %w", title, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("storage: create %s: %w", title, err)
	}
	return nil
}

// Delete removes a note.
func (f *FS) Delete(title string) error {
	abs, err := f.notePath(title)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", title, err)
	}
	return nil
}

// Move renames a note. The target is never replaced: a hard link claims the
// new name atomically (failing with fs.ErrExist if taken) before the old name
// is dropped. File systems without hard links fall back to stat + rename.
func (f *FS) Move(oldTitle, newTitle string) error {
	absOld, err := f.notePath(oldTitle)
	if err != nil {
		return err
	}
	absNew, err := f.notePath(newTitle)
	if err != nil {
		return err
	}
	if absOld == absNew {
		return fmt.Errorf("storage: move %s: %w", oldTitle, fs.ErrExist)
	}
	if _, err := os.Lstat(absOld); err != nil {
		return fmt.Errorf("storage: move %s: %w", oldTitle, err)
	}

	linkErr := os.Link(absOld, absNew)
	switch {
	case linkErr == nil:
		if err := os.Remove(absOld); err != nil {
			_ = os.Remove(absNew)
			return fmt.Errorf("storage: move %s: %w", oldTitle, err)
		}
		return nil
	case errors.Is(linkErr, fs.ErrExist):
		return fmt.Errorf("storage: move %s: %w", oldTitle, fs.ErrExist)
	}

	if _, err := os.Lstat(absNew); err == nil {
		return fmt.Errorf("storage: move %s: %w", oldTitle, fs.ErrExist)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

var _ Provider = (*FS)(nil)
