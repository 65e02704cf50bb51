// Package storage implements the flat, title-keyed note directory.
package storage

import "github.com/starford/marknote/internal/models"

// Provider is the interface for note file operations. Every method takes a
// title, never a path; the provider owns the mapping to <root>/<title>.md.
type Provider interface {
	// Root returns the absolute directory the provider is confined to.
	Root() string
	// List returns metadata for every note file directly under the root.
	List() ([]models.NoteInfo, error)
	// Stat returns metadata for a single note.
	Stat(title string) (models.NoteInfo, error)
	// Read returns the raw bytes of a note.
	Read(title string) ([]byte, error)
	// Write atomically replaces the content of a note, creating it if needed.
	Write(title string, content []byte) error
	// Create writes a new note and fails with fs.ErrExist if one is present.
	Create(title string, content []byte) error
	// Delete removes a note.
	Delete(title string) error
	// Move renames a note without ever replacing an existing target.
	Move(oldTitle, newTitle string) error
}
