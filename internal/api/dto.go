package api

import (
	"time"

	"github.com/starford/marknote/internal/blocks"
	"github.com/starford/marknote/internal/index"
	"github.com/starford/marknote/internal/models"
)

// CreateNoteRequest is the request body for creating a note. Without a
// title, Path answers the save dialog; without either the dialog is
// cancelled.
type CreateNoteRequest struct {
	Title string `json:"title,omitempty" example:"Ideas"`
	Path  string `json:"path,omitempty" example:"/home/me/MarkNote/Ideas.md"`
}

// SelectRequest selects a note by list index; a null index clears the
// selection.
type SelectRequest struct {
	Index *int `json:"index"`
}

// SaveRequest is the request body for saving the selected note.
type SaveRequest struct {
	Content *string `json:"content" validate:"required"`
}

// RenameRequest is the request body for renaming the selected note.
type RenameRequest struct {
	Title string `json:"title" example:"Renamed" validate:"required"`
}

// ReorderRequest moves one block of the selected note.
type ReorderRequest struct {
	From *int `json:"from" validate:"required"`
	To   *int `json:"to" validate:"required"`
}

// NoteListResponse is the ordered note list plus the selection.
type NoteListResponse struct {
	Notes    []models.NoteInfo `json:"notes" validate:"required"`
	Selected *int              `json:"selected"`
}

// NoteResponse is the selected note with its content checksum.
type NoteResponse struct {
	Title        string    `json:"title"`
	LastEditTime time.Time `json:"last_edit_time"`
	Content      string    `json:"content"`
	Checksum     string    `json:"checksum"`
	Index        int       `json:"index"`
}

// OutcomeResponse reports the result of create, rename and delete.
type OutcomeResponse struct {
	Status   string           `json:"status" example:"success"`
	Note     *models.NoteInfo `json:"note,omitempty"`
	Selected *int             `json:"selected"`
}

// BlocksResponse lists the blocks of the selected note.
type BlocksResponse struct {
	Blocks []blocks.Block `json:"blocks"`
}

// ReorderResponse reports whether a reorder changed the note.
type ReorderResponse struct {
	Moved  bool           `json:"moved"`
	Blocks []blocks.Block `json:"blocks"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
