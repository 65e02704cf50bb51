// Package models defines the domain types for MarkNote.
package models

import "time"

// NoteExt is the extension every note file carries.
const NoteExt = ".md"

// NoteInfo is the list-level view of a note. Title is the file name
// without NoteExt and is unique within the root directory.
type NoteInfo struct {
	Title        string    `json:"title"`
	LastEditTime time.Time `json:"last_edit_time"`
}

// Note is a NoteInfo hydrated with its content. Only the selected note is
// ever materialized.
type Note struct {
	NoteInfo
	Content string `json:"content"`
}

// FileName returns the on-disk name for a title.
func FileName(title string) string {
	return title + NoteExt
}
