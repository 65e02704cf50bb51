package notestore

import "context"

// EventKind names a committed store mutation.
type EventKind string

const (
	EventCreated   EventKind = "note.created"
	EventSaved     EventKind = "note.saved"
	EventReordered EventKind = "note.reordered"
	EventRenamed   EventKind = "note.renamed"
	EventDeleted   EventKind = "note.deleted"
	EventSelected  EventKind = "note.selected"
	EventReloaded  EventKind = "notes.reloaded"
)

// Event describes one committed mutation. Content is set for saves and
// reorders. Title is empty when the selection was cleared.
type Event struct {
	Kind     EventKind `json:"kind"`
	Title    string    `json:"title,omitempty"`
	OldTitle string    `json:"old_title,omitempty"`
	Content  string    `json:"-"`
}

// Observer is notified synchronously, with the store lock held, after each
// mutation commits. Implementations must not call back into the Store.
type Observer interface {
	NoteChanged(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// NoteChanged calls f.
func (f ObserverFunc) NoteChanged(ctx context.Context, ev Event) { f(ctx, ev) }

func (s *Store) emit(ctx context.Context, ev Event) {
	for _, o := range s.observers {
		o.NoteChanged(ctx, ev)
	}
}
