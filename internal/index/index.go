package index

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string) error
	RenameNote(oldTitle, newTitle string) error
	DeleteNote(title string) error
	GetChecksum(title string) (string, error)
	GetNote(title string) (*NoteRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)
