// Package dialog defines the interactive capabilities the note core consumes
// from its host: directory and save-path pickers, delete confirmation and
// user-visible error notification. A cancelled pick or a declined
// confirmation is a normal result, never an error.
package dialog

import (
	"context"
	"log/slog"
)

// DirectoryPicker asks the user for a directory. ok is false on cancel.
type DirectoryPicker interface {
	PickDirectory(ctx context.Context, defaultPath string) (path string, ok bool, err error)
}

// SavePathPicker asks the user where to save a new file. ok is false on cancel.
type SavePathPicker interface {
	PickSavePath(ctx context.Context, defaultPath string) (path string, ok bool, err error)
}

// Confirmer asks a yes/no question. Only an explicit yes returns true.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Notifier surfaces an error message to the user.
type Notifier interface {
	NotifyError(ctx context.Context, message string)
}

// Capabilities bundles the dialogs a repository needs.
type Capabilities struct {
	Directory DirectoryPicker
	SavePath  SavePathPicker
	Confirm   Confirmer
	Notify    Notifier
}

// WithDefaults fills nil capabilities with headless fallbacks: pickers
// cancel, confirmations decline, notifications are logged.
func (c Capabilities) WithDefaults(logger *slog.Logger) Capabilities {
	if c.Directory == nil {
		c.Directory = Cancel{}
	}
	if c.SavePath == nil {
		c.SavePath = Cancel{}
	}
	if c.Confirm == nil {
		c.Confirm = Static(false)
	}
	if c.Notify == nil {
		c.Notify = LogNotifier{Logger: logger}
	}
	return c
}

// Cancel is a picker that always reports cancellation.
type Cancel struct{}

// PickDirectory implements DirectoryPicker.
func (Cancel) PickDirectory(context.Context, string) (string, bool, error) { return "", false, nil }

// PickSavePath implements SavePathPicker.
func (Cancel) PickSavePath(context.Context, string) (string, bool, error) { return "", false, nil }

// Fixed is a picker that always answers with Path; an empty Path cancels.
type Fixed struct {
	Path string
}

// PickDirectory implements DirectoryPicker.
func (f Fixed) PickDirectory(context.Context, string) (string, bool, error) {
	return f.Path, f.Path != "", nil
}

// PickSavePath implements SavePathPicker.
func (f Fixed) PickSavePath(context.Context, string) (string, bool, error) {
	return f.Path, f.Path != "", nil
}

// Static is a Confirmer with a fixed answer.
type Static bool

// Confirm implements Confirmer.
func (s Static) Confirm(context.Context, string) (bool, error) { return bool(s), nil }

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyError implements Notifier.
func (n LogNotifier) NotifyError(ctx context.Context, message string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "user notification", slog.String("message", message))
}
