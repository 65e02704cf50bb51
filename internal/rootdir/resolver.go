// Package rootdir decides which directory owns the note files for the
// lifetime of the process.
package rootdir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/marknote/internal/apperr"
	"github.com/starford/marknote/internal/dialog"
)

// Mode selects how the root is chosen.
type Mode string

const (
	// ModeProduction asks the user through a DirectoryPicker.
	ModeProduction Mode = "production"
	// ModeDevelopment always uses the working directory.
	ModeDevelopment Mode = "development"
)

// DefaultAppDirName is the directory created inside whatever base the user picks.
const DefaultAppDirName = "MarkNote"

// ParseMode converts a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeProduction, "prod", "":
		return ModeProduction, nil
	case ModeDevelopment, "dev":
		return ModeDevelopment, nil
	}
	return "", fmt.Errorf("rootdir: unknown mode %q: %w", s, apperr.ErrValidation)
}

// Options configure a Resolver. Zero values are replaced with the user's
// config directory, the process working directory and DefaultAppDirName.
type Options struct {
	Mode       Mode
	AppDirName string
	Picker     dialog.DirectoryPicker
	Logger     *slog.Logger

	// UserDir and WorkDir return the per-user base directory and the
	// working directory. Overridable for tests.
	UserDir func() (string, error)
	WorkDir func() (string, error)
}

// Resolver caches the chosen root. It is safe for concurrent use.
type Resolver struct {
	opts Options

	mu   sync.Mutex
	root string
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	if opts.Mode == "" {
		opts.Mode = ModeProduction
	}
	if opts.AppDirName == "" {
		opts.AppDirName = DefaultAppDirName
	}
	if opts.Picker == nil {
		opts.Picker = dialog.Cancel{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.UserDir == nil {
		opts.UserDir = os.UserConfigDir
	}
	if opts.WorkDir == nil {
		opts.WorkDir = os.Getwd
	}
	return &Resolver{opts: opts}
}

// Resolve returns the cached root, choosing and creating it on first use.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.root != "" {
		return r.root, nil
	}

	root, err := r.choose(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("rootdir: create %s: %w: %w", root, apperr.ErrIO, err)
	}

	r.root = root
	r.opts.Logger.Info("notes root resolved",
		slog.String("root", root),
		slog.String("mode", string(r.opts.Mode)))
	return root, nil
}

func (r *Resolver) choose(ctx context.Context) (string, error) {
	if r.opts.Mode == ModeDevelopment {
		wd, err := r.opts.WorkDir()
		if err != nil {
			return "", fmt.Errorf("rootdir: working dir: %w: %w", apperr.ErrIO, err)
		}
		return filepath.Join(wd, r.opts.AppDirName), nil
	}

	def, err := r.DefaultPath()
	if err != nil {
		return "", err
	}
	picked, ok, err := r.opts.Picker.PickDirectory(ctx, def)
	if err != nil {
		return "", fmt.Errorf("rootdir: pick directory: %w", err)
	}
	if !ok || picked == "" {
		return def, nil
	}
	abs, err := filepath.Abs(picked)
	if err != nil {
		return "", fmt.Errorf("rootdir: resolve %s: %w", picked, err)
	}
	return filepath.Join(abs, r.opts.AppDirName), nil
}

// DefaultPath is the well-known per-user notes directory.
func (r *Resolver) DefaultPath() (string, error) {
	base, err := r.opts.UserDir()
	if err != nil {
		return "", fmt.Errorf("rootdir: user dir: %w: %w", apperr.ErrIO, err)
	}
	return filepath.Join(base, r.opts.AppDirName), nil
}

// Set pins the root to path, bypassing the picker.
func (r *Resolver) Set(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("rootdir: resolve %s: %w", path, err)
	}
	r.mu.Lock()
	r.root = abs
	r.mu.Unlock()
	return nil
}

// Reset forgets the cached root; the next Resolve chooses again.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.root = ""
	r.mu.Unlock()
}

// Cached reports the current root without resolving.
func (r *Resolver) Cached() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root, r.root != ""
}
