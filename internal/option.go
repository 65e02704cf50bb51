package internal

import "github.com/starford/marknote/internal/rootdir"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	root   string
	mode   rootdir.Mode
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRoot pins the notes root, overriding notes.root from the config.
func WithRoot(path string) Option {
	return func(a *application) {
		a.root = path
	}
}

// WithMode overrides app.mode from the config.
func WithMode(mode rootdir.Mode) Option {
	return func(a *application) {
		a.mode = mode
	}
}
