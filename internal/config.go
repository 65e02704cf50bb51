package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/marknote/internal/rootdir"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app" toml:"app"`
	Notes  NotesConfig       `yaml:"notes" toml:"notes"`
	SQLite SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth" toml:"auth"`
	Events EventsConfig      `yaml:"events" toml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
//
// Mode selects how the notes root is chosen: "production" uses the per-user
// config directory, "development" a folder under the working directory.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	Mode     string     `yaml:"mode" toml:"mode"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.By(validMode)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

func validMode(v any) error {
	s, _ := v.(string)
	_, err := rootdir.ParseMode(s)
	return err
}

// RootMode returns the parsed Mode.
func (c *ApplicationConfig) RootMode() rootdir.Mode {
	m, err := rootdir.ParseMode(c.Mode)
	if err != nil {
		return rootdir.ModeProduction
	}
	return m
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotesConfig holds where notes live and how deletes are confirmed.
//
// Root pins the notes directory and skips mode-based resolution when set.
// AutoConfirmDelete answers the delete prompt for requests that carry no
// explicit answer.
type NotesConfig struct {
	Root              string `yaml:"root" toml:"root"`
	AppDirName        string `yaml:"app_dir_name" toml:"app_dir_name"`
	AutoConfirmDelete bool   `yaml:"auto_confirm_delete" toml:"auto_confirm_delete"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AppDirName, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EventsConfig holds SSE configuration.
type EventsConfig struct {
	// Throttle is the minimum gap between two notes.changed events.
	Throttle Duration `yaml:"throttle" toml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Required, validation.Min(Duration(time.Millisecond))),
	)
}

// Duration is a time.Duration read from strings such as "2s" in both YAML
// and TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Mode:     string(rootdir.ModeProduction),
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Notes: NotesConfig{
			AppDirName: rootdir.DefaultAppDirName,
		},
		SQLite: SQLiteConfig{
			Path: "./marknote.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Events: EventsConfig{
			Throttle: Duration(2 * time.Second),
		},
	}
}
