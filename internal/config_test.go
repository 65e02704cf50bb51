package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/marknote/internal/rootdir"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestApplicationConfig_Mode(t *testing.T) {
	for _, tc := range []struct {
		mode    string
		want    rootdir.Mode
		wantErr bool
	}{
		{"production", rootdir.ModeProduction, false},
		{"dev", rootdir.ModeDevelopment, false},
		{"", rootdir.ModeProduction, false},
		{"staging", "", true},
	} {
		cfg := NewDefaultConfig()
		cfg.App.Mode = tc.mode
		err := cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("mode %q: err = %v, wantErr %v", tc.mode, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && cfg.App.RootMode() != tc.want {
			t.Errorf("mode %q: RootMode = %q, want %q", tc.mode, cfg.App.RootMode(), tc.want)
		}
	}
}

func TestNotesConfig_AppDirNameRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Notes.AppDirName = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty app_dir_name should fail validation")
	}
}

func TestEventsConfig_ThrottleRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Events.Throttle = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero throttle should fail validation")
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("750ms")); err != nil {
		t.Fatal(err)
	}
	if time.Duration(d) != 750*time.Millisecond {
		t.Errorf("duration = %v", time.Duration(d))
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("invalid duration should fail")
	}
}
