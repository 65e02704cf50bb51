package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name" toml:"name"`
	Port  int    `yaml:"port" toml:"port"`
	Inner struct {
		Path string `yaml:"path" toml:"path"`
	} `yaml:"inner" toml:"inner"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("SAMPLE_PATH", "/data")
	p := writeFile(t, "c.yaml", "name: one\nport: 80\ninner:\n  path: ${SAMPLE_PATH}\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "one" || s.Port != 80 || s.Inner.Path != "/data" {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("SAMPLE_PATH", "/toml")
	p := writeFile(t, "c.toml", "name = \"two\"\nport = 81\n\n[inner]\npath = \"${SAMPLE_PATH}\"\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "two" || s.Port != 81 || s.Inner.Path != "/toml" {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	p := writeFile(t, "c.yml", "port: 9\n")
	s := sample{Name: "default"}
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q, default should survive", s.Name)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	p := writeFile(t, "c.yaml", "name: x\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Errorf("err = %v, want validation failure", err)
	}
}

func TestLoad_ParseError(t *testing.T) {
	p := writeFile(t, "c.toml", "name = \n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadWithDefaults_Fallback(t *testing.T) {
	def := writeFile(t, "default.yaml", "port: 7\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s); err != nil {
		t.Fatal(err)
	}
	if s.Port != 7 {
		t.Errorf("port = %d", s.Port)
	}

	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &s); err == nil {
		t.Error("missing file without a default should fail")
	}
}
