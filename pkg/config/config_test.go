package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name    string `yaml:"name"`
	Workers int    `yaml:"workers"`
}

var errNoWorkers = errors.New("workers must be positive")

func (s *sample) Validate() error {
	if s.Workers <= 0 {
		return errNoWorkers
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("MINTFORGE_TEST_NAME", "punks")
	s := &sample{Workers: 4}
	if err := Load(writeFile(t, "name: ${MINTFORGE_TEST_NAME}\n"), s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "punks" || s.Workers != 4 {
		t.Errorf("unexpected %+v", s)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	s := &sample{Workers: 1}
	err := Load(writeFile(t, "name: x\nwokers: 3\n"), s)
	if err == nil || !strings.Contains(err.Error(), "wokers") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoad_Validates(t *testing.T) {
	s := &sample{}
	if err := Load(writeFile(t, "workers: 0\n"), s); !errors.Is(err, errNoWorkers) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	s := &sample{Name: "default", Workers: 2}
	if err := Load(writeFile(t, ""), s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" {
		t.Errorf("defaults lost: %+v", s)
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	s := &sample{Workers: 3}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &sample{}); !errors.Is(err, errNoWorkers) {
		t.Errorf("defaults should still be validated, got %v", err)
	}
}
