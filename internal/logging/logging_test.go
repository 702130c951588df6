package logging

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureConsole(t *testing.T) {
	if err := Configure("debug", "console", ""); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("global level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestConfigureJSON(t *testing.T) {
	if err := Configure("warn", "json", ""); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	if err := Configure("bogus", "console", ""); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	if err := Configure("info", "bogus", ""); err == nil {
		t.Fatal("expected error for invalid log format")
	}
}

func TestConfigureWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tncctl.log")
	if err := Configure("info", "json", path); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info", zerolog.GlobalLevel())
	}
}
