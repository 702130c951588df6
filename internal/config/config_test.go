package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.Discovery.ScanTimeout != 3*time.Second {
		t.Errorf("Discovery.ScanTimeout = %v, want 3s", cfg.Discovery.ScanTimeout)
	}
	if !cfg.Discovery.Enable {
		t.Error("Discovery.Enable should be true by default")
	}
	if cfg.Registry.StorePath == "" {
		t.Error("Registry.StorePath should not be empty")
	}
	if cfg.Credentials.Root == "" {
		t.Error("Credentials.Root should not be empty")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Log.Format = %s, want console", cfg.Log.Format)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level, got %s", cfg.Log.Level)
	}
}

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tncctl.yaml")

	configContent := `
registry:
  store_path: /tmp/custom-registry.json

discovery:
  interface: eth0
  scan_timeout: 5s
  enable: false

credentials:
  root: /tmp/custom-creds

log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Registry.StorePath != "/tmp/custom-registry.json" {
		t.Errorf("Registry.StorePath = %s", cfg.Registry.StorePath)
	}
	if cfg.Discovery.Interface != "eth0" {
		t.Errorf("Discovery.Interface = %s", cfg.Discovery.Interface)
	}
	if cfg.Discovery.ScanTimeout != 5*time.Second {
		t.Errorf("Discovery.ScanTimeout = %v, want 5s", cfg.Discovery.ScanTimeout)
	}
	if cfg.Discovery.Enable {
		t.Error("Discovery.Enable should be false")
	}
	if cfg.Credentials.Root != "/tmp/custom-creds" {
		t.Errorf("Credentials.Root = %s", cfg.Credentials.Root)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	os.Setenv("TNC_LOG_LEVEL", "warn")
	defer os.Unsetenv("TNC_LOG_LEVEL")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn (from TNC_LOG_LEVEL)", cfg.Log.Level)
	}
}

func TestWriteExample(t *testing.T) {
	tmpDir := t.TempDir()
	examplePath := filepath.Join(tmpDir, "example.yaml")

	if err := WriteExample(examplePath); err != nil {
		t.Fatalf("WriteExample() error = %v", err)
	}

	info, err := os.Stat(examplePath)
	if err != nil {
		t.Fatalf("example file not created: %v", err)
	}
	if info.Size() == 0 {
		t.Error("example file is empty")
	}
}
