package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.API.Port != 8080 {
		t.Fatalf("API.Port = %d, want 8080", c.API.Port)
	}
	if c.Muxer.BurstPeriod != 4*time.Millisecond {
		t.Fatalf("Muxer.BurstPeriod = %v, want 4ms", c.Muxer.BurstPeriod)
	}
	if c.Muxer.Preroll != 40*time.Millisecond {
		t.Fatalf("Muxer.Preroll = %v, want 40ms", c.Muxer.Preroll)
	}
}

func TestLoadConfigMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := "api:\n  port: 9090\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.API.Port != 9090 {
		t.Fatalf("API.Port = %d, want 9090", c.API.Port)
	}
	if c.Muxer.BurstPeriod != 4*time.Millisecond {
		t.Fatalf("Muxer.BurstPeriod = %v, want default 4ms", c.Muxer.BurstPeriod)
	}
	if c.Logging.Level != "debug" {
		t.Fatalf("Logging.Level = %q, want debug", c.Logging.Level)
	}
}

func TestLoadConfigRejectsInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  port: 70000\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an out-of-range api port")
	}
}

func TestLoadConfigRejectsInvalidPreroll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("muxer:\n  preroll: -1ms\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for a non-positive muxer preroll")
	}
}

func TestSlogLevel(t *testing.T) {
	c := GetConfigWithDefaults()
	c.Logging.Level = "warn"
	if got := c.SlogLevel(); got.String() != "WARN" {
		t.Fatalf("SlogLevel() = %v, want WARN", got)
	}
}
