package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected config, got nil")
	}

	if cfg.WorkerCount < 1 {
		t.Errorf("Expected positive worker count, got %d", cfg.WorkerCount)
	}
	if cfg.Version == "" {
		t.Error("Expected version to be populated")
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded config")
	}
}

func TestLoadArgsOverrides(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--db-path", "/tmp/test.db",
		"--port", "9090",
		"--worker-count", "2",
		"--refresh-interval", "600",
		"--ai-api-key", "secret",
		"--debug",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected db path '/tmp/test.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.RefreshIntervalDuration() != 10*time.Minute {
		t.Errorf("Expected refresh interval 10m, got %s", cfg.RefreshIntervalDuration())
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.SpeechAPIKey != "secret" {
		t.Errorf("Expected speech key to fall back to AI key, got '%s'", cfg.SpeechAPIKey)
	}
}

func TestLoadArgsRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero workers", []string{"--worker-count", "0"}},
		{"negative timeout", []string{"--fetch-timeout", "-1"}},
		{"negative rate", []string{"--ai-rate", "-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadArgs(tt.args); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Cfg{}

	if cfg.FetchTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30s fetch timeout, got %s", cfg.FetchTimeoutDuration())
	}
	if cfg.AITimeoutDuration() != time.Minute {
		t.Errorf("Expected 1m AI timeout, got %s", cfg.AITimeoutDuration())
	}
	if cfg.RefreshIntervalDuration() != 0 {
		t.Errorf("Expected disabled refresh interval, got %s", cfg.RefreshIntervalDuration())
	}
}
