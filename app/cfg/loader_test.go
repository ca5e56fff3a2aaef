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
		t.Fatal(err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if !cfg.CacheEnabled {
		t.Error("Expected caching to be enabled by default")
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("Expected memory cache backend, got '%s'", cfg.CacheBackend)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Timeout())
	}
	if cfg.MaxBodySize != 10*1024*1024 {
		t.Errorf("Expected 10MB max body size, got %d", cfg.MaxBodySize)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("Expected text log format, got '%s'", cfg.LogFormat)
	}
	if cfg.StableIDs {
		t.Error("Expected random ids by default")
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadArgsOverrides(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--port", "9090",
		"--cache-backend", "sqlite",
		"--cache-db", "/tmp/feeds.db",
		"--disable-cache",
		"--stable-ids",
		"--request-timeout", "5",
		"--log-format", "json",
		"--worker-count", "2",
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.CacheBackend != "sqlite" || cfg.CacheDBPath != "/tmp/feeds.db" {
		t.Errorf("Unexpected cache settings: %s %s", cfg.CacheBackend, cfg.CacheDBPath)
	}
	if cfg.CacheEnabled {
		t.Error("Expected caching to be disabled")
	}
	if !cfg.StableIDs {
		t.Error("Expected stable ids")
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.Timeout())
	}
	if cfg.LogFormat != "json" || cfg.WorkerCount != 2 {
		t.Errorf("Unexpected logging/worker settings: %s %d", cfg.LogFormat, cfg.WorkerCount)
	}
}

func TestLoadArgsEnvironment(t *testing.T) {
	t.Setenv("USER_AGENT", "Env Agent/2.0")
	t.Setenv("API_ACCESS_KEY", "secret")

	cfg, err := LoadArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UserAgent != "Env Agent/2.0" {
		t.Errorf("Expected user agent from environment, got '%s'", cfg.UserAgent)
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key from environment, got '%s'", cfg.APIAccessKey)
	}
}

func TestLoadArgsInvalid(t *testing.T) {
	tests := [][]string{
		{"--cache-backend", "redis"},
		{"--log-format", "xml"},
		{"--request-timeout", "0"},
		{"--worker-count", "-1"},
		{"--scheduler-interval", "0"},
		{"--unknown-flag"},
	}

	for _, args := range tests {
		if _, err := LoadArgs(args); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}
