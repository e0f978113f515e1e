package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
		"WORKERS", "MAX_RETRIES", "REQUEST_TIMEOUT", "RATE_LIMIT_RPS",
		"FAIL_FAST", "MAX_RESULT_ROWS", "TABLETALK_CONFIG",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %q", cfg.Gemini.Model)
	}
	if cfg.Run.Workers != 4 || cfg.Run.MaxRetries != 2 || cfg.Run.MaxResultRows != 50 {
		t.Fatalf("unexpected run defaults: %#v", cfg.Run)
	}
	if cfg.Run.RequestTimeout != 0 || cfg.Run.RateLimitRPS != 0 {
		t.Fatalf("timeout and rate limit should default off: %#v", cfg.Run)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:8090")
	t.Setenv("WORKERS", "8")
	t.Setenv("REQUEST_TIMEOUT", "30s")
	t.Setenv("FAIL_FAST", "true")
	t.Setenv("MAX_RESULT_ROWS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "test-key" || cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Fatalf("unexpected gemini config: %#v", cfg.Gemini)
	}
	if cfg.Gemini.BaseURL != "http://localhost:8090" {
		t.Fatalf("unexpected base URL: %q", cfg.Gemini.BaseURL)
	}
	if cfg.Run.Workers != 8 || cfg.Run.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected run config: %#v", cfg.Run)
	}
	if !cfg.Run.FailFast || cfg.Run.MaxResultRows != 10 {
		t.Fatalf("unexpected run config: %#v", cfg.Run)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "tabletalk.yaml")
	content := "gemini:\n  model: file-model\nrun:\n  workers: 2\n  max_result_rows: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Setenv("TABLETALK_CONFIG", path)

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Gemini.Model != "file-model" || cfg.Run.Workers != 2 || cfg.Run.MaxResultRows != 25 {
			t.Fatalf("unexpected config: %#v", cfg)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("GEMINI_MODEL", "env-model")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Gemini.Model != "env-model" {
			t.Fatalf("unexpected model: %q", cfg.Gemini.Model)
		}
		if cfg.Run.Workers != 2 {
			t.Fatalf("unexpected workers: %d", cfg.Run.Workers)
		}
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		t.Setenv("TABLETALK_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "TABLETALK_CONFIG") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestLoadInvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKERS", "many")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRequireAPIKey(t *testing.T) {
	var cfg Config
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatalf("expected error")
	}
	cfg.Gemini.APIKey = "k"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
