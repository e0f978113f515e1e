// Package config layers run configuration: built-in defaults, then an
// optional tabletalk.yaml file, then process environment. The API key is
// env-only and never read from the config file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Gemini holds translator service settings.
type Gemini struct {
	// APIKey comes from GEMINI_API_KEY only.
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Run holds execution settings shared by interactive and batch modes.
type Run struct {
	Workers        int           `yaml:"workers"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	FailFast       bool          `yaml:"fail_fast"`
	MaxResultRows  int           `yaml:"max_result_rows"`
}

type Config struct {
	Gemini Gemini `yaml:"gemini"`
	Run    Run    `yaml:"run"`
}

// DefaultConfigFile is probed when TABLETALK_CONFIG is unset.
const DefaultConfigFile = "tabletalk.yaml"

func defaults() Config {
	return Config{
		Gemini: Gemini{
			Model: "gemini-2.5-flash",
		},
		Run: Run{
			Workers:       4,
			MaxRetries:    2,
			MaxResultRows: 50,
		},
	}
}

// Load builds the effective configuration. A .env file in the working
// directory is applied to the environment first if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if err := applyFile(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config) error {
	path := strings.TrimSpace(os.Getenv("TABLETALK_CONFIG"))
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return fmt.Errorf("read TABLETALK_CONFIG file: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		cfg.Gemini.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")); v != "" {
		cfg.Gemini.BaseURL = v
	}

	var err error
	if cfg.Run.Workers, err = envInt("WORKERS", cfg.Run.Workers); err != nil {
		return err
	}
	if cfg.Run.MaxRetries, err = envInt("MAX_RETRIES", cfg.Run.MaxRetries); err != nil {
		return err
	}
	if cfg.Run.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", cfg.Run.RequestTimeout); err != nil {
		return err
	}
	if cfg.Run.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", cfg.Run.RateLimitRPS); err != nil {
		return err
	}
	if cfg.Run.FailFast, err = envBool("FAIL_FAST", cfg.Run.FailFast); err != nil {
		return err
	}
	if cfg.Run.MaxResultRows, err = envInt("MAX_RESULT_ROWS", cfg.Run.MaxResultRows); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey enforces the translator precondition: any path that reaches
// the model must have a key at startup.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
