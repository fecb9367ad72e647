package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".salesrelay"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("SALESRELAY_CONFIG")); explicit != "" {
		return expandHome(explicit)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file (defaults when absent) and overlays
// environment variables per group.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Process env vars from .env candidates first so envconfig sees them.
	loadEnvCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	envconfig.Process("SALESRELAY_PATHS", &cfg.Paths)
	envconfig.Process("SALESRELAY_GATEWAY", &cfg.Gateway)
	envconfig.Process("SALESRELAY_SLACK", &cfg.Channels.Slack)
	envconfig.Process("SALESRELAY_TELEGRAM", &cfg.Channels.Telegram)
	envconfig.Process("SALESRELAY_PROVIDER", &cfg.Provider)
	envconfig.Process("SALESRELAY_SYNC", &cfg.Sync)
	envconfig.Process("SALESRELAY_STREAM", &cfg.Stream)
	envconfig.Process("SALESRELAY_PMM", &cfg.PMM)

	// Fallback for the provider key.
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if expanded, err := expandHome(cfg.Paths.DataDir); err == nil {
		cfg.Paths.DataDir = expanded
	}
	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// loadEnvCandidates loads the first .env file found. Existing process env
// always wins (godotenv.Load never overrides).
func loadEnvCandidates() {
	candidates := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ConfigDir, "env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func expandHome(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p, err
		}
		if p == "~" {
			return home, nil
		}
		return filepath.Join(home, p[2:]), nil
	}
	return p, nil
}
