package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config controls runtime behavior for the core. Values load in three
// layers: defaults, an optional YAML file, then environment overrides.
type Config struct {
	DataDir        string        `yaml:"data_dir" env:"LEARNLOOP_DATA_DIR"`
	JournalPath    string        `yaml:"journal_path" env:"LEARNLOOP_JOURNAL"`
	FlatOnly       bool          `yaml:"flat_only" env:"LEARNLOOP_FLAT_ONLY"`
	Verbose        bool          `yaml:"verbose" env:"LEARNLOOP_VERBOSE"`
	SyncInterval   time.Duration `yaml:"sync_interval" env:"LEARNLOOP_SYNC_INTERVAL"`
	SyncMaxRetries int           `yaml:"sync_max_retries" env:"LEARNLOOP_SYNC_MAX_RETRIES"`
	RecentLimit    int           `yaml:"recent_limit" env:"LEARNLOOP_RECENT_LIMIT"`
}

func DefaultConfig() Config {
	return Config{
		SyncInterval:   time.Minute,
		SyncMaxRetries: 5,
		RecentLimit:    10,
	}
}

// LoadConfig builds the effective config. path may be empty; a missing file
// at a non-empty path is an error, since the user asked for it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SyncInterval <= 0 {
		c.SyncInterval = time.Minute
	}
	if c.SyncMaxRetries <= 0 {
		c.SyncMaxRetries = 5
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = 10
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("data dir not set and home directory unknown")
		}
		c.DataDir = filepath.Join(home, ".learnloop")
	}
	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(c.DataDir, "journal.jsonl")
	}
	return nil
}
