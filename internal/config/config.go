package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/lazypower/rote/internal/fsrs"
)

// Config holds all rote configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SchedulerConfig seeds the per-user parameter rows created on first
// access. Weights, when set, must hold exactly 21 values.
type SchedulerConfig struct {
	RequestRetention float64   `toml:"request_retention"`
	MaximumInterval  int       `toml:"maximum_interval"` // days
	Weights          []float64 `toml:"weights"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37791,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Scheduler: SchedulerConfig{
			RequestRetention: 0.9,
			MaximumInterval:  36500,
		},
	}
}

// DefaultPath returns the default config path: ~/.rote/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".rote", "config.toml"), nil
}

// Load reads the config file at path, layered over Default(). A
// missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// SchedulerParams builds validated engine parameters from the config.
// Omitted weights fall back to the published FSRS-6 defaults.
func (c *Config) SchedulerParams() (fsrs.Params, error) {
	params := fsrs.DefaultParams()
	if c.Scheduler.RequestRetention != 0 {
		params.RequestRetention = c.Scheduler.RequestRetention
	}
	if c.Scheduler.MaximumInterval != 0 {
		params.MaximumInterval = c.Scheduler.MaximumInterval
	}
	if len(c.Scheduler.Weights) > 0 {
		if len(c.Scheduler.Weights) != len(params.Weights) {
			return fsrs.Params{}, fmt.Errorf("config: %d weights, want %d",
				len(c.Scheduler.Weights), len(params.Weights))
		}
		copy(params.Weights[:], c.Scheduler.Weights)
	}
	if err := params.Validate(); err != nil {
		return fsrs.Params{}, err
	}
	return params, nil
}
