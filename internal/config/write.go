package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	DB        fileDB        `toml:"db"`
	API       fileAPI       `toml:"api"`
	Sync      fileSync      `toml:"sync"`
	Log       fileLog       `toml:"log"`
	Dashboard fileDashboard `toml:"dashboard"`
	Daemon    fileDaemon    `toml:"daemon"`
}

type fileDB struct {
	Path string `toml:"path"`
}

type fileAPI struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

type fileSync struct {
	Concurrency  int `toml:"concurrency"`
	DefaultLimit int `toml:"default_limit"`
}

type fileLog struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type fileDashboard struct {
	Port int `toml:"port"`
}

type fileDaemon struct {
	Interval    string `toml:"interval"`
	Generations []int  `toml:"generations"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return fromViper(newDefaultsOnly())
}

// WriteFile encodes cfg as TOML at path. It refuses to overwrite an
// existing file unless force is set.
func WriteFile(path string, cfg Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(toFile(cfg)); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// DefaultFileName is the name searched for in the config paths.
func DefaultFileName() string {
	return configFileName
}

func toFile(cfg Config) fileConfig {
	return fileConfig{
		DB: fileDB{Path: cfg.DB.Path},
		API: fileAPI{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout.String(),
			UserAgent: cfg.API.UserAgent,
		},
		Sync: fileSync{
			Concurrency:  cfg.Sync.Concurrency,
			DefaultLimit: cfg.Sync.DefaultLimit,
		},
		Log: fileLog{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		},
		Dashboard: fileDashboard{Port: cfg.Dashboard.Port},
		Daemon: fileDaemon{
			Interval:    cfg.Daemon.Interval.String(),
			Generations: cfg.Daemon.Generations,
		},
	}
}
