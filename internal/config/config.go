// Package config loads pokecache settings from defaults, an optional TOML
// file and POKECACHE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/devmasterteam/pokecache/internal/logging"
)

// Duration wraps time.Duration for clearer type usage in Config.
type Duration = time.Duration

// Config holds runtime configuration.
type Config struct {
	DB        DBConfig
	API       APIConfig
	Sync      SyncConfig
	Log       logging.Config
	Dashboard DashboardConfig
	Daemon    DaemonConfig

	// File is the config file that was read, if any.
	File string
}

// DBConfig locates the local cache.
type DBConfig struct {
	Path string
}

// APIConfig configures the remote catalog client.
type APIConfig struct {
	BaseURL   string
	Timeout   Duration
	UserAgent string
}

// SyncConfig tunes the synchronizer.
type SyncConfig struct {
	Concurrency  int
	DefaultLimit int
}

// DashboardConfig configures the websocket dashboard.
type DashboardConfig struct {
	Port int
}

// DaemonConfig configures the background refresh loop.
type DaemonConfig struct {
	Interval    Duration
	Generations []int
}

// Load reads configuration. When file is empty the standard search paths
// are tried and a missing file is not an error; an explicit file must exist.
func Load(file string) (Config, error) {
	v := newViper()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v), nil
}

func newViper() *viper.Viper {
	v := newDefaultsOnly()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func newDefaultsOnly() *viper.Viper {
	v := viper.New()
	v.SetDefault(keyDBPath, defaultDBPath)
	v.SetDefault(keyAPIBaseURL, defaultAPIBaseURL)
	v.SetDefault(keyAPITimeout, defaultAPITimeout)
	v.SetDefault(keyAPIUserAgent, defaultAPIUserAgent)
	v.SetDefault(keySyncConcurrency, defaultSyncConcurrency)
	v.SetDefault(keySyncDefaultLimit, defaultSyncLimit)
	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyLogFormat, defaultLogFormat)
	v.SetDefault(keyLogFile, "")
	v.SetDefault(keyLogMaxSizeMB, defaultLogMaxSizeMB)
	v.SetDefault(keyLogMaxBackups, defaultLogMaxBackups)
	v.SetDefault(keyDashboardPort, defaultDashboardPort)
	v.SetDefault(keyDaemonInterval, defaultDaemonInterval)
	v.SetDefault(keyDaemonGenerations, defaultDaemonGenerations)
	return v
}

func fromViper(v *viper.Viper) Config {
	return Config{
		DB: DBConfig{
			Path: stringOrDefault(v.GetString(keyDBPath), defaultDBPath),
		},
		API: APIConfig{
			BaseURL:   stringOrDefault(v.GetString(keyAPIBaseURL), defaultAPIBaseURL),
			Timeout:   durationOrDefault(v.GetDuration(keyAPITimeout), defaultAPITimeout),
			UserAgent: stringOrDefault(v.GetString(keyAPIUserAgent), defaultAPIUserAgent),
		},
		Sync: SyncConfig{
			Concurrency:  intOrDefault(v.GetInt(keySyncConcurrency), defaultSyncConcurrency),
			DefaultLimit: intOrDefault(v.GetInt(keySyncDefaultLimit), defaultSyncLimit),
		},
		Log: logging.Config{
			Level:      stringOrDefault(v.GetString(keyLogLevel), defaultLogLevel),
			Format:     stringOrDefault(v.GetString(keyLogFormat), defaultLogFormat),
			File:       v.GetString(keyLogFile),
			MaxSizeMB:  intOrDefault(v.GetInt(keyLogMaxSizeMB), defaultLogMaxSizeMB),
			MaxBackups: intOrDefault(v.GetInt(keyLogMaxBackups), defaultLogMaxBackups),
		},
		Dashboard: DashboardConfig{
			Port: intOrDefault(v.GetInt(keyDashboardPort), defaultDashboardPort),
		},
		Daemon: DaemonConfig{
			Interval:    durationOrDefault(v.GetDuration(keyDaemonInterval), defaultDaemonInterval),
			Generations: generationsOrDefault(v.Get(keyDaemonGenerations)),
		},
		File: v.ConfigFileUsed(),
	}
}

func searchPaths() []string {
	paths := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, configName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", configName))
	}
	return paths
}

func stringOrDefault(val, defaultValue string) string {
	if strings.TrimSpace(val) == "" {
		return defaultValue
	}
	return val
}

func intOrDefault(val, defaultValue int) int {
	if val <= 0 {
		return defaultValue
	}
	return val
}

func durationOrDefault(val, defaultValue time.Duration) time.Duration {
	if val <= 0 {
		return defaultValue
	}
	return val
}

// generationsOrDefault accepts a TOML array or a comma separated env value.
// Entries outside 1..9 are skipped.
func generationsOrDefault(raw any) []int {
	var out []int
	add := func(g int) {
		if g >= 1 && g <= 9 {
			out = append(out, g)
		}
	}

	switch val := raw.(type) {
	case []int:
		for _, g := range val {
			add(g)
		}
	case []any:
		for _, item := range val {
			switch g := item.(type) {
			case int:
				add(g)
			case int64:
				add(int(g))
			case float64:
				add(int(g))
			case string:
				if n, err := strconv.Atoi(strings.TrimSpace(g)); err == nil {
					add(n)
				}
			}
		}
	case string:
		for _, part := range strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ' ' }) {
			if n, err := strconv.Atoi(part); err == nil {
				add(n)
			}
		}
	}

	if len(out) == 0 {
		return append([]int(nil), defaultDaemonGenerations...)
	}
	return out
}
