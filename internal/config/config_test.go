package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pokecache.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.DB.Path != defaultDBPath {
		t.Errorf("DB.Path = %q, want %q", cfg.DB.Path, defaultDBPath)
	}
	if cfg.API.BaseURL != defaultAPIBaseURL || cfg.API.Timeout != 10*time.Second {
		t.Errorf("unexpected API config %+v", cfg.API)
	}
	if cfg.Sync.Concurrency != 8 || cfg.Sync.DefaultLimit != 151 {
		t.Errorf("unexpected sync config %+v", cfg.Sync)
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 || cfg.Log.Level != "info" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("Dashboard.Port = %d, want 8080", cfg.Dashboard.Port)
	}
	if cfg.Daemon.Interval != time.Hour || !reflect.DeepEqual(cfg.Daemon.Generations, []int{1}) {
		t.Errorf("unexpected daemon config %+v", cfg.Daemon)
	}
}

func TestLoadReadsTOMLFile(t *testing.T) {
	path := writeConfig(t, `
[db]
path = "/tmp/poke.db"

[api]
timeout = "3s"

[sync]
concurrency = 2

[daemon]
interval = "15m"
generations = [1, 2, 3]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DB.Path != "/tmp/poke.db" {
		t.Errorf("DB.Path = %q", cfg.DB.Path)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %s, want 3s", cfg.API.Timeout)
	}
	if cfg.Sync.Concurrency != 2 {
		t.Errorf("Sync.Concurrency = %d, want 2", cfg.Sync.Concurrency)
	}
	if cfg.Sync.DefaultLimit != defaultSyncLimit {
		t.Errorf("Sync.DefaultLimit = %d, want default", cfg.Sync.DefaultLimit)
	}
	if cfg.Daemon.Interval != 15*time.Minute {
		t.Errorf("Daemon.Interval = %s, want 15m", cfg.Daemon.Interval)
	}
	if !reflect.DeepEqual(cfg.Daemon.Generations, []int{1, 2, 3}) {
		t.Errorf("Daemon.Generations = %v", cfg.Daemon.Generations)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[sync]\nconcurrency = 2\n")
	t.Setenv("POKECACHE_SYNC_CONCURRENCY", "5")
	t.Setenv("POKECACHE_DB_PATH", "/var/lib/pokecache.db")
	t.Setenv("POKECACHE_DAEMON_GENERATIONS", "4,5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sync.Concurrency != 5 {
		t.Errorf("Sync.Concurrency = %d, want 5", cfg.Sync.Concurrency)
	}
	if cfg.DB.Path != "/var/lib/pokecache.db" {
		t.Errorf("DB.Path = %q", cfg.DB.Path)
	}
	if !reflect.DeepEqual(cfg.Daemon.Generations, []int{4, 5}) {
		t.Errorf("Daemon.Generations = %v, want [4 5]", cfg.Daemon.Generations)
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	path := writeConfig(t, `
[sync]
concurrency = 0
default_limit = -4

[daemon]
interval = "-1s"
generations = [0, 42]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sync.Concurrency != defaultSyncConcurrency || cfg.Sync.DefaultLimit != defaultSyncLimit {
		t.Errorf("expected sync defaults, got %+v", cfg.Sync)
	}
	if cfg.Daemon.Interval != defaultDaemonInterval {
		t.Errorf("Daemon.Interval = %s, want default", cfg.Daemon.Interval)
	}
	if !reflect.DeepEqual(cfg.Daemon.Generations, []int{1}) {
		t.Errorf("Daemon.Generations = %v, want [1]", cfg.Daemon.Generations)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty", cfg.File)
	}
	if cfg.Sync.Concurrency != defaultSyncConcurrency {
		t.Errorf("Sync.Concurrency = %d, want default", cfg.Sync.Concurrency)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName())
	cfg := Default()
	cfg.Sync.Concurrency = 3
	cfg.Daemon.Interval = 30 * time.Minute
	cfg.Daemon.Generations = []int{2, 4}

	if err := WriteFile(path, cfg, false); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := WriteFile(path, cfg, false); err == nil {
		t.Fatal("expected WriteFile() to refuse overwriting")
	}
	if err := WriteFile(path, cfg, true); err != nil {
		t.Fatalf("WriteFile(force) failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Sync.Concurrency != 3 || loaded.Daemon.Interval != 30*time.Minute {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if !reflect.DeepEqual(loaded.Daemon.Generations, []int{2, 4}) {
		t.Errorf("Daemon.Generations = %v, want [2 4]", loaded.Daemon.Generations)
	}
}

func TestGenerationsOrDefault(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []int
	}{
		{"nil", nil, []int{1}},
		{"ints", []int{3, 1}, []int{3, 1}},
		{"toml array", []any{int64(2), int64(9)}, []int{2, 9}},
		{"env string", "1, 7", []int{1, 7}},
		{"all invalid", "x,0,10", []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := generationsOrDefault(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("generationsOrDefault(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
