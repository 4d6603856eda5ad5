package config

import "time"

const (
	envPrefix      = "POKECACHE"
	configName     = "pokecache"
	configType     = "toml"
	configFileName = configName + "." + configType
)

const (
	keyDBPath            = "db.path"
	keyAPIBaseURL        = "api.base_url"
	keyAPITimeout        = "api.timeout"
	keyAPIUserAgent      = "api.user_agent"
	keySyncConcurrency   = "sync.concurrency"
	keySyncDefaultLimit  = "sync.default_limit"
	keyLogLevel          = "log.level"
	keyLogFormat         = "log.format"
	keyLogFile           = "log.file"
	keyLogMaxSizeMB      = "log.max_size_mb"
	keyLogMaxBackups     = "log.max_backups"
	keyDashboardPort     = "dashboard.port"
	keyDaemonInterval    = "daemon.interval"
	keyDaemonGenerations = "daemon.generations"
)

const (
	defaultDBPath          = ".pokecache/cache.db"
	defaultAPIBaseURL      = "https://pokeapi.co/api/v2"
	defaultAPITimeout      = 10 * time.Second
	defaultAPIUserAgent    = "pokecache"
	defaultSyncConcurrency = 8
	defaultSyncLimit       = 151
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
	defaultDashboardPort   = 8080
	defaultDaemonInterval  = time.Hour
)

var defaultDaemonGenerations = []int{1}
