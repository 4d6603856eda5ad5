// Command pokecache keeps a local cache of the Pokémon species catalog and
// manages teams built from it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/devmasterteam/pokecache/internal/cache/db"
	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/cache/sync"
	"github.com/devmasterteam/pokecache/internal/config"
	"github.com/devmasterteam/pokecache/internal/logging"
	"github.com/devmasterteam/pokecache/internal/metrics"
	"github.com/devmasterteam/pokecache/internal/pokeapi"
	"github.com/devmasterteam/pokecache/internal/ui"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	configFile   string
	outputFormat string
	dbOverride   string
	noColor      bool

	cfg      config.Config
	logger   *slog.Logger
	recorder *metrics.Recorder
)

var rootCmd = &cobra.Command{
	Use:   "pokecache",
	Short: "Local cache of the Pokémon species catalog with team management",
	Long: `pokecache mirrors the public species catalog into a local SQLite cache
and manages teams of up to six cached species.

Configuration is read from pokecache.toml in the working directory or the
user config directory, and can be overridden with POKECACHE_* environment
variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if dbOverride != "" {
			loaded.DB.Path = dbOverride
		}
		cfg = loaded

		switch outputFormat {
		case formatText, formatJSON, formatYAML:
		default:
			return fmt.Errorf("unknown --format %q (want text, json or yaml)", outputFormat)
		}
		if noColor {
			ui.SetColor(false)
		}

		logger = logging.NewLogger(cfg.Log)
		recorder = metrics.NewRecorder()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: search for "+config.DefaultFileName()+")")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", formatText, "Output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "Cache database path (overrides db.path)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "cache", Title: "Cache Commands:"},
		&cobra.Group{ID: "teams", Title: "Team Commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced Commands:"},
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps user mistakes to 2 and everything else to 1.
func exitCode(err error) int {
	if schema.IsUserError(err) {
		return 2
	}
	return 1
}

// openStore opens the configured cache and makes sure its schema exists.
func openStore() (*db.DB, error) {
	store, err := db.Open(cfg.DB.Path, db.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newClient builds the remote catalog client from config.
func newClient() *pokeapi.Client {
	return pokeapi.NewClient(pokeapi.Config{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.API.Timeout,
		Observer:  recorder,
	})
}

// newSyncer wires the synchronizer over store. onRun may be nil.
func newSyncer(store *db.DB, onRun func(sync.Run)) sync.Syncer {
	return sync.New(store, newClient(), sync.Options{
		Concurrency: cfg.Sync.Concurrency,
		Logger:      logger,
		Metrics:     recorder,
		OnRun:       onRun,
	})
}

// emit writes v as JSON or YAML, or calls text for the text format.
func emit(v any, text func()) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text()
		return nil
	}
}

// isCancelled reports whether err came from an interrupt.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
