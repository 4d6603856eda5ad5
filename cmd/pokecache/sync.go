package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/cache/sync"
	"github.com/devmasterteam/pokecache/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Fill the local cache from the remote catalog",
	Long: `Fetch species from the remote catalog into the local cache.

Flows:
  list        one page of the basic list, resolved sequentially
  generation  every species of a generation, fetched in parallel, cache-first
  version     the regional pokedex used by a game version
  resync      clear the cache and refill it from the basic list

Failures of individual species are logged and skipped; a flow only fails
when its initial listing call or the cache itself fails.`,
}

var syncListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch one page of the basic list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		if !cmd.Flags().Changed("limit") {
			limit = cfg.Sync.DefaultLimit
		}
		return runFlow(cmd, fmt.Sprintf("list limit=%d offset=%d", limit, offset), func(s sync.Syncer) (*sync.Result, error) {
			return s.FetchAndCacheList(cmd.Context(), limit, offset)
		})
	},
}

var syncGenerationCmd = &cobra.Command{
	Use:   "generation <number>",
	Short: "Fetch every species of a generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: generation must be a number (got %q)", schema.ErrInvalidInput, args[0])
		}
		return runFlow(cmd, fmt.Sprintf("generation %d", gen), func(s sync.Syncer) (*sync.Result, error) {
			return s.FetchGeneration(cmd.Context(), gen)
		})
	},
}

var syncVersionCmd = &cobra.Command{
	Use:   "version <name>",
	Short: "Fetch the regional pokedex of a game version",
	Long: `Fetch the species of the regional pokedex a game version uses.

Unknown versions fall back to the national pokedex. Known versions:
  ` + strings.Join(schema.KnownVersions(), ", "),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version := args[0]
		return runFlow(cmd, fmt.Sprintf("version %s (pokedex %s)", version, schema.PokedexForVersion(version)), func(s sync.Syncer) (*sync.Result, error) {
			return s.FetchVersion(cmd.Context(), version)
		})
	},
}

var syncResyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Clear the cache and refill it from the basic list",
	Long: `Delete every cached species, then refill the cache with the first
--limit entries of the basic list. Team memberships of deleted species are
removed with them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if !cmd.Flags().Changed("limit") {
			limit = cfg.Sync.DefaultLimit
		}
		return runFlow(cmd, fmt.Sprintf("resync limit=%d", limit), func(s sync.Syncer) (*sync.Result, error) {
			return s.ForceResync(cmd.Context(), limit)
		})
	},
}

// syncReport is the machine-readable outcome of a sync command.
type syncReport struct {
	Result   *sync.Result `json:"result" yaml:"result"`
	Duration string       `json:"duration" yaml:"duration"`
	Runs     []sync.Run   `json:"runs" yaml:"runs"`
}

func runFlow(cmd *cobra.Command, label string, flow func(sync.Syncer) (*sync.Result, error)) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	syncer := newSyncer(store, nil)

	if outputFormat == formatText {
		fmt.Printf("%s Syncing %s...\n", ui.RenderAccent("→"), label)
	}
	start := time.Now()
	res, err := flow(syncer)
	if err != nil {
		if isCancelled(err) {
			return fmt.Errorf("sync interrupted: %w", err)
		}
		return err
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	return emit(syncReport{Result: res, Duration: elapsed.String(), Runs: syncer.LastRuns()}, func() {
		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), elapsed)
		fmt.Printf("   Cached: %d\n", len(res.Pokemon))
		fmt.Printf("   Requested: %d\n", res.Requested)
		fmt.Printf("   Cache hits: %d\n", res.CacheHits)
		if res.Dropped > 0 {
			fmt.Printf("   %s %d species could not be fetched (see log)\n", ui.RenderWarn("Dropped:"), res.Dropped)
		}
		if res.HasMore {
			fmt.Printf("   %s\n", ui.RenderMuted("More entries are available; raise --offset to continue."))
		}
		fmt.Printf("   Cache: %s\n", cfg.DB.Path)
	})
}

func init() {
	syncListCmd.Flags().IntP("limit", "l", 0, "Entries to fetch (default: sync.default_limit)")
	syncListCmd.Flags().IntP("offset", "o", 0, "Entries to skip")
	syncResyncCmd.Flags().IntP("limit", "l", 0, "Entries to refill (default: sync.default_limit)")

	syncCmd.AddCommand(syncListCmd)
	syncCmd.AddCommand(syncGenerationCmd)
	syncCmd.AddCommand(syncVersionCmd)
	syncCmd.AddCommand(syncResyncCmd)
	rootCmd.AddCommand(syncCmd)
}
