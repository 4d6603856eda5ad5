package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/devmasterteam/pokecache/internal/cache/db"
	"github.com/devmasterteam/pokecache/internal/cache/loadtest"
	"github.com/devmasterteam/pokecache/internal/ui"
)

var loadtestCmd = &cobra.Command{
	Use:     "loadtest",
	GroupID: "advanced",
	Short:   "Stress team membership against concurrent cache refreshes",
	Long: `Run concurrent workers against a scratch cache. Workers add species to a
few teams while the same species are re-upserted, then the run checks that no
team exceeds six members, that positions are unique and that no membership
was lost.

The configured cache is never touched. Exits non-zero on any violation.

Examples:
  pokecache loadtest
  pokecache loadtest --workers 64 --teams 2 --ops 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts loadtest.Options
		opts.Workers, _ = cmd.Flags().GetInt("workers")
		opts.Teams, _ = cmd.Flags().GetInt("teams")
		opts.Pokemon, _ = cmd.Flags().GetInt("pokemon")
		opts.OpsPerWorker, _ = cmd.Flags().GetInt("ops")
		opts.UpsertEvery, _ = cmd.Flags().GetInt("upsert-every")
		opts.Seed, _ = cmd.Flags().GetUint64("seed")

		dir, err := os.MkdirTemp("", "pokecache-loadtest-*")
		if err != nil {
			return fmt.Errorf("failed to create scratch directory: %w", err)
		}
		defer os.RemoveAll(dir)

		store, err := db.Open(filepath.Join(dir, "loadtest.db"), db.WithLogger(logger))
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.InitSchemaContext(cmd.Context()); err != nil {
			return err
		}

		if outputFormat == formatText {
			fmt.Printf("%s Running %d workers x %d ops over %d teams...\n\n",
				ui.RenderAccent("→"), opts.Workers, opts.OpsPerWorker, opts.Teams)
		}

		report, err := loadtest.Run(cmd.Context(), store, opts)
		if err != nil {
			return err
		}

		if err := emit(report, func() {
			report.Adds.WriteStats(os.Stdout, "Team adds")
			fmt.Println()
			report.Upserts.WriteStats(os.Stdout, "Upserts")
			fmt.Println()
			fmt.Printf("Added: %d   Team full: %d   Already member: %d   Errors: %d\n",
				report.Added, report.TeamFull, report.AlreadyMember, report.Errors)
			fmt.Printf("Elapsed: %v\n\n", report.Elapsed)
			if report.OK() {
				fmt.Printf("%s All team invariants held\n", ui.RenderPass("✓"))
				return
			}
			for _, v := range report.Violations {
				fmt.Printf("%s %s\n", ui.RenderFail("✗"), v)
			}
		}); err != nil {
			return err
		}

		if !report.OK() {
			return fmt.Errorf("load test failed: %d errors, %d violations", report.Errors, len(report.Violations))
		}
		return nil
	},
}

func init() {
	loadtestCmd.Flags().Int("workers", 16, "Concurrent workers")
	loadtestCmd.Flags().Int("teams", 4, "Teams to contend on")
	loadtestCmd.Flags().Int("pokemon", 30, "Species seeded into the scratch cache")
	loadtestCmd.Flags().Int("ops", 20, "Operations per worker")
	loadtestCmd.Flags().Int("upsert-every", 4, "Every Nth operation is an upsert")
	loadtestCmd.Flags().Uint64("seed", 1, "Random seed")
	rootCmd.AddCommand(loadtestCmd)
}
