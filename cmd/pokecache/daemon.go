package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devmasterteam/pokecache/internal/cache/daemon"
	"github.com/devmasterteam/pokecache/internal/cache/dashboard"
	"github.com/devmasterteam/pokecache/internal/cache/sync"
	"github.com/devmasterteam/pokecache/internal/config"
	"github.com/devmasterteam/pokecache/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Keep the cache warm by refreshing generations on a schedule",
	Long: `Run in the foreground and refresh the configured generations at start
and then every daemon.interval.

When a config file is in use it is watched; edits to daemon.interval or
daemon.generations take effect without a restart. A bad edit is logged and
the previous schedule is kept.

With --dashboard the live dashboard runs alongside and also receives
sync_run messages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")
		port := cfg.Dashboard.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var handler *dashboard.Handler
		var onRun func(sync.Run)
		if withDashboard {
			var server *dashboard.Server
			server, handler, err = startDashboard(ctx, store, port)
			if err != nil {
				return err
			}
			onRun = handler.OnRun
			defer func() {
				cancel()
				if err := stopDashboard(server, handler); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", ui.RenderWarn("Warning:"), err)
				}
			}()
		}

		dcfg := daemon.DefaultConfig()
		dcfg.Schedule = daemon.Schedule{
			Interval:    cfg.Daemon.Interval,
			Generations: cfg.Daemon.Generations,
		}
		dcfg.Logger = logger
		if cfg.File != "" {
			file := cfg.File
			dcfg.ConfigFile = file
			dcfg.Reload = func() (daemon.Schedule, error) {
				reloaded, err := config.Load(file)
				if err != nil {
					return daemon.Schedule{}, err
				}
				return daemon.Schedule{Interval: reloaded.Daemon.Interval, Generations: reloaded.Daemon.Generations}, nil
			}
		}

		d, err := daemon.New(newSyncer(store, onRun), dcfg)
		if err != nil {
			return err
		}

		fmt.Printf("%s Daemon refreshing generations %v every %v\n", ui.RenderAccent("●"), dcfg.Schedule.Generations, dcfg.Schedule.Interval)
		if dcfg.ConfigFile != "" {
			fmt.Printf("   Watching %s\n", dcfg.ConfigFile)
		}
		fmt.Println(ui.RenderMuted("Press Ctrl+C to stop..."))

		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		st := d.Status()
		fmt.Printf("\n%s Daemon stopped after %d refreshes, %d reloads\n", ui.RenderPass("✓"), st.Refreshes, st.Reloads)
		return nil
	},
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "Also serve the live dashboard")
	daemonCmd.Flags().IntP("port", "p", 8080, "Dashboard port (default: dashboard.port)")
	rootCmd.AddCommand(daemonCmd)
}
