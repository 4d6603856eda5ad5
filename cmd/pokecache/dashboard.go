package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devmasterteam/pokecache/internal/cache/dashboard"
	"github.com/devmasterteam/pokecache/internal/cache/db"
	"github.com/devmasterteam/pokecache/internal/ui"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Serve a live WebSocket view of the cache and teams",
	Long: `Start a WebSocket dashboard that pushes cache and team snapshots to
connected clients whenever they change.

WebSocket messages:
- pokemon_snapshot: every cached species
- teams_snapshot: every team with its members
- sync_run: a sync flow changed state (only from 'pokecache daemon --dashboard')

New clients receive the latest snapshot of each kind on connect.

Routes:
  /ws       WebSocket endpoint
  /health   health check
  /metrics  Prometheus metrics

Example usage:
  pokecache dashboard                # port from dashboard.port (default 8080)
  pokecache dashboard --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.Dashboard.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		server, handler, err := startDashboard(cmd.Context(), store, port)
		if err != nil {
			return err
		}

		fmt.Println(ui.RenderMuted("Press Ctrl+C to stop..."))
		<-cmd.Context().Done()

		fmt.Println("\nShutting down dashboard server...")
		return stopDashboard(server, handler)
	},
}

// startDashboard starts a server streaming store snapshots until ctx is done.
func startDashboard(ctx context.Context, store *db.DB, port int) (*dashboard.Server, *dashboard.Handler, error) {
	server := dashboard.NewServer(&dashboard.Config{
		Port:    port,
		Logger:  logger,
		Metrics: recorder.Handler(),
	})
	if err := server.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start dashboard: %w", err)
	}

	handler := dashboard.NewHandler(server, logger)
	handler.Watch(ctx, store)

	fmt.Printf("%s Dashboard listening on http://localhost:%d\n", ui.RenderPass("✓"), port)
	fmt.Printf("   WebSocket: ws://localhost:%d/ws\n", port)
	fmt.Printf("   Health:    http://localhost:%d/health\n", port)
	fmt.Printf("   Metrics:   http://localhost:%d/metrics\n", port)
	return server, handler, nil
}

// stopDashboard waits for the store watches to end, then stops the server.
// The watches end when the context passed to startDashboard is done.
func stopDashboard(server *dashboard.Server, handler *dashboard.Handler) error {
	handler.Wait()
	if err := server.Stop(); err != nil {
		return fmt.Errorf("failed to stop dashboard: %w", err)
	}
	return nil
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default: dashboard.port)")
	rootCmd.AddCommand(dashboardCmd)
}
