package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devmasterteam/pokecache/internal/config"
	"github.com/devmasterteam/pokecache/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "advanced",
	Short:   "Create or inspect the configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")
		if path == "" {
			path = config.DefaultFileName()
		}
		if err := config.WriteFile(path, config.Default(), force); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), abs)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and POKECACHE_*
environment variables have been applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return emit(cfg, func() {
			source := cfg.File
			if source == "" {
				source = ui.RenderMuted("(none, using defaults)")
			}
			gens := make([]string, len(cfg.Daemon.Generations))
			for i, g := range cfg.Daemon.Generations {
				gens[i] = fmt.Sprint(g)
			}
			rows := [][]string{
				{"config file", source},
				{"db.path", cfg.DB.Path},
				{"api.base_url", cfg.API.BaseURL},
				{"api.timeout", cfg.API.Timeout.String()},
				{"api.user_agent", cfg.API.UserAgent},
				{"sync.concurrency", fmt.Sprint(cfg.Sync.Concurrency)},
				{"sync.default_limit", fmt.Sprint(cfg.Sync.DefaultLimit)},
				{"log.level", cfg.Log.Level},
				{"log.format", cfg.Log.Format},
				{"log.file", cfg.Log.File},
				{"dashboard.port", fmt.Sprint(cfg.Dashboard.Port)},
				{"daemon.interval", cfg.Daemon.Interval.String()},
				{"daemon.generations", strings.Join(gens, ", ")},
			}
			fmt.Fprintln(os.Stdout, ui.Table([]string{"Key", "Value"}, rows))
		})
	},
}

func init() {
	configInitCmd.Flags().String("path", "", "Where to write the file (default: ./"+config.DefaultFileName()+")")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
