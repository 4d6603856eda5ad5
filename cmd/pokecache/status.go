package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/ui"
)

// cacheStatus summarizes the local cache.
type cacheStatus struct {
	Path         string      `json:"path" yaml:"path"`
	SizeBytes    int64       `json:"size_bytes" yaml:"size_bytes"`
	Pokemon      int         `json:"pokemon" yaml:"pokemon"`
	ByGeneration map[int]int `json:"by_generation" yaml:"by_generation"`
	Teams        int         `json:"teams" yaml:"teams"`
	ActiveTeams  int         `json:"active_teams" yaml:"active_teams"`
	Members      int         `json:"members" yaml:"members"`
	ConfigFile   string      `json:"config_file,omitempty" yaml:"config_file,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "cache",
	Short:   "Show what the local cache holds",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		list, err := store.ListEntitiesContext(ctx, schema.AllPokemon())
		if err != nil {
			return err
		}
		rosters, err := store.Rosters(ctx)
		if err != nil {
			return err
		}

		st := cacheStatus{
			Path:         store.Path(),
			Pokemon:      len(list),
			ByGeneration: make(map[int]int),
			Teams:        len(rosters),
			ConfigFile:   cfg.File,
		}
		if info, err := os.Stat(store.Path()); err == nil {
			st.SizeBytes = info.Size()
		}
		for _, p := range list {
			st.ByGeneration[p.Generation]++
		}
		for _, r := range rosters {
			if r.Team.IsActive {
				st.ActiveTeams++
			}
			st.Members += len(r.Members)
		}

		return emit(st, func() {
			fmt.Printf("\n%s Cache %s\n\n", ui.RenderAccent("●"), st.Path)
			fmt.Printf("Size: %.1f KiB\n", float64(st.SizeBytes)/1024)
			fmt.Printf("Species: %d\n", st.Pokemon)
			fmt.Printf("Teams: %d (%d active, %d members)\n", st.Teams, st.ActiveTeams, st.Members)
			if st.ConfigFile != "" {
				fmt.Printf("Config: %s\n", st.ConfigFile)
			}

			if len(st.ByGeneration) > 0 {
				rows := make([][]string, 0, len(st.ByGeneration))
				for _, g := range slices.Sorted(maps.Keys(st.ByGeneration)) {
					label := strconv.Itoa(g)
					if g == 0 {
						label = "unknown"
					}
					rows = append(rows, []string{label, strconv.Itoa(st.ByGeneration[g])})
				}
				fmt.Println()
				fmt.Println(ui.Table([]string{"Generation", "Species"}, rows))
			}
			fmt.Println()
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
