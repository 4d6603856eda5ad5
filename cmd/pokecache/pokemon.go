package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/ui"
)

var pokemonCmd = &cobra.Command{
	Use:     "pokemon",
	Aliases: []string{"pk"},
	GroupID: "cache",
	Short:   "Inspect cached species",
}

var pokemonShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one species, fetching it when it is not cached",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := newSyncer(store, nil).Details(cmd.Context(), id)
		if err != nil {
			return err
		}
		teams, err := store.TeamsContaining(cmd.Context(), id)
		if err != nil {
			return err
		}

		return emit(p, func() {
			fmt.Printf("\n%s #%03d %s\n\n", ui.RenderAccent("●"), p.ID, ui.RenderBold(p.Name))
			fmt.Printf("Types: %s\n", ui.RenderTypes(p.Types))
			fmt.Printf("Generation: %d\n", p.Generation)
			fmt.Printf("Height: %.1f m\n", p.HeightMeters())
			fmt.Printf("Weight: %.1f kg\n", p.WeightKilograms())
			if p.SpriteURL != "" {
				fmt.Printf("Sprite: %s\n", p.SpriteURL)
			}
			if p.ShinySpriteURL != "" {
				fmt.Printf("Shiny: %s\n", p.ShinySpriteURL)
			}
			if len(teams) > 0 {
				names := make([]string, 0, len(teams))
				for _, t := range teams {
					names = append(names, t.Name)
				}
				fmt.Printf("Teams: %v\n", names)
			}
			fmt.Println()
		})
	},
}

var pokemonListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached species ordered by id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, _ := cmd.Flags().GetInt("generation")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var list []*schema.Pokemon
		if gen > 0 {
			list, err = store.ListEntitiesContext(cmd.Context(), schema.ByGeneration(gen))
		} else {
			list, err = store.ListEntitiesPageContext(cmd.Context(), limit, offset)
		}
		if err != nil {
			return err
		}

		return emit(list, func() {
			if len(list) == 0 {
				fmt.Printf("%s No cached species. Run 'pokecache sync' first.\n", ui.RenderWarn("⚠"))
				return
			}
			rows := make([][]string, 0, len(list))
			for _, p := range list {
				rows = append(rows, []string{
					strconv.Itoa(p.ID),
					p.Name,
					ui.RenderTypes(p.Types),
					strconv.Itoa(p.Generation),
				})
			}
			fmt.Println(ui.Table([]string{"ID", "Name", "Types", "Gen"}, rows))
			fmt.Printf("%d species\n", len(list))
		})
	},
}

var pokemonDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a species from the cache (and from every team)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteEntityContext(cmd.Context(), id); err != nil {
			return err
		}
		if outputFormat == formatText {
			fmt.Printf("%s Removed #%d from the cache\n", ui.RenderPass("✓"), id)
		}
		return nil
	},
}

// parseID parses a positive species id.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: species id must be a positive number (got %q)", schema.ErrInvalidInput, arg)
	}
	return id, nil
}

func init() {
	pokemonListCmd.Flags().IntP("generation", "g", 0, "Only list this generation")
	pokemonListCmd.Flags().IntP("limit", "l", 50, "Rows per page")
	pokemonListCmd.Flags().IntP("offset", "o", 0, "Rows to skip")

	pokemonCmd.AddCommand(pokemonShowCmd)
	pokemonCmd.AddCommand(pokemonListCmd)
	pokemonCmd.AddCommand(pokemonDeleteCmd)
	rootCmd.AddCommand(pokemonCmd)
}
