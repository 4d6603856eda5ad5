package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devmasterteam/pokecache/internal/cache/db"
	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/team"
	"github.com/devmasterteam/pokecache/internal/ui"
)

var teamCmd = &cobra.Command{
	Use:     "team",
	GroupID: "teams",
	Short:   "Build teams of up to six cached species",
	Long: `Manage teams. Every command that takes --team works on the default team
when the flag is omitted.

A team holds at most six species and each species at most once. Species that
are not cached yet are fetched from the remote catalog when added.`,
}

var teamCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a team",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(store *db.DB, m *team.Manager) error {
			t, err := m.CreateTeam(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return emit(t, func() {
				fmt.Printf("%s Created team %s (id %d)\n", ui.RenderPass("✓"), ui.RenderBold(t.Name), t.ID)
			})
		})
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List teams, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		activeOnly, _ := cmd.Flags().GetBool("active")
		return withManager(func(store *db.DB, m *team.Manager) error {
			rosters, err := store.Rosters(cmd.Context())
			if err != nil {
				return err
			}
			if activeOnly {
				kept := rosters[:0]
				for _, r := range rosters {
					if r.Team.IsActive {
						kept = append(kept, r)
					}
				}
				rosters = kept
			}

			return emit(rosters, func() {
				rows := make([][]string, 0, len(rosters))
				for _, r := range rosters {
					active := "yes"
					if !r.Team.IsActive {
						active = "no"
					}
					rows = append(rows, []string{
						strconv.FormatInt(r.Team.ID, 10),
						r.Team.Name,
						fmt.Sprintf("%d/%d", len(r.Members), schema.MaxTeamSize),
						active,
						r.Team.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Println(ui.Table([]string{"ID", "Name", "Size", "Active", "Created"}, rows))
			})
		})
	},
}

var teamShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the members of a team in position order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(store *db.DB, m *team.Manager) error {
			target := targetFlag(cmd)
			t, err := m.Team(cmd.Context(), target.TeamID())
			if err != nil {
				return err
			}
			members, err := m.Members(cmd.Context(), target)
			if err != nil {
				return err
			}

			out := struct {
				Team    *schema.Team      `json:"team" yaml:"team"`
				Members []*schema.Pokemon `json:"members" yaml:"members"`
			}{t, members}

			return emit(out, func() {
				fmt.Printf("\n%s %s (%d/%d)\n\n", ui.RenderAccent("●"), ui.RenderBold(t.Name), len(members), schema.MaxTeamSize)
				if len(members) == 0 {
					fmt.Printf("   %s\n\n", ui.RenderMuted("No members yet. Add one with 'pokecache team add <id>'."))
					return
				}
				for i, p := range members {
					fmt.Printf("  %d. #%03d %-14s %s\n", i+1, p.ID, p.Name, ui.RenderTypes(p.Types))
				}
				fmt.Println()
			})
		})
	},
}

var teamAddCmd = &cobra.Command{
	Use:   "add <pokemon-id>...",
	Short: "Add species to a team",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return withManager(func(store *db.DB, m *team.Manager) error {
			target := targetFlag(cmd)
			for _, id := range ids {
				pos, err := m.AddPokemon(cmd.Context(), target, id)
				if err != nil {
					return fmt.Errorf("failed to add #%d to %s: %w", id, target, err)
				}
				if outputFormat == formatText {
					fmt.Printf("%s Added #%d to %s at position %d\n", ui.RenderPass("✓"), id, target, pos)
				}
			}
			return nil
		})
	},
}

var teamRemoveCmd = &cobra.Command{
	Use:   "remove <pokemon-id>...",
	Short: "Remove species from a team",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return withManager(func(store *db.DB, m *team.Manager) error {
			target := targetFlag(cmd)
			for _, id := range ids {
				if err := m.RemovePokemon(cmd.Context(), target, id); err != nil {
					return err
				}
			}
			if outputFormat == formatText {
				fmt.Printf("%s Removed %d species from %s\n", ui.RenderPass("✓"), len(ids), target)
			}
			return nil
		})
	},
}

var teamMoveCmd = &cobra.Command{
	Use:   "move <pokemon-id> <position>",
	Short: "Change the position of a member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		position, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: position must be a number (got %q)", schema.ErrInvalidInput, args[1])
		}
		return withManager(func(store *db.DB, m *team.Manager) error {
			return m.Reorder(cmd.Context(), targetFlag(cmd), id, position)
		})
	},
}

var teamClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every member of a team",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(store *db.DB, m *team.Manager) error {
			target := targetFlag(cmd)
			if err := m.Clear(cmd.Context(), target); err != nil {
				return err
			}
			if outputFormat == formatText {
				fmt.Printf("%s Cleared %s\n", ui.RenderPass("✓"), target)
			}
			return nil
		})
	},
}

var teamRenameCmd = &cobra.Command{
	Use:   "rename <team-id> <name>",
	Short: "Rename a team",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTeamID(args[0])
		if err != nil {
			return err
		}
		return withManager(func(store *db.DB, m *team.Manager) error {
			return m.RenameTeam(cmd.Context(), id, strings.Join(args[1:], " "))
		})
	},
}

var teamActivateCmd = &cobra.Command{
	Use:   "activate <team-id>",
	Short: "Mark a team active",
	Args:  cobra.ExactArgs(1),
	RunE:  setActive(true),
}

var teamDeactivateCmd = &cobra.Command{
	Use:   "deactivate <team-id>",
	Short: "Mark a team inactive (members are kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  setActive(false),
}

var teamDeleteCmd = &cobra.Command{
	Use:   "delete <team-id>",
	Short: "Delete a team and its memberships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTeamID(args[0])
		if err != nil {
			return err
		}
		return withManager(func(store *db.DB, m *team.Manager) error {
			if err := m.DeleteTeam(cmd.Context(), id); err != nil {
				return err
			}
			if outputFormat == formatText {
				fmt.Printf("%s Deleted team %d\n", ui.RenderPass("✓"), id)
			}
			return nil
		})
	},
}

var teamWhichCmd = &cobra.Command{
	Use:   "which <pokemon-id>",
	Short: "List the teams a species belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withManager(func(store *db.DB, m *team.Manager) error {
			teams, err := m.TeamsContaining(cmd.Context(), id)
			if err != nil {
				return err
			}
			return emit(teams, func() {
				if len(teams) == 0 {
					fmt.Printf("#%d is not in any team\n", id)
					return
				}
				for _, t := range teams {
					fmt.Printf("  %d  %s\n", t.ID, t.Name)
				}
			})
		})
	},
}

func setActive(active bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseTeamID(args[0])
		if err != nil {
			return err
		}
		return withManager(func(store *db.DB, m *team.Manager) error {
			return m.SetActive(cmd.Context(), id, active)
		})
	}
}

// withManager opens the store and runs fn with a team manager that
// resolves uncached species through the synchronizer.
func withManager(fn func(store *db.DB, m *team.Manager) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	m := team.NewManager(store,
		team.WithResolver(newSyncer(store, nil)),
		team.WithLogger(logger),
	)
	return fn(store, m)
}

func targetFlag(cmd *cobra.Command) team.Target {
	if !cmd.Flags().Changed("team") {
		return team.Default()
	}
	id, _ := cmd.Flags().GetInt64("team")
	return team.ByID(id)
}

func parseTeamID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: team id must be a non-negative number (got %q)", schema.ErrInvalidInput, arg)
	}
	return id, nil
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func init() {
	for _, c := range []*cobra.Command{teamShowCmd, teamAddCmd, teamRemoveCmd, teamMoveCmd, teamClearCmd} {
		c.Flags().Int64P("team", "t", schema.DefaultTeamID, "Team id (default: the default team)")
	}
	teamListCmd.Flags().Bool("active", false, "Only list active teams")

	teamCmd.AddCommand(teamCreateCmd)
	teamCmd.AddCommand(teamListCmd)
	teamCmd.AddCommand(teamShowCmd)
	teamCmd.AddCommand(teamAddCmd)
	teamCmd.AddCommand(teamRemoveCmd)
	teamCmd.AddCommand(teamMoveCmd)
	teamCmd.AddCommand(teamClearCmd)
	teamCmd.AddCommand(teamRenameCmd)
	teamCmd.AddCommand(teamActivateCmd)
	teamCmd.AddCommand(teamDeactivateCmd)
	teamCmd.AddCommand(teamDeleteCmd)
	teamCmd.AddCommand(teamWhichCmd)
	rootCmd.AddCommand(teamCmd)
}
