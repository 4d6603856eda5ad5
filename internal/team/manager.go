// Package team enforces team rules on top of the local store: non-blank
// names, at most schema.MaxTeamSize members, one row per pokemon per team
// and append-at-the-end positions.
//
// Membership operations take a Target so the legacy single-team helpers
// (AddToTeam, RemoveFromTeam, IsInTeam) and the multi-team operations share
// one code path.
package team

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/logging"
)

// Store is the team sub-store the manager works against.
type Store interface {
	CreateTeam(ctx context.Context, name string) (int64, error)
	UpdateTeam(ctx context.Context, team *schema.Team) error
	SetTeamActive(ctx context.Context, teamID int64, active bool) error
	DeleteTeam(ctx context.Context, teamID int64) error
	GetTeam(ctx context.Context, teamID int64) (*schema.Team, error)
	ListTeams(ctx context.Context) ([]*schema.Team, error)
	ListActiveTeams(ctx context.Context) ([]*schema.Team, error)
	TeamsContaining(ctx context.Context, pokemonID int) ([]*schema.Team, error)

	AddMember(ctx context.Context, teamID int64, pokemonID int) (int, error)
	RemoveMember(ctx context.Context, teamID int64, pokemonID int) error
	ClearMembers(ctx context.Context, teamID int64) error
	UpdateMemberPosition(ctx context.Context, teamID int64, pokemonID, position int) error
	TeamSize(ctx context.Context, teamID int64) (int, error)
	IsMember(ctx context.Context, teamID int64, pokemonID int) (bool, error)
	TeamMembers(ctx context.Context, teamID int64) ([]*schema.Pokemon, error)
}

// Resolver makes sure a pokemon is cached before it joins a team.
// The synchronizer's cache-first Details satisfies it.
type Resolver interface {
	Details(ctx context.Context, id int) (*schema.Pokemon, error)
}

// Manager applies team rules. It is safe for concurrent use.
type Manager struct {
	store    Store
	resolver Resolver
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithResolver resolves pokemon through r before adding them to a team.
func WithResolver(r Resolver) Option {
	return func(m *Manager) {
		m.resolver = r
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.Component(m.logger, "team")
	return m
}

// CreateTeam creates an active team with the trimmed name.
func (m *Manager) CreateTeam(ctx context.Context, name string) (*schema.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name must not be blank", schema.ErrInvalidInput)
	}

	id, err := m.store.CreateTeam(ctx, name)
	if err != nil {
		return nil, err
	}
	logging.Info(m.logger, "team created", logging.FieldTeamID, id, "name", name)
	return m.store.GetTeam(ctx, id)
}

// UpdateTeam saves a team's trimmed name and active flag.
func (m *Manager) UpdateTeam(ctx context.Context, team *schema.Team) error {
	if team == nil {
		return fmt.Errorf("%w: team is required", schema.ErrInvalidInput)
	}
	team.Name = strings.TrimSpace(team.Name)
	if team.Name == "" {
		return fmt.Errorf("%w: team name must not be blank", schema.ErrInvalidInput)
	}
	return m.store.UpdateTeam(ctx, team)
}

// RenameTeam changes a team's name.
func (m *Manager) RenameTeam(ctx context.Context, teamID int64, name string) error {
	team, err := m.store.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	team.Name = name
	return m.UpdateTeam(ctx, team)
}

// SetActive persists the active flag. Inactive teams keep their members
// and still accept changes; the flag only drives ActiveTeams.
func (m *Manager) SetActive(ctx context.Context, teamID int64, active bool) error {
	return m.store.SetTeamActive(ctx, teamID, active)
}

// DeleteTeam removes a team and its members. The default team cannot be
// deleted; use Clear to empty it.
func (m *Manager) DeleteTeam(ctx context.Context, teamID int64) error {
	if teamID == schema.DefaultTeamID {
		return fmt.Errorf("%w: the default team cannot be deleted", schema.ErrInvalidInput)
	}
	if err := m.store.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	logging.Info(m.logger, "team deleted", logging.FieldTeamID, teamID)
	return nil
}

// Team returns one team.
func (m *Manager) Team(ctx context.Context, teamID int64) (*schema.Team, error) {
	return m.store.GetTeam(ctx, teamID)
}

// Teams returns every team, newest first.
func (m *Manager) Teams(ctx context.Context) ([]*schema.Team, error) {
	return m.store.ListTeams(ctx)
}

// ActiveTeams returns the teams flagged active, newest first.
func (m *Manager) ActiveTeams(ctx context.Context) ([]*schema.Team, error) {
	return m.store.ListActiveTeams(ctx)
}

// AddPokemon appends a pokemon to the target team and returns its position.
//
// It fails with schema.ErrTeamFull when the team already has
// schema.MaxTeamSize members and with schema.ErrAlreadyMember when the
// pokemon is already in it. The size check, the membership check and the
// insert happen atomically in the store.
func (m *Manager) AddPokemon(ctx context.Context, target Target, pokemonID int) (int, error) {
	if pokemonID <= 0 {
		return 0, fmt.Errorf("%w: pokemon id must be positive (got %d)", schema.ErrInvalidInput, pokemonID)
	}

	if m.resolver != nil {
		// Skip the remote lookup when the insert is bound to fail.
		if _, err := m.store.GetTeam(ctx, target.TeamID()); err != nil {
			return 0, err
		}
		size, err := m.store.TeamSize(ctx, target.TeamID())
		if err != nil {
			return 0, err
		}
		if size >= schema.MaxTeamSize {
			return 0, fmt.Errorf("%s has %d members: %w", target, size, schema.ErrTeamFull)
		}
		if _, err := m.resolver.Details(ctx, pokemonID); err != nil {
			return 0, fmt.Errorf("failed to resolve pokemon %d: %w", pokemonID, err)
		}
	}

	position, err := m.store.AddMember(ctx, target.TeamID(), pokemonID)
	if err != nil {
		return 0, err
	}
	logging.Info(m.logger, "pokemon added to team",
		logging.FieldTeamID, target.TeamID(),
		logging.FieldPokemonID, pokemonID,
		"position", position,
	)
	return position, nil
}

// RemovePokemon removes a pokemon from the target team. Removing a pokemon
// that is not a member is not an error.
func (m *Manager) RemovePokemon(ctx context.Context, target Target, pokemonID int) error {
	return m.store.RemoveMember(ctx, target.TeamID(), pokemonID)
}

// IsMember reports whether a pokemon belongs to the target team.
func (m *Manager) IsMember(ctx context.Context, target Target, pokemonID int) (bool, error) {
	return m.store.IsMember(ctx, target.TeamID(), pokemonID)
}

// Size returns the number of members of the target team.
func (m *Manager) Size(ctx context.Context, target Target) (int, error) {
	return m.store.TeamSize(ctx, target.TeamID())
}

// IsFull reports whether the target team has no free slot.
func (m *Manager) IsFull(ctx context.Context, target Target) (bool, error) {
	size, err := m.Size(ctx, target)
	if err != nil {
		return false, err
	}
	return size >= schema.MaxTeamSize, nil
}

// Clear removes every member of the target team.
func (m *Manager) Clear(ctx context.Context, target Target) error {
	return m.store.ClearMembers(ctx, target.TeamID())
}

// Members returns the cached pokemon of the target team ordered by position.
func (m *Manager) Members(ctx context.Context, target Target) ([]*schema.Pokemon, error) {
	return m.store.TeamMembers(ctx, target.TeamID())
}

// TeamsContaining returns the teams holding a pokemon.
func (m *Manager) TeamsContaining(ctx context.Context, pokemonID int) ([]*schema.Team, error) {
	return m.store.TeamsContaining(ctx, pokemonID)
}

// Reorder moves a member to position.
func (m *Manager) Reorder(ctx context.Context, target Target, pokemonID, position int) error {
	return m.store.UpdateMemberPosition(ctx, target.TeamID(), pokemonID, position)
}

// AddToTeam adds a pokemon to the default team.
func (m *Manager) AddToTeam(ctx context.Context, pokemonID int) (int, error) {
	return m.AddPokemon(ctx, Default(), pokemonID)
}

// RemoveFromTeam removes a pokemon from the default team.
func (m *Manager) RemoveFromTeam(ctx context.Context, pokemonID int) error {
	return m.RemovePokemon(ctx, Default(), pokemonID)
}

// IsInTeam reports whether a pokemon is in the default team.
func (m *Manager) IsInTeam(ctx context.Context, pokemonID int) (bool, error) {
	return m.IsMember(ctx, Default(), pokemonID)
}
