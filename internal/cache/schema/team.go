package schema

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxTeamSize is the maximum number of members a team may hold.
	MaxTeamSize = 6

	// DefaultTeamID identifies the implicit team used by the single-team flows.
	// It is created together with the schema.
	DefaultTeamID int64 = 0

	// DefaultTeamName is the display name of the implicit team.
	DefaultTeamName = "Default"
)

// Team is a user-defined named group of cached Pokemon.
type Team struct {
	ID        int64     `json:"team_id" yaml:"team_id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	IsActive  bool      `json:"is_active" yaml:"is_active"`
}

// NewTeam returns an active team named name (trimmed) stamped with now.
func NewTeam(name string, now time.Time) Team {
	return Team{
		Name:      strings.TrimSpace(name),
		CreatedAt: now.UTC(),
		IsActive:  true,
	}
}

// Validate checks the team name.
func (t *Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: team name must not be blank", ErrInvalidInput)
	}
	return nil
}

// IsDefault reports whether t is the implicit single-team target.
func (t *Team) IsDefault() bool {
	return t.ID == DefaultTeamID
}

// TeamMember links a team to a cached Pokemon.
// (TeamID, PokemonID) is unique.
type TeamMember struct {
	TeamID    int64     `json:"team_id" yaml:"team_id"`
	PokemonID int       `json:"pokemon_id" yaml:"pokemon_id"`
	Position  int       `json:"position" yaml:"position"`
	AddedAt   time.Time `json:"added_at" yaml:"added_at"`
}

// Roster is a team together with its membership rows ordered by position.
type Roster struct {
	Team    *Team         `json:"team" yaml:"team"`
	Members []*TeamMember `json:"members" yaml:"members"`
}

// PokemonIDs returns the member ids in position order.
func (r *Roster) PokemonIDs() []int {
	ids := make([]int, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.PokemonID)
	}
	return ids
}
