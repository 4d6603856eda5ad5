package team

import (
	"fmt"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

// Target selects the team a membership operation applies to: the implicit
// default team or an explicit team id.
type Target struct {
	id int64
}

// Default targets the implicit single team.
func Default() Target {
	return Target{id: schema.DefaultTeamID}
}

// ByID targets the team with the given id.
func ByID(id int64) Target {
	return Target{id: id}
}

// TeamID returns the id of the targeted team.
func (t Target) TeamID() int64 {
	return t.id
}

// IsDefault reports whether t targets the implicit team.
func (t Target) IsDefault() bool {
	return t.id == schema.DefaultTeamID
}

func (t Target) String() string {
	if t.IsDefault() {
		return "default team"
	}
	return fmt.Sprintf("team %d", t.id)
}
