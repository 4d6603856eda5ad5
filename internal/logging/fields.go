package logging

import "log/slog"

// Common structured log field keys to keep logs searchable/consistent.
const (
	FieldComponent  = "component"
	FieldPokemonID  = "pokemon_id"
	FieldTeamID     = "team_id"
	FieldGeneration = "generation"
	FieldVersion    = "version"
	FieldPokedex    = "pokedex"
	FieldFlow       = "flow"
	FieldCount      = "count"
	FieldDropped    = "dropped"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
)

// Component returns a child logger tagged with the component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return OrDiscard(logger).With(slog.String(FieldComponent, name))
}
