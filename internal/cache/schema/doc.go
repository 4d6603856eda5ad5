// Package schema defines the cached catalog records and team membership rows
// shared by the local store, the synchronizer and the team manager.
//
// # Records
//
// A Pokemon is a species record keyed by the stable numeric id assigned by the
// remote catalog. Writes are insert-or-replace: the last write for an id wins.
//
//	p := schema.Pokemon{
//	    ID:         25,
//	    Name:       "pikachu",
//	    Types:      []string{"electric"},
//	    Height:     4,
//	    Weight:     60,
//	    Generation: schema.GenerationForID(25),
//	}
//
// A Team is a named group of at most MaxTeamSize members. A TeamMember row
// links one team to one cached Pokemon with a zero-based display position.
//
// # Lookup tables
//
// GenerationForID derives the generation of a species from its id, and
// PokedexForVersion maps a game version to the regional pokedex that lists
// its species. Unknown versions fall back to NationalPokedex.
//
// # Errors
//
// Every layer reports failures by wrapping one of the sentinel errors in
// errors.go, so callers branch with errors.Is:
//
//	if errors.Is(err, schema.ErrTeamFull) {
//	    // tell the user the team already has six members
//	}
package schema
