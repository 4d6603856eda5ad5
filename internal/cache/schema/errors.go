package schema

import "errors"

// Errors shared by the remote adapter, the store, the synchronizer and the
// team manager. Check them with errors.Is:
//
//	if errors.Is(err, schema.ErrAlreadyMember) {
//	    // nothing to do
//	}
var (
	// ErrTransport is returned when the remote catalog could not be reached
	// or answered with a server failure. It is never retried by this module.
	ErrTransport = errors.New("transport error")

	// ErrNotFound is returned when a remote resource, team or cached record
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for blank team names, malformed ids and
	// other arguments rejected before any I/O happens.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyMember is returned when a Pokemon is already in the team.
	ErrAlreadyMember = errors.New("pokemon already in team")

	// ErrTeamFull is returned when a team already holds MaxTeamSize members.
	ErrTeamFull = errors.New("team is full")

	// ErrStore is returned when the local store fails. It is fatal to the
	// operation that hit it.
	ErrStore = errors.New("store error")
)

// IsUserError returns true if err was caused by the request rather than by
// the environment, so it should be shown to the user as-is.
func IsUserError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAlreadyMember) ||
		errors.Is(err, ErrTeamFull) ||
		errors.Is(err, ErrNotFound)
}

// IsFatal returns true if err came from the local store.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrStore)
}
