package pokeapi

import (
	"fmt"
	"net/http"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

// Error describes a failed call to the remote catalog.
// It unwraps to schema.ErrNotFound for 4xx answers and to schema.ErrTransport
// for network failures, 5xx answers and undecodable bodies.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0 && e.Body != "":
		return fmt.Sprintf("pokeapi %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode > 0:
		return fmt.Sprintf("pokeapi %s: unexpected status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("pokeapi %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("pokeapi %s: request failed", e.Op)
	}
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	kind := schema.ErrTransport
	if e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError {
		kind = schema.ErrNotFound
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}
