package pokeapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

// IDFromURL extracts the trailing numeric path segment of a resource URL,
// e.g. https://pokeapi.co/api/v2/pokemon-species/25/ -> 25.
func IDFromURL(raw string) (int, error) {
	trimmed := strings.TrimRight(raw, "/")
	idx := strings.LastIndex(trimmed, "/")
	segment := trimmed[idx+1:]

	id, err := strconv.Atoi(segment)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: no numeric id in %q", schema.ErrInvalidInput, raw)
	}
	return id, nil
}
