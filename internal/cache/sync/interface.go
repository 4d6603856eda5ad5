package sync

import (
	"context"
	"time"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/pokeapi"
)

// Syncer keeps the local cache filled from the remote catalog.
type Syncer interface {
	// FetchAndCacheList fetches one page of the basic list, resolves each
	// entry's details sequentially and writes the batch in one transaction.
	//
	// Example:
	//   res, err := syncer.FetchAndCacheList(ctx, 20, 0)
	FetchAndCacheList(ctx context.Context, limit, offset int) (*Result, error)

	// FetchGeneration fetches every species of a generation in parallel,
	// cache-first, and returns them sorted by id.
	//
	// Example:
	//   res, err := syncer.FetchGeneration(ctx, 1)
	FetchGeneration(ctx context.Context, generation int) (*Result, error)

	// FetchVersion fetches the species of the regional pokedex used by a
	// game version. Unknown versions use the national pokedex.
	//
	// Example:
	//   res, err := syncer.FetchVersion(ctx, "scarlet")
	FetchVersion(ctx context.Context, version string) (*Result, error)

	// Details returns one species, from the cache when present, otherwise
	// from the remote catalog (and caches it).
	Details(ctx context.Context, id int) (*schema.Pokemon, error)

	// ForceResync clears the cache and refills it with the first limit
	// entries of the basic list.
	ForceResync(ctx context.Context, limit int) (*Result, error)

	// State returns the current state of a flow. Flows that never ran
	// are StateIdle.
	State(flow string) State

	// LastRuns returns the most recent run of every flow that has run,
	// ordered by flow name.
	LastRuns() []Run
}

// Store is the part of the local cache the syncer writes through.
type Store interface {
	GetEntityContext(ctx context.Context, id int) (*schema.Pokemon, error)
	UpsertEntityContext(ctx context.Context, p *schema.Pokemon) error
	UpsertEntitiesContext(ctx context.Context, list []*schema.Pokemon) error
	ClearEntitiesContext(ctx context.Context) error
}

// Remote is the part of the catalog client the syncer reads from.
type Remote interface {
	ListPokemon(ctx context.Context, limit, offset int) (*pokeapi.Page, error)
	Pokemon(ctx context.Context, id int) (*pokeapi.Pokemon, error)
	Generation(ctx context.Context, id int) (*pokeapi.Generation, error)
	Pokedex(ctx context.Context, name string) (*pokeapi.Pokedex, error)
}

// Recorder receives cache and run counters. *metrics.Recorder satisfies it.
type Recorder interface {
	RecordCacheHits(flow string, n int)
	RecordDropped(flow string, n int)
	RecordRun(flow, state string, duration time.Duration, err error)
}

// Result is the outcome of a successful flow.
type Result struct {
	// Pokemon holds the surviving records. FetchGeneration sorts them by id;
	// the sequential flows keep the remote order.
	Pokemon []*schema.Pokemon `json:"pokemon"`
	// Requested is the number of references the listing call returned.
	Requested int `json:"requested"`
	// CacheHits counts records served from the cache without a remote call.
	CacheHits int `json:"cache_hits"`
	// Dropped counts references skipped because of a per-item failure.
	Dropped int `json:"dropped"`
	// HasMore reports whether the basic list has further pages.
	HasMore bool `json:"has_more,omitempty"`
}
