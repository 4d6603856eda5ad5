package sync

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/devmasterteam/pokecache/internal/cache/db"
	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/pokeapi"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return database
}

// fakeRemote serves canned catalog data with optional latency and failures.
type fakeRemote struct {
	mu gosync.Mutex

	details     map[int]*pokeapi.Pokemon
	generations map[int]*pokeapi.Generation
	pokedexes   map[string]*pokeapi.Pokedex
	page        *pokeapi.Page

	listErr    error
	failIDs    map[int]error
	maxLatency time.Duration

	detailCalls map[int]int
	dexRequests []string
	inFlight    int
	maxInFlight int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		details:     make(map[int]*pokeapi.Pokemon),
		generations: make(map[int]*pokeapi.Generation),
		pokedexes:   make(map[string]*pokeapi.Pokedex),
		failIDs:     make(map[int]error),
		detailCalls: make(map[int]int),
	}
}

func strPtr(s string) *string { return &s }

// addSpecies registers details for id with a predictable name and sprites.
func (f *fakeRemote) addSpecies(id int, types ...string) {
	slots := make([]pokeapi.TypeSlot, 0, len(types))
	for i, name := range types {
		slots = append(slots, pokeapi.TypeSlot{Slot: i + 1, Type: pokeapi.NamedResource{Name: name}})
	}
	f.details[id] = &pokeapi.Pokemon{
		ID:     id,
		Name:   fmt.Sprintf("species-%d", id),
		Height: id % 20,
		Weight: id * 3,
		Sprites: pokeapi.Sprites{
			FrontDefault: strPtr(fmt.Sprintf("front-%d.png", id)),
			Other: &pokeapi.OtherSprites{OfficialArtwork: &pokeapi.Artwork{
				FrontDefault: strPtr(fmt.Sprintf("art-%d.png", id)),
			}},
		},
		Types: slots,
	}
}

func speciesRef(id int) pokeapi.NamedResource {
	return pokeapi.NamedResource{
		Name: fmt.Sprintf("species-%d", id),
		URL:  fmt.Sprintf("https://pokeapi.co/api/v2/pokemon-species/%d/", id),
	}
}

func (f *fakeRemote) addGeneration(gen int, ids ...int) {
	refs := make([]pokeapi.NamedResource, 0, len(ids))
	for _, id := range ids {
		if _, ok := f.details[id]; !ok {
			f.addSpecies(id, "normal")
		}
		refs = append(refs, speciesRef(id))
	}
	f.generations[gen] = &pokeapi.Generation{ID: gen, Name: fmt.Sprintf("generation-%d", gen), PokemonSpecies: refs}
}

func (f *fakeRemote) addPokedex(name string, ids ...int) {
	entries := make([]pokeapi.PokedexEntry, 0, len(ids))
	for i, id := range ids {
		if _, ok := f.details[id]; !ok {
			f.addSpecies(id, "normal")
		}
		entries = append(entries, pokeapi.PokedexEntry{EntryNumber: i + 1, PokemonSpecies: speciesRef(id)})
	}
	f.pokedexes[name] = &pokeapi.Pokedex{Name: name, PokemonEntries: entries}
}

func (f *fakeRemote) setPage(hasMore bool, ids ...int) {
	results := make([]pokeapi.NamedResource, 0, len(ids))
	for _, id := range ids {
		if _, ok := f.details[id]; !ok {
			f.addSpecies(id, "normal")
		}
		results = append(results, pokeapi.NamedResource{
			Name: fmt.Sprintf("species-%d", id),
			URL:  fmt.Sprintf("https://pokeapi.co/api/v2/pokemon/%d/", id),
		})
	}
	f.page = &pokeapi.Page{Count: len(ids), Results: results}
	if hasMore {
		f.page.Next = strPtr("https://pokeapi.co/api/v2/pokemon?offset=20&limit=20")
	}
}

func (f *fakeRemote) ListPokemon(_ context.Context, limit, offset int) (*pokeapi.Page, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.page == nil {
		return nil, fmt.Errorf("list: %w", schema.ErrNotFound)
	}
	return f.page, nil
}

func (f *fakeRemote) Pokemon(ctx context.Context, id int) (*pokeapi.Pokemon, error) {
	f.mu.Lock()
	f.detailCalls[id]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	latency := f.maxLatency
	failure := f.failIDs[id]
	details, ok := f.details[id]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if latency > 0 {
		select {
		case <-time.After(rand.N(latency)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	if !ok {
		return nil, fmt.Errorf("pokemon %d: %w", id, schema.ErrNotFound)
	}
	return details, nil
}

func (f *fakeRemote) Generation(_ context.Context, id int) (*pokeapi.Generation, error) {
	gen, ok := f.generations[id]
	if !ok {
		return nil, fmt.Errorf("generation %d: %w", id, schema.ErrNotFound)
	}
	return gen, nil
}

func (f *fakeRemote) Pokedex(_ context.Context, name string) (*pokeapi.Pokedex, error) {
	f.mu.Lock()
	f.dexRequests = append(f.dexRequests, name)
	f.mu.Unlock()

	dex, ok := f.pokedexes[name]
	if !ok {
		return nil, fmt.Errorf("pokedex %s: %w", name, schema.ErrNotFound)
	}
	return dex, nil
}

func (f *fakeRemote) calls(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[id]
}

func resultIDs(list []*schema.Pokemon) []int {
	out := make([]int, 0, len(list))
	for _, p := range list {
		out = append(out, p.ID)
	}
	return out
}
