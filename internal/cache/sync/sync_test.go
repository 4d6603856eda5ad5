package sync

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	gosync "sync"
	"testing"
	"time"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/metrics"
)

func TestFetchGeneration_EndToEnd(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addGeneration(1, 7, 1, 4)

	s := New(store, remote, Options{})
	res, err := s.FetchGeneration(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchGeneration failed: %v", err)
	}

	if got := resultIDs(res.Pokemon); !reflect.DeepEqual(got, []int{1, 4, 7}) {
		t.Errorf("result ids = %v, want [1 4 7]", got)
	}
	count, err := store.CountEntities()
	if err != nil {
		t.Fatalf("CountEntities failed: %v", err)
	}
	if count != 3 {
		t.Errorf("CountEntities() = %d, want 3", count)
	}
	if res.Requested != 3 || res.CacheHits != 0 || res.Dropped != 0 {
		t.Errorf("unexpected counters %+v", res)
	}

	cached, err := store.GetEntity(4)
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if cached.Generation != 1 || cached.SpriteURL != "art-4.png" {
		t.Errorf("unexpected cached record %+v", cached)
	}
}

func TestFetchGeneration_DuplicateRefs(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addGeneration(1, 1, 4, 4)

	s := New(store, remote, Options{})
	res, err := s.FetchGeneration(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchGeneration failed: %v", err)
	}

	if got := resultIDs(res.Pokemon); !reflect.DeepEqual(got, []int{1, 4}) {
		t.Errorf("result ids = %v, want [1 4]", got)
	}
	if count, _ := store.CountEntities(); count != len(res.Pokemon) {
		t.Errorf("CountEntities() = %d, want %d", count, len(res.Pokemon))
	}
	if got := remote.calls(4); got != 1 {
		t.Errorf("detail calls for 4 = %d, want 1", got)
	}
	if res.Requested != 3 || res.CacheHits != 0 || res.Dropped != 0 {
		t.Errorf("unexpected counters %+v", res)
	}
}

func TestFetchGeneration_SortedUnderRandomLatency(t *testing.T) {
	ids := make([]int, 0, 40)
	for id := 152; id < 192; id++ {
		ids = append(ids, id)
	}

	for round := 0; round < 5; round++ {
		store := setupTestDB(t)
		remote := newFakeRemote()
		remote.maxLatency = 5 * time.Millisecond

		shuffled := slices.Clone(ids)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		remote.addGeneration(2, shuffled...)

		s := New(store, remote, Options{Concurrency: 16})
		res, err := s.FetchGeneration(context.Background(), 2)
		if err != nil {
			t.Fatalf("round %d: FetchGeneration failed: %v", round, err)
		}
		got := resultIDs(res.Pokemon)
		if !slices.IsSorted(got) {
			t.Fatalf("round %d: result not sorted: %v", round, got)
		}
		if !reflect.DeepEqual(got, ids) {
			t.Fatalf("round %d: result = %v, want %v", round, got, ids)
		}
	}
}

func TestFetchGeneration_CacheFirst(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addGeneration(1, 1, 2, 3)

	// Cached record differs from the remote one so a hit is observable.
	seeded := &schema.Pokemon{ID: 2, Name: "cached-ivysaur", Types: []string{"grass"}, Generation: 1}
	if err := store.UpsertEntity(seeded); err != nil {
		t.Fatalf("UpsertEntity failed: %v", err)
	}

	s := New(store, remote, Options{})
	res, err := s.FetchGeneration(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchGeneration failed: %v", err)
	}

	if remote.calls(2) != 0 {
		t.Errorf("cached id 2 fetched %d times, want 0", remote.calls(2))
	}
	if remote.calls(1) != 1 || remote.calls(3) != 1 {
		t.Errorf("uncached ids fetched %d/%d times, want 1/1", remote.calls(1), remote.calls(3))
	}
	if res.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", res.CacheHits)
	}
	if res.Pokemon[1].Name != "cached-ivysaur" {
		t.Errorf("result[1] = %+v, want the cached record", res.Pokemon[1])
	}
}

func TestFetchGeneration_DropsFailedItems(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addGeneration(1, 1, 2, 3, 4)
	remote.failIDs[2] = fmt.Errorf("timeout: %w", schema.ErrTransport)
	remote.generations[1].PokemonSpecies = append(remote.generations[1].PokemonSpecies,
		speciesRef(0), // unparseable id
	)
	remote.generations[1].PokemonSpecies[3].URL = "https://pokeapi.co/api/v2/pokemon-species/999/"
	delete(remote.details, 999)

	rec := metrics.NewRecorder()
	s := New(store, remote, Options{Metrics: rec})
	res, err := s.FetchGeneration(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchGeneration failed: %v", err)
	}

	if got := resultIDs(res.Pokemon); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("result ids = %v, want [1 3]", got)
	}
	if res.Dropped != 3 || res.Requested != 5 {
		t.Errorf("Dropped = %d, Requested = %d; want 3 and 5", res.Dropped, res.Requested)
	}
	if _, err := store.GetEntity(2); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("failed item must not be cached, got %v", err)
	}
	if got := rec.Flow(FlowGeneration).Dropped; got != 3 {
		t.Errorf("recorded dropped = %d, want 3", got)
	}
}

func TestFetchGeneration_InitialFailure(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()

	s := New(store, remote, Options{})
	_, err := s.FetchGeneration(context.Background(), 3)
	if !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("FetchGeneration error = %v, want ErrNotFound", err)
	}
	if s.State(FlowGeneration) != StateFailed {
		t.Errorf("State = %s, want failed", s.State(FlowGeneration))
	}
	if count, _ := store.CountEntities(); count != 0 {
		t.Errorf("CountEntities() = %d, want 0", count)
	}
}

func TestFetchGeneration_InvalidGeneration(t *testing.T) {
	s := New(setupTestDB(t), newFakeRemote(), Options{})
	if _, err := s.FetchGeneration(context.Background(), 0); !errors.Is(err, schema.ErrInvalidInput) {
		t.Fatalf("FetchGeneration(0) error = %v, want ErrInvalidInput", err)
	}
}

func TestFetchGeneration_BoundedConcurrency(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.maxLatency = 3 * time.Millisecond
	ids := make([]int, 0, 30)
	for id := 1; id <= 30; id++ {
		ids = append(ids, id)
	}
	remote.addGeneration(1, ids...)

	s := New(store, remote, Options{Concurrency: 3})
	if _, err := s.FetchGeneration(context.Background(), 1); err != nil {
		t.Fatalf("FetchGeneration failed: %v", err)
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.maxInFlight > 3 {
		t.Errorf("max in-flight detail calls = %d, want <= 3", remote.maxInFlight)
	}
}

func TestFetchGeneration_Cancelled(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addGeneration(1, 1, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(store, remote, Options{})
	if _, err := s.FetchGeneration(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchGeneration error = %v, want context.Canceled", err)
	}
}

func TestFetchAndCacheList(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.setPage(true, 1, 2, 3, 4)
	remote.failIDs[3] = fmt.Errorf("reset: %w", schema.ErrTransport)

	s := New(store, remote, Options{})
	res, err := s.FetchAndCacheList(context.Background(), 4, 0)
	if err != nil {
		t.Fatalf("FetchAndCacheList failed: %v", err)
	}

	if got := resultIDs(res.Pokemon); !reflect.DeepEqual(got, []int{1, 2, 4}) {
		t.Errorf("result ids = %v, want [1 2 4]", got)
	}
	if res.Dropped != 1 || !res.HasMore {
		t.Errorf("unexpected result %+v", res)
	}
	if count, _ := store.CountEntities(); count != 3 {
		t.Errorf("CountEntities() = %d, want 3", count)
	}

	// Generation is derived from the id when the flow does not supply one.
	p, _ := store.GetEntity(4)
	if p.Generation != 1 {
		t.Errorf("Generation = %d, want 1", p.Generation)
	}
}

func TestFetchAndCacheList_InitialFailure(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.listErr = fmt.Errorf("dial: %w", schema.ErrTransport)

	s := New(store, remote, Options{})
	_, err := s.FetchAndCacheList(context.Background(), 10, 0)
	if !errors.Is(err, schema.ErrTransport) {
		t.Fatalf("FetchAndCacheList error = %v, want ErrTransport", err)
	}
}

func TestFetchAndCacheList_InvalidArgs(t *testing.T) {
	s := New(setupTestDB(t), newFakeRemote(), Options{})
	if _, err := s.FetchAndCacheList(context.Background(), 0, 0); !errors.Is(err, schema.ErrInvalidInput) {
		t.Errorf("limit=0 error = %v, want ErrInvalidInput", err)
	}
	if _, err := s.FetchAndCacheList(context.Background(), 5, -1); !errors.Is(err, schema.ErrInvalidInput) {
		t.Errorf("offset=-1 error = %v, want ErrInvalidInput", err)
	}
}

func TestFetchVersion_UsesRegionalPokedex(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addPokedex("paldea", 906, 909, 912)

	s := New(store, remote, Options{})
	res, err := s.FetchVersion(context.Background(), " Scarlet ")
	if err != nil {
		t.Fatalf("FetchVersion failed: %v", err)
	}
	if !reflect.DeepEqual(remote.dexRequests, []string{"paldea"}) {
		t.Errorf("requested pokedexes = %v, want [paldea]", remote.dexRequests)
	}
	if got := resultIDs(res.Pokemon); !reflect.DeepEqual(got, []int{906, 909, 912}) {
		t.Errorf("result ids = %v", got)
	}
	p, _ := store.GetEntity(909)
	if p.Generation != 9 {
		t.Errorf("Generation = %d, want 9", p.Generation)
	}
}

func TestFetchVersion_UnknownFallsBackToNational(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addPokedex(schema.NationalPokedex, 1)

	s := New(store, remote, Options{})
	if _, err := s.FetchVersion(context.Background(), "unknown-version"); err != nil {
		t.Fatalf("FetchVersion failed: %v", err)
	}
	if !reflect.DeepEqual(remote.dexRequests, []string{schema.NationalPokedex}) {
		t.Errorf("requested pokedexes = %v, want [national]", remote.dexRequests)
	}
}

func TestFetchVersion_Blank(t *testing.T) {
	s := New(setupTestDB(t), newFakeRemote(), Options{})
	if _, err := s.FetchVersion(context.Background(), "  "); !errors.Is(err, schema.ErrInvalidInput) {
		t.Fatalf("FetchVersion(blank) error = %v, want ErrInvalidInput", err)
	}
}

func TestDetails_CacheFirst(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addSpecies(25, "electric")

	s := New(store, remote, Options{})
	ctx := context.Background()

	first, err := s.Details(ctx, 25)
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	second, err := s.Details(ctx, 25)
	if err != nil {
		t.Fatalf("second Details failed: %v", err)
	}

	if remote.calls(25) != 1 {
		t.Errorf("remote fetched %d times, want 1", remote.calls(25))
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached record %+v differs from fetched %+v", second, first)
	}

	if _, err := s.Details(ctx, 404); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("Details(404) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Details(ctx, -1); !errors.Is(err, schema.ErrInvalidInput) {
		t.Errorf("Details(-1) error = %v, want ErrInvalidInput", err)
	}
}

func TestForceResync(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.setPage(false, 1, 2)

	if err := store.UpsertEntity(&schema.Pokemon{ID: 500, Name: "stale"}); err != nil {
		t.Fatalf("UpsertEntity failed: %v", err)
	}

	s := New(store, remote, Options{})
	res, err := s.ForceResync(context.Background(), 2)
	if err != nil {
		t.Fatalf("ForceResync failed: %v", err)
	}
	if len(res.Pokemon) != 2 {
		t.Errorf("resynced %d records, want 2", len(res.Pokemon))
	}
	if _, err := store.GetEntity(500); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("stale record survived resync: %v", err)
	}
}

func TestRunReporting(t *testing.T) {
	store := setupTestDB(t)
	remote := newFakeRemote()
	remote.addGeneration(1, 1, 2)

	var mu gosync.Mutex
	var seen []Run
	s := New(store, remote, Options{OnRun: func(r Run) {
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
	}})

	if s.State(FlowGeneration) != StateIdle {
		t.Fatalf("initial state = %s, want idle", s.State(FlowGeneration))
	}
	if _, err := s.FetchGeneration(context.Background(), 1); err != nil {
		t.Fatalf("FetchGeneration failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0].State != StateFetching || seen[1].State != StateSuccess {
		t.Fatalf("unexpected transitions %+v", seen)
	}
	if seen[1].Count != 2 || seen[1].Target != "1" || seen[1].FinishedAt.IsZero() {
		t.Errorf("unexpected final run %+v", seen[1])
	}

	runs := s.LastRuns()
	if len(runs) != 1 || runs[0].Flow != FlowGeneration || !runs[0].State.Done() {
		t.Errorf("LastRuns() = %+v", runs)
	}
}
