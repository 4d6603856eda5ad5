package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	gosync "sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/logging"
	"github.com/devmasterteam/pokecache/internal/pokeapi"
)

// DefaultConcurrency bounds FetchGeneration when Options.Concurrency is unset.
const DefaultConcurrency = 8

// Options configures a Syncer. The zero value is usable.
type Options struct {
	// Concurrency caps the number of parallel detail fetches.
	Concurrency int
	Logger      *slog.Logger
	Metrics     Recorder
	// OnRun is called for every run transition. It must not block.
	OnRun func(Run)
	Now   func() time.Time
}

// syncer implements the Syncer interface.
type syncer struct {
	store       Store
	remote      Remote
	concurrency int
	logger      *slog.Logger
	metrics     Recorder
	onRun       func(Run)
	now         func() time.Time

	mu   gosync.Mutex
	last map[string]Run
}

// New creates a new Syncer.
//
// The store must have its schema initialized before passing it here.
//
// Example:
//
//	store, err := db.Open(".pokecache/cache.db")
//	if err != nil {
//	    return err
//	}
//	if err := store.InitSchema(); err != nil {
//	    return err
//	}
//	syncer := sync.New(store, pokeapi.NewClient(pokeapi.Config{}), sync.Options{})
func New(store Store, remote Remote, opts Options) Syncer {
	s := &syncer{
		store:       store,
		remote:      remote,
		concurrency: opts.Concurrency,
		logger:      logging.Component(opts.Logger, "sync"),
		metrics:     opts.Metrics,
		onRun:       opts.OnRun,
		now:         opts.Now,
		last:        make(map[string]Run),
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// FetchAndCacheList implements Syncer.FetchAndCacheList.
func (s *syncer) FetchAndCacheList(ctx context.Context, limit, offset int) (res *Result, err error) {
	run := s.begin(FlowList, fmt.Sprintf("limit=%d offset=%d", limit, offset))
	defer func() { s.finish(run, res, err) }()

	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit must be positive and offset non-negative (limit=%d offset=%d)",
			schema.ErrInvalidInput, limit, offset)
	}

	page, err := s.remote.ListPokemon(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pokemon: %w", err)
	}

	refs := make([]ref, 0, len(page.Results))
	for _, r := range page.Results {
		refs = append(refs, ref{name: r.Name, url: r.URL})
	}

	res, err = s.fetchSequential(ctx, FlowList, refs)
	if err != nil {
		return nil, err
	}
	res.HasMore = page.HasMore()
	return res, nil
}

// FetchGeneration implements Syncer.FetchGeneration.
func (s *syncer) FetchGeneration(ctx context.Context, generation int) (res *Result, err error) {
	run := s.begin(FlowGeneration, strconv.Itoa(generation))
	defer func() { s.finish(run, res, err) }()

	if generation <= 0 {
		return nil, fmt.Errorf("%w: generation must be positive (got %d)", schema.ErrInvalidInput, generation)
	}

	gen, err := s.remote.Generation(ctx, generation)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch generation %d: %w", generation, err)
	}

	species := gen.PokemonSpecies
	var hits, dropped atomic.Int64

	// Ids are parsed up front so a species listed twice is resolved once.
	type item struct {
		name string
		id   int
	}
	items := make([]item, 0, len(species))
	seen := make(map[int]bool, len(species))
	for _, sp := range species {
		id, err := pokeapi.IDFromURL(sp.URL)
		if err != nil {
			s.drop(FlowGeneration, sp.Name, err)
			dropped.Add(1)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, item{name: sp.Name, id: id})
	}

	found := make([]*schema.Pokemon, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, it := range items {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			p, hit, err := s.resolve(gctx, it.id, generation)
			switch {
			case err == nil:
				found[i] = p
				if hit {
					hits.Add(1)
				}
				return nil
			case schema.IsFatal(err):
				return err
			default:
				s.drop(FlowGeneration, it.name, err, logging.FieldPokemonID, it.id)
				dropped.Add(1)
				return nil
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to cache generation %d: %w", generation, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generation %d interrupted: %w", generation, err)
	}

	list := slices.DeleteFunc(found, func(p *schema.Pokemon) bool { return p == nil })
	slices.SortFunc(list, func(a, b *schema.Pokemon) int { return a.ID - b.ID })

	res = &Result{
		Pokemon:   list,
		Requested: len(species),
		CacheHits: int(hits.Load()),
		Dropped:   int(dropped.Load()),
	}
	logging.Info(s.logger, "generation cached",
		logging.FieldGeneration, generation,
		logging.FieldCount, len(list),
		"cache_hits", res.CacheHits,
		logging.FieldDropped, res.Dropped,
	)
	return res, nil
}

// FetchVersion implements Syncer.FetchVersion.
func (s *syncer) FetchVersion(ctx context.Context, version string) (res *Result, err error) {
	version = strings.ToLower(strings.TrimSpace(version))
	run := s.begin(FlowVersion, version)
	defer func() { s.finish(run, res, err) }()

	if version == "" {
		return nil, fmt.Errorf("%w: version must not be blank", schema.ErrInvalidInput)
	}

	dexName := schema.PokedexForVersion(version)
	dex, err := s.remote.Pokedex(ctx, dexName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pokedex %s for version %s: %w", dexName, version, err)
	}

	refs := make([]ref, 0, len(dex.PokemonEntries))
	for _, entry := range dex.PokemonEntries {
		refs = append(refs, ref{name: entry.PokemonSpecies.Name, url: entry.PokemonSpecies.URL})
	}

	res, err = s.fetchSequential(ctx, FlowVersion, refs)
	if err != nil {
		return nil, err
	}
	logging.Info(s.logger, "version cached",
		logging.FieldVersion, version,
		logging.FieldPokedex, dexName,
		logging.FieldCount, len(res.Pokemon),
		logging.FieldDropped, res.Dropped,
	)
	return res, nil
}

// Details implements Syncer.Details.
func (s *syncer) Details(ctx context.Context, id int) (p *schema.Pokemon, err error) {
	run := s.begin(FlowDetails, strconv.Itoa(id))
	var res *Result
	defer func() { s.finish(run, res, err) }()

	if id <= 0 {
		return nil, fmt.Errorf("%w: pokemon id must be positive (got %d)", schema.ErrInvalidInput, id)
	}

	p, hit, err := s.resolve(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get pokemon %d: %w", id, err)
	}

	res = &Result{Pokemon: []*schema.Pokemon{p}, Requested: 1}
	if hit {
		res.CacheHits = 1
	}
	return p, nil
}

// ForceResync implements Syncer.ForceResync.
func (s *syncer) ForceResync(ctx context.Context, limit int) (res *Result, err error) {
	run := s.begin(FlowResync, fmt.Sprintf("limit=%d", limit))
	defer func() { s.finish(run, res, err) }()

	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive (got %d)", schema.ErrInvalidInput, limit)
	}

	if err := s.store.ClearEntitiesContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear cache: %w", err)
	}
	logging.Info(s.logger, "cache cleared for resync", logging.FieldCount, limit)

	return s.FetchAndCacheList(ctx, limit, 0)
}

type ref struct {
	name string
	url  string
}

// fetchSequential resolves refs one by one and writes the batch at the end.
// Per-item failures are dropped; a store failure or cancellation fails the
// whole batch.
func (s *syncer) fetchSequential(ctx context.Context, flow string, refs []ref) (*Result, error) {
	res := &Result{Requested: len(refs), Pokemon: make([]*schema.Pokemon, 0, len(refs))}
	seen := make(map[int]bool, len(refs))

	for _, r := range refs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s sync interrupted: %w", flow, err)
		}

		id, err := pokeapi.IDFromURL(r.url)
		if err != nil {
			s.drop(flow, r.name, err)
			res.Dropped++
			continue
		}
		if seen[id] {
			continue
		}

		details, err := s.remote.Pokemon(ctx, id)
		if err != nil {
			s.drop(flow, r.name, err, logging.FieldPokemonID, id)
			res.Dropped++
			continue
		}

		p := toEntity(details, 0)
		if err := p.Validate(); err != nil {
			s.drop(flow, r.name, err, logging.FieldPokemonID, id)
			res.Dropped++
			continue
		}

		seen[id] = true
		res.Pokemon = append(res.Pokemon, p)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s sync interrupted: %w", flow, err)
	}

	if err := s.store.UpsertEntitiesContext(ctx, res.Pokemon); err != nil {
		return nil, fmt.Errorf("failed to cache %s batch: %w", flow, err)
	}

	logging.Debug(s.logger, "batch cached",
		logging.FieldFlow, flow,
		logging.FieldCount, len(res.Pokemon),
		logging.FieldDropped, res.Dropped,
	)
	return res, nil
}

// resolve returns the cached record for id, or fetches, maps and caches it.
// hit reports whether the cache served the record.
func (s *syncer) resolve(ctx context.Context, id, generation int) (p *schema.Pokemon, hit bool, err error) {
	cached, err := s.store.GetEntityContext(ctx, id)
	if err == nil {
		return cached, true, nil
	}
	if !errors.Is(err, schema.ErrNotFound) {
		return nil, false, err
	}

	details, err := s.remote.Pokemon(ctx, id)
	if err != nil {
		return nil, false, err
	}

	p = toEntity(details, generation)
	if err := s.store.UpsertEntityContext(ctx, p); err != nil {
		return nil, false, err
	}
	return p, false, nil
}

func (s *syncer) drop(flow, name string, err error, args ...any) {
	args = append([]any{logging.FieldFlow, flow, "species", name, logging.FieldError, err}, args...)
	logging.Warn(s.logger, "skipping species", args...)
}

type noopRecorder struct{}

func (noopRecorder) RecordCacheHits(string, int) {}
func (noopRecorder) RecordDropped(string, int) {}
func (noopRecorder) RecordRun(string, string, time.Duration, error) {}
