// Package loadtest exercises the store's critical sections under
// concurrency.
//
// Workers race to add pokemon to a small set of teams while the same
// pokemon are re-upserted, the way a generation refresh overlaps with
// team edits. The run verifies that no team ever exceeds the size cap,
// that positions stay unique and that upserts never drop memberships.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/devmasterteam/pokecache/internal/cache/db"
	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

// Options configures a load test run.
type Options struct {
	Workers      int // concurrent workers (default 16)
	Teams        int // teams created for the run (default 4)
	Pokemon      int // species seeded into the cache (default 30)
	OpsPerWorker int // operations per worker (default 20)
	UpsertEvery  int // every Nth op of a worker is an upsert (default 4)
	Seed         uint64
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 16
	}
	if o.Teams <= 0 {
		o.Teams = 4
	}
	if o.Pokemon <= 0 {
		o.Pokemon = 30
	}
	if o.OpsPerWorker <= 0 {
		o.OpsPerWorker = 20
	}
	if o.UpsertEvery <= 0 {
		o.UpsertEvery = 4
	}
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration // Median
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Durations    []time.Duration `json:"-" yaml:"-"`
}

// Report is the outcome of a run.
type Report struct {
	Adds          *LatencyStats
	Upserts       *LatencyStats
	Added         int
	TeamFull      int
	AlreadyMember int
	Errors        int
	// Violations lists broken invariants found after the run. Empty means
	// the store held up.
	Violations []string
	Elapsed    time.Duration
}

// OK reports whether the run finished without errors or violations.
func (r *Report) OK() bool {
	return r.Errors == 0 && len(r.Violations) == 0
}

type outcome struct {
	latency time.Duration
	isAdd   bool
	err     error
}

// Run seeds store, runs the workers and verifies the result.
// The store's schema must be initialized.
func Run(ctx context.Context, store *db.DB, opts Options) (*Report, error) {
	opts.applyDefaults()

	species := make([]*schema.Pokemon, opts.Pokemon)
	for i := range species {
		species[i] = testPokemon(i + 1)
	}
	if err := store.UpsertEntitiesContext(ctx, species); err != nil {
		return nil, fmt.Errorf("failed to seed pokemon: %w", err)
	}

	teamIDs := make([]int64, opts.Teams)
	for i := range teamIDs {
		id, err := store.CreateTeam(ctx, fmt.Sprintf("loadtest-%d", i+1))
		if err != nil {
			return nil, fmt.Errorf("failed to create team: %w", err)
		}
		teamIDs[i] = id
	}

	start := time.Now()
	results := make(chan outcome, opts.Workers*opts.OpsPerWorker)

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(worker)))

			for op := 0; op < opts.OpsPerWorker; op++ {
				if ctx.Err() != nil {
					return
				}
				p := species[rng.IntN(len(species))]

				if (op+1)%opts.UpsertEvery == 0 {
					refreshed := *p
					refreshed.Weight = rng.IntN(1000)
					began := time.Now()
					err := store.UpsertEntityContext(ctx, &refreshed)
					results <- outcome{latency: time.Since(began), err: err}
					continue
				}

				team := teamIDs[rng.IntN(len(teamIDs))]
				began := time.Now()
				_, err := store.AddMember(ctx, team, p.ID)
				results <- outcome{latency: time.Since(began), isAdd: true, err: err}
			}
		}(w)
	}
	wg.Wait()
	close(results)

	report := &Report{Elapsed: time.Since(start)}
	var adds, upserts []time.Duration
	for r := range results {
		if r.isAdd {
			adds = append(adds, r.latency)
		} else {
			upserts = append(upserts, r.latency)
		}
		switch {
		case r.err == nil:
			if r.isAdd {
				report.Added++
			}
		case errors.Is(r.err, schema.ErrTeamFull):
			report.TeamFull++
		case errors.Is(r.err, schema.ErrAlreadyMember):
			report.AlreadyMember++
		default:
			report.Errors++
		}
	}
	report.Adds = computeLatencyStats(adds)
	report.Upserts = computeLatencyStats(upserts)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	violations, err := verify(ctx, store, teamIDs, report.Added)
	if err != nil {
		return report, err
	}
	report.Violations = violations
	return report, nil
}

// verify checks the team invariants after a run.
func verify(ctx context.Context, store *db.DB, teamIDs []int64, added int) ([]string, error) {
	var violations []string
	total := 0

	for _, id := range teamIDs {
		rows, err := store.MemberRows(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read team %d: %w", id, err)
		}
		total += len(rows)

		if len(rows) > schema.MaxTeamSize {
			violations = append(violations, fmt.Sprintf("team %d has %d members (max %d)", id, len(rows), schema.MaxTeamSize))
		}
		positions := make(map[int]bool, len(rows))
		for _, m := range rows {
			if positions[m.Position] {
				violations = append(violations, fmt.Sprintf("team %d reuses position %d", id, m.Position))
			}
			positions[m.Position] = true
		}
	}

	if total != added {
		violations = append(violations, fmt.Sprintf("%d memberships stored, %d adds succeeded", total, added))
	}
	return violations, nil
}

func testPokemon(id int) *schema.Pokemon {
	name := fmt.Sprintf("loadtest-%03d", id)
	return &schema.Pokemon{
		ID:         id,
		Name:       name,
		SpriteURL:  "https://img.example/" + name + ".png",
		Types:      []string{"normal"},
		Height:     10,
		Weight:     100,
		Generation: schema.GenerationForID(id),
	}
}

func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(durations)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(durations),
		Durations:    sorted,
	}
}

// WriteStats formats latency statistics.
func (s *LatencyStats) WriteStats(w io.Writer, title string) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  Total:         %d\n", s.TotalQueries)
	fmt.Fprintf(w, "  Min:           %v\n", s.Min)
	fmt.Fprintf(w, "  P50 (Median):  %v\n", s.P50)
	fmt.Fprintf(w, "  Mean:          %v\n", s.Mean)
	fmt.Fprintf(w, "  P95:           %v\n", s.P95)
	fmt.Fprintf(w, "  P99:           %v\n", s.P99)
	fmt.Fprintf(w, "  Max:           %v\n", s.Max)
}
