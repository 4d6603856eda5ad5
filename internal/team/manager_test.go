package team

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	gosync "sync"
	"testing"

	"github.com/devmasterteam/pokecache/internal/cache/db"
	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

func setupManager(t *testing.T, opts ...Option) (*Manager, *db.DB) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return NewManager(store, opts...), store
}

func seed(t *testing.T, store *db.DB, ids ...int) {
	t.Helper()
	for _, id := range ids {
		p := &schema.Pokemon{
			ID:         id,
			Name:       fmt.Sprintf("poke-%d", id),
			Types:      []string{"normal"},
			Generation: schema.GenerationForID(id),
		}
		if err := store.UpsertEntity(p); err != nil {
			t.Fatalf("UpsertEntity(%d) failed: %v", id, err)
		}
	}
}

// countingResolver caches the requested pokemon and counts calls.
type countingResolver struct {
	mu    gosync.Mutex
	store *db.DB
	calls int
	err   error
}

func (r *countingResolver) Details(ctx context.Context, id int) (*schema.Pokemon, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p := &schema.Pokemon{ID: id, Name: fmt.Sprintf("resolved-%d", id), Types: []string{"normal"}, Generation: schema.GenerationForID(id)}
	if err := r.store.UpsertEntityContext(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func TestTarget(t *testing.T) {
	if !Default().IsDefault() || Default().TeamID() != schema.DefaultTeamID {
		t.Errorf("Default() = %+v, want the default team", Default())
	}
	if ByID(4).IsDefault() {
		t.Error("ByID(4).IsDefault() = true")
	}
	if got := ByID(4).String(); got != "team 4" {
		t.Errorf("String() = %q, want %q", got, "team 4")
	}
	if got := Default().String(); got != "default team" {
		t.Errorf("String() = %q, want %q", got, "default team")
	}
}

func TestCreateTeam(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	team, err := m.CreateTeam(ctx, "  Kanto Crew  ")
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	if team.Name != "Kanto Crew" {
		t.Errorf("Name = %q, want trimmed name", team.Name)
	}
	if !team.IsActive {
		t.Error("new team should be active")
	}
	if team.ID == schema.DefaultTeamID {
		t.Error("new team must not reuse the default team id")
	}

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := m.CreateTeam(ctx, name); !errors.Is(err, schema.ErrInvalidInput) {
			t.Errorf("CreateTeam(%q) error = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestRenameAndActive(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	team, err := m.CreateTeam(ctx, "Alpha")
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	if err := m.RenameTeam(ctx, team.ID, " Beta "); err != nil {
		t.Fatalf("RenameTeam() failed: %v", err)
	}
	if err := m.RenameTeam(ctx, team.ID, " "); !errors.Is(err, schema.ErrInvalidInput) {
		t.Errorf("RenameTeam(blank) error = %v, want ErrInvalidInput", err)
	}
	if err := m.RenameTeam(ctx, 999, "Gamma"); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("RenameTeam(missing) error = %v, want ErrNotFound", err)
	}

	if err := m.SetActive(ctx, team.ID, false); err != nil {
		t.Fatalf("SetActive() failed: %v", err)
	}
	got, err := m.Team(ctx, team.ID)
	if err != nil {
		t.Fatalf("Team() failed: %v", err)
	}
	if got.Name != "Beta" || got.IsActive {
		t.Errorf("Team() = %+v, want inactive Beta", got)
	}

	active, err := m.ActiveTeams(ctx)
	if err != nil {
		t.Fatalf("ActiveTeams() failed: %v", err)
	}
	for _, a := range active {
		if a.ID == team.ID {
			t.Error("inactive team listed by ActiveTeams()")
		}
	}
}

func TestDeleteTeam(t *testing.T) {
	m, store := setupManager(t)
	ctx := context.Background()
	seed(t, store, 1, 4)

	team, err := m.CreateTeam(ctx, "Doomed")
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	if _, err := m.AddPokemon(ctx, ByID(team.ID), 1); err != nil {
		t.Fatalf("AddPokemon() failed: %v", err)
	}
	if err := m.DeleteTeam(ctx, team.ID); err != nil {
		t.Fatalf("DeleteTeam() failed: %v", err)
	}
	if _, err := m.Team(ctx, team.ID); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("Team() after delete error = %v, want ErrNotFound", err)
	}
	teams, err := m.TeamsContaining(ctx, 1)
	if err != nil {
		t.Fatalf("TeamsContaining() failed: %v", err)
	}
	if len(teams) != 0 {
		t.Errorf("TeamsContaining() = %d teams, want members removed with the team", len(teams))
	}

	if err := m.DeleteTeam(ctx, schema.DefaultTeamID); !errors.Is(err, schema.ErrInvalidInput) {
		t.Errorf("DeleteTeam(default) error = %v, want ErrInvalidInput", err)
	}
}

func TestAddPokemon_Positions(t *testing.T) {
	m, store := setupManager(t)
	ctx := context.Background()
	seed(t, store, 1, 4, 7)

	team, err := m.CreateTeam(ctx, "Starters")
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	target := ByID(team.ID)

	for i, id := range []int{1, 4, 7} {
		pos, err := m.AddPokemon(ctx, target, id)
		if err != nil {
			t.Fatalf("AddPokemon(%d) failed: %v", id, err)
		}
		if pos != i {
			t.Errorf("AddPokemon(%d) position = %d, want %d", id, pos, i)
		}
	}

	if _, err := m.AddPokemon(ctx, target, 4); !errors.Is(err, schema.ErrAlreadyMember) {
		t.Errorf("AddPokemon(duplicate) error = %v, want ErrAlreadyMember", err)
	}
	if _, err := m.AddPokemon(ctx, target, 0); !errors.Is(err, schema.ErrInvalidInput) {
		t.Errorf("AddPokemon(0) error = %v, want ErrInvalidInput", err)
	}

	members, err := m.Members(ctx, target)
	if err != nil {
		t.Fatalf("Members() failed: %v", err)
	}
	if len(members) != 3 || members[0].ID != 1 || members[2].ID != 7 {
		t.Errorf("Members() = %v, want [1 4 7] in order", members)
	}
}

func TestAddPokemon_TeamFull(t *testing.T) {
	m, store := setupManager(t)
	ctx := context.Background()
	seed(t, store, 1, 2, 3, 4, 5, 6, 7)

	for id := 1; id <= schema.MaxTeamSize; id++ {
		if _, err := m.AddToTeam(ctx, id); err != nil {
			t.Fatalf("AddToTeam(%d) failed: %v", id, err)
		}
	}
	full, err := m.IsFull(ctx, Default())
	if err != nil {
		t.Fatalf("IsFull() failed: %v", err)
	}
	if !full {
		t.Error("IsFull() = false with six members")
	}

	if _, err := m.AddToTeam(ctx, 7); !errors.Is(err, schema.ErrTeamFull) {
		t.Errorf("AddToTeam(7th) error = %v, want ErrTeamFull", err)
	}
	// A full team reports TeamFull even for a pokemon it already holds.
	if _, err := m.AddToTeam(ctx, 1); !errors.Is(err, schema.ErrTeamFull) {
		t.Errorf("AddToTeam(existing on full team) error = %v, want ErrTeamFull", err)
	}

	size, err := m.Size(ctx, Default())
	if err != nil {
		t.Fatalf("Size() failed: %v", err)
	}
	if size != schema.MaxTeamSize {
		t.Errorf("Size() = %d, want %d", size, schema.MaxTeamSize)
	}
}

func TestAddPokemon_Concurrent(t *testing.T) {
	m, store := setupManager(t)
	ctx := context.Background()
	ids := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	seed(t, store, ids...)

	team, err := m.CreateTeam(ctx, "Rush")
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}

	var (
		wg     gosync.WaitGroup
		mu     gosync.Mutex
		added  int
		full   int
		others []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := m.AddPokemon(ctx, ByID(team.ID), id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				added++
			case errors.Is(err, schema.ErrTeamFull):
				full++
			default:
				others = append(others, err)
			}
		}(id)
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if added != schema.MaxTeamSize || full != len(ids)-schema.MaxTeamSize {
		t.Errorf("added=%d full=%d, want %d and %d", added, full, schema.MaxTeamSize, len(ids)-schema.MaxTeamSize)
	}
}

func TestAddPokemon_Resolver(t *testing.T) {
	resolver := &countingResolver{}
	m, store := setupManager(t, WithResolver(resolver))
	resolver.store = store
	ctx := context.Background()

	// 150 is not cached; the resolver fetches it first.
	if _, err := m.AddToTeam(ctx, 150); err != nil {
		t.Fatalf("AddToTeam(150) failed: %v", err)
	}
	in, err := m.IsInTeam(ctx, 150)
	if err != nil {
		t.Fatalf("IsInTeam() failed: %v", err)
	}
	if !in {
		t.Error("IsInTeam(150) = false after add")
	}
	if resolver.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", resolver.calls)
	}

	resolver.err = fmt.Errorf("boom: %w", schema.ErrTransport)
	if _, err := m.AddToTeam(ctx, 151); !errors.Is(err, schema.ErrTransport) {
		t.Errorf("AddToTeam(unresolvable) error = %v, want ErrTransport", err)
	}
}

func TestAddPokemon_ResolverSkippedWhenFull(t *testing.T) {
	resolver := &countingResolver{}
	m, store := setupManager(t, WithResolver(resolver))
	resolver.store = store
	ctx := context.Background()

	for id := 1; id <= schema.MaxTeamSize; id++ {
		if _, err := m.AddToTeam(ctx, id); err != nil {
			t.Fatalf("AddToTeam(%d) failed: %v", id, err)
		}
	}
	before := resolver.calls
	if _, err := m.AddToTeam(ctx, 99); !errors.Is(err, schema.ErrTeamFull) {
		t.Errorf("AddToTeam() error = %v, want ErrTeamFull", err)
	}
	if resolver.calls != before {
		t.Errorf("resolver called %d times for a full team", resolver.calls-before)
	}
}

func TestAddPokemon_UnknownTeamSkipsResolver(t *testing.T) {
	resolver := &countingResolver{}
	m, store := setupManager(t, WithResolver(resolver))
	resolver.store = store

	_, err := m.AddPokemon(context.Background(), ByID(404), 25)
	if !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("AddPokemon(unknown team) error = %v, want ErrNotFound", err)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver called %d times for an unknown team", resolver.calls)
	}
}

func TestAddPokemon_Uncached(t *testing.T) {
	m, _ := setupManager(t)
	if _, err := m.AddToTeam(context.Background(), 25); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("AddToTeam(uncached) error = %v, want ErrNotFound", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	m, store := setupManager(t)
	ctx := context.Background()
	seed(t, store, 1, 4, 7)

	for _, id := range []int{1, 4, 7} {
		if _, err := m.AddToTeam(ctx, id); err != nil {
			t.Fatalf("AddToTeam(%d) failed: %v", id, err)
		}
	}

	if err := m.RemoveFromTeam(ctx, 4); err != nil {
		t.Fatalf("RemoveFromTeam() failed: %v", err)
	}
	// Removing a non-member is a no-op.
	if err := m.RemoveFromTeam(ctx, 4); err != nil {
		t.Errorf("RemoveFromTeam(non-member) error = %v, want nil", err)
	}

	// Positions keep gaps; the next add appends after the highest.
	if _, err := m.AddToTeam(ctx, 4); err != nil {
		t.Fatalf("AddToTeam(4) failed: %v", err)
	}
	members, err := m.Members(ctx, Default())
	if err != nil {
		t.Fatalf("Members() failed: %v", err)
	}
	got := make([]int, 0, len(members))
	for _, p := range members {
		got = append(got, p.ID)
	}
	if fmt.Sprint(got) != "[1 7 4]" {
		t.Errorf("Members() = %v, want [1 7 4]", got)
	}

	if err := m.Clear(ctx, Default()); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	size, err := m.Size(ctx, Default())
	if err != nil {
		t.Fatalf("Size() failed: %v", err)
	}
	if size != 0 {
		t.Errorf("Size() after Clear = %d, want 0", size)
	}
	// The default team survives a clear.
	if _, err := m.Team(ctx, schema.DefaultTeamID); err != nil {
		t.Errorf("Team(default) after Clear failed: %v", err)
	}
}

func TestReorder(t *testing.T) {
	m, store := setupManager(t)
	ctx := context.Background()
	seed(t, store, 1, 4)

	for _, id := range []int{1, 4} {
		if _, err := m.AddToTeam(ctx, id); err != nil {
			t.Fatalf("AddToTeam(%d) failed: %v", id, err)
		}
	}
	if err := m.Reorder(ctx, Default(), 1, 5); err != nil {
		t.Fatalf("Reorder() failed: %v", err)
	}
	members, err := m.Members(ctx, Default())
	if err != nil {
		t.Fatalf("Members() failed: %v", err)
	}
	if members[0].ID != 4 {
		t.Errorf("first member = %d, want 4 after reorder", members[0].ID)
	}
	if err := m.Reorder(ctx, Default(), 1, -1); !errors.Is(err, schema.ErrInvalidInput) {
		t.Errorf("Reorder(-1) error = %v, want ErrInvalidInput", err)
	}
	if err := m.Reorder(ctx, Default(), 7, 0); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("Reorder(non-member) error = %v, want ErrNotFound", err)
	}
}

func TestTeamsContaining(t *testing.T) {
	m, store := setupManager(t)
	ctx := context.Background()
	seed(t, store, 25)

	a, err := m.CreateTeam(ctx, "A")
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	b, err := m.CreateTeam(ctx, "B")
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	for _, team := range []*schema.Team{a, b} {
		if _, err := m.AddPokemon(ctx, ByID(team.ID), 25); err != nil {
			t.Fatalf("AddPokemon() failed: %v", err)
		}
	}

	teams, err := m.TeamsContaining(ctx, 25)
	if err != nil {
		t.Fatalf("TeamsContaining() failed: %v", err)
	}
	if len(teams) != 2 {
		t.Errorf("TeamsContaining() = %d teams, want 2", len(teams))
	}
	in, err := m.IsMember(ctx, ByID(a.ID), 25)
	if err != nil || !in {
		t.Errorf("IsMember() = %v, %v; want true", in, err)
	}
}
