package db

import (
	"context"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/logging"
)

// WatchEntities streams the cached pokemon matching filter. The current
// snapshot is sent immediately and again after every commit touching the
// pokemon table. A slow reader only sees the latest state. The channel is
// closed when ctx is done.
func (db *DB) WatchEntities(ctx context.Context, filter schema.Filter) <-chan []*schema.Pokemon {
	return watch(ctx, db, "pokemon", func(ctx context.Context) ([]*schema.Pokemon, error) {
		return db.ListEntitiesContext(ctx, filter)
	}, topicPokemon)
}

// WatchTeams streams the team list, newest first.
func (db *DB) WatchTeams(ctx context.Context) <-chan []*schema.Team {
	return watch(ctx, db, "teams", db.ListTeams, topicTeams)
}

// WatchTeamMembers streams the members of one team ordered by position.
func (db *DB) WatchTeamMembers(ctx context.Context, teamID int64) <-chan []*schema.Pokemon {
	return watch(ctx, db, "team_members", func(ctx context.Context) ([]*schema.Pokemon, error) {
		return db.TeamMembers(ctx, teamID)
	}, topicMembers, topicTeams)
}

// WatchRosters streams every team with its membership rows.
func (db *DB) WatchRosters(ctx context.Context) <-chan []*schema.Roster {
	return watch(ctx, db, "rosters", db.Rosters, topicTeams, topicMembers)
}

func watch[T any](ctx context.Context, db *DB, name string, query func(context.Context) (T, error), topics ...topic) <-chan T {
	out := make(chan T)
	changed, cancel := db.notify.subscribe(topics...)

	go func() {
		defer close(out)
		defer cancel()

		for {
			snapshot, err := query(ctx)
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				logging.Warn(db.logger, "watch query failed", "watch", name, logging.FieldError, err)
			default:
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
