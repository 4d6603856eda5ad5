package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

const pokemonColumns = `id, name, sprite_url, shiny_sprite_url, types, height, weight, generation`

const upsertPokemonQuery = `
	INSERT INTO pokemon (` + pokemonColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		sprite_url = excluded.sprite_url,
		shiny_sprite_url = excluded.shiny_sprite_url,
		types = excluded.types,
		height = excluded.height,
		weight = excluded.weight,
		generation = excluded.generation
	`

// UpsertEntity inserts or replaces a cached pokemon by id.
func (db *DB) UpsertEntity(p *schema.Pokemon) error {
	return db.UpsertEntityContext(context.Background(), p)
}

// UpsertEntityContext inserts or replaces a cached pokemon with context support.
//
// ON CONFLICT DO UPDATE keeps existing team_members rows; a plain
// INSERT OR REPLACE would delete the old row and cascade.
func (db *DB) UpsertEntityContext(ctx context.Context, p *schema.Pokemon) error {
	return db.UpsertEntitiesContext(ctx, []*schema.Pokemon{p})
}

// UpsertEntities writes a batch of pokemon in a single transaction.
func (db *DB) UpsertEntities(list []*schema.Pokemon) error {
	return db.UpsertEntitiesContext(context.Background(), list)
}

// UpsertEntitiesContext writes a batch with context support. The whole batch
// is validated first; either every record is written or none is.
func (db *DB) UpsertEntitiesContext(ctx context.Context, list []*schema.Pokemon) error {
	if len(list) == 0 {
		return nil
	}
	for _, p := range list {
		if p == nil {
			return fmt.Errorf("invalid pokemon: %w: nil record", schema.ErrInvalidInput)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid pokemon %d: %w", p.ID, err)
		}
	}

	return db.write(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertPokemonQuery)
		if err != nil {
			return storeErr("prepare pokemon upsert", err)
		}
		defer stmt.Close()

		for _, p := range list {
			_, err := stmt.ExecContext(ctx,
				p.ID,
				p.Name,
				p.SpriteURL,
				p.ShinySpriteURL,
				p.TypesField(),
				p.Height,
				p.Weight,
				p.Generation,
			)
			if err != nil {
				return storeErr(fmt.Sprintf("upsert pokemon %d", p.ID), err)
			}
		}
		return nil
	}, topicPokemon, topicMembers)
}

// GetEntity returns the cached pokemon with the given id.
// It returns an error wrapping schema.ErrNotFound when the id is not cached.
func (db *DB) GetEntity(id int) (*schema.Pokemon, error) {
	return db.GetEntityContext(context.Background(), id)
}

// GetEntityContext returns a cached pokemon with context support.
func (db *DB) GetEntityContext(ctx context.Context, id int) (*schema.Pokemon, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+pokemonColumns+` FROM pokemon WHERE id = ?`, id)

	p, err := scanPokemon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pokemon %d: %w", id, schema.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get pokemon %d", id), err)
	}
	return p, nil
}

// ListEntities returns the cached pokemon matching filter, ordered by id.
func (db *DB) ListEntities(filter schema.Filter) ([]*schema.Pokemon, error) {
	return db.ListEntitiesContext(context.Background(), filter)
}

// ListEntitiesContext lists cached pokemon with context support.
func (db *DB) ListEntitiesContext(ctx context.Context, filter schema.Filter) ([]*schema.Pokemon, error) {
	query := `SELECT ` + pokemonColumns + ` FROM pokemon`
	var args []interface{}

	if filter.Generation > 0 {
		query += ` WHERE generation = ?`
		args = append(args, filter.Generation)
	}
	query += ` ORDER BY id ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list pokemon", err)
	}
	defer rows.Close()

	return scanPokemonRows(rows)
}

// ListEntitiesPageContext returns one page of cached pokemon ordered by id.
func (db *DB) ListEntitiesPageContext(ctx context.Context, limit, offset int) ([]*schema.Pokemon, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit must be positive and offset non-negative", schema.ErrInvalidInput)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+pokemonColumns+` FROM pokemon ORDER BY id ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, storeErr("list pokemon page", err)
	}
	defer rows.Close()

	return scanPokemonRows(rows)
}

// CountEntities returns the number of cached pokemon.
func (db *DB) CountEntities() (int, error) {
	return db.CountEntitiesContext(context.Background())
}

// CountEntitiesContext returns the number of cached pokemon with context support.
func (db *DB) CountEntitiesContext(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pokemon`).Scan(&count); err != nil {
		return 0, storeErr("count pokemon", err)
	}
	return count, nil
}

// ClearEntities removes every cached pokemon. Memberships referencing them
// are removed by cascade; teams themselves are kept.
func (db *DB) ClearEntities() error {
	return db.ClearEntitiesContext(context.Background())
}

// ClearEntitiesContext clears the cache with context support.
func (db *DB) ClearEntitiesContext(ctx context.Context) error {
	return db.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pokemon`); err != nil {
			return storeErr("clear pokemon", err)
		}
		return nil
	}, topicPokemon, topicMembers)
}

// DeleteEntityContext removes one cached pokemon and its memberships.
// Deleting an id that is not cached is not an error.
func (db *DB) DeleteEntityContext(ctx context.Context, id int) error {
	return db.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pokemon WHERE id = ?`, id); err != nil {
			return storeErr(fmt.Sprintf("delete pokemon %d", id), err)
		}
		return nil
	}, topicPokemon, topicMembers)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPokemon(row rowScanner) (*schema.Pokemon, error) {
	var p schema.Pokemon
	var types string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.SpriteURL,
		&p.ShinySpriteURL,
		&types,
		&p.Height,
		&p.Weight,
		&p.Generation,
	)
	if err != nil {
		return nil, err
	}

	p.Types = schema.ParseTypesField(types)
	return &p, nil
}

func scanPokemonRows(rows *sql.Rows) ([]*schema.Pokemon, error) {
	list := []*schema.Pokemon{}

	for rows.Next() {
		p, err := scanPokemon(rows)
		if err != nil {
			return nil, storeErr("scan pokemon", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate pokemon", err)
	}

	return list, nil
}
