package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

// AddMember appends pokemonID to a team and returns its position.
//
// The team must exist and the pokemon must be cached, otherwise the error
// wraps schema.ErrNotFound. A team holding schema.MaxTeamSize members
// rejects the insert with schema.ErrTeamFull; a pokemon already in the team
// is rejected with schema.ErrAlreadyMember. The checks and the insert share
// one transaction under the write lock, so concurrent adds cannot overshoot
// the cap.
func (db *DB) AddMember(ctx context.Context, teamID int64, pokemonID int) (int, error) {
	var position int

	err := db.write(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM teams WHERE team_id = ?)`, teamID,
		).Scan(&exists); err != nil {
			return storeErr("check team", err)
		}
		if !exists {
			return fmt.Errorf("team %d: %w", teamID, schema.ErrNotFound)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM pokemon WHERE id = ?)`, pokemonID,
		).Scan(&exists); err != nil {
			return storeErr("check pokemon", err)
		}
		if !exists {
			return fmt.Errorf("pokemon %d is not cached: %w", pokemonID, schema.ErrNotFound)
		}

		var size, maxPosition int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(MAX(position), -1) FROM team_members WHERE team_id = ?`, teamID,
		).Scan(&size, &maxPosition); err != nil {
			return storeErr("read team size", err)
		}
		if size >= schema.MaxTeamSize {
			return fmt.Errorf("team %d has %d members: %w", teamID, size, schema.ErrTeamFull)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = ? AND pokemon_id = ?)`, teamID, pokemonID,
		).Scan(&exists); err != nil {
			return storeErr("check membership", err)
		}
		if exists {
			return fmt.Errorf("pokemon %d in team %d: %w", pokemonID, teamID, schema.ErrAlreadyMember)
		}

		position = maxPosition + 1
		_, err := tx.ExecContext(ctx,
			`INSERT INTO team_members (team_id, pokemon_id, position, added_at) VALUES (?, ?, ?, ?)`,
			teamID, pokemonID, position, formatTime(db.now()),
		)
		if err != nil {
			return storeErr("insert team member", err)
		}
		return nil
	}, topicMembers)
	if err != nil {
		return 0, err
	}
	return position, nil
}

// RemoveMember deletes a membership. Removing an absent member is not an error.
func (db *DB) RemoveMember(ctx context.Context, teamID int64, pokemonID int) error {
	return db.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM team_members WHERE team_id = ? AND pokemon_id = ?`, teamID, pokemonID)
		if err != nil {
			return storeErr("remove team member", err)
		}
		return nil
	}, topicMembers)
}

// ClearMembers removes every member of a team.
func (db *DB) ClearMembers(ctx context.Context, teamID int64) error {
	return db.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = ?`, teamID); err != nil {
			return storeErr("clear team members", err)
		}
		return nil
	}, topicMembers)
}

// UpdateMemberPosition moves a member to position.
func (db *DB) UpdateMemberPosition(ctx context.Context, teamID int64, pokemonID, position int) error {
	if position < 0 {
		return fmt.Errorf("%w: position must not be negative (got %d)", schema.ErrInvalidInput, position)
	}
	return db.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE team_members SET position = ? WHERE team_id = ? AND pokemon_id = ?`,
			position, teamID, pokemonID,
		)
		if err != nil {
			return storeErr("update member position", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storeErr("read affected rows", err)
		}
		if n == 0 {
			return fmt.Errorf("pokemon %d in team %d: %w", pokemonID, teamID, schema.ErrNotFound)
		}
		return nil
	}, topicMembers)
}

// TeamSize returns the number of members of a team.
func (db *DB) TeamSize(ctx context.Context, teamID int64) (int, error) {
	var size int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM team_members WHERE team_id = ?`, teamID,
	).Scan(&size); err != nil {
		return 0, storeErr("read team size", err)
	}
	return size, nil
}

// IsMember reports whether pokemonID belongs to a team.
func (db *DB) IsMember(ctx context.Context, teamID int64, pokemonID int) (bool, error) {
	var exists bool
	if err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = ? AND pokemon_id = ?)`, teamID, pokemonID,
	).Scan(&exists); err != nil {
		return false, storeErr("check membership", err)
	}
	return exists, nil
}

// NextPosition returns the highest member position plus one, or 0 for an
// empty team.
func (db *DB) NextPosition(ctx context.Context, teamID int64) (int, error) {
	var next int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM team_members WHERE team_id = ?`, teamID,
	).Scan(&next); err != nil {
		return 0, storeErr("read next position", err)
	}
	return next, nil
}

// TeamMembers returns the cached pokemon of a team ordered by position.
func (db *DB) TeamMembers(ctx context.Context, teamID int64) ([]*schema.Pokemon, error) {
	rows, err := db.conn.QueryContext(ctx, `
	SELECT p.id, p.name, p.sprite_url, p.shiny_sprite_url, p.types, p.height, p.weight, p.generation
	FROM pokemon p
	JOIN team_members m ON m.pokemon_id = p.id
	WHERE m.team_id = ?
	ORDER BY m.position ASC, m.added_at ASC
	`, teamID)
	if err != nil {
		return nil, storeErr("list team members", err)
	}
	defer rows.Close()

	return scanPokemonRows(rows)
}

// MemberRows returns the raw membership rows of a team ordered by position.
func (db *DB) MemberRows(ctx context.Context, teamID int64) ([]*schema.TeamMember, error) {
	rows, err := db.conn.QueryContext(ctx, `
	SELECT team_id, pokemon_id, position, added_at
	FROM team_members
	WHERE team_id = ?
	ORDER BY position ASC, added_at ASC
	`, teamID)
	if err != nil {
		return nil, storeErr("list member rows", err)
	}
	defer rows.Close()

	return scanMemberRows(rows)
}

// Rosters returns every team, newest first, with its membership rows.
// Teams and members are read from the same snapshot.
func (db *DB) Rosters(ctx context.Context) ([]*schema.Roster, error) {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, storeErr("begin read transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	teams, err := queryTeams(ctx, tx, "list teams", listTeamsQuery)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
	SELECT team_id, pokemon_id, position, added_at
	FROM team_members
	ORDER BY team_id ASC, position ASC, added_at ASC
	`)
	if err != nil {
		return nil, storeErr("list member rows", err)
	}
	defer rows.Close()

	members, err := scanMemberRows(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit read transaction", err)
	}

	byTeam := make(map[int64][]*schema.TeamMember, len(teams))
	for _, m := range members {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], m)
	}

	rosters := make([]*schema.Roster, 0, len(teams))
	for _, t := range teams {
		list := byTeam[t.ID]
		if list == nil {
			list = []*schema.TeamMember{}
		}
		rosters = append(rosters, &schema.Roster{Team: t, Members: list})
	}
	return rosters, nil
}

func scanMemberRows(rows *sql.Rows) ([]*schema.TeamMember, error) {
	members := []*schema.TeamMember{}
	for rows.Next() {
		var m schema.TeamMember
		var addedAt string
		if err := rows.Scan(&m.TeamID, &m.PokemonID, &m.Position, &addedAt); err != nil {
			return nil, storeErr("scan member row", err)
		}
		m.AddedAt = parseTime(addedAt)
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate member rows", err)
	}
	return members, nil
}
