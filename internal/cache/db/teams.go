package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

const teamColumns = `team_id, name, created_at, is_active`

// CreateTeam inserts an active team named name (trimmed) and returns its id.
func (db *DB) CreateTeam(ctx context.Context, name string) (int64, error) {
	team := schema.NewTeam(name, db.now())
	if err := team.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := db.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO teams (name, created_at, is_active) VALUES (?, ?, 1)`,
			team.Name, formatTime(team.CreatedAt),
		)
		if err != nil {
			return storeErr("create team", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return storeErr("read team id", err)
		}
		return nil
	}, topicTeams)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateTeam saves the name (trimmed) and active flag of an existing team.
// CreatedAt is never rewritten.
func (db *DB) UpdateTeam(ctx context.Context, team *schema.Team) error {
	team.Name = strings.TrimSpace(team.Name)
	if err := team.Validate(); err != nil {
		return err
	}

	return db.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE teams SET name = ?, is_active = ? WHERE team_id = ?`,
			team.Name, team.IsActive, team.ID,
		)
		if err != nil {
			return storeErr(fmt.Sprintf("update team %d", team.ID), err)
		}
		return requireAffected(res, "team", team.ID)
	}, topicTeams)
}

// SetTeamActive toggles the persisted active flag of a team.
func (db *DB) SetTeamActive(ctx context.Context, teamID int64, active bool) error {
	return db.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE teams SET is_active = ? WHERE team_id = ?`, active, teamID)
		if err != nil {
			return storeErr(fmt.Sprintf("update team %d", teamID), err)
		}
		return requireAffected(res, "team", teamID)
	}, topicTeams)
}

// DeleteTeam removes a team and, by cascade, all of its members.
// Deleting a missing team is not an error.
func (db *DB) DeleteTeam(ctx context.Context, teamID int64) error {
	return db.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE team_id = ?`, teamID); err != nil {
			return storeErr(fmt.Sprintf("delete team %d", teamID), err)
		}
		return nil
	}, topicTeams, topicMembers)
}

// GetTeam returns a team by id, or an error wrapping schema.ErrNotFound.
func (db *DB) GetTeam(ctx context.Context, teamID int64) (*schema.Team, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE team_id = ?`, teamID)

	team, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %d: %w", teamID, schema.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get team %d", teamID), err)
	}
	return team, nil
}

// ListTeams returns every team, newest first.
func (db *DB) ListTeams(ctx context.Context) ([]*schema.Team, error) {
	return queryTeams(ctx, db.conn, "list teams", listTeamsQuery)
}

// ListActiveTeams returns the teams whose active flag is set, newest first.
func (db *DB) ListActiveTeams(ctx context.Context) ([]*schema.Team, error) {
	return queryTeams(ctx, db.conn, "list active teams",
		`SELECT `+teamColumns+` FROM teams WHERE is_active = 1 ORDER BY created_at DESC, team_id DESC`)
}

// TeamsContaining returns the teams that hold pokemonID, newest first.
func (db *DB) TeamsContaining(ctx context.Context, pokemonID int) ([]*schema.Team, error) {
	return queryTeams(ctx, db.conn, "list teams containing pokemon", `
	SELECT t.team_id, t.name, t.created_at, t.is_active
	FROM teams t
	JOIN team_members m ON m.team_id = t.team_id
	WHERE m.pokemon_id = ?
	ORDER BY t.created_at DESC, t.team_id DESC
	`, pokemonID)
}

const listTeamsQuery = `SELECT ` + teamColumns + ` FROM teams ORDER BY created_at DESC, team_id DESC`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryTeams(ctx context.Context, q querier, op, query string, args ...any) ([]*schema.Team, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	teams := []*schema.Team{}
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, storeErr("scan team", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate teams", err)
	}
	return teams, nil
}

func scanTeam(row rowScanner) (*schema.Team, error) {
	var team schema.Team
	var createdAt string

	if err := row.Scan(&team.ID, &team.Name, &createdAt, &team.IsActive); err != nil {
		return nil, err
	}
	team.CreatedAt = parseTime(createdAt)
	return &team, nil
}

func requireAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("read affected rows", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, schema.ErrNotFound)
	}
	return nil
}
