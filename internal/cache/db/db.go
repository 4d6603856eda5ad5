// Package db provides the embedded SQLite cache for pokecache.
//
// The store holds three tables:
//   - pokemon: cached species records keyed by their catalog id
//   - teams: user-defined named groups, including the implicit default team
//   - team_members: (team, pokemon) rows with a display position
//
// Deleting a team or a cached pokemon cascades to its team_members rows.
// Every write runs in its own immediate transaction and writes are serialized
// inside the process, so check-then-insert sequences such as AddMember are
// atomic. After each commit the affected tables are published to watchers
// (see WatchEntities, WatchTeams and WatchTeamMembers).
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/logging"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// DB wraps the SQLite connection pool.
type DB struct {
	conn    *sql.DB
	path    string
	writeMu sync.Mutex
	notify  *notifier
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for background watch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		db.logger = logger
	}
}

// WithClock overrides the clock used to stamp teams and memberships.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// Open creates a new database connection at the specified path.
//
// The database is opened with WAL, foreign keys and immediate transactions.
// If the file doesn't exist it is created; call InitSchema before use.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := db.Open(".pokecache/cache.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string, opts ...Option) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	connStr := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_txlock=immediate",
		path,
	)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:   conn,
		path:   path,
		notify: newNotifier(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}
	db.logger = logging.Component(db.logger, "store")

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close checkpoints the WAL and closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logging.Warn(db.logger, "failed to checkpoint WAL", logging.FieldError, err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables, indexes and the default team.
// It is idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS pokemon (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		sprite_url TEXT NOT NULL DEFAULT '',
		shiny_sprite_url TEXT NOT NULL DEFAULT '',
		types TEXT NOT NULL DEFAULT '',  -- comma separated, source order
		height INTEGER NOT NULL DEFAULT 0,
		weight INTEGER NOT NULL DEFAULT 0,
		generation INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS teams (
		team_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS team_members (
		team_id INTEGER NOT NULL,
		pokemon_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		added_at TEXT NOT NULL,
		PRIMARY KEY (team_id, pokemon_id),
		FOREIGN KEY (team_id) REFERENCES teams(team_id) ON DELETE CASCADE,
		FOREIGN KEY (pokemon_id) REFERENCES pokemon(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_pokemon_generation ON pokemon(generation);
	CREATE INDEX IF NOT EXISTS idx_teams_created ON teams(created_at);
	CREATE INDEX IF NOT EXISTS idx_team_members_pokemon ON team_members(pokemon_id);
	`

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return storeErr("initialize schema", err)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO teams (team_id, name, created_at, is_active) VALUES (?, ?, ?, 1)`,
		schema.DefaultTeamID, schema.DefaultTeamName, formatTime(db.now()),
	)
	if err != nil {
		return storeErr("create default team", err)
	}

	return nil
}

// write runs fn in a transaction while holding the process-wide write lock
// and publishes topics once the transaction commits. Errors returned by fn
// are passed through unchanged.
func (db *DB) write(ctx context.Context, fn func(tx *sql.Tx) error, topics ...topic) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}

	db.notify.publish(topics...)
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, schema.ErrStore, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
