// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// SQLite is embedded — a single file next to the binary, no server to run.
// The original deployment target is a single-box dashboard backend, and an
// analysis run is write-heavy in bursts (hundreds of mistakes per run), which
// WAL mode handles fine while status reads keep flowing.
//
// modernc.org/sqlite is a pure-Go translation of SQLite, so no CGo and no C
// toolchain is needed for cross-compilation.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces. The server owns it and closes it on shutdown.
type DB struct {
	conn *sql.DB
}

// New opens the database (":memory:" for tests), applies pragmas, and runs
// migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Surface a bad path or permission problem now, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets status reads proceed while an analysis run is inserting
	// mistakes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. The habit lifecycle depends
	// on them: deleting a habit must SET NULL the habit_id of its mistakes.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			google_id          TEXT NOT NULL UNIQUE,
			name               TEXT NOT NULL DEFAULT '',
			email              TEXT NOT NULL DEFAULT '',
			chess_com_username TEXT UNIQUE,
			chess_linked_at    DATETIME,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_google_id ON users(google_id);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			source         TEXT NOT NULL,
			source_game_id TEXT NOT NULL,
			game_url       TEXT NOT NULL DEFAULT '',
			pgn_data       TEXT NOT NULL,
			game_date      DATETIME NOT NULL,
			analyzed_at    DATETIME,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, source, source_game_id)
		);
		CREATE INDEX IF NOT EXISTS idx_games_user_id ON games(user_id);
		CREATE INDEX IF NOT EXISTS idx_games_game_date ON games(game_date);
	`)
	if err != nil {
		return fmt.Errorf("creating games table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS habits (
			id                       TEXT PRIMARY KEY,
			user_id                  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			cluster_id               INTEGER,
			habit_name               TEXT NOT NULL,
			description              TEXT NOT NULL DEFAULT '',
			improvement_tip          TEXT NOT NULL DEFAULT '',
			confidence               REAL,
			triggers                 TEXT NOT NULL DEFAULT '{}',
			prime_example_mistake_id TEXT,
			total_mistakes           INTEGER NOT NULL DEFAULT 0,
			created_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, habit_name)
		);
		CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating habits table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS mistakes (
			id       TEXT PRIMARY KEY,
			game_id  TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			habit_id TEXT REFERENCES habits(id) ON DELETE SET NULL,

			move_number  INTEGER NOT NULL,
			player_color TEXT NOT NULL CHECK (player_color IN ('white', 'black')),
			prior_fen    TEXT NOT NULL,
			move_made    TEXT NOT NULL,
			best_move    TEXT NOT NULL DEFAULT '',

			cpl              INTEGER NOT NULL,
			mistake_type     TEXT NOT NULL,
			mistake_category TEXT NOT NULL,

			game_phase       TEXT NOT NULL,
			material_balance TEXT NOT NULL,
			board_complexity TEXT NOT NULL,

			king_self_safety     TEXT NOT NULL,
			king_opponent_status TEXT NOT NULL,
			castling_status_self TEXT NOT NULL,

			piece_moved TEXT NOT NULL,
			move_type   TEXT NOT NULL,

			piece_was_attacked  BOOLEAN NOT NULL,
			piece_was_defended  BOOLEAN NOT NULL,
			piece_was_defending BOOLEAN NOT NULL,
			piece_was_pinned    BOOLEAN NOT NULL,

			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_mistakes_game_id ON mistakes(game_id);
		CREATE INDEX IF NOT EXISTS idx_mistakes_habit_id ON mistakes(habit_id);
	`)
	if err != nil {
		return fmt.Errorf("creating mistakes table: %w", err)
	}

	return nil
}
