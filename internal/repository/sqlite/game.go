package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/chess-coach/internal/apperror"
	"github.com/sakif/chess-coach/internal/model"
	"github.com/sakif/chess-coach/internal/repository"
)

var _ repository.GameRepository = (*DB)(nil)

// Insert stores a game, skipping duplicates.
//
// INSERT OR IGNORE leans on the UNIQUE(user_id, source, source_game_id)
// constraint: a month re-fetched after a partial run (or by the prefetch
// scheduler) only adds the games not seen before. RowsAffected distinguishes
// "inserted" from "already known" so the caller can avoid re-evaluating
// games whose mistakes are already stored.
func (db *DB) Insert(ctx context.Context, game *model.Game) (bool, error) {
	if game.ID == "" {
		game.ID = xid.New().String()
	}
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now()
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO games
		   (id, user_id, source, source_game_id, game_url, pgn_data, game_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		game.ID, game.UserID, game.Source, game.SourceGameID,
		game.GameURL, game.PGN, game.GameDate, game.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting game %s: %w", game.SourceGameID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListUnanalyzed returns the user's unevaluated games played in [from, to).
func (db *DB) ListUnanalyzed(ctx context.Context, userID string, from, to time.Time) ([]model.Game, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, source, source_game_id, game_url, pgn_data, game_date, created_at
		 FROM games
		 WHERE user_id = ? AND analyzed_at IS NULL AND game_date >= ? AND game_date < ?
		 ORDER BY game_date`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing unanalyzed games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		var g model.Game
		if err := rows.Scan(&g.ID, &g.UserID, &g.Source, &g.SourceGameID,
			&g.GameURL, &g.PGN, &g.GameDate, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning game row: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating games: %w", err)
	}
	return games, nil
}

// MarkAnalyzed records when the engine finished evaluating a game.
func (db *DB) MarkAnalyzed(ctx context.Context, gameID string, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE games SET analyzed_at = ? WHERE id = ?`, at, gameID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking game %s analyzed: %w", gameID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("game", gameID)
	}
	return nil
}
