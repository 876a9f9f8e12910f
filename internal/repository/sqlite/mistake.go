package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/chess-coach/internal/model"
	"github.com/sakif/chess-coach/internal/repository"
)

var _ repository.MistakeRepository = (*DB)(nil)

// BatchInsert stores all mistakes from an analysis run in one transaction.
//
// A single game can produce dozens of mistakes and a month range hundreds;
// one transaction with a prepared statement keeps this to a single fsync
// instead of one per row.
func (db *DB) BatchInsert(ctx context.Context, mistakes []*model.Mistake) error {
	if len(mistakes) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning mistake insert tx: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO mistakes
		   (id, game_id, move_number, player_color, prior_fen, move_made, best_move,
		    cpl, mistake_type, mistake_category,
		    game_phase, material_balance, board_complexity,
		    king_self_safety, king_opponent_status, castling_status_self,
		    piece_moved, move_type,
		    piece_was_attacked, piece_was_defended, piece_was_defending, piece_was_pinned,
		    created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("sqlite: preparing mistake insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, m := range mistakes {
		if m.ID == "" {
			m.ID = xid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.GameID, m.MoveNumber, m.PlayerColor, m.PriorFEN, m.MoveMade, m.BestMove,
			m.CPL, m.MistakeType, m.MistakeCategory,
			m.GamePhase, m.MaterialBalance, m.BoardComplexity,
			m.KingSelfSafety, m.KingOpponentStatus, m.CastlingStatusSelf,
			m.PieceMoved, m.MoveType,
			m.PieceWasAttacked, m.PieceWasDefended, m.PieceWasDefending, m.PieceWasPinned,
			m.CreatedAt,
		); err != nil {
			return fmt.Errorf("sqlite: inserting mistake for game %s: %w", m.GameID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing mistake insert: %w", err)
	}
	return nil
}

// ListUnassigned returns every mistake of the user not yet linked to a
// habit. After a run clears the user's habits, this is all of them.
func (db *DB) ListUnassigned(ctx context.Context, userID string) ([]model.Mistake, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT m.id, m.game_id, m.habit_id,
		        m.move_number, m.player_color, m.prior_fen, m.move_made, m.best_move,
		        m.cpl, m.mistake_type, m.mistake_category,
		        m.game_phase, m.material_balance, m.board_complexity,
		        m.king_self_safety, m.king_opponent_status, m.castling_status_self,
		        m.piece_moved, m.move_type,
		        m.piece_was_attacked, m.piece_was_defended, m.piece_was_defending, m.piece_was_pinned,
		        m.created_at
		 FROM mistakes m
		 JOIN games g ON g.id = m.game_id
		 WHERE g.user_id = ? AND m.habit_id IS NULL
		 ORDER BY m.created_at, m.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing unassigned mistakes: %w", err)
	}
	defer rows.Close()

	var mistakes []model.Mistake
	for rows.Next() {
		var m model.Mistake
		var habitID sql.NullString
		if err := rows.Scan(
			&m.ID, &m.GameID, &habitID,
			&m.MoveNumber, &m.PlayerColor, &m.PriorFEN, &m.MoveMade, &m.BestMove,
			&m.CPL, &m.MistakeType, &m.MistakeCategory,
			&m.GamePhase, &m.MaterialBalance, &m.BoardComplexity,
			&m.KingSelfSafety, &m.KingOpponentStatus, &m.CastlingStatusSelf,
			&m.PieceMoved, &m.MoveType,
			&m.PieceWasAttacked, &m.PieceWasDefended, &m.PieceWasDefending, &m.PieceWasPinned,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning mistake row: %w", err)
		}
		if habitID.Valid {
			m.HabitID = &habitID.String
		}
		mistakes = append(mistakes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating mistakes: %w", err)
	}
	return mistakes, nil
}

// LinkToHabit assigns a batch of mistakes to a habit.
func (db *DB) LinkToHabit(ctx context.Context, habitID string, mistakeIDs []string) error {
	if len(mistakeIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(mistakeIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(mistakeIDs)+1)
	args = append(args, habitID)
	for _, id := range mistakeIDs {
		args = append(args, id)
	}

	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE mistakes SET habit_id = ? WHERE id IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: linking %d mistakes to habit %s: %w", len(mistakeIDs), habitID, err)
	}
	return nil
}
