package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/chess-coach/internal/model"
	"github.com/sakif/chess-coach/internal/repository"
)

var _ repository.HabitRepository = (*DB)(nil)

// ClearForUser removes all habits of the user. Mistakes referencing them
// fall back to habit_id NULL via ON DELETE SET NULL, so a fresh analysis
// run reclusters the full mistake history.
func (db *DB) ClearForUser(ctx context.Context, userID string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM habits WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing habits for user %s: %w", userID, err)
	}
	return nil
}

// Save inserts a habit, filling in ID and CreatedAt when unset.
func (db *DB) Save(ctx context.Context, habit *model.Habit) error {
	if habit.ID == "" {
		habit.ID = xid.New().String()
	}
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now()
	}

	triggers := habit.Triggers
	if triggers == nil {
		triggers = map[string]float64{}
	}
	triggerJSON, err := json.Marshal(triggers)
	if err != nil {
		return fmt.Errorf("sqlite: encoding habit triggers: %w", err)
	}

	var primeExample sql.NullString
	if habit.PrimeExampleMistakeID != "" {
		primeExample = sql.NullString{String: habit.PrimeExampleMistakeID, Valid: true}
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO habits
		   (id, user_id, habit_name, confidence, description, improvement_tip,
		    total_mistakes, prime_example_mistake_id, cluster_id, triggers, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.UserID, habit.Name, habit.Confidence,
		habit.Description, habit.ImprovementTip,
		habit.TotalMistakes, primeExample, habit.ClusterID,
		string(triggerJSON), habit.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: saving habit %q: %w", habit.Name, err)
	}
	return nil
}

// ListForUser returns the user's habits in insertion order, which after a
// run is cluster order.
func (db *DB) ListForUser(ctx context.Context, userID string) ([]model.Habit, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, habit_name, confidence, description, improvement_tip,
		        total_mistakes, prime_example_mistake_id, cluster_id, triggers, created_at
		 FROM habits
		 WHERE user_id = ?
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing habits: %w", err)
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		var h model.Habit
		var confidence sql.NullFloat64
		var primeExample sql.NullString
		var clusterID sql.NullInt64
		var triggerJSON string
		if err := rows.Scan(
			&h.ID, &h.UserID, &h.Name, &confidence, &h.Description, &h.ImprovementTip,
			&h.TotalMistakes, &primeExample, &clusterID, &triggerJSON, &h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning habit row: %w", err)
		}
		if confidence.Valid {
			h.Confidence = &confidence.Float64
		}
		if primeExample.Valid {
			h.PrimeExampleMistakeID = primeExample.String
		}
		if clusterID.Valid {
			id := int(clusterID.Int64)
			h.ClusterID = &id
		}
		if triggerJSON != "" {
			if err := json.Unmarshal([]byte(triggerJSON), &h.Triggers); err != nil {
				return nil, fmt.Errorf("sqlite: decoding habit triggers: %w", err)
			}
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating habits: %w", err)
	}
	return habits, nil
}
