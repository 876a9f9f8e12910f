package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/chess-coach/internal/apperror"
	"github.com/sakif/chess-coach/internal/model"
	"github.com/sakif/chess-coach/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Upsert inserts or updates a user based on their Google ID.
//
// First login inserts a fresh row with a generated xid; subsequent logins
// refresh name and email in case the user changed them on Google, keeping
// the existing internal ID and chess.com link untouched.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now()

	var existing model.User
	var username sql.NullString
	var linkedAt sql.NullTime
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, chess_com_username, chess_linked_at, created_at
		 FROM users WHERE google_id = ?`, user.GoogleID,
	).Scan(&existing.ID, &username, &linkedAt, &existing.CreatedAt)

	switch {
	case err == sql.ErrNoRows:
		user.ID = xid.New().String()
		user.CreatedAt = now
		user.UpdatedAt = now
		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO users (id, google_id, name, email, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			user.ID, user.GoogleID, user.Name, user.Email, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting user: %w", err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("sqlite: looking up user by google id: %w", err)
	}

	// Existing user: refresh the mutable profile fields only.
	user.ID = existing.ID
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = now
	if username.Valid {
		user.ChessComUsername = &username.String
	}
	if linkedAt.Valid {
		t := linkedAt.Time
		user.ChessLinkedAt = &t
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		user.Name, user.Email, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a single user.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	var username sql.NullString
	var linkedAt sql.NullTime

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, google_id, name, email, chess_com_username, chess_linked_at,
		        created_at, updated_at
		 FROM users WHERE id = ?`, id,
	).Scan(
		&user.ID, &user.GoogleID, &user.Name, &user.Email,
		&username, &linkedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	if username.Valid {
		user.ChessComUsername = &username.String
	}
	if linkedAt.Valid {
		t := linkedAt.Time
		user.ChessLinkedAt = &t
	}
	return &user, nil
}

// LinkChessAccount sets the chess.com username on a user.
//
// The UNIQUE constraint on chess_com_username enforces that one chess.com
// account belongs to at most one user; a violation surfaces as a conflict
// error the service turns into a user-facing message.
func (db *DB) LinkChessAccount(ctx context.Context, userID, username string, linkedAt time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET chess_com_username = ?, chess_linked_at = ?, updated_at = ?
		 WHERE id = ?`,
		username, linkedAt, linkedAt, userID,
	)
	if err != nil {
		// modernc.org/sqlite reports constraint violations in the error text;
		// there is no exported sentinel to match on.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("this chess.com username is already linked to another account")
		}
		return fmt.Errorf("sqlite: linking chess account for user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// ListLinked returns all users with a linked chess.com account, for the
// prefetch scheduler.
func (db *DB) ListLinked(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, google_id, name, email, chess_com_username, chess_linked_at,
		        created_at, updated_at
		 FROM users
		 WHERE chess_com_username IS NOT NULL
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing linked users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		var username sql.NullString
		var linkedAt sql.NullTime
		if err := rows.Scan(
			&user.ID, &user.GoogleID, &user.Name, &user.Email,
			&username, &linkedAt, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		if username.Valid {
			user.ChessComUsername = &username.String
		}
		if linkedAt.Valid {
			t := linkedAt.Time
			user.ChessLinkedAt = &t
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}
