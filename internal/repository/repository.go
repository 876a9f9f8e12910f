package repository

import (
	"context"
	"time"

	"github.com/sakif/chess-coach/internal/model"
)

// UserRepository persists user accounts and their chess.com link state.
type UserRepository interface {
	// Upsert inserts or updates a user keyed on their Google ID. After the
	// call the user's internal ID and timestamps are populated.
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// LinkChessAccount sets the chess.com username and link timestamp.
	// Returns a conflict error if another account already owns the username.
	LinkChessAccount(ctx context.Context, userID, username string, linkedAt time.Time) error
	// ListLinked returns every user with a linked chess.com account.
	ListLinked(ctx context.Context) ([]model.User, error)
}

// GameRepository persists fetched games.
type GameRepository interface {
	// Insert stores a game, deduplicating on (user, source, source game ID).
	// The boolean reports whether a row was actually inserted; false means
	// the game was already known and should not be re-evaluated.
	Insert(ctx context.Context, game *model.Game) (bool, error)
	// ListUnanalyzed returns the user's games that have not been evaluated
	// yet and were played inside [from, to). Prefetched games enter the
	// store unanalyzed and are picked up here.
	ListUnanalyzed(ctx context.Context, userID string, from, to time.Time) ([]model.Game, error)
	MarkAnalyzed(ctx context.Context, gameID string, at time.Time) error
}

// MistakeRepository persists extracted mistakes and their habit assignment.
type MistakeRepository interface {
	BatchInsert(ctx context.Context, mistakes []*model.Mistake) error
	// ListUnassigned returns every mistake of the user not yet linked to a
	// habit. Clustering runs over exactly this set.
	ListUnassigned(ctx context.Context, userID string) ([]model.Mistake, error)
	LinkToHabit(ctx context.Context, habitID string, mistakeIDs []string) error
}

// HabitRepository persists analysis results.
type HabitRepository interface {
	// ClearForUser deletes the user's habits; mistake links are released by
	// the ON DELETE SET NULL foreign key so the mistakes re-enter the next
	// clustering run.
	ClearForUser(ctx context.Context, userID string) error
	Save(ctx context.Context, habit *model.Habit) error
	// ListForUser returns habits in insertion order — the display order.
	ListForUser(ctx context.Context, userID string) ([]model.Habit, error)
}
