package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/chess-coach/internal/model"
)

// newTestDB returns a DB backed by an in-memory SQLite database. Each test
// gets its own database; t.Cleanup closes it.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test on error.
func createTestUser(t *testing.T, db *DB, googleID, name string) *model.User {
	t.Helper()
	user := &model.User{
		GoogleID: googleID,
		Name:     name,
		Email:    name + "@example.com",
	}
	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestGame inserts a game for the user and fails the test on error.
func createTestGame(t *testing.T, db *DB, userID, sourceGameID string, date time.Time) *model.Game {
	t.Helper()
	game := &model.Game{
		UserID:       userID,
		Source:       model.SourceChessCom,
		SourceGameID: sourceGameID,
		GameURL:      "https://www.chess.com/game/live/" + sourceGameID,
		PGN:          "[Event \"Live Chess\"]\n\n1. e4 e5 *",
		GameDate:     date,
	}
	inserted, err := db.Insert(context.Background(), game)
	if err != nil {
		t.Fatalf("failed to insert test game: %v", err)
	}
	if !inserted {
		t.Fatalf("test game %s was unexpectedly a duplicate", sourceGameID)
	}
	return game
}

// testMistake builds a plausible mistake for the game.
func testMistake(gameID string, moveNumber, cpl int) *model.Mistake {
	return &model.Mistake{
		GameID:             gameID,
		MoveNumber:         moveNumber,
		PlayerColor:        "white",
		PriorFEN:           "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		MoveMade:           "g1f3",
		BestMove:           "e2e4",
		CPL:                cpl,
		MistakeType:        model.MistakeMistake,
		MistakeCategory:    model.CategoryPositionalError,
		GamePhase:          "Opening",
		MaterialBalance:    "Equal",
		BoardComplexity:    "High",
		KingSelfSafety:     "Safe",
		KingOpponentStatus: "Safe",
		CastlingStatusSelf: "Can_Castle",
		PieceMoved:         "KNIGHT",
		MoveType:           "Quiet",
	}
}
