package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/chess-coach/internal/model"
)

// ============================================================
// BatchInsert
// ============================================================

func TestBatchInsert_StoresAllMistakes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "google-1", "alice")
	game := createTestGame(t, db, user.ID, "1001", time.Now())

	mistakes := []*model.Mistake{
		testMistake(game.ID, 5, 120),
		testMistake(game.ID, 12, 340),
		testMistake(game.ID, 20, 60),
	}
	if err := db.BatchInsert(ctx, mistakes); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	for _, m := range mistakes {
		if m.ID == "" {
			t.Error("expected generated mistake ID, got empty string")
		}
	}

	got, err := db.ListUnassigned(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListUnassigned: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d mistakes, want 3", len(got))
	}
	if got[0].MoveNumber != 5 || got[0].CPL != 120 {
		t.Errorf("first mistake = move %d cpl %d, want move 5 cpl 120", got[0].MoveNumber, got[0].CPL)
	}
	if got[0].HabitID != nil {
		t.Error("freshly inserted mistake should not have a habit")
	}
}

func TestBatchInsert_Empty(t *testing.T) {
	db := newTestDB(t)

	if err := db.BatchInsert(context.Background(), nil); err != nil {
		t.Fatalf("BatchInsert(nil): %v", err)
	}
}

func TestBatchInsert_RoundTripsFeatureVector(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "google-1", "alice")
	game := createTestGame(t, db, user.ID, "1001", time.Now())

	m := testMistake(game.ID, 30, 500)
	m.MistakeType = model.MistakeBlunder
	m.MistakeCategory = model.CategoryHangingPiece
	m.GamePhase = "Endgame"
	m.KingSelfSafety = "Exposed"
	m.PieceMoved = "QUEEN"
	m.MoveType = "Capture"
	m.PieceWasAttacked = true
	m.PieceWasPinned = true

	if err := db.BatchInsert(ctx, []*model.Mistake{m}); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	got, err := db.ListUnassigned(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListUnassigned: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d mistakes, want 1", len(got))
	}

	stored := got[0]
	if stored.MistakeType != model.MistakeBlunder {
		t.Errorf("MistakeType = %q, want Blunder", stored.MistakeType)
	}
	if stored.MistakeCategory != model.CategoryHangingPiece {
		t.Errorf("MistakeCategory = %q, want Hanging_Piece", stored.MistakeCategory)
	}
	if stored.GamePhase != "Endgame" {
		t.Errorf("GamePhase = %q, want Endgame", stored.GamePhase)
	}
	if !stored.PieceWasAttacked || !stored.PieceWasPinned {
		t.Error("boolean tactical flags lost in round trip")
	}
	if stored.PieceWasDefended || stored.PieceWasDefending {
		t.Error("false boolean flags read back as true")
	}
}

// ============================================================
// ListUnassigned / LinkToHabit
// ============================================================

func TestListUnassigned_ExcludesAssignedMistakes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "google-1", "alice")
	game := createTestGame(t, db, user.ID, "1001", time.Now())

	mistakes := []*model.Mistake{
		testMistake(game.ID, 5, 120),
		testMistake(game.ID, 12, 340),
	}
	if err := db.BatchInsert(ctx, mistakes); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	habit := &model.Habit{UserID: user.ID, Name: "Test Habit (H0)"}
	if err := db.Save(ctx, habit); err != nil {
		t.Fatalf("Save habit: %v", err)
	}
	if err := db.LinkToHabit(ctx, habit.ID, []string{mistakes[0].ID}); err != nil {
		t.Fatalf("LinkToHabit: %v", err)
	}

	got, err := db.ListUnassigned(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListUnassigned: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d unassigned mistakes, want 1", len(got))
	}
	if got[0].ID != mistakes[1].ID {
		t.Errorf("wrong mistake left unassigned: %s", got[0].ID)
	}
}

func TestListUnassigned_ScopedToUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "google-1", "alice")
	bob := createTestUser(t, db, "google-2", "bob")
	aliceGame := createTestGame(t, db, alice.ID, "a1", time.Now())
	bobGame := createTestGame(t, db, bob.ID, "b1", time.Now())

	if err := db.BatchInsert(ctx, []*model.Mistake{
		testMistake(aliceGame.ID, 5, 120),
		testMistake(bobGame.ID, 8, 200),
	}); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	got, err := db.ListUnassigned(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListUnassigned: %v", err)
	}
	if len(got) != 1 || got[0].GameID != aliceGame.ID {
		t.Errorf("got %d mistakes for alice, want exactly her 1", len(got))
	}
}

func TestLinkToHabit_EmptyBatch(t *testing.T) {
	db := newTestDB(t)

	if err := db.LinkToHabit(context.Background(), "whatever", nil); err != nil {
		t.Fatalf("LinkToHabit with no IDs: %v", err)
	}
}
