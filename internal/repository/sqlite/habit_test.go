package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/chess-coach/internal/model"
)

// ============================================================
// Save / ListForUser
// ============================================================

func TestHabitSave_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "google-1", "alice")
	game := createTestGame(t, db, user.ID, "1001", time.Now())

	prime := testMistake(game.ID, 12, 340)
	if err := db.BatchInsert(ctx, []*model.Mistake{prime}); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	confidence := 0.82
	cluster := 0
	habit := &model.Habit{
		UserID:                user.ID,
		Name:                  "Endgame Queen Drops (H0)",
		Confidence:            &confidence,
		Description:           "You tend to leave the queen undefended in endgames.",
		ImprovementTip:        "Before each move, check which of your pieces are attacked.",
		TotalMistakes:         7,
		PrimeExampleMistakeID: prime.ID,
		ClusterID:             &cluster,
		Triggers: map[string]float64{
			"game_phase_Endgame": 0.61,
			"piece_moved_QUEEN":  0.44,
		},
	}
	if err := db.Save(ctx, habit); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if habit.ID == "" {
		t.Fatal("expected generated habit ID")
	}

	habits, err := db.ListForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(habits) != 1 {
		t.Fatalf("got %d habits, want 1", len(habits))
	}

	got := habits[0]
	if got.Name != habit.Name {
		t.Errorf("Name = %q, want %q", got.Name, habit.Name)
	}
	if got.Confidence == nil || *got.Confidence != confidence {
		t.Errorf("Confidence = %v, want %v", got.Confidence, confidence)
	}
	if got.ClusterID == nil || *got.ClusterID != 0 {
		t.Errorf("ClusterID = %v, want 0", got.ClusterID)
	}
	if got.PrimeExampleMistakeID != prime.ID {
		t.Errorf("PrimeExampleMistakeID = %q, want %q", got.PrimeExampleMistakeID, prime.ID)
	}
	if got.TotalMistakes != 7 {
		t.Errorf("TotalMistakes = %d, want 7", got.TotalMistakes)
	}
	if got.Triggers["game_phase_Endgame"] != 0.61 {
		t.Errorf("trigger weight = %v, want 0.61", got.Triggers["game_phase_Endgame"])
	}
}

func TestHabitSave_NilOptionalFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "google-1", "alice")

	habit := &model.Habit{
		UserID: user.ID,
		Name:   "General Inaccuracy",
	}
	if err := db.Save(ctx, habit); err != nil {
		t.Fatalf("Save: %v", err)
	}

	habits, err := db.ListForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(habits) != 1 {
		t.Fatalf("got %d habits, want 1", len(habits))
	}
	got := habits[0]
	if got.Confidence != nil {
		t.Errorf("Confidence = %v, want nil", got.Confidence)
	}
	if got.ClusterID != nil {
		t.Errorf("ClusterID = %v, want nil", got.ClusterID)
	}
	if got.PrimeExampleMistakeID != "" {
		t.Errorf("PrimeExampleMistakeID = %q, want empty", got.PrimeExampleMistakeID)
	}
}

func TestListForUser_Empty(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "google-1", "alice")
	habits, err := db.ListForUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(habits) != 0 {
		t.Errorf("got %d habits for fresh user, want 0", len(habits))
	}
}

// ============================================================
// ClearForUser
// ============================================================

func TestClearForUser_ReleasesMistakes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "google-1", "alice")
	game := createTestGame(t, db, user.ID, "1001", time.Now())

	m := testMistake(game.ID, 5, 120)
	if err := db.BatchInsert(ctx, []*model.Mistake{m}); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	habit := &model.Habit{UserID: user.ID, Name: "Old Habit (H0)"}
	if err := db.Save(ctx, habit); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := db.LinkToHabit(ctx, habit.ID, []string{m.ID}); err != nil {
		t.Fatalf("LinkToHabit: %v", err)
	}

	// Assigned mistakes are invisible to the next clustering run...
	unassigned, err := db.ListUnassigned(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListUnassigned: %v", err)
	}
	if len(unassigned) != 0 {
		t.Fatalf("got %d unassigned mistakes before clear, want 0", len(unassigned))
	}

	// ...until the habits are cleared, which must free them for reclustering.
	if err := db.ClearForUser(ctx, user.ID); err != nil {
		t.Fatalf("ClearForUser: %v", err)
	}

	habits, err := db.ListForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(habits) != 0 {
		t.Errorf("got %d habits after clear, want 0", len(habits))
	}

	unassigned, err = db.ListUnassigned(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListUnassigned: %v", err)
	}
	if len(unassigned) != 1 {
		t.Errorf("got %d unassigned mistakes after clear, want 1", len(unassigned))
	}
}

func TestClearForUser_OnlyTargetUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "google-1", "alice")
	bob := createTestUser(t, db, "google-2", "bob")

	if err := db.Save(ctx, &model.Habit{UserID: alice.ID, Name: "Alice Habit"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := db.Save(ctx, &model.Habit{UserID: bob.ID, Name: "Bob Habit"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := db.ClearForUser(ctx, alice.ID); err != nil {
		t.Fatalf("ClearForUser: %v", err)
	}

	bobHabits, err := db.ListForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(bobHabits) != 1 {
		t.Errorf("bob lost his habits: got %d, want 1", len(bobHabits))
	}
}
