package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/chess-coach/internal/apperror"
)

// ============================================================
// Upsert
// ============================================================

func TestUpsert_CreatesNewUser(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "google-123", "alice")

	if user.ID == "" {
		t.Fatal("expected generated ID, got empty string")
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := db.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.GoogleID != "google-123" {
		t.Errorf("GoogleID = %q, want %q", got.GoogleID, "google-123")
	}
	if got.Name != "alice" {
		t.Errorf("Name = %q, want %q", got.Name, "alice")
	}
	if got.ChessComUsername != nil {
		t.Errorf("new user should not have a chess.com username, got %q", *got.ChessComUsername)
	}
}

func TestUpsert_UpdatesExistingUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := createTestUser(t, db, "google-123", "alice")

	// Same Google ID again with a new display name: must update in place.
	second := createTestUser(t, db, "google-123", "alice-renamed")

	if second.ID != first.ID {
		t.Errorf("upsert created a new row: id %q != %q", second.ID, first.ID)
	}

	got, err := db.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "alice-renamed" {
		t.Errorf("Name = %q, want %q", got.Name, "alice-renamed")
	}
}

func TestUpsert_PreservesChessLink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "google-123", "alice")
	if err := db.LinkChessAccount(ctx, user.ID, "hikaru", time.Now()); err != nil {
		t.Fatalf("LinkChessAccount: %v", err)
	}

	// A later login must not wipe the linked account.
	updated := createTestUser(t, db, "google-123", "alice")

	if updated.ChessComUsername == nil || *updated.ChessComUsername != "hikaru" {
		t.Errorf("chess.com link lost on re-login: %v", updated.ChessComUsername)
	}

	got, err := db.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ChessComUsername == nil || *got.ChessComUsername != "hikaru" {
		t.Error("chess.com link lost in storage after re-login")
	}
	if got.ChessLinkedAt == nil {
		t.Error("ChessLinkedAt lost after re-login")
	}
}

// ============================================================
// GetByID
// ============================================================

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "no-such-user")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// LinkChessAccount
// ============================================================

func TestLinkChessAccount_Success(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "google-123", "alice")
	linkedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := db.LinkChessAccount(ctx, user.ID, "magnuscarlsen", linkedAt); err != nil {
		t.Fatalf("LinkChessAccount: %v", err)
	}

	got, err := db.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ChessComUsername == nil || *got.ChessComUsername != "magnuscarlsen" {
		t.Errorf("ChessComUsername = %v, want magnuscarlsen", got.ChessComUsername)
	}
	if got.ChessLinkedAt == nil || !got.ChessLinkedAt.Equal(linkedAt) {
		t.Errorf("ChessLinkedAt = %v, want %v", got.ChessLinkedAt, linkedAt)
	}
}

func TestLinkChessAccount_UsernameTaken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "google-1", "alice")
	bob := createTestUser(t, db, "google-2", "bob")

	if err := db.LinkChessAccount(ctx, alice.ID, "hikaru", time.Now()); err != nil {
		t.Fatalf("first link: %v", err)
	}

	err := db.LinkChessAccount(ctx, bob.ID, "hikaru", time.Now())
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate username, got %v", err)
	}
}

func TestLinkChessAccount_UserNotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.LinkChessAccount(context.Background(), "no-such-user", "hikaru", time.Now())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// ListLinked
// ============================================================

func TestListLinked_OnlyLinkedUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	linked := createTestUser(t, db, "google-1", "alice")
	createTestUser(t, db, "google-2", "bob") // never links

	if err := db.LinkChessAccount(ctx, linked.ID, "alicechess", time.Now()); err != nil {
		t.Fatalf("LinkChessAccount: %v", err)
	}

	users, err := db.ListLinked(ctx)
	if err != nil {
		t.Fatalf("ListLinked: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d linked users, want 1", len(users))
	}
	if users[0].ID != linked.ID {
		t.Errorf("got user %s, want %s", users[0].ID, linked.ID)
	}
	if users[0].ChessComUsername == nil || *users[0].ChessComUsername != "alicechess" {
		t.Errorf("ChessComUsername = %v, want alicechess", users[0].ChessComUsername)
	}
}
