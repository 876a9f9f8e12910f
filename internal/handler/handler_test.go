package handler

// ============================================================================
// SHARED TEST HELPERS
// ============================================================================
//
// Handlers read the user identity from the request context via the auth
// package, whose context key is unexported. Tests therefore go through the
// real middleware with a real token, the same way a browser request would.

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sakif/chess-coach/internal/auth"
)

func newHandlerTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-key-at-least-16-chars")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return tokens
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serveAuthed runs the request through RequireAuth with a session cookie for
// userID, then the handler.
func serveAuthed(t *testing.T, tokens *auth.TokenService, userID string, h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	token, err := tokens.Generate(userID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})

	rec := httptest.NewRecorder()
	auth.RequireAuth(tokens)(h).ServeHTTP(rec, r)
	return rec
}

func strPtr(s string) *string { return &s }
