package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/chess-coach/internal/auth"
	"github.com/sakif/chess-coach/internal/model"
)

// UserProvider is the slice of the user service the handler needs.
// Declaring the interface here (at the consumer) keeps the handler testable
// with a hand-written mock.
type UserProvider interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	LinkChessAccount(ctx context.Context, userID, username string) (*model.User, error)
}

// UserHandler serves session status and chess.com account linking.
type UserHandler struct {
	users  UserProvider
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserProvider, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// statusResponse is the session state the dashboard renders on load.
type statusResponse struct {
	LoggedIn bool        `json:"logged_in"`
	UserInfo *model.User `json:"user_info"`
}

// HandleStatus reports whether the caller has a valid session and, if so,
// who they are.
//
// HTTP: GET /api/user/status
// Auth: optional — anonymous callers get logged_in=false, not a 401
func (h *UserHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, statusResponse{LoggedIn: false})
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		// A valid token for a missing user means the account was deleted;
		// treat the session as stale rather than erroring.
		h.logger.Warn("status: user lookup failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, statusResponse{LoggedIn: false})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{LoggedIn: true, UserInfo: user})
}

type linkRequest struct {
	ChessUsername string `json:"username"`
}

type linkResponse struct {
	Message          string  `json:"message"`
	ChessComUsername *string `json:"chess_com_username"`
}

// HandleLinkChessAccount associates a chess.com username with the session
// user.
//
// HTTP: POST /api/user/link_chess_account
// Auth: required
func (h *UserHandler) HandleLinkChessAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "login required"})
		return
	}

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	user, err := h.users.LinkChessAccount(r.Context(), userID, req.ChessUsername)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, linkResponse{
		Message:          "chess.com account linked",
		ChessComUsername: user.ChessComUsername,
	})
}
