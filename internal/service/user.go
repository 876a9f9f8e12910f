package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/chess-coach/internal/apperror"
	"github.com/sakif/chess-coach/internal/model"
	"github.com/sakif/chess-coach/internal/repository"
)

// Chess.com usernames: 3-25 characters of letters, digits, underscore,
// or hyphen.
var chessUsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,25}$`)

// RelinkCooldown is how long a user must wait before switching the linked
// chess.com account. One analysis history belongs to one account; free
// switching would mix mistake histories of different players.
const RelinkCooldown = 30 * 24 * time.Hour

// ProfileChecker verifies that a chess.com username exists upstream.
type ProfileChecker interface {
	ProfileExists(ctx context.Context, username string) (bool, error)
}

// UserService handles account state: session status and chess.com linking.
type UserService struct {
	users  repository.UserRepository
	chess  ProfileChecker
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, chess ProfileChecker, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		chess:  chess,
		logger: logger,
	}
}

// Get returns the user record for the session.
func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// LinkChessAccount associates the chess.com username with the user.
//
// Rules enforced here, not in the handler:
//   - the username must be syntactically valid and exist on chess.com
//   - relinking to a different account is throttled by RelinkCooldown
//   - relinking the same account is a no-op success
func (s *UserService) LinkChessAccount(ctx context.Context, userID, username string) (*model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	if username == "" {
		return nil, apperror.ValidationFailed("username", "chess.com username is required")
	}
	if !chessUsernamePattern.MatchString(username) {
		return nil, apperror.ValidationFailed("username", "chess.com username must be 3-25 letters, digits, underscores, or hyphens")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.ChessComUsername != nil {
		if strings.EqualFold(*user.ChessComUsername, username) {
			return user, nil // already linked to this account
		}
		if user.ChessLinkedAt != nil && time.Since(*user.ChessLinkedAt) < RelinkCooldown {
			return nil, apperror.RateLimited("chess.com account can only be changed once every 30 days")
		}
	}

	exists, err := s.chess.ProfileExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/user: verifying chess.com profile: %w", err)
	}
	if !exists {
		return nil, apperror.ValidationFailed("username", fmt.Sprintf("chess.com user %q does not exist", username))
	}

	linkedAt := time.Now()
	if err := s.users.LinkChessAccount(ctx, userID, username, linkedAt); err != nil {
		return nil, err
	}

	s.logger.Info("chess.com account linked",
		slog.String("userID", userID),
		slog.String("username", username))

	user.ChessComUsername = &username
	user.ChessLinkedAt = &linkedAt
	return user, nil
}
