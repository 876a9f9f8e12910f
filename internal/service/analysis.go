package service

import (
	"context"
	"log/slog"

	"github.com/sakif/chess-coach/internal/analysis"
	"github.com/sakif/chess-coach/internal/apperror"
	"github.com/sakif/chess-coach/internal/model"
	"github.com/sakif/chess-coach/internal/repository"
)

// PipelineRunner runs the full game analysis for a user and month range.
// The production implementation is *analysis.Pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, user *model.User, start, end analysis.Month) (*analysis.Result, error)
}

// AnalysisService guards and triggers analysis runs and serves results.
type AnalysisService struct {
	users    repository.UserRepository
	habits   repository.HabitRepository
	pipeline PipelineRunner // nil when no engine binary is configured
	logger   *slog.Logger
}

// NewAnalysisService creates an AnalysisService. pipeline may be nil; the
// server then still serves stored habits but rejects new analysis runs.
func NewAnalysisService(
	users repository.UserRepository,
	habits repository.HabitRepository,
	pipeline PipelineRunner,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		users:    users,
		habits:   habits,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Analyze validates the month range and runs the pipeline for the user.
//
// Preconditions checked in order: months parse, start is not after end, the
// user has a linked chess.com account, and an engine is configured.
func (s *AnalysisService) Analyze(ctx context.Context, userID, startStr, endStr string) (*analysis.Result, error) {
	start, err := analysis.ParseMonth("start_month_year", startStr)
	if err != nil {
		return nil, err
	}
	end, err := analysis.ParseMonth("end_month_year", endStr)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperror.ValidationFailed("start_month_year", "start month must not be after end month")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Linked() {
		return nil, apperror.Forbidden("link a chess.com account before requesting analysis")
	}

	if s.pipeline == nil {
		return nil, apperror.Unavailable("game analysis is not available: no engine is configured")
	}

	s.logger.Info("starting analysis run",
		slog.String("userID", userID),
		slog.String("start", start.String()),
		slog.String("end", end.String()))

	return s.pipeline.Run(ctx, user, start, end)
}

// LatestHabits returns the user's stored habits. A user without a linked
// account simply has none yet; that is an empty result, not an error.
func (s *AnalysisService) LatestHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Linked() {
		return nil, nil
	}
	return s.habits.ListForUser(ctx, user.ID)
}
