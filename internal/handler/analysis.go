package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/chess-coach/internal/analysis"
	"github.com/sakif/chess-coach/internal/auth"
	"github.com/sakif/chess-coach/internal/model"
)

// AnalysisProvider is the slice of the analysis service the handler needs.
type AnalysisProvider interface {
	Analyze(ctx context.Context, userID, startMonth, endMonth string) (*analysis.Result, error)
	LatestHabits(ctx context.Context, userID string) ([]model.Habit, error)
}

// AnalysisHandler serves analysis runs and their results.
type AnalysisHandler struct {
	analyses AnalysisProvider
	logger   *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(analyses AnalysisProvider, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{analyses: analyses, logger: logger}
}

type analyzeRequest struct {
	StartMonth string `json:"start_month_year"`
	EndMonth   string `json:"end_month_year"`
}

// HandleAnalyze runs the full analysis for a month range. The request
// blocks until the run completes; multi-month ranges take minutes.
//
// HTTP: POST /api/analyze
// Auth: required
func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "login required"})
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	result, err := h.analyses.Analyze(r.Context(), userID, req.StartMonth, req.EndMonth)
	if err != nil {
		h.logger.Error("analysis run failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type habitsResponse struct {
	Habits []model.Habit `json:"habits"`
}

// HandleLatestHabits returns the habits from the user's most recent
// analysis run.
//
// HTTP: GET /api/user/latest-habits
// Auth: required
func (h *AnalysisHandler) HandleLatestHabits(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "login required"})
		return
	}

	habits, err := h.analyses.LatestHabits(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if habits == nil {
		habits = []model.Habit{} // empty list, never null
	}

	writeJSON(w, http.StatusOK, habitsResponse{Habits: habits})
}
