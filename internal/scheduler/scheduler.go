// Package scheduler runs the nightly game prefetch so that explicit analysis
// requests start with the archives already in the store.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/sakif/chess-coach/internal/analysis"
	"github.com/sakif/chess-coach/internal/model"
	"github.com/sakif/chess-coach/internal/repository"
)

// Ingester fetches and stores one archive month for a user. The production
// implementation is *analysis.Pipeline.
type Ingester interface {
	IngestMonth(ctx context.Context, user *model.User, month analysis.Month) (int, error)
}

// Scheduler manages the recurring prefetch job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	users     repository.UserRepository
	ingester  Ingester
	logger    *slog.Logger
}

// New creates a Scheduler. Jobs do not run until Start is called.
func New(users repository.UserRepository, ingester Ingester, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		users:     users,
		ingester:  ingester,
		logger:    logger,
	}
}

// Start schedules the nightly prefetch and runs the scheduler in the
// background. 03:30 UTC keeps the load away from evening play time in most
// chess.com regions.
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Day().At("03:30").Do(s.prefetchCurrentMonth)
	s.scheduler.StartAsync()
	s.logger.Info("prefetch scheduler started")
}

// Stop terminates all scheduled jobs. Running jobs finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// prefetchCurrentMonth ingests the current archive month for every linked
// user. Games land in the store unanalyzed; the next analysis run picks
// them up without refetching.
func (s *Scheduler) prefetchCurrentMonth() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	users, err := s.users.ListLinked(ctx)
	if err != nil {
		s.logger.Error("prefetch: listing linked users failed", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	month := analysis.Month{Year: now.Year(), Month: now.Month()}

	for i := range users {
		user := &users[i]
		inserted, err := s.ingester.IngestMonth(ctx, user, month)
		if err != nil {
			s.logger.Error("prefetch: ingest failed",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()))
			continue
		}
		if inserted > 0 {
			s.logger.Info("prefetch: stored new games",
				slog.String("userID", user.ID),
				slog.Int("games", inserted))
		}
	}
}
