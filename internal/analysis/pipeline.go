package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/chess-coach/internal/chesscom"
	"github.com/sakif/chess-coach/internal/coach"
	"github.com/sakif/chess-coach/internal/engine"
	"github.com/sakif/chess-coach/internal/model"
	"github.com/sakif/chess-coach/internal/repository"
)

// MinMistakesForClustering is the smallest mistake history that can produce
// statistically meaningful habits.
const MinMistakesForClustering = 20

// GameFetcher pulls a player's monthly game archives.
type GameFetcher interface {
	MonthlyGames(ctx context.Context, username string, year int, month time.Month) ([]chesscom.ArchivedGame, error)
}

// Coach turns a clustered pattern into feedback text.
type Coach interface {
	Generate(ctx context.Context, req coach.Request) coach.Feedback
}

// Result is the outcome of one analysis run. Habits is the response body
// the dashboard renders, in cluster discovery order; it is always present,
// empty when too few mistakes exist to cluster. The counts ride along for
// logging and the UI summary line.
type Result struct {
	Habits         []model.Habit `json:"habits"`
	NewHabitsFound int           `json:"new_habits_found"`
	TotalMistakes  int           `json:"total_mistakes"`
	GamesAnalyzed  int           `json:"games_analyzed"`
}

// Pipeline runs the full analysis: ingest games, evaluate them, cluster the
// mistakes into habits, and attach coaching feedback.
type Pipeline struct {
	games    repository.GameRepository
	mistakes repository.MistakeRepository
	habits   repository.HabitRepository
	fetcher  GameFetcher
	engines  engine.Source
	coach    Coach
	logger   *slog.Logger
	workers  int
}

// NewPipeline wires the pipeline. workers bounds concurrent game
// evaluation and should match the engine pool size.
func NewPipeline(
	games repository.GameRepository,
	mistakes repository.MistakeRepository,
	habits repository.HabitRepository,
	fetcher GameFetcher,
	engines engine.Source,
	c Coach,
	workers int,
	logger *slog.Logger,
) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		games:    games,
		mistakes: mistakes,
		habits:   habits,
		fetcher:  fetcher,
		engines:  engines,
		coach:    c,
		logger:   logger,
		workers:  workers,
	}
}

// Run executes the pipeline for the user's games in [start, end].
func (p *Pipeline) Run(ctx context.Context, user *model.User, start, end Month) (*Result, error) {
	if user.ChessComUsername == nil {
		return nil, fmt.Errorf("analysis: user %s has no linked chess.com account", user.ID)
	}
	username := *user.ChessComUsername

	for _, month := range MonthsBetween(start, end) {
		if _, err := p.IngestMonth(ctx, user, month); err != nil {
			return nil, err
		}
	}

	from := time.Date(start.Year, start.Month, 1, 0, 0, 0, 0, time.UTC)
	toMonth := end.Next()
	to := time.Date(toMonth.Year, toMonth.Month, 1, 0, 0, 0, 0, time.UTC)

	pending, err := p.games.ListUnanalyzed(ctx, user.ID, from, to)
	if err != nil {
		return nil, err
	}
	p.logger.Info("evaluating games",
		slog.String("username", username),
		slog.Int("games", len(pending)))

	extracted, evaluated, err := p.evaluateGames(ctx, pending, username)
	if err != nil {
		return nil, err
	}
	if err := p.mistakes.BatchInsert(ctx, extracted); err != nil {
		return nil, err
	}

	// Games are flagged analyzed only once their mistakes are durably
	// stored; a failed insert leaves them eligible for the next run.
	for _, gameID := range evaluated {
		if err := p.games.MarkAnalyzed(ctx, gameID, time.Now()); err != nil {
			return nil, err
		}
	}

	result, err := p.discoverHabits(ctx, user)
	if err != nil {
		return nil, err
	}
	result.GamesAnalyzed = len(evaluated)
	return result, nil
}

// IngestMonth fetches one archive month and stores the games not seen
// before. It returns how many new games were stored.
func (p *Pipeline) IngestMonth(ctx context.Context, user *model.User, month Month) (int, error) {
	if user.ChessComUsername == nil {
		return 0, fmt.Errorf("analysis: user %s has no linked chess.com account", user.ID)
	}
	username := *user.ChessComUsername

	archived, err := p.fetcher.MonthlyGames(ctx, username, month.Year, month.Month)
	if err != nil {
		return 0, fmt.Errorf("analysis: fetching %s for %s: %w", month, username, err)
	}

	inserted := 0
	for _, ag := range archived {
		if ag.PGN == "" {
			continue
		}
		game := &model.Game{
			UserID:       user.ID,
			Source:       model.SourceChessCom,
			SourceGameID: sourceGameID(ag.URL),
			GameURL:      ag.URL,
			PGN:          ag.PGN,
			GameDate:     gameDate(ag),
		}
		ok, err := p.games.Insert(ctx, game)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	p.logger.Info("ingested archive month",
		slog.String("username", username),
		slog.String("month", month.String()),
		slog.Int("fetched", len(archived)),
		slog.Int("new", inserted))
	return inserted, nil
}

// evaluateGames runs engine evaluation over the games with bounded
// concurrency. It returns all extracted mistakes plus the IDs of the games
// that evaluated cleanly; the caller marks those analyzed after persisting
// the mistakes.
func (p *Pipeline) evaluateGames(ctx context.Context, games []model.Game, username string) ([]*model.Mistake, []string, error) {
	var (
		mu        sync.Mutex
		collected []*model.Mistake
		evaluated []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, game := range games {
		g.Go(func() error {
			ev, err := p.engines.Acquire(gctx)
			if err != nil {
				return err
			}

			found, err := ExtractMistakes(gctx, ev, game.PGN, username, p.logger)
			if err != nil {
				if gctx.Err() != nil {
					p.engines.Discard(ev)
					return err
				}
				// unparseable or foreign game, skip it
				p.engines.Release(ev)
				p.logger.Warn("skipping game",
					slog.String("gameID", game.ID),
					slog.String("error", err.Error()))
				return nil
			}
			p.engines.Release(ev)

			for _, m := range found {
				m.GameID = game.ID
			}

			mu.Lock()
			collected = append(collected, found...)
			evaluated = append(evaluated, game.ID)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return collected, evaluated, nil
}

// discoverHabits reclusters the user's full unassigned mistake history and
// saves one habit per cluster.
func (p *Pipeline) discoverHabits(ctx context.Context, user *model.User) (*Result, error) {
	if err := p.habits.ClearForUser(ctx, user.ID); err != nil {
		return nil, err
	}

	history, err := p.mistakes.ListUnassigned(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	result := &Result{TotalMistakes: len(history), Habits: []model.Habit{}}
	if len(history) < MinMistakesForClustering {
		p.logger.Info("not enough mistakes for habit discovery",
			slog.String("userID", user.ID),
			slog.Int("mistakes", len(history)))
		return result, nil
	}

	mistakes := make([]*model.Mistake, len(history))
	for i := range history {
		mistakes[i] = &history[i]
	}

	p.logger.Info("running habit discovery", slog.Int("mistakes", len(mistakes)))
	labels, probabilities := clusterMistakes(gowerMatrix(mistakes))

	for _, label := range clusterOrder(labels) {
		members := clusterMembers(labels, label)

		triggers, ok := FindTriggers(mistakes, labels, label)
		if !ok {
			p.logger.Info("no positive triggers for cluster", slog.Int("cluster", label))
			continue
		}

		habit := p.buildHabit(ctx, user.ID, label, mistakes, members, probabilities, triggers)
		if err := p.habits.Save(ctx, habit); err != nil {
			return nil, err
		}

		memberIDs := make([]string, len(members))
		for i, idx := range members {
			memberIDs[i] = mistakes[idx].ID
		}
		if err := p.mistakes.LinkToHabit(ctx, habit.ID, memberIDs); err != nil {
			return nil, err
		}
		result.Habits = append(result.Habits, *habit)
		result.NewHabitsFound++
	}

	p.logger.Info("habit discovery complete",
		slog.String("userID", user.ID),
		slog.Int("habits", result.NewHabitsFound))
	return result, nil
}

func (p *Pipeline) buildHabit(
	ctx context.Context,
	userID string,
	label int,
	mistakes []*model.Mistake,
	members []int,
	probabilities []float64,
	triggers TriggerSet,
) *model.Habit {
	var confidenceSum float64
	primeIdx := members[0]
	for _, idx := range members {
		confidenceSum += probabilities[idx]
		if mistakes[idx].CPL > mistakes[primeIdx].CPL {
			primeIdx = idx
		}
	}
	confidence := confidenceSum / float64(len(members))

	fb := p.coach.Generate(ctx, coach.Request{
		ClusterID:  label,
		Confidence: confidence,
		TopContext: triggers.TopContext,
		TopAction:  triggers.TopAction,
		Triggers:   triggers.Triggers,
		Summary:    summarizeCluster(mistakes, members),
	})

	return &model.Habit{
		UserID: userID,
		// cluster suffix keeps names unique across habits of one run
		Name:                  fmt.Sprintf("%s (H%d)", fb.HabitName, label),
		Confidence:            &confidence,
		Description:           fb.Feedback,
		ImprovementTip:        fb.Tip,
		TotalMistakes:         len(members),
		PrimeExampleMistakeID: mistakes[primeIdx].ID,
		ClusterID:             &label,
		Triggers:              triggers.Triggers,
	}
}

// summarizeCluster condenses a cluster into the statistics the coach prompt
// needs: severity plus the three most frequent values of the key features.
func summarizeCluster(mistakes []*model.Mistake, members []int) coach.ClusterSummary {
	var cplSum, cplMax int
	for _, idx := range members {
		cpl := mistakes[idx].CPL
		cplSum += cpl
		if cpl > cplMax {
			cplMax = cpl
		}
	}
	return coach.ClusterSummary{
		TotalMistakes: len(members),
		AvgCPL:        cplSum / len(members),
		MaxCPL:        cplMax,
		TopMistakeTypes: topValues(mistakes, members, func(m *model.Mistake) string {
			return m.MistakeType
		}),
		TopGamePhases: topValues(mistakes, members, func(m *model.Mistake) string {
			return m.GamePhase
		}),
		TopPiecesMoved: topValues(mistakes, members, func(m *model.Mistake) string {
			return m.PieceMoved
		}),
		TopCategories: topValues(mistakes, members, func(m *model.Mistake) string {
			return m.MistakeCategory
		}),
	}
}

func topValues(mistakes []*model.Mistake, members []int, value func(*model.Mistake) string) []string {
	counts := map[string]int{}
	for _, idx := range members {
		counts[value(mistakes[idx])]++
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(a, b int) bool {
		if counts[values[a]] != counts[values[b]] {
			return counts[values[a]] > counts[values[b]]
		}
		return values[a] < values[b]
	})
	if len(values) > 3 {
		values = values[:3]
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%s (%d)", v, counts[v])
	}
	return out
}

func clusterOrder(labels []int) []int {
	seen := map[int]bool{}
	var order []int
	for _, l := range labels {
		if l != noiseLabel && !seen[l] {
			seen[l] = true
			order = append(order, l)
		}
	}
	sort.Ints(order)
	return order
}

func clusterMembers(labels []int, label int) []int {
	var members []int
	for i, l := range labels {
		if l == label {
			members = append(members, i)
		}
	}
	return members
}

func sourceGameID(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}

// gameDate extracts the finish time from the PGN headers, falling back to
// the archive's end_time epoch.
func gameDate(ag chesscom.ArchivedGame) time.Time {
	date := pgnTag(ag.PGN, "UTCDate")
	clock := pgnTag(ag.PGN, "UTCTime")
	if date != "" {
		if clock == "" {
			clock = "00:00:00"
		}
		if t, err := time.Parse("2006.01.02 15:04:05", date+" "+clock); err == nil {
			return t.UTC()
		}
	}
	if ag.EndTime > 0 {
		return time.Unix(ag.EndTime, 0).UTC()
	}
	return time.Time{}
}

// pgnTag reads one header tag value without parsing the whole game.
func pgnTag(pgn, name string) string {
	marker := "[" + name + " \""
	start := strings.Index(pgn, marker)
	if start == -1 {
		return ""
	}
	rest := pgn[start+len(marker):]
	end := strings.Index(rest, "\"")
	if end == -1 {
		return ""
	}
	return rest[:end]
}
