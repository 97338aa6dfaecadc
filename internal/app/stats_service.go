package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/logger"
	"mathfly-quiz-service/internal/progress"
)

const (
	// RankingSize is the number of rows shown in the global ranking.
	RankingSize = 20
	// PerformanceSize is the number of recent results in a personal history.
	PerformanceSize = 10
)

// Ranking serves the global leaderboard.
type Ranking interface {
	TopResults(ctx context.Context, limit int) ([]domain.RankingEntry, error)
}

// RankingFeed streams results as they are saved so rankings can refresh live.
type RankingFeed interface {
	Subscribe(ctx context.Context) (<-chan domain.PhaseResult, func(), error)
}

// StatsService derives dashboard data from persisted history.
type StatsService struct {
	store     ResultStore
	ranking   Ranking
	threshold int
	log       *logger.Logger
	now       func() time.Time
}

// NewStatsService falls back to the result store for ranking when ranking is nil.
func NewStatsService(store ResultStore, ranking Ranking, threshold int, log *logger.Logger) *StatsService {
	if ranking == nil {
		ranking = store
	}
	if threshold <= 0 {
		threshold = progress.DefaultThreshold
	}
	return &StatsService{
		store:     store,
		ranking:   ranking,
		threshold: threshold,
		log:       logger.OrNop(log).With("component", "stats"),
		now:       time.Now,
	}
}

// PhaseStatuses recomputes unlock state from the user's full history.
func (s *StatsService) PhaseStatuses(ctx context.Context, userID string) ([]domain.PhaseStatus, error) {
	history, err := s.store.PhaseResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progress.Statuses(history, s.threshold), nil
}

// PhaseUnlocked reports whether phase may be started by userID.
func (s *StatsService) PhaseUnlocked(ctx context.Context, userID string, phase domain.Phase) (bool, error) {
	history, err := s.store.PhaseResults(ctx, userID)
	if err != nil {
		return false, err
	}
	return progress.Unlocked(phase.Number(), history, s.threshold), nil
}

// UserStats summarizes a user's totals. Accuracy divides by the question
// count recorded for each session.
func (s *StatsService) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	stats := domain.UserStats{BestPhase: domain.PhaseFacil, LastPlayed: s.now().UTC()}

	prog, found, err := s.store.Progress(ctx, userID)
	if err != nil {
		return stats, err
	}
	history, err := s.store.PhaseResults(ctx, userID)
	if err != nil {
		return stats, err
	}

	totalQuestions := 0
	for _, r := range history {
		if r.TotalQuestions > 0 {
			totalQuestions += r.TotalQuestions
		} else {
			totalQuestions += domain.DefaultQuestionCount
		}
	}
	stats.TotalGames = len(history)
	if found {
		stats.TotalScore = prog.TotalPoints
		if phase, ok := domain.PhaseFromNumber(prog.MaxPhase); ok {
			stats.BestPhase = phase
		}
		if totalQuestions > 0 {
			stats.AverageAccuracy = float64(prog.TotalCorrect) / float64(totalQuestions) * 100
		}
	}
	if len(history) > 0 {
		stats.LastPlayed = history[0].CompletedAt
	}
	return stats, nil
}

// PersonalPerformance returns the newest results with their accuracy.
func (s *StatsService) PersonalPerformance(ctx context.Context, userID string, limit int) ([]domain.Performance, error) {
	history, err := s.store.PhaseResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	out := make([]domain.Performance, 0, len(history))
	for _, r := range history {
		out = append(out, domain.Performance{PhaseResult: r, Accuracy: r.Accuracy()})
	}
	return out, nil
}

// GlobalRanking returns the best results across all users.
func (s *StatsService) GlobalRanking(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	if limit <= 0 {
		limit = RankingSize
	}
	return s.ranking.TopResults(ctx, limit)
}

// Dashboard bundles everything the dashboard screen shows.
type Dashboard struct {
	Stats       domain.UserStats      `json:"stats"`
	Phases      []domain.PhaseStatus  `json:"phases"`
	Ranking     []domain.RankingEntry `json:"ranking"`
	Performance []domain.Performance  `json:"performance"`
}

// Dashboard loads all parts concurrently. A failing part degrades to its
// empty default instead of failing the whole dashboard.
func (s *StatsService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.UserStats(gctx, userID)
		if err != nil {
			s.log.Warn("load user stats", "user_id", userID, "error", err)
		}
		d.Stats = stats
		return nil
	})
	g.Go(func() error {
		phases, err := s.PhaseStatuses(gctx, userID)
		if err != nil {
			s.log.Warn("load phase statuses", "user_id", userID, "error", err)
			phases = progress.Statuses(nil, s.threshold)
		}
		d.Phases = phases
		return nil
	})
	g.Go(func() error {
		ranking, err := s.GlobalRanking(gctx, RankingSize)
		if err != nil {
			s.log.Warn("load ranking", "error", err)
			ranking = []domain.RankingEntry{}
		}
		d.Ranking = ranking
		return nil
	})
	g.Go(func() error {
		perf, err := s.PersonalPerformance(gctx, userID, PerformanceSize)
		if err != nil {
			s.log.Warn("load performance", "user_id", userID, "error", err)
			perf = []domain.Performance{}
		}
		d.Performance = perf
		return nil
	})

	err := g.Wait()
	return d, err
}
