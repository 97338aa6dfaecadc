package memory

import (
	"context"
	"sort"
	"sync"

	"mathfly-quiz-service/internal/domain"
)

// ResultStore keeps phase results and progress in process. It backs demo runs
// and tests; the Postgres store is the durable equivalent.
type ResultStore struct {
	mu       sync.RWMutex
	results  []domain.PhaseResult
	ids      map[string]struct{}
	progress map[string]domain.UserProgress
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		ids:      make(map[string]struct{}),
		progress: make(map[string]domain.UserProgress),
	}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.PhaseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[result.ID]; ok {
		return nil
	}
	s.ids[result.ID] = struct{}{}
	s.results = append(s.results, result)

	p, ok := s.progress[result.UserID]
	if !ok {
		p = domain.UserProgress{UserID: result.UserID}
	}
	p.TotalCorrect += result.CorrectAnswers
	p.TotalPoints += result.PointsEarned
	if result.Phase > p.MaxPhase {
		p.MaxPhase = result.Phase
	}
	s.progress[result.UserID] = p
	return nil
}

func (s *ResultStore) PhaseResults(_ context.Context, userID string) ([]domain.PhaseResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PhaseResult, 0)
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *ResultStore) Progress(_ context.Context, userID string) (domain.UserProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[userID]
	return p, ok, nil
}

// TopResults ranks individual results by points; ties go to the earlier finish.
func (s *ResultStore) TopResults(_ context.Context, limit int) ([]domain.RankingEntry, error) {
	s.mu.RLock()
	sorted := append([]domain.PhaseResult(nil), s.results...)
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PointsEarned != sorted[j].PointsEarned {
			return sorted[i].PointsEarned > sorted[j].PointsEarned
		}
		return sorted[i].CompletedAt.Before(sorted[j].CompletedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]domain.RankingEntry, 0, len(sorted))
	for i, r := range sorted {
		out = append(out, domain.NewRankingEntry(r, i+1))
	}
	return out, nil
}
