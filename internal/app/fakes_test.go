package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"mathfly-quiz-service/internal/domain"
)

// staticProvider serves its pool in order, truncated to count.
type staticProvider struct {
	pool []domain.Question
	err  error
}

func (p *staticProvider) GetQuestions(_ context.Context, _ domain.Phase, count int) ([]domain.Question, error) {
	if p.err != nil {
		return nil, p.err
	}
	if count > len(p.pool) {
		count = len(p.pool)
	}
	return append([]domain.Question(nil), p.pool[:count]...), nil
}

var errStoreDown = errors.New("store unreachable")

type fakeStore struct {
	mu       sync.Mutex
	down     bool
	saves    int
	results  map[string]domain.PhaseResult
	progress map[string]domain.UserProgress
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results:  make(map[string]domain.PhaseResult),
		progress: make(map[string]domain.UserProgress),
	}
}

func (s *fakeStore) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *fakeStore) SaveResult(_ context.Context, r domain.PhaseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errStoreDown
	}
	if _, ok := s.results[r.ID]; ok {
		return nil
	}
	s.saves++
	s.results[r.ID] = r
	p := s.progress[r.UserID]
	p.UserID = r.UserID
	p.TotalCorrect += r.CorrectAnswers
	p.TotalPoints += r.PointsEarned
	if r.Phase > p.MaxPhase {
		p.MaxPhase = r.Phase
	}
	s.progress[r.UserID] = p
	return nil
}

func (s *fakeStore) PhaseResults(_ context.Context, userID string) ([]domain.PhaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errStoreDown
	}
	var out []domain.PhaseResult
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (s *fakeStore) Progress(_ context.Context, userID string) (domain.UserProgress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return domain.UserProgress{}, false, errStoreDown
	}
	p, ok := s.progress[userID]
	return p, ok, nil
}

func (s *fakeStore) TopResults(_ context.Context, limit int) ([]domain.RankingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errStoreDown
	}
	var all []domain.PhaseResult
	for _, r := range s.results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PointsEarned > all[j].PointsEarned })
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]domain.RankingEntry, 0, len(all))
	for i, r := range all {
		out = append(out, domain.NewRankingEntry(r, i+1))
	}
	return out, nil
}

// hangingStore never answers a save until the caller gives up.
type hangingStore struct {
	*fakeStore
}

func (s hangingStore) SaveResult(ctx context.Context, _ domain.PhaseResult) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeQueue struct {
	mu      sync.Mutex
	entries []domain.OfflineEntry
}

func (q *fakeQueue) Enqueue(ctx context.Context, e domain.OfflineEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
	return nil
}

func (q *fakeQueue) Unsynced(_ context.Context, userID string) ([]domain.OfflineEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []domain.OfflineEntry
	for _, e := range q.entries {
		if !e.Synced && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q *fakeQueue) MarkSynced(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id && !q.entries[i].Synced {
			q.entries[i].Synced = true
			return true, nil
		}
	}
	return false, nil
}

func (q *fakeQueue) all() []domain.OfflineEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.OfflineEntry(nil), q.entries...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func twoQuestions() []domain.Question {
	return []domain.Question{
		{ID: "Q1", Prompt: "1 + 1?", OptionA: "2", OptionB: "3", OptionC: "4", OptionD: "5", CorrectOption: domain.OptionA, Phase: domain.PhaseFacil},
		{ID: "Q2", Prompt: "2 + 1?", OptionA: "2", OptionB: "3", OptionC: "4", OptionD: "5", CorrectOption: domain.OptionB, Phase: domain.PhaseFacil},
	}
}
