package memory

import (
	"context"
	"sync"

	"mathfly-quiz-service/internal/domain"
)

// RankingFeed fans saved results out to in-process subscribers.
type RankingFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.PhaseResult
}

func NewRankingFeed() *RankingFeed {
	return &RankingFeed{subs: make(map[int]chan domain.PhaseResult)}
}

// PublishResult never blocks: a subscriber that lags loses its oldest update.
func (f *RankingFeed) PublishResult(_ context.Context, result domain.PhaseResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- result:
		default:
			// drop stale update
			select {
			case <-ch:
			default:
			}
			ch <- result
		}
	}
	return nil
}

// Subscribe returns a stream of saved results until cancel is called or ctx ends.
func (f *RankingFeed) Subscribe(ctx context.Context) (<-chan domain.PhaseResult, func(), error) {
	ch := make(chan domain.PhaseResult, 8)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			close(ch)
			f.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}, nil
}
