package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/domain"
)

// QuestionProvider caches each phase's full pool after the first load and
// samples from it. Entries live until Invalidate, or until ttl when ttl > 0.
type QuestionProvider struct {
	loader app.QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[domain.Phase]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionProvider(loader app.QuestionLoader, ttl time.Duration) *QuestionProvider {
	return &QuestionProvider{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.Phase]cachedPool),
	}
}

func (p *QuestionProvider) GetQuestions(ctx context.Context, phase domain.Phase, count int) ([]domain.Question, error) {
	pool, err := p.pool(ctx, phase)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyPhase, phase)
	}
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return app.SampleQuestions(p.rnd, pool, count), nil
}

// Invalidate drops the cached pool of phase.
func (p *QuestionProvider) Invalidate(phase domain.Phase) {
	p.mu.Lock()
	delete(p.cache, phase)
	p.mu.Unlock()
}

// InvalidateAll drops every cached pool.
func (p *QuestionProvider) InvalidateAll() {
	p.mu.Lock()
	p.cache = make(map[domain.Phase]cachedPool)
	p.mu.Unlock()
}

func (p *QuestionProvider) pool(ctx context.Context, phase domain.Phase) ([]domain.Question, error) {
	if pool, ok := p.cached(phase); ok {
		return pool, nil
	}

	result, err, _ := p.sf.Do(string(phase), func() (interface{}, error) {
		if pool, ok := p.cached(phase); ok {
			return pool, nil
		}
		pool, err := p.loader.LoadPhase(ctx, phase)
		if err != nil {
			return nil, err
		}
		entry := cachedPool{questions: pool}
		if p.ttl > 0 {
			entry.expiresAt = p.clock().Add(p.ttl)
		}
		p.mu.Lock()
		p.cache[phase] = entry
		p.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (p *QuestionProvider) cached(phase domain.Phase) ([]domain.Question, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.cache[phase]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(p.clock()) {
		return nil, false
	}
	return entry.questions, true
}
