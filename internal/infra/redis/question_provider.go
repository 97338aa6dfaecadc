package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/domain"
)

// QuestionProvider caches each phase's pool in Redis and falls back to a
// loader on cache miss. Pools are stored as JSON under questions:{phase}.
type QuestionProvider struct {
	client *redis.Client
	loader app.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionProvider(client *redis.Client, loader app.QuestionLoader, ttl time.Duration) *QuestionProvider {
	return &QuestionProvider{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
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
func (p *QuestionProvider) Invalidate(ctx context.Context, phase domain.Phase) error {
	return p.client.Del(ctx, p.key(phase)).Err()
}

func (p *QuestionProvider) pool(ctx context.Context, phase domain.Phase) ([]domain.Question, error) {
	if pool, ok := p.cached(ctx, phase); ok {
		return pool, nil
	}

	result, err, _ := p.sf.Do(string(phase), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := p.cached(ctx, phase); ok {
			return pool, nil
		}

		pool, err := p.loader.LoadPhase(ctx, phase)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(pool); err == nil {
			// best-effort; a failed write only costs another load
			_ = p.client.Set(ctx, p.key(phase), raw, p.ttlWithJitter()).Err()
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (p *QuestionProvider) cached(ctx context.Context, phase domain.Phase) ([]domain.Question, bool) {
	raw, err := p.client.Get(ctx, p.key(phase)).Bytes()
	if err != nil {
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil || len(pool) == 0 {
		return nil, false
	}
	return pool, true
}

func (p *QuestionProvider) key(phase domain.Phase) string {
	return "questions:" + string(phase)
}

func (p *QuestionProvider) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	jitterMax := int64(p.ttl) / 10
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}
