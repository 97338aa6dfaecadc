package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/logger"
)

// RankingChannel is the pub/sub channel carrying saved results.
const RankingChannel = "ranking_updates"

// RankingFeed broadcasts saved results to every instance over Redis pub/sub.
type RankingFeed struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

func NewRankingFeed(client *redis.Client, log *logger.Logger) *RankingFeed {
	return &RankingFeed{
		client:  client,
		channel: RankingChannel,
		log:     logger.OrNop(log).With("component", "ranking_feed"),
	}
}

func (f *RankingFeed) PublishResult(ctx context.Context, result domain.PhaseResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, raw).Err()
}

// Subscribe streams results published by any instance until cancel is called
// or ctx ends.
func (f *RankingFeed) Subscribe(ctx context.Context) (<-chan domain.PhaseResult, func(), error) {
	sub := f.client.Subscribe(ctx, f.channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan domain.PhaseResult, 8)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var result domain.PhaseResult
				if err := json.Unmarshal([]byte(m.Payload), &result); err != nil {
					f.log.Warn("bad ranking payload", "error", err)
					continue
				}
				select {
				case out <- result:
				default:
					// drop stale update
					select {
					case <-out:
					default:
					}
					out <- result
				}
			}
		}
	}()
	return out, cancel, nil
}
