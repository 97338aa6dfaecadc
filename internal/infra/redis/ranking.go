package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/domain"
)

// RankingKey is the sorted set holding the best results.
const RankingKey = "ranking:results"

const maxUnixSeconds = 9_999_999_999

// Ranking keeps the global ranking in a ZSet. Each member is one JSON-encoded
// result; the score orders by points and then by the earlier finish.
type Ranking struct {
	client   *redis.Client
	capacity int64
}

// NewRanking keeps at most capacity results in the set.
func NewRanking(client *redis.Client, capacity int) *Ranking {
	if capacity <= 0 {
		capacity = 100
	}
	return &Ranking{client: client, capacity: int64(capacity)}
}

// PublishResult adds a saved result to the ranking.
func (r *Ranking) PublishResult(ctx context.Context, result domain.PhaseResult) error {
	member, err := json.Marshal(result)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, RankingKey, redis.Z{Score: rankScore(result), Member: string(member)})
	// ZREMRANGEBYRANK is ascending, so this drops everything below the top capacity.
	pipe.ZRemRangeByRank(ctx, RankingKey, 0, -(r.capacity + 1))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Ranking) TopResults(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	if limit <= 0 {
		limit = app.RankingSize
	}
	// ZREVRANGE returns highest to lowest
	members, err := r.client.ZRevRange(ctx, RankingKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.RankingEntry, 0, len(members))
	for _, m := range members {
		var result domain.PhaseResult
		if err := json.Unmarshal([]byte(m), &result); err != nil {
			return nil, fmt.Errorf("decode ranking member: %w", err)
		}
		entries = append(entries, domain.NewRankingEntry(result, len(entries)+1))
	}
	return entries, nil
}

// Warm seeds an empty ranking from the durable store.
func (r *Ranking) Warm(ctx context.Context, store app.ResultStore) error {
	n, err := r.client.ZCard(ctx, RankingKey).Result()
	if err != nil || n > 0 {
		return err
	}
	top, err := store.TopResults(ctx, int(r.capacity))
	if err != nil {
		return err
	}
	for _, e := range top {
		result := domain.PhaseResult{
			ID:           fmt.Sprintf("warm-%d", e.Rank),
			UserID:       e.UserID,
			Phase:        e.Phase,
			PointsEarned: e.Points,
			CompletedAt:  e.CompletedAt,
		}
		if err := r.PublishResult(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

func rankScore(result domain.PhaseResult) float64 {
	return float64(result.PointsEarned)*1e10 + float64(maxUnixSeconds-result.CompletedAt.Unix())
}
