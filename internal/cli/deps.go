package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/config"
	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/infra/memory"
	"mathfly-quiz-service/internal/infra/postgres"
	"mathfly-quiz-service/internal/infra/sqlite"
	"mathfly-quiz-service/internal/logger"
)

func loadConfig(path string) (config.Config, *logger.Logger, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	mode := os.Getenv("LOG_MODE")
	if mode == "" {
		mode = cfg.Log.Mode
	}
	log, err := logger.New(mode)
	if err != nil {
		return cfg, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.Postgres.URL == "" {
		return nil, nil
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// bankPools returns the question file's pools, or the built-in bank.
func bankPools(cfg config.Config) (map[domain.Phase][]domain.Question, error) {
	if cfg.Questions.Path == "" {
		return memory.DefaultBank(), nil
	}
	return memory.LoadQuestionFile(cfg.Questions.Path)
}

// questionLoader prefers Postgres, then the question file, then the built-in bank.
func questionLoader(cfg config.Config, pool *pgxpool.Pool) (app.QuestionLoader, error) {
	if pool != nil {
		return postgres.NewQuestionLoader(pool), nil
	}
	pools, err := bankPools(cfg)
	if err != nil {
		return nil, err
	}
	return memory.NewStaticQuestionLoader(pools), nil
}

func openOfflineQueue(cfg config.Config) (*sqlite.OfflineQueue, error) {
	path := cfg.Offline.Path
	if path == "" {
		var err error
		if path, err = sqlite.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return sqlite.Open(path)
}
