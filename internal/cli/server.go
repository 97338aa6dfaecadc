package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/auth"
	"mathfly-quiz-service/internal/config"
	"mathfly-quiz-service/internal/infra/memory"
	"mathfly-quiz-service/internal/infra/postgres"
	redisinfra "mathfly-quiz-service/internal/infra/redis"
	transport "mathfly-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	pool, err := openPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		if err := seedEmptyBank(ctx, cfg, pool, log); err != nil {
			return err
		}
	}
	redisClient, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	loader, err := questionLoader(cfg, pool)
	if err != nil {
		return err
	}
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 0)
	var questions app.QuestionProvider
	if redisClient != nil {
		questions = redisinfra.NewQuestionProvider(redisClient, loader, config.TTLDuration(cfg.Questions.TTL, 10*time.Minute))
	} else {
		questions = memory.NewQuestionProvider(loader, questionTTL)
	}

	var store app.ResultStore = memory.NewResultStore()
	if pool != nil {
		store = postgres.NewResultStore(pool)
	} else {
		log.Warn("postgres not configured, results are kept in memory")
	}

	var queue app.OfflineQueue
	sqliteQueue, err := openOfflineQueue(cfg)
	if err != nil {
		log.Warn("offline queue unavailable, falling back to memory", "error", err)
		queue = memory.NewOfflineQueue()
	} else {
		defer sqliteQueue.Close()
		queue = sqliteQueue
	}

	var (
		publishers []app.ResultPublisher
		ranking    app.Ranking
		feed       app.RankingFeed
		sessions   app.SessionRepository
	)
	if redisClient != nil {
		redisRanking := redisinfra.NewRanking(redisClient, 100)
		if err := redisRanking.Warm(ctx, store); err != nil {
			log.Warn("warm ranking", "error", err)
		}
		redisFeed := redisinfra.NewRankingFeed(redisClient, log)
		publishers = append(publishers, redisRanking, redisFeed)
		ranking, feed = redisRanking, redisFeed
		sessions = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Minute))
	} else {
		memFeed := memory.NewRankingFeed()
		publishers = append(publishers, memFeed)
		feed = memFeed
		sessions = memory.NewSessionStore()
	}

	settings := cfg.QuizSettings()
	gateway := app.NewGateway(store, queue, log, publishers...)
	stats := app.NewStatsService(store, ranking, settings.UnlockThreshold, log)
	service := app.NewQuizService(sessions, questions, gateway, stats, settings, log)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret not set, trusting X-User-ID headers")
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, verifier, feed, log),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
