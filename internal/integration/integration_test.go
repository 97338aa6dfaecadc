package integration

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/auth"
	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/infra/memory"
	"mathfly-quiz-service/internal/infra/postgres"
	pgmigrations "mathfly-quiz-service/internal/infra/postgres/migrations"
	infraredis "mathfly-quiz-service/internal/infra/redis"
	"mathfly-quiz-service/internal/infra/sqlite"
)

func TestQuizSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	var bank []domain.Question
	for _, phase := range domain.Phases {
		bank = append(bank, memory.DefaultBank()[phase]...)
	}
	if err := postgres.SeedQuestions(ctx, pool, bank); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	queue, err := sqlite.Open(filepath.Join(t.TempDir(), "offline.db"))
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	defer queue.Close()

	store := postgres.NewResultStore(pool)
	ranking := infraredis.NewRanking(redisClient, 100)
	provider := infraredis.NewQuestionProvider(redisClient, postgres.NewQuestionLoader(pool), 5*time.Minute)
	gateway := app.NewGateway(store, queue, nil, ranking)
	engine := app.NewEngine(provider, gateway)

	userCtx := auth.WithUser(ctx, "u1")
	session, err := engine.Start(userCtx, domain.PhaseFacil, 5)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(session.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(session.Questions))
	}
	// answer the first three correctly and the rest wrong
	for i, q := range session.Questions {
		answer := q.CorrectOption
		if i >= 3 {
			answer = ""
		}
		if out := engine.Submit(answer); out == nil {
			t.Fatalf("submit %d returned nil", i)
		}
		if _, ok := engine.Advance(); !ok {
			t.Fatalf("advance %d failed", i)
		}
	}
	results, ok := engine.Finish(userCtx)
	if !ok || results.CorrectAnswers != 3 || results.TotalQuestions != 5 {
		t.Fatalf("unexpected results: %+v ok=%v", results, ok)
	}

	history, err := store.PhaseResults(ctx, "u1")
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one stored result, got %+v err=%v", history, err)
	}
	progress, found, err := store.Progress(ctx, "u1")
	if err != nil || !found || progress.TotalPoints != results.Score || progress.MaxPhase != 1 {
		t.Fatalf("unexpected progress: %+v found=%v err=%v", progress, found, err)
	}

	// replaying the same id must not double count
	if err := store.SaveResult(ctx, history[0]); err != nil {
		t.Fatalf("replay: %v", err)
	}
	again, _, _ := store.Progress(ctx, "u1")
	if again.TotalPoints != progress.TotalPoints {
		t.Fatalf("replay changed progress: %+v -> %+v", progress, again)
	}

	stats := app.NewStatsService(store, ranking, 3, nil)
	unlocked, err := stats.PhaseUnlocked(ctx, "u1", domain.PhaseMedio)
	if err != nil || !unlocked {
		t.Fatalf("expected medio unlocked after 3 correct, ok=%v err=%v", unlocked, err)
	}
	top, err := stats.GlobalRanking(ctx, 20)
	if err != nil || len(top) != 1 || top[0].UserID != "u1" || top[0].Points != results.Score {
		t.Fatalf("unexpected ranking: %+v err=%v", top, err)
	}
}

func TestOfflineQueueReplaysIntoPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	queue, err := sqlite.Open(filepath.Join(t.TempDir(), "offline.db"))
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	defer queue.Close()

	// a closed pool stands in for an unreachable database
	deadPool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	deadPool.Close()

	results := domain.Results{Score: 45, CorrectAnswers: 3, TotalQuestions: 5, Accuracy: 60, Phase: domain.PhaseMedio, FinishedAt: time.Now()}
	offline := app.NewGateway(postgres.NewResultStore(deadPool), queue, nil)
	if err := offline.Record(ctx, "u1", results); err == nil {
		t.Fatalf("expected record against a closed pool to fail")
	}
	pending, _ := queue.Unsynced(ctx, "u1")
	if len(pending) != 1 {
		t.Fatalf("expected one queued entry, got %d", len(pending))
	}

	online := app.NewGateway(postgres.NewResultStore(pool), queue, nil)
	for i := 0; i < 2; i++ {
		if _, err := online.SyncOfflineProgress(ctx, "u1"); err != nil {
			t.Fatalf("sync: %v", err)
		}
	}
	history, _ := postgres.NewResultStore(pool).PhaseResults(ctx, "u1")
	if len(history) != 1 || history[0].ID != pending[0].ID || history[0].Phase != 2 {
		t.Fatalf("expected exactly the queued result, got %+v", history)
	}
}

func TestSeedIfEmptySeedsFreshDatabaseOnce(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	bank := memory.DefaultBank()[domain.PhaseFacil]
	seeded, err := postgres.SeedIfEmpty(ctx, pool, bank)
	if err != nil || !seeded {
		t.Fatalf("expected fresh database seeded, got seeded=%v err=%v", seeded, err)
	}
	seeded, err = postgres.SeedIfEmpty(ctx, pool, bank[:1])
	if err != nil || seeded {
		t.Fatalf("expected populated database left alone, got seeded=%v err=%v", seeded, err)
	}

	questions, err := postgres.NewQuestionLoader(pool).LoadPhase(ctx, domain.PhaseFacil)
	if err != nil || len(questions) != len(bank) {
		t.Fatalf("expected %d questions, got %d err=%v", len(bank), len(questions), err)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
