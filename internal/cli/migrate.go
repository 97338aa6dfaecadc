package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"mathfly-quiz-service/internal/config"
	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/infra/postgres"
	pgmigrations "mathfly-quiz-service/internal/infra/postgres/migrations"
	"mathfly-quiz-service/internal/logger"
)

// NewMigrateCmd applies database migrations and seeds the question bank.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			if !seed {
				return nil
			}
			return seedQuestions(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "load the question bank into the questions table")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.Info("migrations applied", "group", group.String())
	return nil
}

func seedQuestions(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	all, err := bankQuestions(cfg)
	if err != nil {
		return err
	}
	pool, err := openPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.SeedQuestions(ctx, pool, all); err != nil {
		return err
	}
	log.Info("question bank seeded", "questions", len(all))
	return nil
}

// seedEmptyBank loads the question bank into a database that has none yet,
// so a fresh deployment can serve sessions without a separate migrate --seed.
func seedEmptyBank(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, log *logger.Logger) error {
	all, err := bankQuestions(cfg)
	if err != nil {
		return err
	}
	seeded, err := postgres.SeedIfEmpty(ctx, pool, all)
	if err != nil {
		return err
	}
	if seeded {
		log.Info("questions table was empty, seeded question bank", "questions", len(all))
	}
	return nil
}

func bankQuestions(cfg config.Config) ([]domain.Question, error) {
	pools, err := bankPools(cfg)
	if err != nil {
		return nil, err
	}
	var all []domain.Question
	for _, phase := range domain.Phases {
		all = append(all, pools[phase]...)
	}
	return all, nil
}
