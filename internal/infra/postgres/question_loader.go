package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"mathfly-quiz-service/internal/domain"
)

// QuestionLoader loads a phase's question pool from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadPhase(ctx context.Context, phase domain.Phase) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, question, option_a, option_b, option_c, option_d, correct_option
		FROM questions
		WHERE phase = $1
		ORDER BY id`, string(phase))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q := domain.Question{Phase: phase}
		if err := rows.Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyPhase, phase)
	}
	return out, nil
}

// SeedQuestions upserts questions, used to load the built-in bank into a fresh database.
func SeedQuestions(ctx context.Context, pool *pgxpool.Pool, questions []domain.Question) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, q := range questions {
		_, err := tx.Exec(ctx, `
			INSERT INTO questions (id, question, option_a, option_b, option_c, option_d, correct_option, phase)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				question = EXCLUDED.question,
				option_a = EXCLUDED.option_a,
				option_b = EXCLUDED.option_b,
				option_c = EXCLUDED.option_c,
				option_d = EXCLUDED.option_d,
				correct_option = EXCLUDED.correct_option,
				phase = EXCLUDED.phase`,
			q.ID, q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption, string(q.Phase))
		if err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// SeedIfEmpty seeds questions only when the table holds none, and reports
// whether it did.
func SeedIfEmpty(ctx context.Context, pool *pgxpool.Pool, questions []domain.Question) (bool, error) {
	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM questions)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check questions: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := SeedQuestions(ctx, pool, questions); err != nil {
		return false, err
	}
	return true, nil
}
