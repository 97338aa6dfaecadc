package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mathfly-quiz-service/internal/domain"
)

// ResultStore persists phase results and cumulative progress.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// SaveResult inserts the result and folds it into user_progress in one
// transaction. A result id that already exists leaves both tables untouched.
func (s *ResultStore) SaveResult(ctx context.Context, r domain.PhaseResult) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO phase_results (id, user_id, phase, correct_answers, total_questions, points_earned, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, r.UserID, r.Phase, r.CorrectAnswers, r.TotalQuestions, r.PointsEarned, r.CompletedAt)
		if err != nil {
			return fmt.Errorf("insert phase result: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO user_progress (user_id, max_phase, total_correct, total_points, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (user_id) DO UPDATE SET
				max_phase = GREATEST(user_progress.max_phase, EXCLUDED.max_phase),
				total_correct = user_progress.total_correct + EXCLUDED.total_correct,
				total_points = user_progress.total_points + EXCLUDED.total_points,
				updated_at = now()`,
			r.UserID, r.Phase, r.CorrectAnswers, r.PointsEarned)
		if err != nil {
			return fmt.Errorf("upsert user progress: %w", err)
		}
		return nil
	})
}

func (s *ResultStore) PhaseResults(ctx context.Context, userID string) ([]domain.PhaseResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, phase, correct_answers, total_questions, points_earned, completed_at
		FROM phase_results
		WHERE user_id = $1
		ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query phase results: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PhaseResult, 0)
	for rows.Next() {
		var r domain.PhaseResult
		if err := rows.Scan(&r.ID, &r.UserID, &r.Phase, &r.CorrectAnswers, &r.TotalQuestions, &r.PointsEarned, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan phase result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ResultStore) Progress(ctx context.Context, userID string) (domain.UserProgress, bool, error) {
	p := domain.UserProgress{UserID: userID}
	err := s.pool.QueryRow(ctx, `
		SELECT max_phase, total_correct, total_points
		FROM user_progress
		WHERE user_id = $1`, userID).Scan(&p.MaxPhase, &p.TotalCorrect, &p.TotalPoints)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("query user progress: %w", err)
	}
	return p, true, nil
}

// TopResults ranks individual results by points; ties go to the earlier finish.
func (s *ResultStore) TopResults(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, phase, correct_answers, total_questions, points_earned, completed_at
		FROM phase_results
		ORDER BY points_earned DESC, completed_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RankingEntry, 0, limit)
	for rows.Next() {
		var r domain.PhaseResult
		if err := rows.Scan(&r.ID, &r.UserID, &r.Phase, &r.CorrectAnswers, &r.TotalQuestions, &r.PointsEarned, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		out = append(out, domain.NewRankingEntry(r, len(out)+1))
	}
	return out, rows.Err()
}

func (s *ResultStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
