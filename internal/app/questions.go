package app

import (
	"context"
	"math/rand"

	"mathfly-quiz-service/internal/domain"
)

// QuestionProvider returns a random, non-repeating sample of a phase's pool.
type QuestionProvider interface {
	GetQuestions(ctx context.Context, phase domain.Phase, count int) ([]domain.Question, error)
}

// QuestionLoader fetches the full question pool of a phase from a backing store.
type QuestionLoader interface {
	LoadPhase(ctx context.Context, phase domain.Phase) ([]domain.Question, error)
}

// SampleQuestions shuffles a copy of pool (Fisher-Yates) and keeps the first
// min(count, len(pool)) questions. The pool itself is never reordered.
func SampleQuestions(rnd *rand.Rand, pool []domain.Question, count int) []domain.Question {
	shuffled := make([]domain.Question, len(pool))
	copy(shuffled, pool)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	if count < 0 {
		count = 0
	}
	if count < len(shuffled) {
		shuffled = shuffled[:count]
	}
	return shuffled
}
