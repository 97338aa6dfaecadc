package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mathfly-quiz-service/internal/domain"
)

// StaticQuestionLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	pools map[domain.Phase][]domain.Question
}

func NewStaticQuestionLoader(pools map[domain.Phase][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{pools: pools}
}

func (l *StaticQuestionLoader) LoadPhase(_ context.Context, phase domain.Phase) ([]domain.Question, error) {
	pool := l.pools[phase]
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyPhase, phase)
	}
	out := make([]domain.Question, len(pool))
	copy(out, pool)
	return out, nil
}

type questionFile struct {
	Questions []domain.Question `yaml:"questions"`
}

// LoadQuestionFile reads a YAML question bank grouped by each question's phase.
func LoadQuestionFile(path string) (map[domain.Phase][]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file questionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question file: %w", err)
	}
	pools := make(map[domain.Phase][]domain.Question)
	for i, q := range file.Questions {
		if !q.Phase.Valid() {
			return nil, fmt.Errorf("question %d (%s): %w: %q", i, q.ID, domain.ErrUnknownPhase, q.Phase)
		}
		switch q.CorrectOption {
		case domain.OptionA, domain.OptionB, domain.OptionC, domain.OptionD:
		default:
			return nil, fmt.Errorf("question %d (%s): invalid correct option %q", i, q.ID, q.CorrectOption)
		}
		pools[q.Phase] = append(pools[q.Phase], q)
	}
	return pools, nil
}
