package scoring

import (
	"math"
	"time"

	"mathfly-quiz-service/internal/domain"
)

// Config holds the tunable scoring constants.
type Config struct {
	BasePoints   map[domain.Phase]int
	TimeLimit    time.Duration // per-question budget
	BonusDivisor float64       // seconds per bonus point lost
}

// DefaultConfig returns the production table: 10/20/30/50 base points,
// 30s budget, one bonus point per 5 remaining seconds.
func DefaultConfig() Config {
	return Config{
		BasePoints: map[domain.Phase]int{
			domain.PhaseFacil:   10,
			domain.PhaseMedio:   20,
			domain.PhaseDificil: 30,
			domain.PhaseExpert:  50,
		},
		TimeLimit:    30 * time.Second,
		BonusDivisor: 5,
	}
}

// Score maps (phase, correctness, elapsed) to points.
// Incorrect answers are always worth 0.
func (c Config) Score(phase domain.Phase, isCorrect bool, elapsed time.Duration) int {
	if !isCorrect {
		return 0
	}
	return c.BasePoints[phase] + c.TimeBonus(elapsed)
}

// TimeBonus decays in discrete steps and floors at 0.
func (c Config) TimeBonus(elapsed time.Duration) int {
	if c.BonusDivisor <= 0 {
		return 0
	}
	seconds := elapsed.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	remaining := c.TimeLimit.Seconds() - seconds
	if remaining <= 0 {
		return 0
	}
	return int(math.Floor(remaining / c.BonusDivisor))
}

// Score uses DefaultConfig with elapsed time given in seconds.
func Score(phase domain.Phase, isCorrect bool, elapsedSeconds float64) int {
	return DefaultConfig().Score(phase, isCorrect, time.Duration(elapsedSeconds*float64(time.Second)))
}
