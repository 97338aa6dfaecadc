// Package progress derives per-phase unlock state from result history.
// Nothing here is cached or persisted; callers recompute after every change.
package progress

import "mathfly-quiz-service/internal/domain"

// DefaultThreshold is the correct-answer count needed to clear a phase.
const DefaultThreshold = 3

// Unlocked reports whether phaseNumber may be played. Phase 1 always is;
// phase n needs a cleared result for phase n-1.
func Unlocked(phaseNumber int, history []domain.PhaseResult, threshold int) bool {
	if phaseNumber <= 1 {
		return true
	}
	return Completed(phaseNumber-1, history, threshold)
}

// Completed reports whether any result for phaseNumber reached the threshold.
func Completed(phaseNumber int, history []domain.PhaseResult, threshold int) bool {
	for _, r := range history {
		if r.Phase == phaseNumber && r.CorrectAnswers >= threshold {
			return true
		}
	}
	return false
}

// BestScore returns the highest points earned in phaseNumber, or nil.
func BestScore(phaseNumber int, history []domain.PhaseResult) *int {
	var best *int
	for _, r := range history {
		if r.Phase != phaseNumber {
			continue
		}
		if best == nil || r.PointsEarned > *best {
			points := r.PointsEarned
			best = &points
		}
	}
	return best
}

// Statuses computes the status of every phase in order.
func Statuses(history []domain.PhaseResult, threshold int) []domain.PhaseStatus {
	out := make([]domain.PhaseStatus, 0, len(domain.Phases))
	for _, phase := range domain.Phases {
		n := phase.Number()
		out = append(out, domain.PhaseStatus{
			Phase:     phase,
			Number:    n,
			Unlocked:  Unlocked(n, history, threshold),
			Completed: Completed(n, history, threshold),
			BestScore: BestScore(n, history),
		})
	}
	return out
}
