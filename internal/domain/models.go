package domain

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one of the four difficulty tiers, strictly ordered.
type Phase string

const (
	PhaseFacil   Phase = "facil"
	PhaseMedio   Phase = "medio"
	PhaseDificil Phase = "dificil"
	PhaseExpert  Phase = "expert"
)

// Phases lists every phase in progression order.
var Phases = []Phase{PhaseFacil, PhaseMedio, PhaseDificil, PhaseExpert}

// Number returns the 1-based position of the phase, or 0 for an unknown phase.
func (p Phase) Number() int {
	for i, candidate := range Phases {
		if candidate == p {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	return p.Number() > 0
}

// PhaseFromNumber maps a stored phase number (1..4) back to its identifier.
func PhaseFromNumber(n int) (Phase, bool) {
	if n < 1 || n > len(Phases) {
		return "", false
	}
	return Phases[n-1], true
}

// ParsePhase accepts a phase identifier in any case.
func ParsePhase(raw string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, raw)
	}
	return p, nil
}

// Option labels for the four alternatives of a question.
const (
	OptionA = "a"
	OptionB = "b"
	OptionC = "c"
	OptionD = "d"
)

// Question models an MCQ question with four labeled alternatives.
type Question struct {
	ID            string `json:"id" yaml:"id"`
	Prompt        string `json:"prompt" yaml:"prompt"`
	OptionA       string `json:"a" yaml:"a"`
	OptionB       string `json:"b" yaml:"b"`
	OptionC       string `json:"c" yaml:"c"`
	OptionD       string `json:"d" yaml:"d"`
	CorrectOption string `json:"correctOption" yaml:"correct"`
	Phase         Phase  `json:"phase" yaml:"phase"`
}

// View strips the correct option so the question can be shown to a player.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:     q.ID,
		Prompt: q.Prompt,
		Options: map[string]string{
			OptionA: q.OptionA,
			OptionB: q.OptionB,
			OptionC: q.OptionC,
			OptionD: q.OptionD,
		},
		Phase: q.Phase,
	}
}

// QuestionView is the player-facing projection of a question.
type QuestionView struct {
	ID      string            `json:"id"`
	Prompt  string            `json:"prompt"`
	Options map[string]string `json:"options"`
	Phase   Phase             `json:"phase"`
}

// AnswerOutcome is the feedback for a single submitted answer.
type AnswerOutcome struct {
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	Points        int    `json:"points"`
	IsComplete    bool   `json:"isComplete"`
	TotalScore    int    `json:"totalScore"`
}

// Results summarizes a finished session.
type Results struct {
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	Accuracy       float64   `json:"accuracy"`
	TimeSpent      int       `json:"timeSpent"` // seconds
	Phase          Phase     `json:"phase"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// PhaseResult is one persisted row per finished session.
type PhaseResult struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Phase          int       `json:"phase"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	PointsEarned   int       `json:"pointsEarned"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Accuracy is the share of correct answers in percent. Rows without a
// recorded question count fall back to the default session size.
func (r PhaseResult) Accuracy() float64 {
	total := r.TotalQuestions
	if total <= 0 {
		total = DefaultQuestionCount
	}
	return float64(r.CorrectAnswers) / float64(total) * 100
}

// DefaultQuestionCount is the number of questions served per session.
const DefaultQuestionCount = 5

// UserProgress holds cumulative totals for one user.
type UserProgress struct {
	UserID       string `json:"userId"`
	MaxPhase     int    `json:"maxPhase"`
	TotalCorrect int    `json:"totalCorrect"`
	TotalPoints  int    `json:"totalPoints"`
}

// PhaseStatus is derived from result history and never stored.
type PhaseStatus struct {
	Phase     Phase `json:"phase"`
	Number    int   `json:"number"`
	Unlocked  bool  `json:"unlocked"`
	Completed bool  `json:"completed"`
	BestScore *int  `json:"bestScore,omitempty"`
}

// OfflineEntry is a result waiting to be replayed against the remote store.
type OfflineEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Result     Results   `json:"result"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Synced     bool      `json:"synced"`
}

// RankingEntry is one row of the global ranking.
type RankingEntry struct {
	UserID      string    `json:"userId"`
	Points      int       `json:"points"`
	Phase       int       `json:"phase"`
	CompletedAt time.Time `json:"completedAt"`
	Rank        int       `json:"rank"`
}

// NewRankingEntry builds the ranking row of result at position rank.
func NewRankingEntry(result PhaseResult, rank int) RankingEntry {
	return RankingEntry{
		UserID:      result.UserID,
		Points:      result.PointsEarned,
		Phase:       result.Phase,
		CompletedAt: result.CompletedAt,
		Rank:        rank,
	}
}

// UserStats is the dashboard summary for one user.
type UserStats struct {
	TotalScore      int       `json:"totalScore"`
	TotalGames      int       `json:"totalGames"`
	AverageAccuracy float64   `json:"averageAccuracy"`
	BestPhase       Phase     `json:"bestPhase"`
	LastPlayed      time.Time `json:"lastPlayed"`
}

// Performance is a single past result with its accuracy.
type Performance struct {
	PhaseResult
	Accuracy float64 `json:"accuracy"`
}
