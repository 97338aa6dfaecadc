package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/logger"
)

// ResultStore is the remote store for phase results and user progress.
type ResultStore interface {
	// SaveResult appends the phase result and upserts the user's progress as
	// one unit. Saving an id that is already stored is a no-op.
	SaveResult(ctx context.Context, result domain.PhaseResult) error
	// PhaseResults returns a user's history, newest first.
	PhaseResults(ctx context.Context, userID string) ([]domain.PhaseResult, error)
	// Progress returns the cumulative row, or false if the user never finished a session.
	Progress(ctx context.Context, userID string) (domain.UserProgress, bool, error)
	TopResults(ctx context.Context, limit int) ([]domain.RankingEntry, error)
}

// OfflineQueue is the local durable buffer of results pending remote persistence.
type OfflineQueue interface {
	Enqueue(ctx context.Context, entry domain.OfflineEntry) error
	// Unsynced lists a user's pending entries in enqueue order.
	Unsynced(ctx context.Context, userID string) ([]domain.OfflineEntry, error)
	// MarkSynced flips one entry to synced and reports whether it was pending.
	MarkSynced(ctx context.Context, id string) (bool, error)
}

// ResultPublisher is notified after every successful save.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result domain.PhaseResult) error
}

// SyncReport summarizes one offline replay.
type SyncReport struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

// Gateway records finished sessions remotely and falls back to the offline queue.
type Gateway struct {
	store      ResultStore
	queue      OfflineQueue
	publishers []ResultPublisher
	log        *logger.Logger
	now        func() time.Time

	syncMu sync.Mutex
}

func NewGateway(store ResultStore, queue OfflineQueue, log *logger.Logger, publishers ...ResultPublisher) *Gateway {
	return &Gateway{
		store:      store,
		queue:      queue,
		publishers: publishers,
		log:        logger.OrNop(log).With("component", "gateway"),
		now:        time.Now,
	}
}

// Save durably records result for userID.
func (g *Gateway) Save(ctx context.Context, userID string, result domain.Results) error {
	return g.save(ctx, uuid.NewString(), userID, result)
}

// Record saves result and, if that fails, queues it offline. The returned
// error is informational; the result is never lost unless queuing also fails.
func (g *Gateway) Record(ctx context.Context, userID string, result domain.Results) error {
	id := uuid.NewString()
	err := g.save(ctx, id, userID, result)
	if err == nil {
		return nil
	}
	g.log.Warn("remote save failed, queuing offline", "user_id", userID, "phase", result.Phase, "error", err)

	entry := domain.OfflineEntry{
		ID:         id,
		UserID:     userID,
		Result:     result,
		EnqueuedAt: g.now(),
	}
	// The remote save may have failed because ctx expired; the local queue
	// still has to take the entry.
	if qerr := g.queue.Enqueue(context.WithoutCancel(ctx), entry); qerr != nil {
		g.log.Error("offline enqueue failed", "user_id", userID, "error", qerr)
		return errors.Join(err, fmt.Errorf("enqueue offline: %w", qerr))
	}
	return err
}

// SyncOfflineProgress replays every unsynced entry of userID. Entries are only
// marked, never removed, so repeated calls are safe.
func (g *Gateway) SyncOfflineProgress(ctx context.Context, userID string) (SyncReport, error) {
	g.syncMu.Lock()
	defer g.syncMu.Unlock()

	entries, err := g.queue.Unsynced(ctx, userID)
	if err != nil {
		return SyncReport{}, fmt.Errorf("list offline entries: %w", err)
	}

	report := SyncReport{Pending: len(entries)}
	var errs []error
	for _, entry := range entries {
		// The entry id doubles as the result id, which makes a replay of an
		// already stored result a no-op at the store.
		if err := g.save(ctx, entry.ID, entry.UserID, entry.Result); err != nil {
			report.Failed++
			errs = append(errs, err)
			continue
		}
		if _, err := g.queue.MarkSynced(ctx, entry.ID); err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("mark synced %s: %w", entry.ID, err))
			continue
		}
		report.Synced++
	}
	g.log.Info("offline sync finished", "user_id", userID, "pending", report.Pending, "synced", report.Synced, "failed", report.Failed)
	return report, errors.Join(errs...)
}

func (g *Gateway) save(ctx context.Context, id, userID string, result domain.Results) error {
	phase := result.Phase.Number()
	if phase == 0 {
		return &domain.PersistenceError{Op: "validate result", Err: fmt.Errorf("%w: %q", domain.ErrUnknownPhase, result.Phase)}
	}
	completedAt := result.FinishedAt
	if completedAt.IsZero() {
		completedAt = g.now()
	}
	row := domain.PhaseResult{
		ID:             id,
		UserID:         userID,
		Phase:          phase,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		PointsEarned:   result.Score,
		CompletedAt:    completedAt.UTC(),
	}
	if err := g.store.SaveResult(ctx, row); err != nil {
		return &domain.PersistenceError{Op: "save result", Err: err}
	}
	for _, p := range g.publishers {
		if err := p.PublishResult(ctx, row); err != nil {
			g.log.Warn("publish result failed", "result_id", row.ID, "error", err)
		}
	}
	return nil
}
