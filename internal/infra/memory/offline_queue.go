package memory

import (
	"context"
	"sync"

	"mathfly-quiz-service/internal/domain"
)

// OfflineQueue buffers unsynced results in process. It does not survive a
// restart; use the sqlite queue for that.
type OfflineQueue struct {
	mu      sync.Mutex
	entries []domain.OfflineEntry
}

func NewOfflineQueue() *OfflineQueue {
	return &OfflineQueue{}
}

func (q *OfflineQueue) Enqueue(_ context.Context, entry domain.OfflineEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.ID == entry.ID {
			return nil
		}
	}
	entry.Synced = false
	q.entries = append(q.entries, entry)
	return nil
}

func (q *OfflineQueue) Unsynced(_ context.Context, userID string) ([]domain.OfflineEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.OfflineEntry, 0)
	for _, e := range q.entries {
		if !e.Synced && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q *OfflineQueue) MarkSynced(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			if q.entries[i].Synced {
				return false, nil
			}
			q.entries[i].Synced = true
			return true, nil
		}
	}
	return false, nil
}

// All returns every entry, synced or not, in enqueue order.
func (q *OfflineQueue) All() []domain.OfflineEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.OfflineEntry(nil), q.entries...)
}
