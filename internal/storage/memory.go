package storage

import (
	"context"
	"sync"

	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
)

// MemoryStore keeps the log in process memory only. Used for ephemeral runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	log    models.FeedbackLog
	closed bool
}

// NewMemoryStore creates a store seeded with the given records
func NewMemoryStore(seed ...models.FeedbackRecord) *MemoryStore {
	return &MemoryStore{log: append(models.FeedbackLog(nil), seed...)}
}

func (s *MemoryStore) Append(_ context.Context, rec models.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.PersistenceError(ErrClosed, "failed to append feedback")
	}
	s.log = append(s.log, rec)
	return nil
}

func (s *MemoryStore) List(_ context.Context) (models.FeedbackLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Clone(), nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
