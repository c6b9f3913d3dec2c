package assessment

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// StoredAttempt is an attempt kept in local history. Synced is false until
// the remote service has accepted it.
type StoredAttempt struct {
	ID         string               `json:"id"`
	Attempt    learning.QuizAttempt `json:"attempt"`
	Synced     bool                 `json:"synced"`
	RecordedAt time.Time            `json:"recordedAt"`
}

// AttemptStore keeps every submitted attempt. History and Pending return
// attempts oldest first.
type AttemptStore interface {
	Record(ctx context.Context, a learning.QuizAttempt) (string, error)
	MarkSynced(ctx context.Context, id string) error
	Pending(ctx context.Context) ([]StoredAttempt, error)
	History(ctx context.Context, subject string) ([]StoredAttempt, error)
	Latest(ctx context.Context, subject, topic string) (StoredAttempt, bool, error)
}

// MemoryAttemptStore is an in-memory AttemptStore.
type MemoryAttemptStore struct {
	mu       sync.RWMutex
	attempts []StoredAttempt
}

// NewMemoryAttemptStore creates an empty in-memory store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{}
}

func (s *MemoryAttemptStore) Record(_ context.Context, a learning.QuizAttempt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateID()
	s.attempts = append(s.attempts, StoredAttempt{
		ID:         id,
		Attempt:    a,
		RecordedAt: time.Now(),
	})
	return id, nil
}

func (s *MemoryAttemptStore) MarkSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.attempts {
		if s.attempts[i].ID == id {
			s.attempts[i].Synced = true
			return nil
		}
	}
	return fmt.Errorf("attempt not found: %s", id)
}

func (s *MemoryAttemptStore) Pending(_ context.Context) ([]StoredAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []StoredAttempt
	for _, a := range s.attempts {
		if !a.Synced {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryAttemptStore) History(_ context.Context, subject string) ([]StoredAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []StoredAttempt
	for _, a := range s.attempts {
		if subject == "" || a.Attempt.Subject == subject {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryAttemptStore) Latest(_ context.Context, subject, topic string) (StoredAttempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.attempts) - 1; i >= 0; i-- {
		a := s.attempts[i]
		if a.Attempt.Subject == subject && a.Attempt.Topic == topic {
			return a, true, nil
		}
	}
	return StoredAttempt{}, false, nil
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
