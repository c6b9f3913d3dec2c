package cache

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Entry is one cached payload with the time it was stored.
type Entry struct {
	Payload  json.RawMessage `json:"payload"`
	StoredAt time.Time       `json:"storedAt"`
}

// Store is a key-value cache. Get reports a miss with found == false and a
// nil error.
type Store interface {
	Get(ctx context.Context, key string) (entry Entry, found bool, err error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
}

// ContentKey is the exact key for one content unit. Components are escaped
// so a ':' inside a subject or topic cannot shift the boundaries.
func ContentKey(subject, topic, mode string) string {
	return strings.Join([]string{escapeKey(subject), escapeKey(topic), escapeKey(mode)}, ":")
}

// TopicsKey is the key for a subject's topic list.
func TopicsKey(subject string) string {
	return escapeKey(subject)
}

func escapeKey(part string) string {
	return url.QueryEscape(part)
}

// NewEntry marshals v into an entry stamped with now.
func NewEntry(v any, now time.Time) (Entry, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Payload: b, StoredAt: now}, nil
}

// Decode unmarshals the payload into v.
func (e Entry) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// MemoryStore is a process-scoped in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
