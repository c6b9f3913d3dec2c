package assessment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// ActivityLogger records raw engagement and quiz activity.
type ActivityLogger interface {
	LogActivity(ctx context.Context, a learning.Activity) error
}

// NopActivityLogger ignores all activity.
type NopActivityLogger struct{}

func (NopActivityLogger) LogActivity(context.Context, learning.Activity) error {
	return nil
}

// MemoryActivityLogger stores activity in memory for tests.
type MemoryActivityLogger struct {
	mu      sync.Mutex
	entries []learning.Activity
	// Err, when set, is returned by every LogActivity call.
	Err error
}

func NewMemoryActivityLogger() *MemoryActivityLogger {
	return &MemoryActivityLogger{
		entries: []learning.Activity{},
	}
}

func (l *MemoryActivityLogger) LogActivity(_ context.Context, a learning.Activity) error {
	if a.Type == "" {
		return fmt.Errorf("activity type is required")
	}
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.entries = append(l.entries, a)
	return nil
}

func (l *MemoryActivityLogger) Entries() []learning.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]learning.Activity{}, l.entries...)
}
