// Package assessment runs learning sessions: content delivery, quiz
// generation, local grading, attempt persistence and the recommendation
// refresh that follows each submission.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/remote"
)

const (
	defaultQuestionCount = 5
	defaultSessionTTL    = 2 * time.Hour
)

// ContentSource resolves learning material for a session.
type ContentSource interface {
	Resolve(ctx context.Context, req remote.ContentRequest) (learning.ContentUnit, error)
}

// QuizService generates quizzes and stores graded attempts remotely.
type QuizService interface {
	GenerateQuiz(ctx context.Context, req remote.QuizRequest) (learning.Quiz, error)
	SaveQuizResult(ctx context.Context, a learning.QuizAttempt) error
	LatestQuiz(ctx context.Context, subject, topic string) (learning.QuizAttempt, error)
}

// Recommender returns the current recommendation or nil when unavailable.
type Recommender interface {
	Recommend(ctx context.Context, subject string) *learning.ModeRecommendation
}

// EngineConfig holds dependencies for the assessment engine.
type EngineConfig struct {
	Content       ContentSource
	Quizzes       QuizService
	Activity      ActivityLogger // defaults to NopActivityLogger
	Recommender   Recommender    // optional
	Attempts      AttemptStore   // defaults to an in-memory store
	QuestionCount int            // questions per quiz (default 5)
	SessionTTL    time.Duration  // idle time before a session is evicted (default 2h)
	Clock         func() time.Time
}

// Engine creates and tracks learning sessions.
type Engine struct {
	content       ContentSource
	quizzes       QuizService
	activity      ActivityLogger
	recommender   Recommender
	attempts      AttemptStore
	questionCount int
	sessionTTL    time.Duration
	clock         func() time.Time

	mu       sync.Mutex
	sessions map[string]*trackedSession

	// saveMu guards saving, the IDs of attempts with a remote save in
	// flight. Record and Pending run under it so an attempt is claimed
	// before SyncPending can see it.
	saveMu sync.Mutex
	saving map[string]bool
}

type trackedSession struct {
	session  *Session
	lastSeen time.Time
}

// NewEngine creates a new assessment engine.
func NewEngine(cfg EngineConfig) *Engine {
	activity := cfg.Activity
	if activity == nil {
		activity = NopActivityLogger{}
	}
	attempts := cfg.Attempts
	if attempts == nil {
		attempts = NewMemoryAttemptStore()
	}
	count := cfg.QuestionCount
	if count <= 0 {
		count = defaultQuestionCount
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		content:       cfg.Content,
		quizzes:       cfg.Quizzes,
		activity:      activity,
		recommender:   cfg.Recommender,
		attempts:      attempts,
		questionCount: count,
		sessionTTL:    ttl,
		clock:         clock,
		sessions:      make(map[string]*trackedSession),
		saving:        make(map[string]bool),
	}
}

// NewSession starts a session in the Selecting state. Idle sessions are
// evicted first.
func (e *Engine) NewSession(subject, topic, difficulty string) (*Session, error) {
	if subject == "" || topic == "" {
		return nil, fmt.Errorf("subject and topic are required")
	}
	e.EvictIdle()

	s := newSession(e, generateID(), subject, topic, difficulty)

	e.mu.Lock()
	e.sessions[s.ID] = &trackedSession{session: s, lastSeen: e.clock()}
	e.mu.Unlock()

	slog.Info("session started", "session_id", s.ID, "subject", subject, "topic", topic)
	return s, nil
}

// Session returns a tracked session by ID and marks it as recently used.
func (e *Engine) Session(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.sessions[id]
	if !ok {
		return nil, false
	}
	t.lastSeen = e.clock()
	return t.session, true
}

// CloseSession abandons a session. Results still in flight for it are
// discarded when they arrive.
func (e *Engine) CloseSession(id string) bool {
	e.mu.Lock()
	t, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()

	if ok {
		t.session.close()
	}
	return ok
}

// EvictIdle closes every session not looked up within the session TTL and
// returns how many were evicted.
func (e *Engine) EvictIdle() int {
	cutoff := e.clock().Add(-e.sessionTTL)

	e.mu.Lock()
	var idle []*Session
	for id, t := range e.sessions {
		if t.lastSeen.Before(cutoff) {
			idle = append(idle, t.session)
			delete(e.sessions, id)
		}
	}
	e.mu.Unlock()

	for _, s := range idle {
		s.close()
		slog.Info("idle session evicted", "session_id", s.ID, "subject", s.Subject, "topic", s.Topic)
	}
	return len(idle)
}

// History returns every locally recorded attempt for subject, oldest first.
// An empty subject returns all attempts.
func (e *Engine) History(ctx context.Context, subject string) ([]learning.QuizAttempt, error) {
	stored, err := e.attempts.History(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("load attempt history: %w", err)
	}
	out := make([]learning.QuizAttempt, len(stored))
	for i, sa := range stored {
		out[i] = sa.Attempt
	}
	return out, nil
}

// AlreadyCompleted returns the latest attempt for subject and topic. The
// remote record wins; local history is consulted when the service has none
// or cannot be reached.
func (e *Engine) AlreadyCompleted(ctx context.Context, subject, topic string) (learning.QuizAttempt, bool, error) {
	a, err := e.quizzes.LatestQuiz(ctx, subject, topic)
	if err == nil {
		return a, true, nil
	}
	if errors.Is(err, learning.ErrAuthRequired) {
		return learning.QuizAttempt{}, false, err
	}

	local, found, lerr := e.attempts.Latest(ctx, subject, topic)
	if lerr != nil {
		slog.Warn("local attempt lookup failed", "subject", subject, "topic", topic, "error", lerr)
	}
	if found {
		return local.Attempt, true, nil
	}
	if errors.Is(err, learning.ErrNotFound) {
		return learning.QuizAttempt{}, false, nil
	}
	return learning.QuizAttempt{}, false, fmt.Errorf("latest quiz for %s/%s: %w", subject, topic, err)
}

// SyncPending retries remote saves for attempts that have not been
// accepted yet. It returns how many were synced.
func (e *Engine) SyncPending(ctx context.Context) (int, error) {
	pending, err := e.claimPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending attempts: %w", err)
	}

	synced := 0
	var errs []error
	for _, sa := range pending {
		err := e.quizzes.SaveQuizResult(ctx, sa.Attempt)
		if err == nil {
			err = e.attempts.MarkSynced(ctx, sa.ID)
		}
		e.release(sa.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("attempt %s: %w", sa.ID, err))
			continue
		}
		synced++
	}

	if synced > 0 || len(errs) > 0 {
		slog.Info("pending attempts synced", "synced", synced, "failed", len(errs))
	}
	return synced, errors.Join(errs...)
}

// claimPending returns the unsynced attempts that have no save in flight
// and claims them.
func (e *Engine) claimPending(ctx context.Context) ([]StoredAttempt, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	pending, err := e.attempts.Pending(ctx)
	if err != nil {
		return nil, err
	}
	out := pending[:0]
	for _, sa := range pending {
		if e.saving[sa.ID] {
			slog.Debug("attempt save in flight, skipping", "attempt_id", sa.ID)
			continue
		}
		e.saving[sa.ID] = true
		out = append(out, sa)
	}
	return out, nil
}

// record stores the attempt locally and claims it for the caller's save.
func (e *Engine) record(ctx context.Context, a learning.QuizAttempt) (string, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	id, err := e.attempts.Record(ctx, a)
	if id != "" {
		e.saving[id] = true
	}
	return id, err
}

func (e *Engine) release(id string) {
	if id == "" {
		return
	}
	e.saveMu.Lock()
	delete(e.saving, id)
	e.saveMu.Unlock()
}

// logEngagement posts the frozen engagement signals. Failures are logged
// and swallowed.
func (e *Engine) logEngagement(ctx context.Context, subject, topic string, mode learning.Mode, signals learning.EngagementSignals) {
	err := e.activity.LogActivity(ctx, learning.Activity{
		Type:       learning.ActivityEngagement,
		Subject:    subject,
		Topic:      topic,
		Mode:       mode,
		Engagement: signals,
		RecordedAt: e.clock(),
	})
	if err != nil {
		slog.Warn("engagement activity not logged",
			"subject", subject,
			"topic", topic,
			"mode", mode,
			"error", err,
		)
	}
}

// persist records the attempt locally and saves it remotely. It reports
// whether the remote save succeeded; a failed save stays pending for
// SyncPending.
func (e *Engine) persist(ctx context.Context, a learning.QuizAttempt) bool {
	id, err := e.record(ctx, a)
	if err != nil {
		slog.Warn("attempt not recorded locally", "subject", a.Subject, "topic", a.Topic, "error", err)
	}

	err = e.quizzes.SaveQuizResult(ctx, a)
	if err == nil && id != "" {
		if merr := e.attempts.MarkSynced(ctx, id); merr != nil {
			slog.Warn("attempt sync flag not updated", "attempt_id", id, "error", merr)
		}
	}
	e.release(id)

	if err != nil {
		slog.Error("quiz result not saved",
			"subject", a.Subject,
			"topic", a.Topic,
			"mode", a.Mode,
			"pending_retry", id != "",
			"data_loss_risk", id == "",
			"error", err,
		)
		return false
	}

	score := a.Score
	if err := e.activity.LogActivity(ctx, learning.Activity{
		Type:       learning.ActivityQuiz,
		Subject:    a.Subject,
		Topic:      a.Topic,
		Mode:       a.Mode,
		Engagement: a.Engagement,
		Score:      &score,
		RecordedAt: e.clock(),
	}); err != nil {
		slog.Warn("quiz activity not logged", "subject", a.Subject, "topic", a.Topic, "error", err)
	}
	return true
}

func (e *Engine) recommend(ctx context.Context, subject string) *learning.ModeRecommendation {
	if e.recommender == nil {
		return nil
	}
	return e.recommender.Recommend(ctx, subject)
}
