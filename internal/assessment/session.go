package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/engagement"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/remote"
)

// State is a session's position in the learning flow.
type State int

const (
	StateSelecting State = iota
	StateLearning
	StateQuizzing
	StateReviewing
)

func (s State) String() string {
	switch s {
	case StateSelecting:
		return "selecting"
	case StateLearning:
		return "learning"
	case StateQuizzing:
		return "quizzing"
	case StateReviewing:
		return "reviewing"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrContentLoading    = errors.New("content is still loading")
	ErrStale             = errors.New("result arrived for a superseded session state")
	ErrSessionClosed     = errors.New("session closed")
	ErrNoQuiz            = errors.New("no quiz has been generated")
)

// Session is one learner's pass through Selecting, Learning, Quizzing and
// Reviewing for a subject and topic. Remote calls run without the lock
// held; every transition bumps epoch so results belonging to an earlier
// state are dropped instead of applied.
type Session struct {
	ID         string
	Subject    string
	Topic      string
	Difficulty string

	engine  *Engine
	tracker *engagement.Tracker

	mu             sync.Mutex
	state          State
	mode           learning.Mode
	epoch          uint64
	closed         bool
	loading        bool
	content        *learning.ContentUnit
	contentErr     error
	signals        learning.EngagementSignals
	activityLogged bool
	quiz           *learning.Quiz
	attempt        *learning.QuizAttempt
	persisted      bool
	recommendation *learning.ModeRecommendation
}

func newSession(e *Engine, id, subject, topic, difficulty string) *Session {
	return &Session{
		ID:         id,
		Subject:    subject,
		Topic:      topic,
		Difficulty: difficulty,
		engine:     e,
		tracker:    engagement.NewTracker(e.clock),
		state:      StateSelecting,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectMode moves Selecting → Learning and loads content for mode. A
// content failure leaves the session in Learning; the learner may retry
// with ReloadContent or take an ungrounded quiz.
func (s *Session) SelectMode(ctx context.Context, mode learning.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("select mode: unknown mode %q", mode)
	}

	s.mu.Lock()
	if err := s.expectLocked(StateSelecting); err != nil {
		s.mu.Unlock()
		return err
	}
	epoch, req := s.beginLearningLocked(mode)
	s.mu.Unlock()

	return s.loadContent(ctx, epoch, req)
}

// ReloadContent retries a failed content load while Learning.
func (s *Session) ReloadContent(ctx context.Context) error {
	s.mu.Lock()
	if err := s.expectLocked(StateLearning); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.loading {
		s.mu.Unlock()
		return ErrContentLoading
	}
	if s.content != nil {
		s.mu.Unlock()
		return nil
	}
	epoch, req := s.beginLearningLocked(s.mode)
	s.mu.Unlock()

	return s.loadContent(ctx, epoch, req)
}

// StartQuiz moves Learning → Quizzing. The engagement signals are frozen
// and logged before the quiz is requested. When no content was delivered
// the quiz is generated from subject, topic and mode alone. Called again
// while Quizzing without a quiz, it retries generation.
func (s *Session) StartQuiz(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	switch {
	case s.state == StateLearning:
		if s.loading {
			s.mu.Unlock()
			return ErrContentLoading
		}
		s.signals = s.tracker.Finalize()
		s.state = StateQuizzing
		s.epoch++
	case s.state == StateQuizzing && s.quiz == nil:
	default:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start quiz from %s", ErrInvalidTransition, state)
	}

	epoch := s.epoch
	mode := s.mode
	signals := s.signals
	logSignals := !s.activityLogged
	s.activityLogged = true
	req := remote.QuizRequest{
		Subject:       s.Subject,
		Topic:         s.Topic,
		Mode:          mode,
		Difficulty:    s.Difficulty,
		QuestionCount: s.engine.questionCount,
	}
	if s.content != nil {
		req.Content = s.content.Text()
	}
	s.mu.Unlock()

	if logSignals {
		s.engine.logEngagement(ctx, s.Subject, s.Topic, mode, signals)
	}

	if req.Content == "" {
		slog.Info("generating ungrounded quiz", "session_id", s.ID, "mode", mode)
	}
	quiz, err := s.engine.quizzes.GenerateQuiz(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != epoch {
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("generate quiz: %w: no questions", learning.ErrValidation)
	}
	s.quiz = &quiz
	return nil
}

// Submit grades answers (question ID → answer), moves Quizzing → Reviewing,
// persists the attempt and refreshes the recommendation. A failed remote
// save does not fail the submission; the graded attempt is always returned.
func (s *Session) Submit(ctx context.Context, answers map[string]string) (learning.QuizAttempt, error) {
	s.mu.Lock()
	if err := s.expectLocked(StateQuizzing); err != nil {
		s.mu.Unlock()
		return learning.QuizAttempt{}, err
	}
	if s.quiz == nil {
		s.mu.Unlock()
		return learning.QuizAttempt{}, ErrNoQuiz
	}
	attempt := Grade(*s.quiz, answers, s.signals, s.engine.clock())
	s.attempt = &attempt
	s.state = StateReviewing
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	slog.Info("quiz graded",
		"session_id", s.ID,
		"subject", attempt.Subject,
		"mode", attempt.Mode,
		"score", attempt.Score,
		"excels", attempt.Excels(),
	)

	persisted := s.engine.persist(ctx, attempt)
	rec := s.engine.recommend(ctx, s.Subject)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && s.epoch == epoch {
		s.persisted = persisted
		s.recommendation = rec
	}
	return attempt, nil
}

// Retry moves Reviewing → Selecting, discarding the quiz and answers. The
// next StartQuiz generates a fresh quiz.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expectLocked(StateReviewing); err != nil {
		return err
	}
	s.epoch++
	s.state = StateSelecting
	s.content = nil
	s.contentErr = nil
	s.quiz = nil
	s.attempt = nil
	s.persisted = false
	s.signals = learning.EngagementSignals{}
	s.activityLogged = false
	return nil
}

// Continue moves Reviewing → Learning with mode. An empty mode follows the
// latest recommendation, falling back to learning.DefaultMode.
func (s *Session) Continue(ctx context.Context, mode learning.Mode) error {
	s.mu.Lock()
	if err := s.expectLocked(StateReviewing); err != nil {
		s.mu.Unlock()
		return err
	}
	if mode == "" {
		mode = learning.NextMode(s.recommendation)
	}
	if !mode.Valid() {
		s.mu.Unlock()
		return fmt.Errorf("continue: unknown mode %q", mode)
	}
	epoch, req := s.beginLearningLocked(mode)
	s.mu.Unlock()

	return s.loadContent(ctx, epoch, req)
}

// RecordPlay counts an audio play action while Learning.
func (s *Session) RecordPlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expectLocked(StateLearning); err != nil {
		return err
	}
	s.tracker.RecordPlay()
	return nil
}

// Pause stops the reading clock while Learning.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expectLocked(StateLearning); err != nil {
		return err
	}
	s.tracker.Pause()
	return nil
}

// Resume restarts the reading clock while Learning.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expectLocked(StateLearning); err != nil {
		return err
	}
	s.tracker.Resume()
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.epoch++
	s.tracker.Finalize()
}

func (s *Session) expectLocked(want State) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != want {
		return fmt.Errorf("%w: expected %s, session is %s", ErrInvalidTransition, want, s.state)
	}
	return nil
}

func (s *Session) beginLearningLocked(mode learning.Mode) (uint64, remote.ContentRequest) {
	s.epoch++
	s.state = StateLearning
	s.mode = mode
	s.loading = true
	s.content = nil
	s.contentErr = nil
	s.quiz = nil
	s.attempt = nil
	s.persisted = false
	s.signals = learning.EngagementSignals{}
	s.activityLogged = false
	s.tracker.Reset(mode)

	return s.epoch, remote.ContentRequest{
		Subject:    s.Subject,
		Topic:      s.Topic,
		Mode:       mode,
		Difficulty: s.Difficulty,
	}
}

func (s *Session) loadContent(ctx context.Context, epoch uint64, req remote.ContentRequest) error {
	unit, err := s.engine.content.Resolve(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != epoch {
		slog.Debug("discarding stale content result", "session_id", s.ID, "mode", req.Mode)
		return ErrStale
	}
	s.loading = false
	if err != nil {
		s.contentErr = err
		return fmt.Errorf("load content: %w", err)
	}
	s.content = &unit
	s.tracker.ContentLoaded()
	return nil
}

// QuestionView is a question as shown to the learner. The correct answer
// and explanation are withheld until the attempt is graded.
type QuestionView struct {
	ID            string   `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// View is a point-in-time snapshot of a session.
type View struct {
	ID             string                       `json:"id"`
	Subject        string                       `json:"subject"`
	Topic          string                       `json:"topic"`
	Difficulty     string                       `json:"difficulty,omitempty"`
	State          string                       `json:"state"`
	Mode           learning.Mode                `json:"learningMode,omitempty"`
	Loading        bool                         `json:"loading"`
	Content        *learning.ContentUnit        `json:"content,omitempty"`
	ContentError   string                       `json:"contentError,omitempty"`
	Engagement     learning.EngagementSignals   `json:"engagement"`
	Questions      []QuestionView               `json:"questions,omitempty"`
	Attempt        *learning.QuizAttempt        `json:"attempt,omitempty"`
	Persisted      bool                         `json:"persisted"`
	Recommendation *learning.ModeRecommendation `json:"recommendation,omitempty"`
}

// View returns a snapshot of the session for display.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:             s.ID,
		Subject:        s.Subject,
		Topic:          s.Topic,
		Difficulty:     s.Difficulty,
		State:          s.state.String(),
		Mode:           s.mode,
		Loading:        s.loading,
		Content:        s.content,
		Attempt:        s.attempt,
		Persisted:      s.persisted,
		Recommendation: s.recommendation,
	}
	if s.contentErr != nil {
		v.ContentError = s.contentErr.Error()
	}
	if s.state == StateLearning {
		v.Engagement = s.tracker.Snapshot()
	} else {
		v.Engagement = s.signals
	}
	if s.quiz != nil {
		reveal := s.state == StateReviewing
		v.Questions = make([]QuestionView, len(s.quiz.Questions))
		for i, q := range s.quiz.Questions {
			qv := QuestionView{ID: q.ID, Text: q.Text, Options: q.Options}
			if reveal {
				qv.CorrectAnswer = q.CorrectAnswer
				qv.Explanation = q.Explanation
			}
			v.Questions[i] = qv
		}
	}
	return v
}
