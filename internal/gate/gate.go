// Package gate decides whether a learner may open a subject's full topic
// list: every learning mode must have been assessed at least once.
package gate

import (
	"context"
	"log/slog"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/remote"
)

// Checker reports per-mode assessment history for a subject.
type Checker interface {
	CheckLearningTypes(ctx context.Context, subject string) (remote.LearningTypesCheck, error)
}

// Evaluate derives completion from per-mode statistics. A mode counts as
// assessed when it has at least one session.
func Evaluate(subject string, stats map[learning.Mode]learning.ModeStats) learning.CompletionStatus {
	status := learning.CompletionStatus{Subject: subject, CompletedModes: []learning.Mode{}}
	allZero := true
	for _, m := range learning.AllModes {
		s, ok := stats[m]
		if !ok || s.TotalSessions <= 0 {
			continue
		}
		status.CompletedModes = append(status.CompletedModes, m)
		if s.TotalScore != 0 {
			allZero = false
		}
	}
	status.Completed = len(status.CompletedModes) == len(learning.AllModes)
	status.AllScoresZero = status.Completed && allZero
	return status
}

// FromAttempts derives completion from a learner's attempt history.
func FromAttempts(subject string, attempts []learning.QuizAttempt) learning.CompletionStatus {
	stats := make(map[learning.Mode]learning.ModeStats)
	for _, a := range attempts {
		if a.Subject != subject || !a.Mode.Valid() {
			continue
		}
		s := stats[a.Mode]
		s.TotalSessions++
		s.TotalScore += a.Score
		stats[a.Mode] = s
	}
	return Evaluate(subject, stats)
}

// Gate evaluates completion against the remote service.
type Gate struct {
	checker Checker
}

// New creates a Gate.
func New(checker Checker) *Gate {
	return &Gate{checker: checker}
}

// Check returns the completion status for subject. Any failure yields a
// not-completed status so the learner is routed back into assessment.
func (g *Gate) Check(ctx context.Context, subject string) learning.CompletionStatus {
	check, err := g.checker.CheckLearningTypes(ctx, subject)
	if err != nil {
		slog.Warn("completion check failed, treating as incomplete",
			"subject", subject,
			"error", err,
		)
		return learning.CompletionStatus{Subject: subject, CompletedModes: []learning.Mode{}}
	}

	stats := make(map[learning.Mode]learning.ModeStats, len(check.TypeScores))
	for m, s := range check.TypeScores {
		if m.Valid() {
			stats[m] = s
		}
	}
	scoresKnown := true
	for _, m := range check.CompletedTypes {
		if !m.Valid() {
			continue
		}
		s := stats[m]
		if s.TotalSessions <= 0 {
			s.TotalSessions = 1
			scoresKnown = false
		}
		stats[m] = s
	}

	status := Evaluate(subject, stats)
	if !scoresKnown {
		status.AllScoresZero = status.Completed && check.AllScoresZero
	}
	if status.Completed != check.Completed {
		slog.Debug("remote completion flag disagrees with per-mode history",
			"subject", subject,
			"remote", check.Completed,
			"derived", status.Completed,
		)
	}
	return status
}

// Admit reports whether the topic list may be opened. When it may not, it
// returns the first mode still awaiting assessment.
func (g *Gate) Admit(ctx context.Context, subject string) (learning.CompletionStatus, learning.Mode, bool) {
	status := g.Check(ctx, subject)
	if status.Completed {
		return status, "", true
	}
	missing := status.MissingModes()
	next := learning.DefaultMode
	if len(missing) > 0 {
		next = missing[0]
	}
	return status, next, false
}
