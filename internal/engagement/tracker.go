// Package engagement measures exposure during a learning session: elapsed
// reading time for text content and play actions for audio content.
package engagement

import (
	"sync"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// Tracker accumulates signals for one learning phase. Once finalized the
// signals are frozen until the next Reset.
type Tracker struct {
	mu      sync.Mutex
	clock   func() time.Time
	mode    learning.Mode
	loaded  bool
	started time.Time // zero while the reading clock is stopped
	elapsed time.Duration
	plays   int
	final   *learning.EngagementSignals
}

// NewTracker creates a tracker. A nil clock uses time.Now.
func NewTracker(clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{clock: clock}
}

// Reset clears all counters and arms the tracker for mode.
func (t *Tracker) Reset(mode learning.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
	t.loaded = false
	t.started = time.Time{}
	t.elapsed = 0
	t.plays = 0
	t.final = nil
}

// ContentLoaded starts the reading clock for text content.
func (t *Tracker) ContentLoaded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.final != nil {
		return
	}
	t.loaded = true
	t.startLocked()
}

// Pause stops the reading clock, keeping the time accumulated so far.
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Resume restarts a paused reading clock.
func (t *Tracker) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.final != nil || !t.loaded {
		return
	}
	t.startLocked()
}

// RecordPlay counts one play action. Only audio sessions count plays.
func (t *Tracker) RecordPlay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.final != nil || t.mode != learning.ModeAudio {
		return
	}
	t.plays++
}

// Snapshot returns the signals measured so far without freezing them.
func (t *Tracker) Snapshot() learning.EngagementSignals {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.final != nil {
		return *t.final
	}
	return t.signalsLocked(t.clock())
}

// Finalize freezes and returns the signals. Later calls return the same
// values.
func (t *Tracker) Finalize() learning.EngagementSignals {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.final != nil {
		return *t.final
	}
	t.stopLocked()
	s := t.signalsLocked(t.clock())
	t.final = &s
	return s
}

// Finalized reports whether the signals are frozen.
func (t *Tracker) Finalized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.final != nil
}

func (t *Tracker) startLocked() {
	if t.mode != learning.ModeText || !t.started.IsZero() {
		return
	}
	t.started = t.clock()
}

func (t *Tracker) stopLocked() {
	if t.started.IsZero() {
		return
	}
	t.elapsed += t.clock().Sub(t.started)
	t.started = time.Time{}
}

func (t *Tracker) signalsLocked(now time.Time) learning.EngagementSignals {
	var s learning.EngagementSignals
	switch t.mode {
	case learning.ModeText:
		elapsed := t.elapsed
		if !t.started.IsZero() {
			elapsed += now.Sub(t.started)
		}
		s.ReadingTimeSeconds = int(elapsed / time.Second)
	case learning.ModeAudio:
		s.AudioPlayCount = t.plays
	}
	return s
}
