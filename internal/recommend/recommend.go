// Package recommend reads scored mode recommendations from the remote
// service. Recommendations are never cached: each call reflects the latest
// attempt history.
package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// Source fetches a recommendation for a subject.
type Source interface {
	RecommendMode(ctx context.Context, subject string) (learning.ModeRecommendation, error)
}

// Consumer exposes recommendations to the rest of the client.
type Consumer struct {
	src Source
}

// NewConsumer creates a Consumer reading from src.
func NewConsumer(src Source) *Consumer {
	return &Consumer{src: src}
}

// Get returns the current recommendation for subject.
func (c *Consumer) Get(ctx context.Context, subject string) (learning.ModeRecommendation, error) {
	rec, err := c.src.RecommendMode(ctx, subject)
	if err != nil {
		return learning.ModeRecommendation{}, fmt.Errorf("recommend mode for %s: %w", subject, err)
	}
	if !rec.RecommendedMode.Valid() || rec.Confidence < 0 || rec.Confidence > 1 {
		return learning.ModeRecommendation{}, fmt.Errorf("recommend mode for %s: %w: mode %q confidence %v",
			subject, learning.ErrValidation, rec.RecommendedMode, rec.Confidence)
	}
	return rec, nil
}

// Recommend is the tolerant form of Get: failures are logged and reported
// as nil so callers fall back to learning.DefaultMode.
func (c *Consumer) Recommend(ctx context.Context, subject string) *learning.ModeRecommendation {
	rec, err := c.Get(ctx, subject)
	if err != nil {
		slog.Warn("mode recommendation unavailable",
			"subject", subject,
			"fallback_mode", learning.DefaultMode,
			"error", err,
		)
		return nil
	}
	return &rec
}

// NextMode returns the mode the learner should use next for subject.
func (c *Consumer) NextMode(ctx context.Context, subject string) learning.Mode {
	return learning.NextMode(c.Recommend(ctx, subject))
}
