package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/platform/cache"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/remote"
)

// ContentGenerator produces new material for a triple.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req remote.ContentRequest) (learning.ContentUnit, error)
}

// ContentResolver resolves content through cache, then generation.
type ContentResolver struct {
	gen    ContentGenerator
	store  cache.Store
	flight singleflight.Group
	locks  keyLocks
	now    func() time.Time
}

// NewContentResolver creates a resolver writing through to store.
func NewContentResolver(gen ContentGenerator, store cache.Store) *ContentResolver {
	return &ContentResolver{
		gen:   gen,
		store: store,
		now:   time.Now,
	}
}

// Resolve returns the cached unit for the exact (subject, topic, mode) key
// or generates, caches and returns a new one. It never runs concurrently
// with a Regenerate of the same key.
func (r *ContentResolver) Resolve(ctx context.Context, req remote.ContentRequest) (learning.ContentUnit, error) {
	if err := checkContentRequest(req); err != nil {
		return learning.ContentUnit{}, err
	}
	key := cache.ContentKey(req.Subject, req.Topic, string(req.Mode))

	return shared(ctx, &r.flight, key, func(ctx context.Context) (learning.ContentUnit, error) {
		defer r.locks.lock(key)()

		unit, source, err := FirstOf(ctx,
			r.cacheLookup(key),
			r.remoteGenerate(req, key),
		)
		if err != nil {
			return learning.ContentUnit{}, fmt.Errorf("resolve content %s: %w", key, err)
		}
		slog.Info("content resolved",
			"subject", req.Subject,
			"topic", req.Topic,
			"mode", req.Mode,
			"source", source,
		)
		return unit, nil
	})
}

// Regenerate purges the cached unit for the exact triple and generates a
// fresh one.
func (r *ContentResolver) Regenerate(ctx context.Context, req remote.ContentRequest) (learning.ContentUnit, error) {
	if err := checkContentRequest(req); err != nil {
		return learning.ContentUnit{}, err
	}
	key := cache.ContentKey(req.Subject, req.Topic, string(req.Mode))

	return shared(ctx, &r.flight, "regenerate|"+key, func(ctx context.Context) (learning.ContentUnit, error) {
		defer r.locks.lock(key)()

		if err := r.store.Delete(ctx, key); err != nil {
			slog.Warn("content cache purge failed", "key", key, "error", err)
		}
		unit, err := r.remoteGenerate(req, key).Run(ctx)
		if err != nil {
			return learning.ContentUnit{}, fmt.Errorf("regenerate content %s: %w", key, err)
		}
		return unit, nil
	})
}

func (r *ContentResolver) cacheLookup(key string) Strategy[learning.ContentUnit] {
	return Strategy[learning.ContentUnit]{
		Name: "cache-lookup",
		Run: func(ctx context.Context) (learning.ContentUnit, error) {
			entry, found, err := r.store.Get(ctx, key)
			if err != nil {
				slog.Warn("content cache read failed", "key", key, "error", err)
				return learning.ContentUnit{}, ErrMiss
			}
			if !found {
				return learning.ContentUnit{}, ErrMiss
			}
			var unit learning.ContentUnit
			if err := entry.Decode(&unit); err != nil {
				slog.Warn("discarding undecodable cached content", "key", key, "error", err)
				return learning.ContentUnit{}, ErrMiss
			}
			return unit, nil
		},
	}
}

func (r *ContentResolver) remoteGenerate(req remote.ContentRequest, key string) Strategy[learning.ContentUnit] {
	return Strategy[learning.ContentUnit]{
		Name: "remote-generate",
		Run: func(ctx context.Context) (learning.ContentUnit, error) {
			unit, err := r.gen.GenerateContent(ctx, req)
			if err != nil {
				return learning.ContentUnit{}, generationFailed(err)
			}
			if unit.GeneratedAt.IsZero() {
				unit.GeneratedAt = r.now()
			}
			r.remember(ctx, key, unit)
			return unit, nil
		},
	}
}

// remember writes unit to the cache. Failures are logged and never surfaced.
func (r *ContentResolver) remember(ctx context.Context, key string, unit learning.ContentUnit) {
	entry, err := cache.NewEntry(unit, r.now())
	if err != nil {
		slog.Warn("content cache encode failed", "key", key, "error", err)
		return
	}
	if err := r.store.Set(ctx, key, entry); err != nil {
		slog.Warn("content cache write failed", "key", key, "error", err)
	}
}

func checkContentRequest(req remote.ContentRequest) error {
	if req.Subject == "" || req.Topic == "" {
		return fmt.Errorf("%w: subject and topic are required", ErrInvalidRequest)
	}
	if !req.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
	return nil
}
