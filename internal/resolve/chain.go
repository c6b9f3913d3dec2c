// Package resolve decides where learning content and topic lists come from.
// Each resolver is an ordered chain of named strategies (cache lookup,
// remote fetch, remote generation) evaluated until one succeeds.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// ErrMiss tells the chain to move on to the next strategy.
var ErrMiss = errors.New("miss")

// ErrInvalidRequest is returned for requests missing a subject, topic or
// valid mode.
var ErrInvalidRequest = errors.New("invalid request")

// Strategy is one named attempt in a fallback chain.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FirstOf runs strategies in order and returns the first success together
// with the name of the strategy that produced it. ErrMiss and
// learning.ErrNotFound fall through to the next strategy; any other error
// ends the chain.
func FirstOf[T any](ctx context.Context, strategies ...Strategy[T]) (T, string, error) {
	var zero T
	for _, s := range strategies {
		v, err := s.Run(ctx)
		if err == nil {
			slog.Debug("strategy resolved", "strategy", s.Name)
			return v, s.Name, nil
		}
		if errors.Is(err, ErrMiss) || errors.Is(err, learning.ErrNotFound) {
			slog.Debug("strategy missed", "strategy", s.Name, "error", err)
			continue
		}
		return zero, s.Name, fmt.Errorf("%s: %w", s.Name, err)
	}
	return zero, "", fmt.Errorf("no strategy produced a result: %w", learning.ErrNotFound)
}

// keyLocks serializes work on one key across flights that do not share a
// singleflight key, such as a resolve and a regenerate of the same triple.
// The zero value is ready to use.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until key is free and returns the matching unlock.
func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// generationFailed reports a not-found answer from a generation endpoint as
// a retryable failure instead of letting it fall through the chain.
func generationFailed(err error) error {
	if errors.Is(err, learning.ErrNotFound) {
		return fmt.Errorf("%w: generation endpoint answered not found: %v", learning.ErrTransient, err)
	}
	return err
}

// shared runs fn at most once per key at a time; concurrent callers for the
// same key wait on the in-flight call. The call itself is detached from the
// caller's cancellation so a caller leaving early does not abort it for the
// others; the caller simply stops waiting.
func shared[T any](ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	detached := context.WithoutCancel(ctx)
	ch := g.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}
