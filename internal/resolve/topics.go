package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/platform/cache"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/remote"
)

// DefaultTopicCount is how many topics are generated when none exist.
const DefaultTopicCount = 10

// TopicService is the remote side of topic resolution.
type TopicService interface {
	GetTopics(ctx context.Context, subject string, mode learning.Mode) (learning.TopicSet, error)
	SaveTopics(ctx context.Context, subject string, mode learning.Mode, topics []learning.Topic) (remote.SaveTopicsResult, error)
	DeleteTopics(ctx context.Context, subject string) error
	GenerateTopics(ctx context.Context, subject string, mode learning.Mode, count int) ([]learning.Topic, error)
}

// TopicRequest selects a topic list. Count overrides the resolver default
// when positive.
type TopicRequest struct {
	Subject string
	Mode    learning.Mode
	Count   int
}

// TopicResolver resolves topic lists through remote personal or shared
// topics, the local cache, then generation.
type TopicResolver struct {
	svc    TopicService
	store  cache.Store
	count  int
	flight singleflight.Group
	locks  keyLocks
	now    func() time.Time
}

// TopicOption configures a TopicResolver.
type TopicOption func(*TopicResolver)

// WithTopicCount sets the default number of topics to generate.
func WithTopicCount(n int) TopicOption {
	return func(r *TopicResolver) {
		if n > 0 {
			r.count = n
		}
	}
}

// NewTopicResolver creates a topic resolver.
func NewTopicResolver(svc TopicService, store cache.Store, opts ...TopicOption) *TopicResolver {
	r := &TopicResolver{
		svc:   svc,
		store: store,
		count: DefaultTopicCount,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the topic list for subject and mode. It never runs
// concurrently with a Regenerate of the same subject.
func (r *TopicResolver) Resolve(ctx context.Context, req TopicRequest) (learning.TopicSet, error) {
	if req.Subject == "" || !req.Mode.Valid() {
		return learning.TopicSet{}, fmt.Errorf("%w: subject and a valid mode are required", ErrInvalidRequest)
	}

	subjectKey := cache.TopicsKey(req.Subject)
	return shared(ctx, &r.flight, "topics|"+subjectKey+"|"+string(req.Mode), func(ctx context.Context) (learning.TopicSet, error) {
		defer r.locks.lock(subjectKey)()

		set, source, err := FirstOf(ctx,
			r.remoteStored(req),
			r.cacheLookup(req),
			r.remoteGenerate(req),
		)
		if err != nil {
			return learning.TopicSet{}, fmt.Errorf("resolve topics %s/%s: %w", req.Subject, req.Mode, err)
		}
		slog.Info("topics resolved",
			"subject", req.Subject,
			"mode", req.Mode,
			"source", source,
			"shared", set.IsShared,
			"count", len(set.Topics),
		)
		return set, nil
	})
}

// Regenerate deletes the remote and cached topics for the subject, then
// generates a new set.
func (r *TopicResolver) Regenerate(ctx context.Context, req TopicRequest) (learning.TopicSet, error) {
	if req.Subject == "" || !req.Mode.Valid() {
		return learning.TopicSet{}, fmt.Errorf("%w: subject and a valid mode are required", ErrInvalidRequest)
	}

	subjectKey := cache.TopicsKey(req.Subject)
	return shared(ctx, &r.flight, "regenerate|"+subjectKey+"|"+string(req.Mode), func(ctx context.Context) (learning.TopicSet, error) {
		defer r.locks.lock(subjectKey)()

		if err := r.svc.DeleteTopics(ctx, req.Subject); err != nil && !errors.Is(err, learning.ErrNotFound) {
			return learning.TopicSet{}, fmt.Errorf("delete topics for %s: %w", req.Subject, err)
		}
		if err := r.store.Delete(ctx, subjectKey); err != nil {
			slog.Warn("topic cache purge failed", "subject", req.Subject, "error", err)
		}

		set, err := r.remoteGenerate(req).Run(ctx)
		if err != nil {
			return learning.TopicSet{}, fmt.Errorf("regenerate topics %s/%s: %w", req.Subject, req.Mode, err)
		}
		return set, nil
	})
}

func (r *TopicResolver) remoteStored(req TopicRequest) Strategy[learning.TopicSet] {
	return Strategy[learning.TopicSet]{
		Name: "remote-personal-or-shared",
		Run: func(ctx context.Context) (learning.TopicSet, error) {
			set, err := r.svc.GetTopics(ctx, req.Subject, req.Mode)
			if err != nil {
				if errors.Is(err, learning.ErrAuthRequired) {
					return learning.TopicSet{}, err
				}
				if !errors.Is(err, learning.ErrNotFound) {
					slog.Warn("remote topic lookup failed, falling back", "subject", req.Subject, "error", err)
				}
				return learning.TopicSet{}, ErrMiss
			}
			if len(set.Topics) == 0 {
				return learning.TopicSet{}, ErrMiss
			}
			set.Subject = req.Subject
			r.remember(ctx, set)
			return set, nil
		},
	}
}

func (r *TopicResolver) cacheLookup(req TopicRequest) Strategy[learning.TopicSet] {
	return Strategy[learning.TopicSet]{
		Name: "cache-lookup",
		Run: func(ctx context.Context) (learning.TopicSet, error) {
			entry, found, err := r.store.Get(ctx, cache.TopicsKey(req.Subject))
			if err != nil {
				slog.Warn("topic cache read failed", "subject", req.Subject, "error", err)
				return learning.TopicSet{}, ErrMiss
			}
			if !found {
				return learning.TopicSet{}, ErrMiss
			}
			var set learning.TopicSet
			if err := entry.Decode(&set); err != nil || len(set.Topics) == 0 {
				return learning.TopicSet{}, ErrMiss
			}
			return set, nil
		},
	}
}

func (r *TopicResolver) remoteGenerate(req TopicRequest) Strategy[learning.TopicSet] {
	return Strategy[learning.TopicSet]{
		Name: "remote-generate",
		Run: func(ctx context.Context) (learning.TopicSet, error) {
			count := req.Count
			if count <= 0 {
				count = r.count
			}

			generated, err := r.svc.GenerateTopics(ctx, req.Subject, req.Mode, count)
			if err != nil {
				return learning.TopicSet{}, generationFailed(err)
			}
			generated = r.normalize(generated, req.Mode)
			if len(generated) == 0 {
				return learning.TopicSet{}, fmt.Errorf("%w: generated topics have no titles", learning.ErrValidation)
			}

			set := learning.TopicSet{Subject: req.Subject, Topics: generated, Mode: req.Mode}

			res, err := r.svc.SaveTopics(ctx, req.Subject, req.Mode, generated)
			switch {
			case err != nil:
				slog.Warn("topic save failed, using generated set",
					"subject", req.Subject,
					"mode", req.Mode,
					"error", err,
				)
			case res.AlreadyExists:
				if existing, ok := r.existing(ctx, req, res); ok {
					set = existing
				} else {
					slog.Warn("server reported existing topics but none could be fetched",
						"subject", req.Subject,
						"mode", req.Mode,
					)
				}
			case len(res.Topics) > 0:
				set.Topics = res.Topics
			}

			r.remember(ctx, set)
			return set, nil
		},
	}
}

// existing returns the server-confirmed set after a save lost a race.
func (r *TopicResolver) existing(ctx context.Context, req TopicRequest, res remote.SaveTopicsResult) (learning.TopicSet, bool) {
	if len(res.Topics) > 0 {
		return learning.TopicSet{Subject: req.Subject, Topics: res.Topics, Mode: req.Mode}, true
	}
	set, err := r.svc.GetTopics(ctx, req.Subject, req.Mode)
	if err != nil || len(set.Topics) == 0 {
		return learning.TopicSet{}, false
	}
	set.Subject = req.Subject
	return set, true
}

// normalize drops untitled and duplicate topics (titles compared case-folded)
// and stamps mode, id and creation time where missing.
func (r *TopicResolver) normalize(topics []learning.Topic, mode learning.Mode) []learning.Topic {
	fold := cases.Fold()
	seen := make(map[string]bool, len(topics))
	out := make([]learning.Topic, 0, len(topics))
	now := r.now()

	for _, t := range topics {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		k := fold.String(title)
		if seen[k] {
			continue
		}
		seen[k] = true

		t.Title = title
		t.Mode = mode
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.ID == "" {
			t.ID = "topic-" + strconv.Itoa(len(out)+1)
		}
		out = append(out, t)
	}
	return out
}

// remember mirrors set into the cache. Failures are logged and never surfaced.
func (r *TopicResolver) remember(ctx context.Context, set learning.TopicSet) {
	entry, err := cache.NewEntry(set, r.now())
	if err != nil {
		slog.Warn("topic cache encode failed", "subject", set.Subject, "error", err)
		return
	}
	if err := r.store.Set(ctx, cache.TopicsKey(set.Subject), entry); err != nil {
		slog.Warn("topic cache write failed", "subject", set.Subject, "error", err)
	}
}
