package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/platform/cache"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/remote"
)

// fakeTopicService keeps one topic set per subject, like the real backend.
type fakeTopicService struct {
	mu        sync.Mutex
	stored    map[string]learning.TopicSet
	getErr    error
	deleteErr error
	saveErr   error
	generated int
	saves     int
	// raceWinner, when set, is installed by the first SaveTopics call to
	// simulate another device saving first.
	raceWinner []learning.Topic

	genErr      error
	release     chan struct{}
	inFlight    int
	maxInFlight int
}

func newFakeTopicService() *fakeTopicService {
	return &fakeTopicService{stored: make(map[string]learning.TopicSet)}
}

func (f *fakeTopicService) GetTopics(_ context.Context, subject string, mode learning.Mode) (learning.TopicSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return learning.TopicSet{}, f.getErr
	}
	set, ok := f.stored[subject]
	if !ok || len(set.Topics) == 0 {
		return learning.TopicSet{}, learning.ErrNotFound
	}
	return set, nil
}

func (f *fakeTopicService) SaveTopics(_ context.Context, subject string, mode learning.Mode, topics []learning.Topic) (remote.SaveTopicsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return remote.SaveTopicsResult{}, f.saveErr
	}
	if f.raceWinner != nil {
		f.stored[subject] = learning.TopicSet{Subject: subject, Topics: f.raceWinner, Mode: mode}
		f.raceWinner = nil
	}
	if existing, ok := f.stored[subject]; ok {
		return remote.SaveTopicsResult{AlreadyExists: true, Topics: existing.Topics}, nil
	}
	f.stored[subject] = learning.TopicSet{Subject: subject, Topics: topics, Mode: mode}
	return remote.SaveTopicsResult{Topics: topics}, nil
}

func (f *fakeTopicService) DeleteTopics(_ context.Context, subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.stored, subject)
	return nil
}

func (f *fakeTopicService) GenerateTopics(_ context.Context, subject string, mode learning.Mode, count int) ([]learning.Topic, error) {
	f.mu.Lock()
	f.generated++
	batch := f.generated
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	release, genErr := f.release, f.genErr
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if genErr != nil {
		return nil, genErr
	}
	topics := make([]learning.Topic, count)
	for i := range topics {
		topics[i] = learning.Topic{
			ID:    fmt.Sprintf("gen%d-%d", batch, i+1),
			Title: fmt.Sprintf("%s topic %d (batch %d)", subject, i+1, batch),
		}
	}
	return topics, nil
}

func (f *fakeTopicService) generations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generated
}

func topicIDs(set learning.TopicSet) map[string]bool {
	ids := make(map[string]bool, len(set.Topics))
	for _, t := range set.Topics {
		ids[t.ID] = true
	}
	return ids
}

func TestTopicResolver_SharedTopicsPropagateFlag(t *testing.T) {
	svc := newFakeTopicService()
	svc.stored["math"] = learning.TopicSet{
		Topics:   []learning.Topic{{ID: "s1", Title: "Shared algebra", Mode: learning.ModeVisual}},
		Mode:     learning.ModeVisual,
		IsShared: true,
	}
	store := cache.NewMemoryStore()
	r := NewTopicResolver(svc, store)

	set, err := r.Resolve(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeVisual})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !set.IsShared {
		t.Error("IsShared = false, want true")
	}
	if svc.generated != 0 {
		t.Errorf("generated = %d, want 0", svc.generated)
	}
	if _, found, _ := store.Get(context.Background(), cache.TopicsKey("math")); !found {
		t.Error("remote topics should be mirrored into the cache")
	}
}

func TestTopicResolver_FallsBackToCacheWhenRemoteFails(t *testing.T) {
	svc := newFakeTopicService()
	svc.getErr = fmt.Errorf("dial: %w", learning.ErrTransient)
	store := cache.NewMemoryStore()
	cached := learning.TopicSet{
		Subject: "math",
		Topics:  []learning.Topic{{ID: "c1", Title: "Cached", Mode: learning.ModeAudio}},
		Mode:    learning.ModeAudio,
	}
	entry, _ := cache.NewEntry(cached, time.Now())
	store.Set(context.Background(), cache.TopicsKey("math"), entry)

	r := NewTopicResolver(svc, store)
	set, err := r.Resolve(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeText})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(set.Topics) != 1 || set.Topics[0].ID != "c1" {
		t.Errorf("Resolve() = %+v, want cached set", set.Topics)
	}
	if svc.generated != 0 {
		t.Errorf("generated = %d, want 0 when cache hits", svc.generated)
	}
}

func TestTopicResolver_GeneratesDefaultCount(t *testing.T) {
	svc := newFakeTopicService()
	store := cache.NewMemoryStore()
	r := NewTopicResolver(svc, store)

	set, err := r.Resolve(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeText})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(set.Topics) != DefaultTopicCount {
		t.Errorf("len(topics) = %d, want %d", len(set.Topics), DefaultTopicCount)
	}
	if set.IsShared {
		t.Error("generated topics should not be shared")
	}
	for _, topic := range set.Topics {
		if topic.Mode != learning.ModeText {
			t.Errorf("topic %s mode = %q, want text", topic.ID, topic.Mode)
		}
	}
	if svc.saves != 1 {
		t.Errorf("saves = %d, want 1", svc.saves)
	}
	if _, found, _ := store.Get(context.Background(), cache.TopicsKey("math")); !found {
		t.Error("generated topics should be cached")
	}
}

func TestTopicResolver_CountOverride(t *testing.T) {
	r := NewTopicResolver(newFakeTopicService(), cache.NewMemoryStore(), WithTopicCount(4))

	set, err := r.Resolve(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeText})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(set.Topics) != 4 {
		t.Errorf("len(topics) = %d, want 4", len(set.Topics))
	}

	set, err = r.Resolve(context.Background(), TopicRequest{Subject: "science", Mode: learning.ModeText, Count: 2})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(set.Topics) != 2 {
		t.Errorf("len(topics) = %d, want 2", len(set.Topics))
	}
}

func TestTopicResolver_ServerSetWinsRace(t *testing.T) {
	svc := newFakeTopicService()
	winner := []learning.Topic{{ID: "w1", Title: "Winner one"}, {ID: "w2", Title: "Winner two"}}
	svc.raceWinner = winner
	r := NewTopicResolver(svc, cache.NewMemoryStore())

	set, err := r.Resolve(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeText})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	ids := topicIDs(set)
	if len(ids) != 2 || !ids["w1"] || !ids["w2"] {
		t.Errorf("Resolve() topics = %+v, want server's existing set", set.Topics)
	}
}

func TestTopicResolver_SaveFailureKeepsGeneratedSet(t *testing.T) {
	svc := newFakeTopicService()
	svc.saveErr = fmt.Errorf("save: %w", learning.ErrTransient)
	r := NewTopicResolver(svc, cache.NewMemoryStore(), WithTopicCount(3))

	set, err := r.Resolve(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeText})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(set.Topics) != 3 {
		t.Errorf("len(topics) = %d, want 3", len(set.Topics))
	}
}

func TestTopicResolver_RegenerateReplacesSet(t *testing.T) {
	svc := newFakeTopicService()
	store := cache.NewMemoryStore()
	r := NewTopicResolver(svc, store, WithTopicCount(3))
	ctx := context.Background()
	req := TopicRequest{Subject: "math", Mode: learning.ModeText}

	before, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := r.Regenerate(ctx, req); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}

	after, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve() after regenerate error = %v", err)
	}
	old := topicIDs(before)
	for _, topic := range after.Topics {
		if old[topic.ID] {
			t.Errorf("topic %s from the pre-regeneration set was returned", topic.ID)
		}
	}
}

func TestTopicResolver_RegenerateDeleteFailure(t *testing.T) {
	svc := newFakeTopicService()
	svc.deleteErr = fmt.Errorf("delete: %w", learning.ErrTransient)
	r := NewTopicResolver(svc, cache.NewMemoryStore())

	_, err := r.Regenerate(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeText})
	if !errors.Is(err, learning.ErrTransient) {
		t.Fatalf("Regenerate() error = %v, want ErrTransient", err)
	}
	if svc.generated != 0 {
		t.Errorf("generated = %d, want 0 after failed delete", svc.generated)
	}
}

func TestTopicResolver_AuthRequiredStopsChain(t *testing.T) {
	svc := newFakeTopicService()
	svc.getErr = learning.ErrAuthRequired
	r := NewTopicResolver(svc, cache.NewMemoryStore())

	_, err := r.Resolve(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeText})
	if !errors.Is(err, learning.ErrAuthRequired) {
		t.Fatalf("Resolve() error = %v, want ErrAuthRequired", err)
	}
	if svc.generated != 0 {
		t.Errorf("generated = %d, want 0", svc.generated)
	}
}

func TestTopicResolver_NormalizeDropsDuplicates(t *testing.T) {
	r := NewTopicResolver(newFakeTopicService(), cache.NewMemoryStore())

	got := r.normalize([]learning.Topic{
		{Title: "Fractions"},
		{Title: "  FRACTIONS "},
		{Title: ""},
		{Title: "Decimals"},
	}, learning.ModeAudio)

	if len(got) != 2 {
		t.Fatalf("normalize() = %d topics, want 2", len(got))
	}
	if got[0].Title != "Fractions" || got[1].Title != "Decimals" {
		t.Errorf("normalize() titles = %q, %q", got[0].Title, got[1].Title)
	}
	for _, topic := range got {
		if topic.ID == "" || topic.CreatedAt.IsZero() || topic.Mode != learning.ModeAudio {
			t.Errorf("topic not stamped: %+v", topic)
		}
	}
}

func TestTopicResolver_RegenerateWaitsForInFlightResolve(t *testing.T) {
	svc := newFakeTopicService()
	svc.release = make(chan struct{})
	r := NewTopicResolver(svc, cache.NewMemoryStore(), WithTopicCount(3))
	ctx := context.Background()
	req := TopicRequest{Subject: "math", Mode: learning.ModeText}

	resolved := make(chan learning.TopicSet, 1)
	go func() {
		set, _ := r.Resolve(ctx, req)
		resolved <- set
	}()
	deadline := time.Now().Add(2 * time.Second)
	for svc.generations() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("topic generation never started")
		}
		time.Sleep(time.Millisecond)
	}

	regenerated := make(chan learning.TopicSet, 1)
	go func() {
		set, _ := r.Regenerate(ctx, req)
		regenerated <- set
	}()
	time.Sleep(20 * time.Millisecond)
	if got := svc.generations(); got != 1 {
		t.Errorf("generations while resolve is in flight = %d, want 1", got)
	}
	close(svc.release)

	old := <-resolved
	fresh := <-regenerated
	svc.mu.Lock()
	maxInFlight := svc.maxInFlight
	svc.mu.Unlock()
	if maxInFlight != 1 {
		t.Errorf("concurrent generations for one subject = %d, want 1", maxInFlight)
	}

	after, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve() after regenerate error = %v", err)
	}
	stale := topicIDs(old)
	for _, topic := range after.Topics {
		if stale[topic.ID] {
			t.Errorf("topic %s from the pre-regeneration set was returned", topic.ID)
		}
	}
	if len(fresh.Topics) == 0 {
		t.Error("Regenerate() returned no topics")
	}
}

func TestTopicResolver_GenerationNotFoundIsRetryable(t *testing.T) {
	svc := newFakeTopicService()
	svc.genErr = &remote.APIError{StatusCode: 404}
	r := NewTopicResolver(svc, cache.NewMemoryStore())

	_, err := r.Resolve(context.Background(), TopicRequest{Subject: "math", Mode: learning.ModeText})
	if !errors.Is(err, learning.ErrTransient) {
		t.Errorf("Resolve() error = %v, want ErrTransient", err)
	}
	if errors.Is(err, learning.ErrNotFound) {
		t.Errorf("Resolve() error = %v, should not surface ErrNotFound", err)
	}
}
