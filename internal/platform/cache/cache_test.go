package cache

import (
	"context"
	"testing"
	"time"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDial_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := Dial(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("Dial() should return error for unreachable host")
	}
}

func TestKeys(t *testing.T) {
	if got := ContentKey("math", "fractions", "text"); got != "math:fractions:text" {
		t.Errorf("ContentKey() = %q, want math:fractions:text", got)
	}
	if got := TopicsKey("math"); got != "math" {
		t.Errorf("TopicsKey() = %q, want math", got)
	}
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	s := NewRedisStore(nil, "mindmorph", 0)
	if got := s.key("math"); got != "mindmorph:math" {
		t.Errorf("key() = %q, want mindmorph:math", got)
	}

	bare := NewRedisStore(nil, "", 0)
	if got := bare.key("math"); got != "math" {
		t.Errorf("key() = %q, want math", got)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, found, err := s.Get(ctx, "math"); err != nil || found {
		t.Fatalf("Get() on empty store = found %v, err %v", found, err)
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entry, err := NewEntry(map[string]string{"title": "Fractions"}, now)
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}
	if err := s.Set(ctx, "math", entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, found, err := s.Get(ctx, "math")
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if !got.StoredAt.Equal(now) {
		t.Errorf("StoredAt = %v, want %v", got.StoredAt, now)
	}
	var payload map[string]string
	if err := got.Decode(&payload); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if payload["title"] != "Fractions" {
		t.Errorf("payload title = %q, want Fractions", payload["title"])
	}

	if err := s.Delete(ctx, "math"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after delete, want 0", s.Len())
	}
}

func TestMemoryStore_ExactKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	entry, _ := NewEntry("unit", time.Now())
	s.Set(ctx, ContentKey("math", "fractions", "text"), entry)

	for _, key := range []string{
		ContentKey("math", "fractions", "audio"),
		ContentKey("math", "fraction", "text"),
		"math:fractions",
		"math",
	} {
		if _, found, _ := s.Get(ctx, key); found {
			t.Errorf("Get(%q) should miss", key)
		}
	}

	s.Set(ctx, ContentKey("math:algebra", "x", "text"), entry)
	for _, key := range []string{
		ContentKey("math", "algebra:x", "text"),
		TopicsKey("math:algebra:x:text"),
	} {
		if _, found, _ := s.Get(ctx, key); found {
			t.Errorf("Get(%q) should miss, colliding components must not share a key", key)
		}
	}
}

func TestKeys_DistinctTriples(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"colon in subject vs topic", ContentKey("math:algebra", "x", "text"), ContentKey("math", "algebra:x", "text")},
		{"topics vs content", TopicsKey("a:b:text"), ContentKey("a", "b", "text")},
		{"escaped vs literal", ContentKey("a%3Ab", "c", "text"), ContentKey("a:b", "c", "text")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a == tt.b {
				t.Errorf("keys collide: %q", tt.a)
			}
		})
	}
}
