package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithTokenSource(StaticToken("learner-token")))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SendsBearerToken(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"topics": []map[string]any{{"title": "Fractions"}}})
	})

	if _, err := c.GetTopics(context.Background(), "math", learning.ModeText); err != nil {
		t.Fatalf("GetTopics() error = %v", err)
	}
	if got != "Bearer learner-token" {
		t.Errorf("Authorization = %q, want Bearer learner-token", got)
	}

	ctx := WithToken(context.Background(), "override")
	if _, err := c.GetTopics(ctx, "math", learning.ModeText); err != nil {
		t.Fatalf("GetTopics() error = %v", err)
	}
	if got != "Bearer override" {
		t.Errorf("Authorization = %q, want per-request token", got)
	}
}

func TestClient_MissingTokenIssuesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GenerateContent(context.Background(), ContentRequest{Subject: "math", Topic: "algebra", Mode: learning.ModeText})
	if !errors.Is(err, learning.ErrAuthRequired) {
		t.Fatalf("error = %v, want ErrAuthRequired", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server received %d requests, want 0", hits.Load())
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, learning.ErrAuthRequired},
		{http.StatusForbidden, learning.ErrAuthRequired},
		{http.StatusNotFound, learning.ErrNotFound},
		{http.StatusConflict, learning.ErrConflict},
		{http.StatusTooManyRequests, learning.ErrTransient},
		{http.StatusInternalServerError, learning.ErrTransient},
		{http.StatusBadGateway, learning.ErrTransient},
		{http.StatusBadRequest, learning.ErrValidation},
		{http.StatusUnprocessableEntity, learning.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			_, err := c.RecommendMode(context.Background(), "math")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Errorf("error = %v, want *APIError with status %d", err, tt.status)
			}
		})
	}
}

func TestClient_TransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, WithTokenSource(StaticToken("t")))
	err := c.SaveQuizResult(context.Background(), learning.QuizAttempt{Subject: "math"})
	if !errors.Is(err, learning.ErrTransient) {
		t.Errorf("error = %v, want ErrTransient", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, WithTokenSource(StaticToken("t")), WithTimeout(50*time.Millisecond))
	_, err := c.LatestQuiz(context.Background(), "math", "algebra")
	if !errors.Is(err, learning.ErrTransient) {
		t.Errorf("error = %v, want ErrTransient on timeout", err)
	}
}

func TestWithTimeout_AppliesRegardlessOfOrder(t *testing.T) {
	transport := &http.Transport{}
	tests := []struct {
		name string
		opts []Option
	}{
		{"timeout first", []Option{WithTimeout(5 * time.Second), WithHTTPClient(&http.Client{Transport: transport})}},
		{"client first", []Option{WithHTTPClient(&http.Client{Transport: transport}), WithTimeout(5 * time.Second)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("http://content.test", tt.opts...)
			if c.client.Timeout != 5*time.Second {
				t.Errorf("Timeout = %v, want 5s", c.client.Timeout)
			}
			if c.client.Transport != transport {
				t.Error("custom transport should be kept")
			}
		})
	}
}

func TestWithTimeout_KeepsCustomClientFields(t *testing.T) {
	redirects := func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	custom := &http.Client{CheckRedirect: redirects}

	c := New("http://content.test", WithHTTPClient(custom), WithTimeout(time.Second))
	if c.client.CheckRedirect == nil {
		t.Error("CheckRedirect should survive WithTimeout")
	}
	if custom.Timeout != 0 {
		t.Errorf("caller's client was modified: Timeout = %v", custom.Timeout)
	}
}

func TestClient_SchemaRejection(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(*Client) error
	}{
		{
			name: "quiz without questions",
			body: `{"quiz":{"questions":[]}}`,
			call: func(c *Client) error {
				_, err := c.GenerateQuiz(context.Background(), QuizRequest{Subject: "math", Topic: "algebra", Mode: learning.ModeText})
				return err
			},
		},
		{
			name: "recommendation with unknown mode",
			body: `{"recommendation":{"recommendedMode":"smell","confidence":0.5}}`,
			call: func(c *Client) error {
				_, err := c.RecommendMode(context.Background(), "math")
				return err
			},
		},
		{
			name: "confidence out of range",
			body: `{"recommendation":{"recommendedMode":"text","confidence":1.5}}`,
			call: func(c *Client) error {
				_, err := c.RecommendMode(context.Background(), "math")
				return err
			},
		},
		{
			name: "content missing",
			body: `{"ok":true}`,
			call: func(c *Client) error {
				_, err := c.GenerateContent(context.Background(), ContentRequest{Subject: "math", Topic: "algebra", Mode: learning.ModeText})
				return err
			},
		},
		{
			name: "not json",
			body: `<html>`,
			call: func(c *Client) error {
				_, err := c.CheckLearningTypes(context.Background(), "math")
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			})
			if err := tt.call(c); !errors.Is(err, learning.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}
