// Package remote is the HTTP client for the Remote Content Service, the
// backend that generates learning material, topics and quizzes, stores quiz
// results and computes mode recommendations.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the learner's bearer credential.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer credential.
type StaticToken string

func (t StaticToken) Token(_ context.Context) (string, error) {
	return string(t), nil
}

type tokenKey struct{}

// WithToken attaches a per-request bearer credential to ctx. It takes
// precedence over the client's TokenSource.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Client talks to the Remote Content Service.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	tokens  TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTokenSource sets where bearer credentials come from.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.tokens = src
	}
}

// WithTimeout bounds every request issued by the client. It applies to a
// client set with WithHTTPClient regardless of option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		tokens:  StaticToken(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.client
		hc.Timeout = c.timeout
		c.client = &hc
	}
	return c
}

func (c *Client) token(ctx context.Context) (string, error) {
	if t, ok := ctx.Value(tokenKey{}).(string); ok && t != "" {
		return t, nil
	}
	t, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", learning.ErrAuthRequired, err)
	}
	if t == "" {
		return "", learning.ErrAuthRequired
	}
	return t, nil
}

// do issues one JSON request. A nil out discards the response body; a nil
// schema skips payload validation.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any, schema *gojsonschema.Schema, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, learning.ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w: %w", method, path, learning.ErrTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil {
		return nil
	}

	if schema != nil {
		if err := validate(schema, respBody); err != nil {
			slog.Warn("upstream payload rejected",
				"method", method,
				"path", path,
				"error", err,
			)
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: unmarshal response: %w: %w", method, path, learning.ErrValidation, err)
	}
	return nil
}
