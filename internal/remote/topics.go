package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

type topicsResponse struct {
	Topics   []learning.Topic `json:"topics"`
	Mode     learning.Mode    `json:"learningType"`
	IsShared bool             `json:"isShared"`
}

// GetTopics returns the learner's topics for subject and mode, or another
// learner's set tagged IsShared. A subject with no topics yields
// learning.ErrNotFound.
func (c *Client) GetTopics(ctx context.Context, subject string, mode learning.Mode) (learning.TopicSet, error) {
	q := url.Values{"subject": {subject}, "learningType": {string(mode)}}

	var resp topicsResponse
	if err := c.do(ctx, http.MethodGet, "/api/topics", q, nil, topicsSchema, &resp); err != nil {
		return learning.TopicSet{}, err
	}
	if len(resp.Topics) == 0 {
		return learning.TopicSet{}, fmt.Errorf("topics for %s/%s: %w", subject, mode, learning.ErrNotFound)
	}

	set := learning.TopicSet{
		Subject:  subject,
		Topics:   resp.Topics,
		Mode:     resp.Mode,
		IsShared: resp.IsShared,
	}
	if set.Mode == "" {
		set.Mode = mode
	}
	return set, nil
}

// SaveTopicsResult reports what the service kept.
type SaveTopicsResult struct {
	AlreadyExists bool
	Topics        []learning.Topic
}

type saveTopicsRequest struct {
	Subject string           `json:"subject"`
	Mode    learning.Mode    `json:"learningType"`
	Topics  []learning.Topic `json:"topics"`
}

type saveTopicsResponse struct {
	AlreadyExists bool             `json:"alreadyExists"`
	Topics        []learning.Topic `json:"topics"`
}

// SaveTopics persists a generated topic set. When the service already holds
// a set for subject and mode it answers alreadyExists, either in a 2xx body
// or as a 409; both are reported through SaveTopicsResult.
func (c *Client) SaveTopics(ctx context.Context, subject string, mode learning.Mode, topics []learning.Topic) (SaveTopicsResult, error) {
	req := saveTopicsRequest{Subject: subject, Mode: mode, Topics: topics}

	var resp saveTopicsResponse
	err := c.do(ctx, http.MethodPost, "/api/topics", nil, req, saveTopicsSchema, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			var body saveTopicsResponse
			if derr := json.Unmarshal([]byte(apiErr.Body), &body); derr != nil {
				slog.Debug("conflict body not decodable, topics will be refetched",
					"subject", subject,
					"mode", mode,
					"error", derr,
				)
			}
			return SaveTopicsResult{AlreadyExists: true, Topics: body.Topics}, nil
		}
		return SaveTopicsResult{}, err
	}

	return SaveTopicsResult{AlreadyExists: resp.AlreadyExists, Topics: resp.Topics}, nil
}

// DeleteTopics purges every stored topic for subject.
func (c *Client) DeleteTopics(ctx context.Context, subject string) error {
	q := url.Values{"subject": {subject}}
	return c.do(ctx, http.MethodDelete, "/api/topics", q, nil, nil, nil)
}

type generateTopicsRequest struct {
	Subject string        `json:"subject"`
	Mode    learning.Mode `json:"learningType"`
	Count   int           `json:"count"`
}

// GenerateTopics asks the service for count fresh topics.
func (c *Client) GenerateTopics(ctx context.Context, subject string, mode learning.Mode, count int) ([]learning.Topic, error) {
	req := generateTopicsRequest{Subject: subject, Mode: mode, Count: count}

	var resp topicsResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate-topics", nil, req, topicsSchema, &resp); err != nil {
		return nil, err
	}
	if len(resp.Topics) == 0 {
		return nil, fmt.Errorf("generate topics for %s: %w: empty topic list", subject, learning.ErrValidation)
	}
	for i := range resp.Topics {
		if resp.Topics[i].Mode == "" {
			resp.Topics[i].Mode = mode
		}
	}
	return resp.Topics, nil
}
