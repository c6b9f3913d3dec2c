package remote

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

type saveQuizRequest struct {
	Subject            string              `json:"subject"`
	Topic              string              `json:"topic"`
	Mode               learning.Mode       `json:"learningMode"`
	Difficulty         string              `json:"difficulty,omitempty"`
	TotalQuestions     int                 `json:"totalQuestions"`
	CorrectAnswers     int                 `json:"correctAnswers"`
	Score              float64             `json:"score"`
	Responses          []learning.Response `json:"responses"`
	ReadingTimeSeconds int                 `json:"readingTimeSeconds"`
	AudioPlayCount     int                 `json:"audioPlayCount"`
	CompletedAt        time.Time           `json:"completedAt"`
}

// SaveQuizResult persists a graded attempt.
func (c *Client) SaveQuizResult(ctx context.Context, a learning.QuizAttempt) error {
	req := saveQuizRequest{
		Subject:            a.Subject,
		Topic:              a.Topic,
		Mode:               a.Mode,
		Difficulty:         a.Difficulty,
		TotalQuestions:     a.TotalQuestions,
		CorrectAnswers:     a.CorrectAnswers,
		Score:              a.Score,
		Responses:          a.Responses,
		ReadingTimeSeconds: a.Engagement.ReadingTimeSeconds,
		AudioPlayCount:     a.Engagement.AudioPlayCount,
		CompletedAt:        a.CompletedAt,
	}
	return c.do(ctx, http.MethodPost, "/api/quiz/save", nil, req, nil, nil)
}

type latestResponse struct {
	Result struct {
		Mode           learning.Mode `json:"learningMode"`
		Difficulty     string        `json:"difficulty"`
		TotalQuestions int           `json:"totalQuestions"`
		CorrectAnswers int           `json:"correctAnswers"`
		Score          float64       `json:"score"`
		CompletedAt    time.Time     `json:"completedAt"`
	} `json:"result"`
	Responses []learning.Response `json:"responses"`
}

// LatestQuiz returns the most recent attempt for subject and topic, or
// learning.ErrNotFound.
func (c *Client) LatestQuiz(ctx context.Context, subject, topic string) (learning.QuizAttempt, error) {
	q := url.Values{"subject": {subject}, "topic": {topic}}

	var resp latestResponse
	if err := c.do(ctx, http.MethodGet, "/api/quiz/latest", q, nil, latestSchema, &resp); err != nil {
		return learning.QuizAttempt{}, err
	}

	return learning.QuizAttempt{
		Subject:        subject,
		Topic:          topic,
		Mode:           resp.Result.Mode,
		Difficulty:     resp.Result.Difficulty,
		TotalQuestions: resp.Result.TotalQuestions,
		CorrectAnswers: resp.Result.CorrectAnswers,
		Score:          resp.Result.Score,
		Responses:      resp.Responses,
		CompletedAt:    resp.Result.CompletedAt,
	}, nil
}

// LogActivity posts a raw activity entry.
func (c *Client) LogActivity(ctx context.Context, a learning.Activity) error {
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now()
	}
	return c.do(ctx, http.MethodPost, "/activity", nil, a, nil, nil)
}
