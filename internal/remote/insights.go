package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

type recommendationResponse struct {
	Recommendation learning.ModeRecommendation `json:"recommendation"`
}

// RecommendMode fetches the scored mode recommendation for subject.
func (c *Client) RecommendMode(ctx context.Context, subject string) (learning.ModeRecommendation, error) {
	q := url.Values{"subject": {subject}}

	var resp recommendationResponse
	if err := c.do(ctx, http.MethodGet, "/api/ml/recommend-mode", q, nil, recommendationSchema, &resp); err != nil {
		return learning.ModeRecommendation{}, err
	}
	return resp.Recommendation, nil
}

// LearningTypesCheck is the service's per-mode assessment summary.
type LearningTypesCheck struct {
	Completed      bool                                 `json:"completed"`
	AllScoresZero  bool                                 `json:"allScoresZero"`
	CompletedTypes []learning.Mode                      `json:"completedTypes"`
	TypeScores     map[learning.Mode]learning.ModeStats `json:"typeScores"`
}

// CheckLearningTypes returns which modes have been assessed for subject.
func (c *Client) CheckLearningTypes(ctx context.Context, subject string) (LearningTypesCheck, error) {
	q := url.Values{"subject": {subject}}

	var resp LearningTypesCheck
	if err := c.do(ctx, http.MethodGet, "/api/learning-types/check", q, nil, checkSchema, &resp); err != nil {
		return LearningTypesCheck{}, err
	}
	return resp, nil
}
