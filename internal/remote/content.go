package remote

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// ContentRequest identifies the unit of material to generate.
type ContentRequest struct {
	Subject    string        `json:"subject"`
	Topic      string        `json:"topic"`
	Mode       learning.Mode `json:"learningMode"`
	Difficulty string        `json:"difficulty,omitempty"`
}

type contentResponse struct {
	Content learning.ContentUnit `json:"content"`
}

// GenerateContent asks the service for new material for one triple.
func (c *Client) GenerateContent(ctx context.Context, req ContentRequest) (learning.ContentUnit, error) {
	var resp contentResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate-content-for-mode", nil, req, contentSchema, &resp); err != nil {
		return learning.ContentUnit{}, err
	}

	unit := resp.Content
	unit.Subject = req.Subject
	unit.Topic = req.Topic
	unit.Mode = req.Mode
	if unit.Difficulty == "" {
		unit.Difficulty = req.Difficulty
	}
	return unit, nil
}

// QuizRequest asks for a quiz. Content is the delivered material used to
// ground the questions; it may be empty.
type QuizRequest struct {
	Subject       string        `json:"subject"`
	Topic         string        `json:"topic"`
	Mode          learning.Mode `json:"learningMode"`
	Difficulty    string        `json:"difficulty,omitempty"`
	Content       string        `json:"content,omitempty"`
	QuestionCount int           `json:"questionCount,omitempty"`
}

type quizResponse struct {
	Quiz struct {
		Questions   []learning.Question `json:"questions"`
		TotalPoints int                 `json:"totalPoints"`
	} `json:"quiz"`
	Mode learning.Mode `json:"learningMode"`
}

// GenerateQuiz asks the service for a quiz.
func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) (learning.Quiz, error) {
	var resp quizResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate-quiz", nil, req, quizSchema, &resp); err != nil {
		return learning.Quiz{}, err
	}

	quiz := learning.Quiz{
		Subject:     req.Subject,
		Topic:       req.Topic,
		Mode:        req.Mode,
		Difficulty:  req.Difficulty,
		Questions:   resp.Quiz.Questions,
		TotalPoints: resp.Quiz.TotalPoints,
		Grounded:    req.Content != "",
	}
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = questionID(i)
		}
	}
	return quiz, nil
}

func questionID(i int) string {
	return "q" + strconv.Itoa(i+1)
}
