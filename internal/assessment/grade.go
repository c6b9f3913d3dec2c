package assessment

import (
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// Grade scores answers against quiz. A response is correct only when the
// answer matches the expected answer exactly; there is no trimming or case
// folding. Unanswered questions count as wrong.
func Grade(quiz learning.Quiz, answers map[string]string, signals learning.EngagementSignals, completedAt time.Time) learning.QuizAttempt {
	responses := make([]learning.Response, 0, len(quiz.Questions))
	correct := 0
	for _, q := range quiz.Questions {
		answer := answers[q.ID]
		ok := answer == q.CorrectAnswer
		if ok {
			correct++
		}
		responses = append(responses, learning.Response{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     ok,
			Explanation:   q.Explanation,
		})
	}

	return learning.QuizAttempt{
		Subject:        quiz.Subject,
		Topic:          quiz.Topic,
		Mode:           quiz.Mode,
		Difficulty:     quiz.Difficulty,
		TotalQuestions: len(quiz.Questions),
		CorrectAnswers: correct,
		Score:          Score(correct, len(quiz.Questions)),
		Responses:      responses,
		Engagement:     signals,
		CompletedAt:    completedAt,
	}
}

// Score is the percentage of correct answers. An empty quiz scores zero.
func Score(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}
