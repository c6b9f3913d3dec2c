package assessment_test

import (
	"testing"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/assessment"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

func fiveQuestionQuiz() learning.Quiz {
	q := learning.Quiz{Subject: "science", Topic: "cells", Mode: learning.ModeVisual}
	for i, ans := range []string{"Nucleus", "Mitochondria", "Ribosome", "Membrane", "Cytoplasm"} {
		q.Questions = append(q.Questions, learning.Question{
			ID:            string(rune('a' + i)),
			Text:          "Which organelle?",
			CorrectAnswer: ans,
		})
	}
	return q
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]string
		correct int
		score   float64
		excels  bool
	}{
		{
			name:    "all correct",
			answers: map[string]string{"a": "Nucleus", "b": "Mitochondria", "c": "Ribosome", "d": "Membrane", "e": "Cytoplasm"},
			correct: 5, score: 100, excels: true,
		},
		{
			name:    "four of five reaches threshold",
			answers: map[string]string{"a": "Nucleus", "b": "Mitochondria", "c": "Ribosome", "d": "Membrane"},
			correct: 4, score: 80, excels: true,
		},
		{
			name:    "case differs",
			answers: map[string]string{"a": "nucleus", "b": "Mitochondria", "c": "Ribosome", "d": "Membrane", "e": "Cytoplasm"},
			correct: 4, score: 80, excels: true,
		},
		{
			name:    "whitespace differs",
			answers: map[string]string{"a": "Nucleus ", "b": " Mitochondria", "c": "Ribosome", "d": "Membrane", "e": "Cytoplasm"},
			correct: 3, score: 60, excels: false,
		},
		{
			name:    "nothing answered",
			answers: nil,
			correct: 0, score: 0, excels: false,
		},
	}

	completed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	signals := learning.EngagementSignals{ReadingTimeSeconds: 42}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assessment.Grade(fiveQuestionQuiz(), tt.answers, signals, completed)
			if got.CorrectAnswers != tt.correct {
				t.Errorf("CorrectAnswers = %d, want %d", got.CorrectAnswers, tt.correct)
			}
			if got.Score != tt.score {
				t.Errorf("Score = %v, want %v", got.Score, tt.score)
			}
			if got.Excels() != tt.excels {
				t.Errorf("Excels() = %v, want %v", got.Excels(), tt.excels)
			}
			if got.TotalQuestions != 5 || len(got.Responses) != 5 {
				t.Errorf("TotalQuestions = %d, responses = %d, want 5", got.TotalQuestions, len(got.Responses))
			}
			if got.Engagement != signals {
				t.Errorf("Engagement = %+v, want %+v", got.Engagement, signals)
			}
			if !got.CompletedAt.Equal(completed) {
				t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completed)
			}
		})
	}
}

func TestGrade_ResponsesKeepQuestionOrder(t *testing.T) {
	got := assessment.Grade(fiveQuestionQuiz(), map[string]string{"b": "Mitochondria"}, learning.EngagementSignals{}, time.Time{})
	for i, r := range got.Responses {
		if want := string(rune('a' + i)); r.QuestionID != want {
			t.Errorf("Responses[%d].QuestionID = %q, want %q", i, r.QuestionID, want)
		}
	}
	if !got.Responses[1].IsCorrect || got.Responses[0].IsCorrect {
		t.Errorf("responses = %+v, only b should be correct", got.Responses)
	}
	if got.Responses[0].UserAnswer != "" {
		t.Errorf("unanswered UserAnswer = %q, want empty", got.Responses[0].UserAnswer)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		correct, total int
		want           float64
		excels         bool
	}{
		{0, 0, 0, false},
		{1, 3, 100.0 / 3, false},
		{4, 5, 80, true},
		{79999, 100000, 79.999, false},
		{3, 3, 100, true},
	}
	for _, tt := range tests {
		got := assessment.Score(tt.correct, tt.total)
		if got != tt.want {
			t.Errorf("Score(%d, %d) = %v, want %v", tt.correct, tt.total, got, tt.want)
		}
		if a := (learning.QuizAttempt{Score: got}); a.Excels() != tt.excels {
			t.Errorf("Score %v excels = %v, want %v", got, a.Excels(), tt.excels)
		}
	}
}
