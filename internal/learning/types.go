package learning

import (
	"strings"
	"time"
)

// Section is one block of text-mode material.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"content"`
}

// VisualElement is one diagram, chart or illustration description.
type VisualElement struct {
	Kind        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
}

// MediaLink points at related external media.
type MediaLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Kind  string `json:"type,omitempty"`
}

// ContentUnit is generated material for one (subject, topic, mode) triple.
// Units are never patched; regeneration produces a new unit.
type ContentUnit struct {
	Subject        string          `json:"subject"`
	Topic          string          `json:"topic"`
	Mode           Mode            `json:"learningMode"`
	Difficulty     string          `json:"difficulty,omitempty"`
	Title          string          `json:"title,omitempty"`
	Sections       []Section       `json:"sections,omitempty"`
	VisualElements []VisualElement `json:"visualElements,omitempty"`
	AudioScript    string          `json:"audioScript,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	RelatedMedia   []MediaLink     `json:"relatedMedia,omitempty"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

// Text flattens the mode-specific payload into plain text so a quiz can be
// grounded in what the learner was shown.
func (c ContentUnit) Text() string {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteString("\n\n")
	}
	for _, s := range c.Sections {
		if s.Title != "" {
			b.WriteString(s.Title)
			b.WriteString("\n")
		}
		b.WriteString(s.Body)
		b.WriteString("\n\n")
	}
	for _, v := range c.VisualElements {
		if v.Title != "" {
			b.WriteString(v.Title)
			b.WriteString(": ")
		}
		b.WriteString(v.Description)
		b.WriteString("\n")
	}
	if c.AudioScript != "" {
		b.WriteString(c.AudioScript)
		b.WriteString("\n")
	}
	if c.Summary != "" {
		b.WriteString("\nSummary: ")
		b.WriteString(c.Summary)
	}
	return strings.TrimSpace(b.String())
}

// Topic belongs to a subject and carries the mode it was generated under.
type Topic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Mode        Mode      `json:"learningType"`
	Difficulty  string    `json:"difficulty,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TopicSet is the result of topic resolution.
type TopicSet struct {
	Subject  string  `json:"subject"`
	Topics   []Topic `json:"topics"`
	Mode     Mode    `json:"learningType"`
	IsShared bool    `json:"isShared"`
}

// Question is one multiple-choice quiz item.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
	Points        int      `json:"points,omitempty"`
}

// Quiz is generated for one (subject, topic, mode).
type Quiz struct {
	Subject     string     `json:"subject"`
	Topic       string     `json:"topic"`
	Mode        Mode       `json:"learningMode"`
	Difficulty  string     `json:"difficulty,omitempty"`
	Questions   []Question `json:"questions"`
	TotalPoints int        `json:"totalPoints"`
	Grounded    bool       `json:"grounded"`
}

// EngagementSignals are exposure measurements taken while learning.
type EngagementSignals struct {
	ReadingTimeSeconds int `json:"readingTimeSeconds"`
	AudioPlayCount     int `json:"audioPlayCount"`
}

// Response is the graded answer to one question.
type Response struct {
	QuestionID    string `json:"questionId"`
	QuestionText  string `json:"questionText"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Explanation   string `json:"explanation,omitempty"`
}

// ExcelThreshold is the score at or above which a learner excels.
const ExcelThreshold = 80.0

// QuizAttempt is one submitted quiz. Immutable once persisted.
type QuizAttempt struct {
	Subject        string            `json:"subject"`
	Topic          string            `json:"topic"`
	Mode           Mode              `json:"learningMode"`
	Difficulty     string            `json:"difficulty,omitempty"`
	TotalQuestions int               `json:"totalQuestions"`
	CorrectAnswers int               `json:"correctAnswers"`
	Score          float64           `json:"score"`
	Responses      []Response        `json:"responses"`
	Engagement     EngagementSignals `json:"engagement"`
	CompletedAt    time.Time         `json:"completedAt"`
}

// Excels reports whether the attempt reached the excel threshold.
func (a QuizAttempt) Excels() bool {
	return a.Score >= ExcelThreshold
}

// ModeStats aggregates attempt history for one mode.
type ModeStats struct {
	TotalSessions int     `json:"totalSessions"`
	TotalScore    float64 `json:"totalScore"`
	AvgFocus      float64 `json:"avgFocus"`
}

// ModeRecommendation is server-computed guidance; it is never cached locally.
type ModeRecommendation struct {
	RecommendedMode    Mode               `json:"recommendedMode"`
	BestPerformingMode Mode               `json:"bestPerformingMode"`
	Confidence         float64            `json:"confidence"`
	Reasoning          string             `json:"reasoning"`
	PerModeStats       map[Mode]ModeStats `json:"modeStats"`
}

// NextMode returns the recommended mode, or DefaultMode when rec is nil or
// carries no usable suggestion.
func NextMode(rec *ModeRecommendation) Mode {
	if rec == nil || !rec.RecommendedMode.Valid() {
		return DefaultMode
	}
	return rec.RecommendedMode
}

// CompletionStatus reports whether a subject has been assessed in every mode.
type CompletionStatus struct {
	Subject        string `json:"subject"`
	Completed      bool   `json:"completed"`
	CompletedModes []Mode `json:"completedTypes"`
	AllScoresZero  bool   `json:"allScoresZero"`
}

// MissingModes lists the modes still lacking an attempt, in AllModes order.
func (s CompletionStatus) MissingModes() []Mode {
	done := make(map[Mode]bool, len(s.CompletedModes))
	for _, m := range s.CompletedModes {
		done[m] = true
	}
	var missing []Mode
	for _, m := range AllModes {
		if !done[m] {
			missing = append(missing, m)
		}
	}
	return missing
}

// Activity is a raw engagement or quiz activity log entry.
type Activity struct {
	Type       string            `json:"type"`
	Subject    string            `json:"subject"`
	Topic      string            `json:"topic"`
	Mode       Mode              `json:"learningMode"`
	Engagement EngagementSignals `json:"engagement"`
	Score      *float64          `json:"score,omitempty"`
	RecordedAt time.Time         `json:"timestamp"`
}

// Activity types posted to the activity log.
const (
	ActivityEngagement = "engagement"
	ActivityQuiz       = "quiz"
)
