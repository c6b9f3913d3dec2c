// Package report renders attempt history as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// Sheet names in the exported workbook.
const (
	AttemptsSheet  = "Attempts"
	ResponsesSheet = "Responses"
)

var (
	attemptHeader = []any{
		"Attempt", "Subject", "Topic", "Mode", "Difficulty", "Questions", "Correct",
		"Score", "Excels", "Reading Time (s)", "Audio Plays", "Completed At",
	}
	responseHeader = []any{
		"Attempt", "Question ID", "Question", "Answer", "Correct Answer", "Correct",
	}
)

// WriteAttempts writes one row per attempt to the Attempts sheet and one row
// per graded response to the Responses sheet. Attempts are numbered from 1
// in the order given.
func WriteAttempts(w io.Writer, attempts []learning.QuizAttempt) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AttemptsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ResponsesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := setRow(f, AttemptsSheet, 1, attemptHeader); err != nil {
		return err
	}
	if err := setRow(f, ResponsesSheet, 1, responseHeader); err != nil {
		return err
	}

	responseRow := 2
	for i, a := range attempts {
		n := i + 1
		completed := ""
		if !a.CompletedAt.IsZero() {
			completed = a.CompletedAt.UTC().Format(time.RFC3339)
		}
		row := []any{
			n, a.Subject, a.Topic, string(a.Mode), a.Difficulty,
			a.TotalQuestions, a.CorrectAnswers, a.Score, a.Excels(),
			a.Engagement.ReadingTimeSeconds, a.Engagement.AudioPlayCount, completed,
		}
		if err := setRow(f, AttemptsSheet, n+1, row); err != nil {
			return err
		}

		for _, r := range a.Responses {
			row := []any{n, r.QuestionID, r.QuestionText, r.UserAnswer, r.CorrectAnswer, r.IsCorrect}
			if err := setRow(f, ResponsesSheet, responseRow, row); err != nil {
				return err
			}
			responseRow++
		}
	}

	if err := f.SetPanes(AttemptsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
