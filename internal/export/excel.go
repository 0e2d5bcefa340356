// Package export writes the user's study data to an xlsx workbook. It is a
// side-effecting convenience for the desktop shell; progress tracking never
// depends on it.
package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"learnloop/internal/progress"
	"learnloop/internal/stats"
)

const (
	sheetTopics  = "Topics"
	sheetQuizzes = "Quiz Results"
	sheetSummary = "Summary"
)

// Report bundles everything one export writes.
type Report struct {
	Topics  []progress.Topic
	Results []progress.QuizResult
	Stats   stats.UserStats
}

// WriteReport renders the report to path, one sheet per section.
func WriteReport(ctx context.Context, path string, report Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetTopics); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if err := writeTopics(f, report.Topics); err != nil {
		return err
	}
	if err := writeResults(f, report.Results); err != nil {
		return err
	}
	if err := writeSummary(f, report.Stats); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func writeTopics(f *excelize.File, topics []progress.Topic) error {
	headers := []string{"Title", "Category", "Completed", "Total", "Progress %", "Created", "Last accessed"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetTopics, cell, header); err != nil {
			return fmt.Errorf("export: topics header: %w", err)
		}
	}
	for row, topic := range topics {
		values := []any{
			topic.Title,
			topic.Category,
			len(topic.CompletedLessons),
			topic.TotalLessons,
			topic.ProgressPercent(),
			topic.CreatedAt.Format("2006-01-02 15:04"),
			topic.LastAccessedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetTopics, cell, value); err != nil {
				return fmt.Errorf("export: topic row %d: %w", row+1, err)
			}
		}
	}
	return nil
}

func writeResults(f *excelize.File, results []progress.QuizResult) error {
	if _, err := f.NewSheet(sheetQuizzes); err != nil {
		return fmt.Errorf("export: quiz sheet: %w", err)
	}
	headers := []string{"Topic", "Score", "Correct", "Total", "Lesson", "Taken at"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetQuizzes, cell, header); err != nil {
			return fmt.Errorf("export: quiz header: %w", err)
		}
	}
	for row, result := range results {
		values := []any{
			result.TopicTitle,
			result.Score,
			result.Correct,
			result.Total,
			result.LessonIndex,
			result.TakenAt.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetQuizzes, cell, value); err != nil {
				return fmt.Errorf("export: quiz row %d: %w", row+1, err)
			}
		}
	}
	return nil
}

func writeSummary(f *excelize.File, userStats stats.UserStats) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("export: summary sheet: %w", err)
	}
	rows := []struct {
		label string
		value any
	}{
		{"Topics explored", userStats.TopicsExplored},
		{"Steps completed", userStats.StepsCompleted},
		{"Quizzes taken", userStats.QuizzesTaken},
		{"Average score", userStats.AverageScore},
		{"Study minutes", userStats.StudyMinutes},
		{"Current streak", userStats.Streak},
	}
	for i, row := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(sheetSummary, labelCell, row.label); err != nil {
			return fmt.Errorf("export: summary: %w", err)
		}
		if err := f.SetCellValue(sheetSummary, valueCell, row.value); err != nil {
			return fmt.Errorf("export: summary: %w", err)
		}
	}
	return nil
}
