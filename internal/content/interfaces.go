// Package content defines the contracts for the remote content-generation
// collaborator. The core only tracks and reconciles what the generator
// produces; transport, retries, and timeouts live on the other side of
// these interfaces.
package content

import (
	"context"
	"errors"
)

// ErrNotReady distinguishes "the stage has not completed yet" from a real
// failure. Every probe returns it until its stage finishes.
var ErrNotReady = errors.New("content: not ready yet")

// Generator is the remote generation collaborator: one submitted query
// yields a run, and each pipeline stage is probed independently.
type Generator interface {
	SubmitQuery(ctx context.Context, text string) (runID string, err error)
	Lessons(ctx context.Context, runID string) ([]Lesson, error)
	RelatedQuestions(ctx context.Context, runID string) ([]RelatedQuestion, error)
	Flashcards(ctx context.Context, runID string, lessonIndex int) ([]Flashcard, error)
	Quiz(ctx context.Context, runID string, lessonIndex int) (*Quiz, error)
}

// ProgressFunc receives the generator's free-text status messages. The
// tracker maps them onto its closed event set; unrecognized messages are
// dropped there.
type ProgressFunc func(message string)

// Lesson is one step of a generated lesson sequence.
type Lesson struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Summary string `json:"summary,omitempty"`
}

// RelatedQuestion is a follow-up question suggested for a run.
type RelatedQuestion struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// Flashcard is one card generated for a lesson step.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"`
}

// Quiz is the generated quiz for one lesson step.
type Quiz struct {
	LessonIndex int            `json:"lesson_index"`
	Questions   []QuizQuestion `json:"questions"`
}
