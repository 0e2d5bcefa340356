package tracker

import "time"

// TaskType names one stage of the content-generation pipeline.
type TaskType string

const (
	TaskLessons          TaskType = "lessons"
	TaskRelatedQuestions TaskType = "related_questions"
	TaskFlashcards       TaskType = "flashcards"
	TaskQuiz             TaskType = "quiz"
)

// TaskTypes lists the pipeline stages in declared order.
var TaskTypes = []TaskType{TaskLessons, TaskRelatedQuestions, TaskFlashcards, TaskQuiz}

// Status is the per-task state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task is one pipeline stage of one generation run.
type Task struct {
	Type        TaskType      `json:"type"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	Progress    int           `json:"progress"`
	StartedAt   time.Time     `json:"started_at,omitzero"`
	CompletedAt time.Time     `json:"completed_at,omitzero"`
	Err         string        `json:"error,omitempty"`
	Estimated   time.Duration `json:"estimated,omitempty"`
}

// Snapshot is a consistent copy of one run's state, safe to hand to the UI.
type Snapshot struct {
	RunID       string    `json:"run_id"`
	Tasks       []Task    `json:"tasks"`
	Overall     int       `json:"overall"`
	Done        bool      `json:"done"`
	HasErrors   bool      `json:"has_errors"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// taskMeta is the static description of each stage, including the estimate
// simulated progress drifts against.
var taskMeta = map[TaskType]struct {
	name        string
	description string
	estimated   time.Duration
}{
	TaskLessons:          {"Lessons", "Generating the lesson sequence", 25 * time.Second},
	TaskRelatedQuestions: {"Related questions", "Finding follow-up questions", 15 * time.Second},
	TaskFlashcards:       {"Flashcards", "Building flashcards from lesson content", 35 * time.Second},
	TaskQuiz:             {"Quiz", "Writing the quiz for each lesson", 45 * time.Second},
}

// dependencies is display-only metadata: the UI shows "waiting for X" from
// it, but the upstream generator may finish stages in any order, so no
// transition ever checks it.
var dependencies = map[TaskType][]TaskType{
	TaskFlashcards: {TaskLessons},
	TaskQuiz:       {TaskFlashcards},
}
