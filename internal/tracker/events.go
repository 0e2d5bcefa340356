package tracker

import "strings"

// Action is what a recognized upstream message does to a task.
type Action int

const (
	ActionStart Action = iota
	ActionComplete
	ActionFail
)

// Event is one recognized upstream signal, already resolved to a task and a
// transition.
type Event struct {
	Code   string
	Task   TaskType
	Action Action
}

// messagePhrases is the closed set of upstream status phrases the tracker
// understands. Matching is ordered: earlier entries win, so the more
// specific "related questions" phrases sit above the plain "questions"
// ones. Anything not in this table is a no-op, never an error.
var messagePhrases = []struct {
	phrase string
	event  Event
}{
	{"lessons ready", Event{"lessons_ready", TaskLessons, ActionComplete}},
	{"lessons complete", Event{"lessons_ready", TaskLessons, ActionComplete}},
	{"generating lessons", Event{"lessons_started", TaskLessons, ActionStart}},
	{"lessons taking longer", Event{"lessons_slow", TaskLessons, ActionFail}},
	{"lessons may take longer", Event{"lessons_slow", TaskLessons, ActionFail}},

	{"related questions ready", Event{"related_questions_ready", TaskRelatedQuestions, ActionComplete}},
	{"questions ready", Event{"related_questions_ready", TaskRelatedQuestions, ActionComplete}},
	{"generating related questions", Event{"related_questions_started", TaskRelatedQuestions, ActionStart}},
	{"questions may take longer", Event{"related_questions_slow", TaskRelatedQuestions, ActionFail}},

	{"flashcards ready", Event{"flashcards_ready", TaskFlashcards, ActionComplete}},
	{"generating flashcards", Event{"flashcards_started", TaskFlashcards, ActionStart}},
	{"flashcards may take longer", Event{"flashcards_slow", TaskFlashcards, ActionFail}},

	{"quiz ready", Event{"quiz_ready", TaskQuiz, ActionComplete}},
	{"generating quiz", Event{"quiz_started", TaskQuiz, ActionStart}},
	{"quiz may take longer", Event{"quiz_slow", TaskQuiz, ActionFail}},
}

// ParseMessage maps a free-text upstream status message onto a recognized
// event. The second return is false for anything outside the closed set.
func ParseMessage(message string) (Event, bool) {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return Event{}, false
	}
	for _, entry := range messagePhrases {
		if strings.Contains(lower, entry.phrase) {
			return entry.event, true
		}
	}
	return Event{}, false
}
