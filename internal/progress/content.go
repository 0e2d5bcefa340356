package progress

import (
	"context"
	"encoding/json"

	"learnloop/internal/content"
	"learnloop/internal/store"
)

// Generated content is persisted per run so the app stays usable offline:
// lessons under the run's queryID, flashcards and quizzes under
// (queryID, lessonIndex). All of it hangs off the run and is removed by the
// topic's deletion cascade. The same swallow policy as elsewhere applies:
// failed writes are logged and dropped, failed reads come back empty.

// SaveLessons persists the generated lesson sequence for a run.
func (r *Reconciler) SaveLessons(ctx context.Context, queryID string, lessons []content.Lesson) {
	if queryID == "" || len(lessons) == 0 {
		return
	}
	payload, err := json.Marshal(lessons)
	if err != nil {
		return
	}
	putErr := r.store.Put(ctx, store.PartitionExplanations, store.Record{
		ID:        queryID,
		QueryID:   queryID,
		CreatedAt: r.now(),
		Payload:   payload,
	})
	if putErr != nil {
		r.log.Warn("lessons write dropped", "query", queryID, "err", putErr)
	}
}

// Lessons returns the stored lesson sequence for a run, nil when none was
// persisted.
func (r *Reconciler) Lessons(ctx context.Context, queryID string) []content.Lesson {
	rec, err := r.store.GetByID(ctx, store.PartitionExplanations, queryID)
	if err != nil || rec == nil {
		return nil
	}
	var lessons []content.Lesson
	if err := json.Unmarshal(rec.Payload, &lessons); err != nil {
		return nil
	}
	return lessons
}

// SaveFlashcards persists the cards generated for one lesson step.
func (r *Reconciler) SaveFlashcards(ctx context.Context, queryID string, lessonIndex int, cards []content.Flashcard) {
	if queryID == "" || len(cards) == 0 {
		return
	}
	payload, err := json.Marshal(cards)
	if err != nil {
		return
	}
	putErr := r.store.Put(ctx, store.PartitionFlashcards, store.Record{
		ID:        lessonStepID(queryID, lessonIndex),
		QueryID:   queryID,
		CreatedAt: r.now(),
		Payload:   payload,
	})
	if putErr != nil {
		r.log.Warn("flashcards write dropped", "query", queryID, "lesson", lessonIndex, "err", putErr)
	}
}

// Flashcards returns the stored cards for one lesson step.
func (r *Reconciler) Flashcards(ctx context.Context, queryID string, lessonIndex int) []content.Flashcard {
	rec, err := r.store.GetByID(ctx, store.PartitionFlashcards, lessonStepID(queryID, lessonIndex))
	if err != nil || rec == nil {
		return nil
	}
	var cards []content.Flashcard
	if err := json.Unmarshal(rec.Payload, &cards); err != nil {
		return nil
	}
	return cards
}

// SaveQuiz persists the generated quiz for one lesson step. Distinct from
// SaveQuizResult, which records the user's attempt at it.
func (r *Reconciler) SaveQuiz(ctx context.Context, queryID string, quiz *content.Quiz) {
	if queryID == "" || quiz == nil {
		return
	}
	payload, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	putErr := r.store.Put(ctx, store.PartitionQuizzes, store.Record{
		ID:        lessonStepID(queryID, quiz.LessonIndex),
		QueryID:   queryID,
		CreatedAt: r.now(),
		Payload:   payload,
	})
	if putErr != nil {
		r.log.Warn("quiz write dropped", "query", queryID, "lesson", quiz.LessonIndex, "err", putErr)
	}
}

// Quiz returns the stored quiz for one lesson step, nil when none was
// persisted.
func (r *Reconciler) Quiz(ctx context.Context, queryID string, lessonIndex int) *content.Quiz {
	rec, err := r.store.GetByID(ctx, store.PartitionQuizzes, lessonStepID(queryID, lessonIndex))
	if err != nil || rec == nil {
		return nil
	}
	var quiz content.Quiz
	if err := json.Unmarshal(rec.Payload, &quiz); err != nil {
		return nil
	}
	return &quiz
}
