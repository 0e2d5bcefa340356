package content

import (
	"context"
	"errors"
	"testing"
)

func TestStaticGeneratorProbesUntilReady(t *testing.T) {
	var messages []string
	g := NewStaticGenerator(func(msg string) { messages = append(messages, msg) })
	ctx := context.Background()

	run, err := g.SubmitQuery(ctx, "How does rain form?")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := g.Lessons(ctx, run); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady before publish, got %v", err)
	}
	if _, err := g.Flashcards(ctx, run, 0); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady for flashcards, got %v", err)
	}

	g.PublishLessons(run, []Lesson{{Index: 0, Title: "Evaporation"}})
	lessons, err := g.Lessons(ctx, run)
	if err != nil {
		t.Fatalf("lessons after publish: %v", err)
	}
	if len(lessons) != 1 || lessons[0].Title != "Evaporation" {
		t.Fatalf("unexpected lessons: %#v", lessons)
	}

	g.PublishQuiz(run, 0, &Quiz{LessonIndex: 0, Questions: []QuizQuestion{{Prompt: "?"}}})
	quiz, err := g.Quiz(ctx, run, 0)
	if err != nil || quiz == nil {
		t.Fatalf("quiz after publish: %v", err)
	}

	// Other runs stay isolated.
	if _, err := g.Lessons(ctx, "run-999"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("foreign run leaked content")
	}

	if len(messages) != 2 || messages[0] != "lessons ready" || messages[1] != "quiz ready" {
		t.Fatalf("progress messages: %#v", messages)
	}
}
