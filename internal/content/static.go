package content

import (
	"context"
	"strconv"
	"sync"
)

// StaticGenerator serves preloaded content from memory, returning
// ErrNotReady for any stage that has not been published yet. It stands in
// for the remote generator during tests and offline UI development.
type StaticGenerator struct {
	mu sync.Mutex

	nextRun  int
	lessons  map[string][]Lesson
	related  map[string][]RelatedQuestion
	cards    map[string]map[int][]Flashcard
	quizzes  map[string]map[int]*Quiz
	progress ProgressFunc
}

func NewStaticGenerator(progress ProgressFunc) *StaticGenerator {
	return &StaticGenerator{
		lessons:  make(map[string][]Lesson),
		related:  make(map[string][]RelatedQuestion),
		cards:    make(map[string]map[int][]Flashcard),
		quizzes:  make(map[string]map[int]*Quiz),
		progress: progress,
	}
}

func (g *StaticGenerator) SubmitQuery(_ context.Context, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextRun++
	return runID(g.nextRun), nil
}

// PublishLessons makes the lessons stage ready and emits the matching
// progress message.
func (g *StaticGenerator) PublishLessons(run string, lessons []Lesson) {
	g.mu.Lock()
	g.lessons[run] = lessons
	g.mu.Unlock()
	g.emit("lessons ready")
}

func (g *StaticGenerator) PublishRelatedQuestions(run string, questions []RelatedQuestion) {
	g.mu.Lock()
	g.related[run] = questions
	g.mu.Unlock()
	g.emit("related questions ready")
}

func (g *StaticGenerator) PublishFlashcards(run string, lessonIndex int, cards []Flashcard) {
	g.mu.Lock()
	if g.cards[run] == nil {
		g.cards[run] = make(map[int][]Flashcard)
	}
	g.cards[run][lessonIndex] = cards
	g.mu.Unlock()
	g.emit("flashcards ready")
}

func (g *StaticGenerator) PublishQuiz(run string, lessonIndex int, quiz *Quiz) {
	g.mu.Lock()
	if g.quizzes[run] == nil {
		g.quizzes[run] = make(map[int]*Quiz)
	}
	g.quizzes[run][lessonIndex] = quiz
	g.mu.Unlock()
	g.emit("quiz ready")
}

func (g *StaticGenerator) Lessons(_ context.Context, run string) ([]Lesson, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	lessons, ok := g.lessons[run]
	if !ok {
		return nil, ErrNotReady
	}
	return lessons, nil
}

func (g *StaticGenerator) RelatedQuestions(_ context.Context, run string) ([]RelatedQuestion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	questions, ok := g.related[run]
	if !ok {
		return nil, ErrNotReady
	}
	return questions, nil
}

func (g *StaticGenerator) Flashcards(_ context.Context, run string, lessonIndex int) ([]Flashcard, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cards, ok := g.cards[run][lessonIndex]
	if !ok {
		return nil, ErrNotReady
	}
	return cards, nil
}

func (g *StaticGenerator) Quiz(_ context.Context, run string, lessonIndex int) (*Quiz, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	quiz, ok := g.quizzes[run][lessonIndex]
	if !ok {
		return nil, ErrNotReady
	}
	return quiz, nil
}

func (g *StaticGenerator) emit(message string) {
	if g.progress != nil {
		g.progress(message)
	}
}

func runID(n int) string {
	return "run-" + strconv.Itoa(n)
}
