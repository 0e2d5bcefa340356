package progress

import (
	"sort"
	"time"
)

// Topic is one logical subject the user is studying. CompletedLessons is an
// ordered set of lesson indices; TotalLessons stays 0 until the first
// generated content reports a count.
type Topic struct {
	ID               string    `json:"id"`
	QueryID          string    `json:"query_id,omitempty"`
	Title            string    `json:"title"`
	Category         string    `json:"category,omitempty"`
	CompletedLessons []int     `json:"completed_lessons,omitempty"`
	TotalLessons     int       `json:"total_lessons,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	LastAccessedAt   time.Time `json:"last_accessed_at"`
	IsUserQuery      bool      `json:"is_user_query"`
}

// ProgressPercent is completed over total, 0 when the total is unknown.
func (t Topic) ProgressPercent() int {
	if t.TotalLessons <= 0 {
		return 0
	}
	pct := len(t.CompletedLessons) * 100 / t.TotalLessons
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (t *Topic) markLessonCompleted(index int) {
	for _, existing := range t.CompletedLessons {
		if existing == index {
			return
		}
	}
	t.CompletedLessons = append(t.CompletedLessons, index)
	sort.Ints(t.CompletedLessons)
}

// LessonRecord tracks one lesson step of one generation run, keyed
// (queryID, lessonIndex). CompletedAt is set once and never cleared.
type LessonRecord struct {
	QueryID        string    `json:"query_id"`
	LessonIndex    int       `json:"lesson_index"`
	Completed      bool      `json:"completed"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	CompletedAt    time.Time `json:"completed_at,omitempty"`
}

// TopicInfo is the denormalized run pointer keyed by queryID. It exists so
// runs can be enumerated without scanning the topics partition, and is only
// written for top-level user queries.
type TopicInfo struct {
	QueryID      string    `json:"query_id"`
	Title        string    `json:"title"`
	TotalLessons int       `json:"total_lessons,omitempty"`
	IsUserQuery  bool      `json:"is_user_query"`
	CreatedAt    time.Time `json:"created_at"`
}

// QuizResult is one completed quiz attempt. Append-only.
type QuizResult struct {
	ID          string    `json:"id"`
	QueryID     string    `json:"query_id,omitempty"`
	TopicTitle  string    `json:"topic_title"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Correct     int       `json:"correct"`
	LessonIndex int       `json:"lesson_index,omitempty"`
	TakenAt     time.Time `json:"taken_at"`
}
