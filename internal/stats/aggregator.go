// Package stats folds the reconciler's stored data into the user-facing
// study metrics. Nothing here is authoritative: the derived record can be
// discarded and rebuilt at any time.
package stats

import (
	"context"
	"encoding/json"
	"time"

	clog "github.com/charmbracelet/log"

	"learnloop/internal/progress"
	"learnloop/internal/store"
)

// studyMinutesPerQuiz is the fixed estimate used for study time; nothing is
// actually measured.
const studyMinutesPerQuiz = 5

// statsRecordID keys the singleton derived row in the user_stats partition.
const statsRecordID = "current"

// UserStats is the derived singleton.
type UserStats struct {
	TopicsExplored int       `json:"topics_explored"`
	StepsCompleted int       `json:"steps_completed"`
	QuizzesTaken   int       `json:"quizzes_taken"`
	AverageScore   int       `json:"average_score"`
	StudyMinutes   int       `json:"study_minutes"`
	Streak         int       `json:"streak"`
	LastStudyDate  time.Time `json:"last_study_date,omitzero"`
	ComputedAt     time.Time `json:"computed_at"`
}

// Aggregator recomputes UserStats wholesale from the reconciler's data.
type Aggregator struct {
	rec   *progress.Reconciler
	store store.Store
	log   *clog.Logger

	now func() time.Time
}

func New(rec *progress.Reconciler, st store.Store, logger *clog.Logger) *Aggregator {
	return &Aggregator{
		rec:   rec,
		store: st,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Compute folds the stored data into fresh stats. Idempotent and free of
// side effects.
func (a *Aggregator) Compute(ctx context.Context) UserStats {
	topics := a.rec.CanonicalTopics(ctx)
	results := a.rec.QuizResults(ctx)

	stats := UserStats{
		TopicsExplored: len(topics),
		QuizzesTaken:   len(results),
		Streak:         a.rec.CurrentStreak(ctx),
		ComputedAt:     a.now(),
	}
	for _, topic := range topics {
		stats.StepsCompleted += len(topic.CompletedLessons)
	}
	if len(results) > 0 {
		total := 0
		for _, result := range results {
			total += result.Score
			if result.TakenAt.After(stats.LastStudyDate) {
				stats.LastStudyDate = result.TakenAt
			}
		}
		stats.AverageScore = total / len(results)
	}
	for _, topic := range topics {
		if topic.LastAccessedAt.After(stats.LastStudyDate) {
			stats.LastStudyDate = topic.LastAccessedAt
		}
	}
	stats.StudyMinutes = stats.QuizzesTaken * studyMinutesPerQuiz
	return stats
}

// Refresh recomputes and writes the derived record back for fast reads.
// A failed write-back is logged and otherwise ignored.
func (a *Aggregator) Refresh(ctx context.Context) UserStats {
	stats := a.Compute(ctx)
	payload, err := json.Marshal(stats)
	if err != nil {
		return stats
	}
	putErr := a.store.Put(ctx, store.PartitionUserStats, store.Record{
		ID:        statsRecordID,
		CreatedAt: stats.ComputedAt,
		Payload:   payload,
	})
	if putErr != nil {
		a.log.Warn("stats write-back dropped", "err", putErr)
	}
	return stats
}

// Load returns the cached derived record, recomputing when it is missing or
// unreadable.
func (a *Aggregator) Load(ctx context.Context) UserStats {
	rec, err := a.store.GetByID(ctx, store.PartitionUserStats, statsRecordID)
	if err != nil || rec == nil {
		return a.Refresh(ctx)
	}
	var stats UserStats
	if err := json.Unmarshal(rec.Payload, &stats); err != nil {
		return a.Refresh(ctx)
	}
	return stats
}
