package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	"learnloop/internal/store"
	"learnloop/internal/telemetry"
)

// ErrTopicNotFound is the one hard failure the reconciler surfaces: the
// caller asked to delete a topic neither backend holds, so the UI must be
// told the action did not take effect.
var ErrTopicNotFound = errors.New("progress: topic not found")

// Reconciler is the single source of truth for what the user has studied.
// Duplicate topic records are reconciled on read; storage failures degrade
// through the store's fallback wrapper and anything left over is swallowed
// into zero-value defaults, because a missing statistic must never break the
// study flow.
type Reconciler struct {
	store   store.Store
	log     *clog.Logger
	journal *telemetry.Journal

	now   func() time.Time
	newID func() string
}

func New(st store.Store, logger *clog.Logger, journal *telemetry.Journal) *Reconciler {
	return &Reconciler{
		store:   st,
		log:     logger,
		journal: journal,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// SaveTopicProgress creates or touches the topic for one selection. The
// returned topic reflects what was written, even when storage failed and
// the write was dropped.
func (r *Reconciler) SaveTopicProgress(ctx context.Context, title, category, queryID string, totalLessons int) *Topic {
	now := r.now()
	topic := r.findTopic(ctx, title, queryID)
	if topic == nil {
		topic = &Topic{
			ID:          r.newID(),
			QueryID:     queryID,
			Title:       title,
			Category:    category,
			CreatedAt:   now,
			IsUserQuery: IsLikelyUserQuery(title),
		}
	}
	topic.LastAccessedAt = now
	if topic.QueryID == "" {
		topic.QueryID = queryID
	}
	if topic.Category == "" {
		topic.Category = category
	}
	if totalLessons > topic.TotalLessons {
		topic.TotalLessons = totalLessons
	}

	r.putTopic(ctx, *topic)

	// Sub-lesson navigation must never create a new top-level run entry.
	if topic.IsUserQuery && topic.QueryID != "" {
		r.putTopicInfo(ctx, TopicInfo{
			QueryID:      topic.QueryID,
			Title:        topic.Title,
			TotalLessons: topic.TotalLessons,
			IsUserQuery:  true,
			CreatedAt:    topic.CreatedAt,
		})
	}
	return topic
}

// CanonicalTopics lists the deduplicated top-level topics, newest first.
// Merging happens on every read; the stored duplicates are left in place
// until CleanupDuplicates runs.
func (r *Reconciler) CanonicalTopics(ctx context.Context) []Topic {
	canonical, losers := dedupeTopics(r.userQueryTopics(ctx))
	for _, loser := range losers {
		r.journal.Event(telemetry.EventTopicMerge, map[string]any{
			"title":    loser.Title,
			"loser_id": loser.ID,
		})
	}
	sort.Slice(canonical, func(i, j int) bool {
		return canonical[i].CreatedAt.After(canonical[j].CreatedAt)
	})
	return canonical
}

// RecentTopics returns the canonical set ordered by last access, newest
// first, truncated to limit (no limit when limit <= 0).
func (r *Reconciler) RecentTopics(ctx context.Context, limit int) []Topic {
	topics := r.CanonicalTopics(ctx)
	sort.Slice(topics, func(i, j int) bool {
		return topics[i].LastAccessedAt.After(topics[j].LastAccessedAt)
	})
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// CleanupDuplicates is the destructive counterpart of CanonicalTopics: it
// persists each merged winner and cascades away the losing records plus any
// sub-lesson headings that were misfiled as topics. Safe to run repeatedly.
func (r *Reconciler) CleanupDuplicates(ctx context.Context) int {
	recs, err := r.store.GetAll(ctx, store.PartitionTopics)
	if err != nil {
		r.log.Warn("cleanup skipped, topics unreadable", "err", err)
		return 0
	}

	var userQueries, misfiled []Topic
	for _, rec := range recs {
		topic, err := decodeTopic(rec)
		if err != nil {
			continue
		}
		if IsLikelyUserQuery(topic.Title) {
			userQueries = append(userQueries, topic)
		} else {
			misfiled = append(misfiled, topic)
		}
	}

	canonical, losers := dedupeTopics(userQueries)
	removed := 0
	for _, topic := range canonical {
		r.putTopic(ctx, topic)
	}
	for _, loser := range append(losers, misfiled...) {
		if err := r.store.DeleteCascade(ctx, loser.ID); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				r.log.Warn("cleanup cascade failed", "topic", loser.ID, "err", err)
			}
			continue
		}
		removed++
	}
	if removed > 0 {
		r.journal.Event(telemetry.EventCleanup, map[string]any{"removed": removed})
	}
	return removed
}

// SaveLessonProgress records one lesson access or completion for a run.
// Completion is monotonic: once a step is completed, later plain accesses
// keep the completed flag and the original completion timestamp.
func (r *Reconciler) SaveLessonProgress(ctx context.Context, queryID string, lessonIndex int, completed bool) {
	now := r.now()
	id := lessonStepID(queryID, lessonIndex)

	record := LessonRecord{
		QueryID:        queryID,
		LessonIndex:    lessonIndex,
		Completed:      completed,
		LastAccessedAt: now,
	}
	if completed {
		record.CompletedAt = now
	}
	if prev := r.lessonRecord(ctx, id); prev != nil && prev.Completed {
		record.Completed = true
		record.CompletedAt = prev.CompletedAt
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	putErr := r.store.Put(ctx, store.PartitionCompletedSteps, store.Record{
		ID:        id,
		QueryID:   queryID,
		CreatedAt: now,
		Payload:   payload,
	})
	if putErr != nil {
		r.log.Warn("lesson progress write dropped", "query", queryID, "lesson", lessonIndex, "err", putErr)
	}

	r.touchTopicForLesson(ctx, queryID, lessonIndex, record.Completed, now)
}

// LessonProgress returns the per-lesson map for one run, empty on any
// failure.
func (r *Reconciler) LessonProgress(ctx context.Context, queryID string) map[int]LessonRecord {
	recs, err := r.store.GetByIndex(ctx, store.PartitionCompletedSteps, store.IndexByQuery, queryID)
	if err != nil {
		r.log.Warn("lesson progress unreadable", "query", queryID, "err", err)
		return map[int]LessonRecord{}
	}
	out := make(map[int]LessonRecord, len(recs))
	for _, rec := range recs {
		var record LessonRecord
		if err := json.Unmarshal(rec.Payload, &record); err != nil {
			continue
		}
		out[record.LessonIndex] = record
	}
	return out
}

// LastAccessedLesson infers where the user should resume: the most recently
// accessed lesson, or the one after it when that lesson is already done.
func (r *Reconciler) LastAccessedLesson(ctx context.Context, queryID string) int {
	records := r.LessonProgress(ctx, queryID)
	if len(records) == 0 {
		return 0
	}
	latestIndex := 0
	var latestAt time.Time
	for index, record := range records {
		if record.LastAccessedAt.After(latestAt) {
			latestAt = record.LastAccessedAt
			latestIndex = index
		}
	}
	if records[latestIndex].Completed {
		return latestIndex + 1
	}
	return latestIndex
}

// SaveQuizResult appends one quiz attempt. Results are never mutated after
// creation.
func (r *Reconciler) SaveQuizResult(ctx context.Context, result QuizResult) {
	if result.ID == "" {
		result.ID = r.newID()
	}
	if result.TakenAt.IsZero() {
		result.TakenAt = r.now()
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	putErr := r.store.Put(ctx, store.PartitionQuizResults, store.Record{
		ID:        result.ID,
		QueryID:   result.QueryID,
		CreatedAt: result.TakenAt,
		Payload:   payload,
	})
	if putErr != nil {
		r.log.Warn("quiz result write dropped", "query", result.QueryID, "err", putErr)
	}
}

// QuizResults returns every recorded attempt, oldest first, empty on any
// failure.
func (r *Reconciler) QuizResults(ctx context.Context) []QuizResult {
	recs, err := r.store.GetAll(ctx, store.PartitionQuizResults)
	if err != nil {
		r.log.Warn("quiz results unreadable", "err", err)
		return nil
	}
	out := make([]QuizResult, 0, len(recs))
	for _, rec := range recs {
		var result QuizResult
		if err := json.Unmarshal(rec.Payload, &result); err != nil {
			continue
		}
		out = append(out, result)
	}
	return out
}

// DeleteTopic removes the topic and everything hanging off its run.
func (r *Reconciler) DeleteTopic(ctx context.Context, topicID string) error {
	if err := r.store.DeleteCascade(ctx, topicID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTopicNotFound, topicID)
		}
		return err
	}
	return nil
}

// ClearAll wipes every partition. Only an explicit user reset calls this.
func (r *Reconciler) ClearAll(ctx context.Context) error {
	return r.store.ClearAll(ctx)
}

// ActivityDates collects every date with recorded study activity: quiz
// attempts plus topic creation and access times.
func (r *Reconciler) ActivityDates(ctx context.Context) []time.Time {
	var dates []time.Time
	for _, result := range r.QuizResults(ctx) {
		dates = append(dates, result.TakenAt)
	}
	recs, err := r.store.GetAll(ctx, store.PartitionTopics)
	if err != nil {
		return dates
	}
	for _, rec := range recs {
		topic, err := decodeTopic(rec)
		if err != nil {
			continue
		}
		dates = append(dates, topic.CreatedAt)
		if !topic.LastAccessedAt.IsZero() {
			dates = append(dates, topic.LastAccessedAt)
		}
	}
	return dates
}

// CurrentStreak is the consecutive-day streak as of now.
func (r *Reconciler) CurrentStreak(ctx context.Context) int {
	return Streak(r.ActivityDates(ctx), r.now())
}

func (r *Reconciler) findTopic(ctx context.Context, title, queryID string) *Topic {
	if queryID != "" {
		recs, err := r.store.GetByIndex(ctx, store.PartitionTopics, store.IndexByQuery, queryID)
		if err == nil {
			for _, rec := range recs {
				if topic, err := decodeTopic(rec); err == nil {
					return &topic
				}
			}
		}
	}
	normalized := NormalizeTitle(title)
	recs, err := r.store.GetAll(ctx, store.PartitionTopics)
	if err != nil {
		return nil
	}
	for _, rec := range recs {
		topic, err := decodeTopic(rec)
		if err != nil {
			continue
		}
		if NormalizeTitle(topic.Title) == normalized {
			return &topic
		}
	}
	return nil
}

func (r *Reconciler) userQueryTopics(ctx context.Context) []Topic {
	recs, err := r.store.GetByIndex(ctx, store.PartitionTopics, store.IndexByUserQuery, "true")
	if err != nil {
		r.log.Warn("topics unreadable", "err", err)
		return nil
	}
	var topics []Topic
	for _, rec := range recs {
		topic, err := decodeTopic(rec)
		if err != nil {
			continue
		}
		if IsLikelyUserQuery(topic.Title) {
			topics = append(topics, topic)
		}
	}
	return topics
}

func (r *Reconciler) touchTopicForLesson(ctx context.Context, queryID string, lessonIndex int, completed bool, now time.Time) {
	recs, err := r.store.GetByIndex(ctx, store.PartitionTopics, store.IndexByQuery, queryID)
	if err != nil || len(recs) == 0 {
		return
	}
	topic, err := decodeTopic(recs[0])
	if err != nil {
		return
	}
	topic.LastAccessedAt = now
	if completed {
		topic.markLessonCompleted(lessonIndex)
	}
	r.putTopic(ctx, topic)
}

func (r *Reconciler) lessonRecord(ctx context.Context, id string) *LessonRecord {
	rec, err := r.store.GetByID(ctx, store.PartitionCompletedSteps, id)
	if err != nil || rec == nil {
		return nil
	}
	var record LessonRecord
	if err := json.Unmarshal(rec.Payload, &record); err != nil {
		return nil
	}
	return &record
}

func (r *Reconciler) putTopic(ctx context.Context, topic Topic) {
	payload, err := json.Marshal(topic)
	if err != nil {
		return
	}
	putErr := r.store.Put(ctx, store.PartitionTopics, store.Record{
		ID:          topic.ID,
		QueryID:     topic.QueryID,
		Category:    topic.Category,
		IsUserQuery: topic.IsUserQuery,
		CreatedAt:   topic.CreatedAt,
		Payload:     payload,
	})
	if putErr != nil {
		r.log.Warn("topic write dropped", "topic", topic.ID, "err", putErr)
	}
}

func (r *Reconciler) putTopicInfo(ctx context.Context, info TopicInfo) {
	payload, err := json.Marshal(info)
	if err != nil {
		return
	}
	putErr := r.store.Put(ctx, store.PartitionTopicInfo, store.Record{
		ID:          info.QueryID,
		QueryID:     info.QueryID,
		IsUserQuery: info.IsUserQuery,
		CreatedAt:   info.CreatedAt,
		Payload:     payload,
	})
	if putErr != nil {
		r.log.Warn("topic info write dropped", "query", info.QueryID, "err", putErr)
	}
}

func decodeTopic(rec store.Record) (Topic, error) {
	var topic Topic
	if err := json.Unmarshal(rec.Payload, &topic); err != nil {
		return Topic{}, err
	}
	if topic.ID == "" {
		topic.ID = rec.ID
	}
	return topic, nil
}

func lessonStepID(queryID string, lessonIndex int) string {
	return fmt.Sprintf("%s:%d", queryID, lessonIndex)
}
