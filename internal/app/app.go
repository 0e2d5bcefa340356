// Package app wires the core together and exposes the surface the UI layer
// calls. Construction opens storage exactly once; every consumer shares the
// handle held here instead of a hidden global.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	clog "github.com/charmbracelet/log"

	"learnloop/internal/content"
	"learnloop/internal/export"
	"learnloop/internal/progress"
	"learnloop/internal/shell"
	"learnloop/internal/stats"
	"learnloop/internal/store"
	"learnloop/internal/syncqueue"
	"learnloop/internal/telemetry"
	"learnloop/internal/tracker"
)

// Core is the application handle: storage, reconciler, tracker, aggregator,
// and sync queue behind the operations the UI calls.
type Core struct {
	cfg     Config
	log     *clog.Logger
	journal *telemetry.Journal

	store   store.Store
	rec     *progress.Reconciler
	agg     *stats.Aggregator
	tracker *tracker.Tracker
	queue   *syncqueue.Queue
	bridge  shell.Bridge
}

// New opens the backends and wires every component. The structured store is
// preferred; when it cannot open, the core starts on the flat backend alone
// and keeps working.
func New(cfg Config, sender syncqueue.Sender, bridge shell.Bridge) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	level := clog.WarnLevel
	if cfg.Verbose {
		level = clog.DebugLevel
	}
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "learnloop", Level: level})

	journal, err := telemetry.NewJournal(cfg.JournalPath)
	if err != nil {
		return nil, err
	}

	flat, err := store.NewFlat(filepath.Join(cfg.DataDir, "flat"))
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("open fallback store: %w", err)
	}

	var backend store.Store = flat
	if !cfg.FlatOnly {
		sqlite, err := store.NewSQLite(filepath.Join(cfg.DataDir, "learnloop.db"))
		if err == nil {
			err = sqlite.EnsureSchema(context.Background())
		}
		if err != nil {
			logger.Warn("structured store unavailable, starting on flat backend", "err", err)
			journal.Event(telemetry.EventStoreFallback, map[string]any{"op": "open", "err": err.Error()})
		} else {
			backend = store.NewFallback(sqlite, flat, logger, journal)
		}
	}

	if bridge == nil {
		bridge = shell.Noop{}
	}

	rec := progress.New(backend, logger, journal)
	core := &Core{
		cfg:     cfg,
		log:     logger,
		journal: journal,
		store:   backend,
		rec:     rec,
		agg:     stats.New(rec, backend, logger),
		tracker: tracker.New(),
		queue:   syncqueue.New(backend, sender, logger, journal, cfg.SyncMaxRetries),
		bridge:  bridge,
	}
	if sender != nil {
		core.queue.StartScheduler(cfg.SyncInterval)
	}
	return core, nil
}

func (c *Core) Close() error {
	c.queue.StopScheduler()
	storeErr := c.store.Close()
	journalErr := c.journal.Close()
	if storeErr != nil {
		return storeErr
	}
	return journalErr
}

// --- generation surface ---

// BeginGeneration submits a query to the generator, records the topic, and
// starts tracking the new run. The caller feeds the generator's status
// messages back through ApplyProgressMessage; a
// content.ProgressFunc(c.ApplyProgressMessage) hook fits directly.
func (c *Core) BeginGeneration(ctx context.Context, gen content.Generator, query, category string, totalLessons int) (string, *progress.Topic, error) {
	runID, err := gen.SubmitQuery(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("submit query: %w", err)
	}
	topic := c.rec.SaveTopicProgress(ctx, query, category, runID, totalLessons)
	c.tracker.Start(runID)
	return runID, topic, nil
}

// CollectRunContent probes the generator and persists every stage that is
// ready, so the content survives offline. Stages still pending are skipped;
// call again as more arrive.
func (c *Core) CollectRunContent(ctx context.Context, gen content.Generator, runID string) {
	lessons, err := gen.Lessons(ctx, runID)
	if err != nil {
		if !errors.Is(err, content.ErrNotReady) {
			c.log.Warn("lessons probe failed", "run", runID, "err", err)
		}
		return
	}
	c.rec.SaveLessons(ctx, runID, lessons)
	for _, lesson := range lessons {
		if cards, err := gen.Flashcards(ctx, runID, lesson.Index); err == nil {
			c.rec.SaveFlashcards(ctx, runID, lesson.Index, cards)
		} else if !errors.Is(err, content.ErrNotReady) {
			c.log.Warn("flashcards probe failed", "run", runID, "lesson", lesson.Index, "err", err)
		}
		if quiz, err := gen.Quiz(ctx, runID, lesson.Index); err == nil {
			c.rec.SaveQuiz(ctx, runID, quiz)
		} else if !errors.Is(err, content.ErrNotReady) {
			c.log.Warn("quiz probe failed", "run", runID, "lesson", lesson.Index, "err", err)
		}
	}
}

// Lessons returns the persisted lesson sequence for a run.
func (c *Core) Lessons(ctx context.Context, runID string) []content.Lesson {
	return c.rec.Lessons(ctx, runID)
}

// Flashcards returns the persisted cards for one lesson step.
func (c *Core) Flashcards(ctx context.Context, runID string, lessonIndex int) []content.Flashcard {
	return c.rec.Flashcards(ctx, runID, lessonIndex)
}

// Quiz returns the persisted quiz for one lesson step.
func (c *Core) Quiz(ctx context.Context, runID string, lessonIndex int) *content.Quiz {
	return c.rec.Quiz(ctx, runID, lessonIndex)
}

// --- task tracker surface ---

func (c *Core) StartRun(runID string) {
	c.tracker.Start(runID)
}

func (c *Core) UpdateTaskProgress(taskType tracker.TaskType, pct int) {
	c.tracker.UpdateProgress(taskType, pct)
}

func (c *Core) MarkTaskCompleted(taskType tracker.TaskType) {
	c.tracker.MarkCompleted(taskType)
}

func (c *Core) MarkTaskFailed(taskType tracker.TaskType, message string) {
	c.tracker.MarkFailed(taskType, message)
}

// ApplyProgressMessage feeds one upstream status message to the tracker.
// Unrecognized messages are journaled and ignored.
func (c *Core) ApplyProgressMessage(message string) {
	if !c.tracker.ApplyMessage(message) {
		c.journal.Event(telemetry.EventTrackerNoop, map[string]any{"message": message})
	}
}

func (c *Core) TickTasks(now time.Time) {
	c.tracker.Tick(now)
}

func (c *Core) ResetRun() {
	c.tracker.Reset()
}

func (c *Core) TaskSnapshot() tracker.Snapshot {
	return c.tracker.Snapshot()
}

func (c *Core) TaskDependencies() map[tracker.TaskType][]tracker.TaskType {
	return c.tracker.Dependencies()
}

// --- progress surface ---

func (c *Core) SaveTopicProgress(ctx context.Context, title, category, runID string, totalLessons int) *progress.Topic {
	return c.rec.SaveTopicProgress(ctx, title, category, runID, totalLessons)
}

func (c *Core) RecentTopics(ctx context.Context) []progress.Topic {
	return c.rec.RecentTopics(ctx, c.cfg.RecentLimit)
}

func (c *Core) CanonicalTopics(ctx context.Context) []progress.Topic {
	return c.rec.CanonicalTopics(ctx)
}

func (c *Core) CleanupDuplicates(ctx context.Context) int {
	return c.rec.CleanupDuplicates(ctx)
}

func (c *Core) SaveLessonProgress(ctx context.Context, runID string, lessonIndex int, completed bool) {
	c.rec.SaveLessonProgress(ctx, runID, lessonIndex, completed)
}

func (c *Core) LessonProgress(ctx context.Context, runID string) map[int]progress.LessonRecord {
	return c.rec.LessonProgress(ctx, runID)
}

func (c *Core) LastAccessedLesson(ctx context.Context, runID string) int {
	return c.rec.LastAccessedLesson(ctx, runID)
}

func (c *Core) SaveQuizResult(ctx context.Context, result progress.QuizResult) {
	c.rec.SaveQuizResult(ctx, result)
}

func (c *Core) DeleteTopic(ctx context.Context, topicID string) error {
	return c.rec.DeleteTopic(ctx, topicID)
}

func (c *Core) ClearAllData(ctx context.Context) error {
	return c.rec.ClearAll(ctx)
}

// --- stats surface ---

func (c *Core) UserStats(ctx context.Context) stats.UserStats {
	return c.agg.Load(ctx)
}

func (c *Core) RefreshStats(ctx context.Context) stats.UserStats {
	return c.agg.Refresh(ctx)
}

// --- sync surface ---

func (c *Core) EnqueueSync(ctx context.Context, kind string, payload []byte) error {
	_, err := c.queue.Enqueue(ctx, kind, payload)
	return err
}

func (c *Core) FlushSync(ctx context.Context) (sent, dropped int) {
	return c.queue.Flush(ctx)
}

// --- shell surface ---

// ExportReport writes the study report workbook and pings the native shell.
// The notification is best effort.
func (c *Core) ExportReport(ctx context.Context, path string) error {
	report := export.Report{
		Topics:  c.rec.CanonicalTopics(ctx),
		Results: c.rec.QuizResults(ctx),
		Stats:   c.agg.Compute(ctx),
	}
	if err := export.WriteReport(ctx, path, report); err != nil {
		return err
	}
	if err := c.bridge.Notify("Study report exported", path); err != nil {
		c.log.Debug("shell notification failed", "err", err)
	}
	return nil
}
