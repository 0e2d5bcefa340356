package tracker

import (
	"sync"
	"time"
)

// Tracker models one content-generation run as four interdependent tasks.
// It is pure in-memory state: upstream progress signals push it forward and
// Reset discards it. There is no internal timeout; a run that stops
// receiving signals stays in_progress until the caller resets.
type Tracker struct {
	mu sync.Mutex

	runID       string
	tasks       map[TaskType]*Task
	startedAt   time.Time
	completedAt time.Time
	hasErrors   bool

	now func() time.Time
}

func New() *Tracker {
	return &Tracker{now: func() time.Time { return time.Now().UTC() }}
}

// Start initializes all four tasks for a run and immediately promotes the
// lessons task, since the generator begins producing lessons on submit.
func (t *Tracker) Start(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.runID = runID
	t.startedAt = now
	t.completedAt = time.Time{}
	t.hasErrors = false
	t.tasks = make(map[TaskType]*Task, len(TaskTypes))
	for _, taskType := range TaskTypes {
		meta := taskMeta[taskType]
		t.tasks[taskType] = &Task{
			Type:        taskType,
			Name:        meta.name,
			Description: meta.description,
			Status:      StatusPending,
			Estimated:   meta.estimated,
		}
	}
	lessons := t.tasks[TaskLessons]
	lessons.Status = StatusInProgress
	lessons.StartedAt = now
}

// UpdateProgress raises a task's progress. Progress never regresses: a
// lower value than the stored one is a no-op. A pending task is promoted to
// in_progress on its first signal.
func (t *Tracker) UpdateProgress(taskType TaskType, pct int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskType]
	if !ok || task.Status == StatusCompleted || task.Status == StatusFailed {
		return
	}
	if pct > 100 {
		pct = 100
	}
	if task.Status == StatusPending {
		task.Status = StatusInProgress
		task.StartedAt = t.now()
	}
	if pct > task.Progress {
		task.Progress = pct
	}
}

// MarkCompleted finishes a task. The run's completion timestamp is stamped
// exactly once, when the last task completes.
func (t *Tracker) MarkCompleted(taskType TaskType) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskType]
	if !ok {
		return
	}
	now := t.now()
	if task.StartedAt.IsZero() {
		task.StartedAt = now
	}
	task.Status = StatusCompleted
	task.Progress = 100
	task.CompletedAt = now
	task.Err = ""

	if t.completedAt.IsZero() && t.allCompleted() {
		t.completedAt = now
	}
}

// MarkFailed fails one task without touching its siblings: a stage that
// never arrives should not abort what the user can already study.
func (t *Tracker) MarkFailed(taskType TaskType, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskType]
	if !ok {
		return
	}
	task.Status = StatusFailed
	task.Err = message
	task.CompletedAt = t.now()
	t.hasErrors = true
}

// Apply maps a recognized event onto the transitions above.
func (t *Tracker) Apply(ev Event) {
	switch ev.Action {
	case ActionStart:
		t.UpdateProgress(ev.Task, 0)
	case ActionComplete:
		t.MarkCompleted(ev.Task)
	case ActionFail:
		t.MarkFailed(ev.Task, ev.Code)
	}
}

// ApplyMessage parses a free-text upstream message and applies it. The
// return reports whether the message was recognized; callers may journal
// the no-ops.
func (t *Tracker) ApplyMessage(message string) bool {
	ev, ok := ParseMessage(message)
	if !ok {
		return false
	}
	t.Apply(ev)
	return true
}

// Tick advances simulated progress for display: every in_progress task
// drifts toward 90% based on elapsed time against its estimate. Real
// upstream signals always win because progress is max-merged.
func (t *Tracker) Tick(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, task := range t.tasks {
		if task.Status != StatusInProgress || task.StartedAt.IsZero() || task.Estimated <= 0 {
			continue
		}
		elapsed := now.Sub(task.StartedAt)
		simulated := int(elapsed * 100 / task.Estimated)
		if simulated > 90 {
			simulated = 90
		}
		if simulated > task.Progress {
			task.Progress = simulated
		}
	}
}

// Reset discards the run. Called before a retry or a new run.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.runID = ""
	t.tasks = nil
	t.startedAt = time.Time{}
	t.completedAt = time.Time{}
	t.hasErrors = false
}

// Dependencies exposes the display-only stage ordering. It is never
// enforced on transitions.
func (t *Tracker) Dependencies() map[TaskType][]TaskType {
	out := make(map[TaskType][]TaskType, len(dependencies))
	for taskType, deps := range dependencies {
		out[taskType] = append([]TaskType(nil), deps...)
	}
	return out
}

// Snapshot returns a consistent copy of the run. Overall progress is the
// arithmetic mean of task progress; the run is done only when every task
// completed.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		RunID:       t.runID,
		StartedAt:   t.startedAt,
		CompletedAt: t.completedAt,
		HasErrors:   t.hasErrors,
	}
	if len(t.tasks) == 0 {
		return snap
	}
	total := 0
	done := true
	for _, taskType := range TaskTypes {
		task := t.tasks[taskType]
		snap.Tasks = append(snap.Tasks, *task)
		total += task.Progress
		if task.Status != StatusCompleted {
			done = false
		}
	}
	snap.Overall = total / len(TaskTypes)
	snap.Done = done
	return snap
}

func (t *Tracker) allCompleted() bool {
	for _, task := range t.tasks {
		if task.Status != StatusCompleted {
			return false
		}
	}
	return true
}
