package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Journal is a newline-JSON diagnostics log. It records the events the UI
// never surfaces: topic merges, store downgrades, dropped sync items,
// unrecognized tracker messages.
type Journal struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// Event kinds written by the core.
const (
	EventTopicMerge    = "topic_merge"
	EventStoreFallback = "store_fallback"
	EventSyncDrop      = "sync_drop"
	EventTrackerNoop   = "tracker_noop"
	EventCleanup       = "cleanup"
)

func NewJournal(path string) (*Journal, error) {
	if path == "" {
		return &Journal{w: nopCloser{Writer: io.Discard}}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{w: f}, nil
}

func (j *Journal) Event(kind string, fields map[string]any) {
	j.log("info", kind, fields)
}

func (j *Journal) Info(msg string, fields map[string]any) {
	j.log("info", msg, fields)
}

func (j *Journal) Error(msg string, fields map[string]any) {
	j.log("error", msg, fields)
}

func (j *Journal) log(level, msg string, fields map[string]any) {
	if j == nil || j.w == nil {
		return
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, _ := json.Marshal(entry)
	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.w.Write(append(b, '\n'))
}

func (j *Journal) Close() error {
	if j == nil || j.w == nil {
		return nil
	}
	return j.w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
