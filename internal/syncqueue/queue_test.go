package syncqueue

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	clog "github.com/charmbracelet/log"

	"learnloop/internal/store"
	"learnloop/internal/telemetry"
)

type fakeSender struct {
	failures int
	sent     []Item
}

func (s *fakeSender) Send(_ context.Context, item Item) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("offline")
	}
	s.sent = append(s.sent, item)
	return nil
}

func newTestQueue(t *testing.T, sender Sender, maxRetries int) *Queue {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "learnloop.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	journal, _ := telemetry.NewJournal("")
	return New(st, sender, clog.New(io.Discard), journal, maxRetries)
}

func TestEnqueueAndFlush(t *testing.T) {
	sender := &fakeSender{}
	q := newTestQueue(t, sender, 0)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, "quiz_result", []byte(`{"score":80}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(ctx, "topic", []byte(`{"title":"x"}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if pending := q.Pending(ctx); len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	sent, dropped := q.Flush(ctx)
	if sent != 2 || dropped != 0 {
		t.Fatalf("flush = (%d, %d), want (2, 0)", sent, dropped)
	}
	if pending := q.Pending(ctx); len(pending) != 0 {
		t.Fatalf("queue not drained: %d items", len(pending))
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sender saw %d items", len(sender.sent))
	}
}

func TestFlushRetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failures: 1}
	q := newTestQueue(t, sender, 3)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, "quiz_result", []byte("{}")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if sent, dropped := q.Flush(ctx); sent != 0 || dropped != 0 {
		t.Fatalf("first flush = (%d, %d), want (0, 0)", sent, dropped)
	}
	pending := q.Pending(ctx)
	if len(pending) != 1 || pending[0].Retries != 1 {
		t.Fatalf("retry count not persisted: %#v", pending)
	}

	if sent, _ := q.Flush(ctx); sent != 1 {
		t.Fatalf("second flush did not send")
	}
	if pending := q.Pending(ctx); len(pending) != 0 {
		t.Fatalf("queue not drained after success")
	}
}

func TestFlushDropsAfterRetryBound(t *testing.T) {
	sender := &fakeSender{failures: 100}
	q := newTestQueue(t, sender, 3)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, "quiz_result", []byte("{}")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	var dropped int
	for i := 0; i < 5; i++ {
		_, d := q.Flush(ctx)
		dropped += d
	}
	if dropped != 1 {
		t.Fatalf("expected exactly 1 drop, got %d", dropped)
	}
	if pending := q.Pending(ctx); len(pending) != 0 {
		t.Fatalf("dropped item still queued")
	}
	if len(sender.sent) != 0 {
		t.Fatalf("dropped item was sent")
	}
}
