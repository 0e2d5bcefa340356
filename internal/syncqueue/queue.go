// Package syncqueue persists writes made while offline and retries sending
// them once connectivity returns. Items that keep failing are dropped after
// a bounded number of attempts; losing one is logged, never fatal.
package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"learnloop/internal/store"
	"learnloop/internal/telemetry"
)

// DefaultMaxRetries bounds how often one item is retried before it is
// dropped with a diagnostic entry.
const DefaultMaxRetries = 5

// ErrRetryExhausted marks an item dropped after its final failed attempt.
var ErrRetryExhausted = errors.New("syncqueue: retries exhausted")

// Item is one offline-created payload awaiting transmission.
type Item struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Payload    []byte    `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Retries    int       `json:"retries"`
}

// Sender transmits one item. The transport (and its own retry/timeout
// policy) is the caller's concern.
type Sender interface {
	Send(ctx context.Context, item Item) error
}

// Queue is the store-backed offline queue.
type Queue struct {
	store      store.Store
	sender     Sender
	log        *clog.Logger
	journal    *telemetry.Journal
	maxRetries int

	scheduler *gocron.Scheduler

	now   func() time.Time
	newID func() string
}

func New(st store.Store, sender Sender, logger *clog.Logger, journal *telemetry.Journal, maxRetries int) *Queue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{
		store:      st,
		sender:     sender,
		log:        logger,
		journal:    journal,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Enqueue persists one item for later transmission.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload []byte) (Item, error) {
	item := Item{
		ID:         q.newID(),
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: q.now(),
	}
	if err := q.put(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Pending lists the queued items, oldest first. Empty on any failure.
func (q *Queue) Pending(ctx context.Context) []Item {
	recs, err := q.store.GetAll(ctx, store.PartitionSyncQueue)
	if err != nil {
		q.log.Warn("sync queue unreadable", "err", err)
		return nil
	}
	out := make([]Item, 0, len(recs))
	for _, rec := range recs {
		var item Item
		if err := json.Unmarshal(rec.Payload, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Flush attempts every pending item once. Successes are removed; failures
// get their retry count bumped and stay queued until the bound is hit, at
// which point the item is dropped and journaled.
func (q *Queue) Flush(ctx context.Context) (sent, dropped int) {
	if q.sender == nil {
		return 0, 0
	}
	for _, item := range q.Pending(ctx) {
		err := q.sender.Send(ctx, item)
		if err == nil {
			q.remove(ctx, item.ID)
			sent++
			continue
		}
		item.Retries++
		if item.Retries >= q.maxRetries {
			q.remove(ctx, item.ID)
			dropped++
			q.log.Warn("sync item dropped", "id", item.ID, "kind", item.Kind, "err", err)
			q.journal.Event(telemetry.EventSyncDrop, map[string]any{
				"id":      item.ID,
				"kind":    item.Kind,
				"retries": item.Retries,
				"err":     err.Error(),
			})
			continue
		}
		if err := q.put(ctx, item); err != nil {
			q.log.Warn("sync retry bookkeeping failed", "id", item.ID, "err", err)
		}
	}
	return sent, dropped
}

// StartScheduler flushes the queue on a fixed interval until StopScheduler.
func (q *Queue) StartScheduler(interval time.Duration) {
	if q.scheduler != nil {
		return
	}
	q.scheduler = gocron.NewScheduler(time.UTC)
	_, _ = q.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		q.Flush(ctx)
	})
	q.scheduler.StartAsync()
}

func (q *Queue) StopScheduler() {
	if q.scheduler == nil {
		return
	}
	q.scheduler.Stop()
	q.scheduler = nil
}

func (q *Queue) put(ctx context.Context, item Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return q.store.Put(ctx, store.PartitionSyncQueue, store.Record{
		ID:        item.ID,
		Category:  item.Kind,
		CreatedAt: item.EnqueuedAt,
		Payload:   payload,
	})
}

func (q *Queue) remove(ctx context.Context, id string) {
	if err := q.store.Delete(ctx, store.PartitionSyncQueue, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		q.log.Warn("sync item removal failed", "id", id, "err", err)
	}
}
