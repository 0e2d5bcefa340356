package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	clog "github.com/charmbracelet/log"

	"learnloop/internal/telemetry"
)

// brokenStore fails every call the way a missing or corrupt structured
// backend would.
type brokenStore struct{}

var errBroken = errors.New("disk is on fire")

func (brokenStore) Put(context.Context, Partition, Record) error { return errBroken }
func (brokenStore) GetAll(context.Context, Partition) ([]Record, error) {
	return nil, errBroken
}
func (brokenStore) GetByID(context.Context, Partition, string) (*Record, error) {
	return nil, errBroken
}
func (brokenStore) GetByIndex(context.Context, Partition, Index, string) ([]Record, error) {
	return nil, errBroken
}
func (brokenStore) Delete(context.Context, Partition, string) error { return errBroken }
func (brokenStore) DeleteCascade(context.Context, string) error     { return errBroken }
func (brokenStore) ClearAll(context.Context) error                  { return errBroken }
func (brokenStore) Close() error                                    { return nil }

func newTestFallback(t *testing.T, primary Store) *Fallback {
	t.Helper()
	flat, err := NewFlat(t.TempDir())
	if err != nil {
		t.Fatalf("new flat: %v", err)
	}
	t.Cleanup(func() { _ = flat.Close() })
	journal, err := telemetry.NewJournal("")
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	logger := clog.New(io.Discard)
	return &Fallback{primary: primary, backup: flat, log: logger, journal: journal}
}

func TestFallbackDegradesWritesAndReads(t *testing.T) {
	f := newTestFallback(t, brokenStore{})
	ctx := context.Background()

	rec := Record{
		ID: "t-1", QueryID: "q-1", IsUserQuery: true,
		CreatedAt: time.Now().UTC(), Payload: []byte(`{"title":"x"}`),
	}
	if err := f.Put(ctx, PartitionTopics, rec); err != nil {
		t.Fatalf("put through fallback: %v", err)
	}

	got, err := f.GetByID(ctx, PartitionTopics, "t-1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.QueryID != "q-1" {
		t.Fatalf("expected fallback copy, got %#v", got)
	}

	all, err := f.GetAll(ctx, PartitionTopics)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record from fallback, got %d", len(all))
	}

	byQuery, err := f.GetByIndex(ctx, PartitionTopics, IndexByQuery, "q-1")
	if err != nil {
		t.Fatalf("get by index: %v", err)
	}
	if len(byQuery) != 1 {
		t.Fatalf("expected 1 indexed record from fallback, got %d", len(byQuery))
	}
}

func TestFallbackSchemaErrorsDoNotDowngrade(t *testing.T) {
	f := newTestFallback(t, newTestSQLite(t))
	ctx := context.Background()

	err := f.Put(ctx, Partition("bogus"), Record{ID: "x", Payload: []byte("{}")})
	if !errors.Is(err, ErrBadPartition) {
		t.Fatalf("expected ErrBadPartition, got %v", err)
	}
	err = f.Put(ctx, PartitionTopics, Record{ID: "", Payload: []byte("{}")})
	if !errors.Is(err, ErrBadRecord) {
		t.Fatalf("expected ErrBadRecord, got %v", err)
	}
}

func TestFallbackReadPrefersPrimaryButChecksBackupOnMiss(t *testing.T) {
	primary := newTestSQLite(t)
	f := newTestFallback(t, primary)
	ctx := context.Background()

	// Seed the backup only, as if the record landed during a downgrade.
	rec := Record{ID: "t-1", QueryID: "q-1", CreatedAt: time.Now().UTC(), Payload: []byte("{}")}
	if err := f.backup.Put(ctx, PartitionTopics, rec); err != nil {
		t.Fatalf("seed backup: %v", err)
	}

	got, err := f.GetByID(ctx, PartitionTopics, "t-1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil {
		t.Fatalf("expected backup record on primary miss")
	}
}

func TestFallbackDeleteNotFoundOnlyWhenBothMiss(t *testing.T) {
	f := newTestFallback(t, newTestSQLite(t))
	ctx := context.Background()

	if err := f.Delete(ctx, PartitionTopics, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec := Record{ID: "t-1", CreatedAt: time.Now().UTC(), Payload: []byte("{}")}
	if err := f.backup.Put(ctx, PartitionTopics, rec); err != nil {
		t.Fatalf("seed backup: %v", err)
	}
	if err := f.Delete(ctx, PartitionTopics, "t-1"); err != nil {
		t.Fatalf("delete backup-only record: %v", err)
	}
}
