package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "learnloop.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func TestSQLitePutGetRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := Record{
		ID:          "t-1",
		QueryID:     "q-1",
		Category:    "science",
		IsUserQuery: true,
		CreatedAt:   time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC),
		Payload:     []byte(`{"title":"How does photosynthesis work?"}`),
	}
	if err := s.Put(ctx, PartitionTopics, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.GetByID(ctx, PartitionTopics, "t-1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil {
		t.Fatalf("expected record")
	}
	if got.QueryID != "q-1" || !got.IsUserQuery || got.Category != "science" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at mismatch: want %v got %v", rec.CreatedAt, got.CreatedAt)
	}

	// Upsert replaces in place.
	rec.Payload = []byte(`{"title":"updated"}`)
	if err := s.Put(ctx, PartitionTopics, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	all, err := s.GetAll(ctx, PartitionTopics)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record after upsert, got %d", len(all))
	}
	if string(all[0].Payload) != `{"title":"updated"}` {
		t.Fatalf("upsert did not replace payload: %s", all[0].Payload)
	}
}

func TestSQLiteMissesAreEmptyNotErrors(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	got, err := s.GetByID(ctx, PartitionTopics, "missing")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record, got %#v", got)
	}

	all, err := s.GetAll(ctx, PartitionFlashcards)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty listing, got %d", len(all))
	}

	byQuery, err := s.GetByIndex(ctx, PartitionQuizzes, IndexByQuery, "nope")
	if err != nil {
		t.Fatalf("get by index: %v", err)
	}
	if len(byQuery) != 0 {
		t.Fatalf("expected empty index result, got %d", len(byQuery))
	}
}

func TestSQLiteRejectsBadRecords(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.Put(ctx, PartitionTopics, Record{Payload: []byte("{}")}); !errors.Is(err, ErrBadRecord) {
		t.Fatalf("expected ErrBadRecord for empty id, got %v", err)
	}
	if err := s.Put(ctx, PartitionTopics, Record{ID: "x"}); !errors.Is(err, ErrBadRecord) {
		t.Fatalf("expected ErrBadRecord for empty payload, got %v", err)
	}
	if err := s.Put(ctx, Partition("bogus"), Record{ID: "x", Payload: []byte("{}")}); !errors.Is(err, ErrBadPartition) {
		t.Fatalf("expected ErrBadPartition, got %v", err)
	}
}

func TestSQLiteIndexLookups(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	put := func(id, queryID, category string, userQuery bool) {
		t.Helper()
		err := s.Put(ctx, PartitionTopics, Record{
			ID: id, QueryID: queryID, Category: category, IsUserQuery: userQuery,
			CreatedAt: time.Now().UTC(), Payload: []byte("{}"),
		})
		if err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	put("t-1", "q-1", "science", true)
	put("t-2", "q-2", "science", false)
	put("t-3", "q-3", "history", true)

	science, err := s.GetByIndex(ctx, PartitionTopics, IndexByCategory, "science")
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(science) != 2 {
		t.Fatalf("expected 2 science topics, got %d", len(science))
	}

	userQueries, err := s.GetByIndex(ctx, PartitionTopics, IndexByUserQuery, "true")
	if err != nil {
		t.Fatalf("by user query: %v", err)
	}
	if len(userQueries) != 2 {
		t.Fatalf("expected 2 user-query topics, got %d", len(userQueries))
	}

	q3, err := s.GetByIndex(ctx, PartitionTopics, IndexByQuery, "q-3")
	if err != nil {
		t.Fatalf("by query: %v", err)
	}
	if len(q3) != 1 || q3[0].ID != "t-3" {
		t.Fatalf("expected t-3 for q-3, got %#v", q3)
	}
}

func TestSQLiteDeleteCascade(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Put(ctx, PartitionTopics, Record{ID: "t-1", QueryID: "q-1", CreatedAt: now, Payload: []byte("{}")}); err != nil {
		t.Fatalf("put topic: %v", err)
	}
	for _, dep := range []Partition{PartitionFlashcards, PartitionQuizzes, PartitionQuizResults, PartitionCompletedSteps, PartitionExplanations, PartitionTopicInfo} {
		if err := s.Put(ctx, dep, Record{ID: "q-1:0", QueryID: "q-1", CreatedAt: now, Payload: []byte("{}")}); err != nil {
			t.Fatalf("put %s: %v", dep, err)
		}
	}
	// A second topic's rows must survive the cascade.
	if err := s.Put(ctx, PartitionTopics, Record{ID: "t-2", QueryID: "q-2", CreatedAt: now, Payload: []byte("{}")}); err != nil {
		t.Fatalf("put other topic: %v", err)
	}
	if err := s.Put(ctx, PartitionFlashcards, Record{ID: "q-2:0", QueryID: "q-2", CreatedAt: now, Payload: []byte("{}")}); err != nil {
		t.Fatalf("put other flashcards: %v", err)
	}

	if err := s.DeleteCascade(ctx, "t-1"); err != nil {
		t.Fatalf("cascade: %v", err)
	}

	if got, _ := s.GetByID(ctx, PartitionTopics, "t-1"); got != nil {
		t.Fatalf("topic survived cascade")
	}
	for _, dep := range dependentPartitions {
		recs, err := s.GetByIndex(ctx, dep, IndexByQuery, "q-1")
		if err != nil {
			t.Fatalf("lookup %s: %v", dep, err)
		}
		if len(recs) != 0 {
			t.Fatalf("%s rows survived cascade: %#v", dep, recs)
		}
	}
	other, err := s.GetByIndex(ctx, PartitionFlashcards, IndexByQuery, "q-2")
	if err != nil {
		t.Fatalf("lookup other: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("unrelated rows removed by cascade")
	}

	if err := s.DeleteCascade(ctx, "t-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second cascade, got %v", err)
	}
}

func TestSQLiteClearAll(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, p := range []Partition{PartitionTopics, PartitionQuizResults, PartitionSyncQueue} {
		if err := s.Put(ctx, p, Record{ID: "x", CreatedAt: time.Now().UTC(), Payload: []byte("{}")}); err != nil {
			t.Fatalf("put %s: %v", p, err)
		}
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	for _, p := range Partitions {
		recs, err := s.GetAll(ctx, p)
		if err != nil {
			t.Fatalf("get all %s: %v", p, err)
		}
		if len(recs) != 0 {
			t.Fatalf("%s not empty after clear", p)
		}
	}
}
