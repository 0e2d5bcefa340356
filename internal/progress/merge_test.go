package progress

import (
	"testing"
	"time"
)

func TestMergeTopicsNewerIdentityWins(t *testing.T) {
	older := Topic{
		ID: "old", QueryID: "q-old", Title: "How does rain form?",
		CompletedLessons: []int{0},
		TotalLessons:     4,
		CreatedAt:        time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := Topic{
		ID: "new", QueryID: "q-new", Title: "How does rain form?",
		CompletedLessons: []int{0, 1, 2},
		TotalLessons:     5,
		CreatedAt:        time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
	}

	merged := mergeTopics(older, newer)
	if merged.ID != "new" || merged.QueryID != "q-new" {
		t.Fatalf("expected newer identity, got %s/%s", merged.ID, merged.QueryID)
	}
	if len(merged.CompletedLessons) != 3 {
		t.Fatalf("expected 3 completed lessons, got %d", len(merged.CompletedLessons))
	}
	if merged.TotalLessons != 5 {
		t.Fatalf("expected total 5, got %d", merged.TotalLessons)
	}
	// Newer record is strictly more complete, so its creation time stands.
	if !merged.CreatedAt.Equal(newer.CreatedAt) {
		t.Fatalf("expected newer creation time, got %v", merged.CreatedAt)
	}
}

func TestMergeTopicsNeverRegresses(t *testing.T) {
	a := Topic{
		ID: "a", Title: "What is DNA made of?",
		CompletedLessons: []int{0, 1, 2, 3},
		TotalLessons:     5,
		CreatedAt:        time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	b := Topic{
		ID: "b", Title: "What is DNA made of?",
		CompletedLessons: []int{0},
		TotalLessons:     3,
		CreatedAt:        time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}

	for _, pair := range [][2]Topic{{a, b}, {b, a}} {
		merged := mergeTopics(pair[0], pair[1])
		if len(merged.CompletedLessons) < 4 {
			t.Fatalf("merge regressed completion: %v", merged.CompletedLessons)
		}
		if merged.TotalLessons < 5 {
			t.Fatalf("merge regressed total: %d", merged.TotalLessons)
		}
		if merged.ID != "b" {
			t.Fatalf("expected newer id b, got %s", merged.ID)
		}
		// The older record is more complete, so its earlier creation
		// timestamp survives the merge.
		if !merged.CreatedAt.Equal(a.CreatedAt) {
			t.Fatalf("expected older creation time kept, got %v", merged.CreatedAt)
		}
	}
}

func TestMergeTopicsDerivedPercentFollowsCounts(t *testing.T) {
	// A finished short run merged with a longer unfinished run reads as
	// in-progress: the counts are the source of truth, and the larger
	// total means the older 100% was computed against a stale total.
	finished := Topic{
		ID: "short", Title: "What is lightning?",
		CompletedLessons: []int{0, 1},
		TotalLessons:     2,
		CreatedAt:        time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	ongoing := Topic{
		ID: "long", Title: "What is lightning?",
		CompletedLessons: []int{0, 1, 2},
		TotalLessons:     10,
		CreatedAt:        time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
	}

	merged := mergeTopics(finished, ongoing)
	if len(merged.CompletedLessons) != 3 || merged.TotalLessons != 10 {
		t.Fatalf("counts not max-merged: %v of %d", merged.CompletedLessons, merged.TotalLessons)
	}
	if got := merged.ProgressPercent(); got != 30 {
		t.Fatalf("derived percent = %d, want 30", got)
	}
}

func TestDedupeTopicsIdempotent(t *testing.T) {
	topics := []Topic{
		{ID: "a", Title: "How does rain form?", CompletedLessons: []int{0}, CreatedAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Title: "how does rain form", CompletedLessons: []int{0, 1}, CreatedAt: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "c", Title: "What is lightning?", CreatedAt: time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)},
	}

	once, losers := dedupeTopics(topics)
	if len(once) != 2 {
		t.Fatalf("expected 2 canonical topics, got %d", len(once))
	}
	if len(losers) != 1 || losers[0].ID != "a" {
		t.Fatalf("expected loser a, got %#v", losers)
	}

	twice, losers2 := dedupeTopics(once)
	if len(twice) != len(once) {
		t.Fatalf("second pass changed canonical count: %d vs %d", len(twice), len(once))
	}
	if len(losers2) != 0 {
		t.Fatalf("second pass produced losers: %#v", losers2)
	}
	for i := range once {
		if twice[i].ID != once[i].ID {
			t.Fatalf("second pass changed canonical set")
		}
	}
}
