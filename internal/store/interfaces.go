package store

import (
	"context"
	"errors"
	"time"
)

// Partition names one logical record family. The structured backend keeps
// them in a single table keyed (partition, id); the flat backend prefixes
// keys with the partition name.
type Partition string

const (
	PartitionTopics         Partition = "topics"
	PartitionTopicInfo      Partition = "topic_info"
	PartitionExplanations   Partition = "explanations"
	PartitionFlashcards     Partition = "flashcards"
	PartitionQuizzes        Partition = "quizzes"
	PartitionQuizResults    Partition = "quiz_results"
	PartitionCompletedSteps Partition = "completed_steps"
	PartitionSyncQueue      Partition = "sync_queue"
	PartitionUserStats      Partition = "user_stats"
)

// Partitions lists every known partition.
var Partitions = []Partition{
	PartitionTopics,
	PartitionTopicInfo,
	PartitionExplanations,
	PartitionFlashcards,
	PartitionQuizzes,
	PartitionQuizResults,
	PartitionCompletedSteps,
	PartitionSyncQueue,
	PartitionUserStats,
}

// Index names a secondary lookup.
type Index string

const (
	IndexByQuery     Index = "by_query"
	IndexByCategory  Index = "by_category"
	IndexByUserQuery Index = "by_user_query"
)

var (
	ErrNotFound     = errors.New("store: record not found")
	ErrUnavailable  = errors.New("store: backend unavailable")
	ErrBadRecord    = errors.New("store: record rejected by partition schema")
	ErrBadPartition = errors.New("store: unknown partition")
	ErrBadIndex     = errors.New("store: unknown index")
)

// Record is the envelope every partition persists. Payload is a
// self-describing JSON blob; the remaining fields are the indexed columns.
type Record struct {
	ID          string    `json:"id"`
	QueryID     string    `json:"query_id,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsUserQuery bool      `json:"is_user_query,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Payload     []byte    `json:"payload"`
}

// Store is the partitioned persistence contract shared by the structured
// sqlite backend, the flat badger fallback, and the Fallback wrapper that
// composes the two. Reads return empty results, not errors, when nothing
// matches; GetByID returns (nil, nil) for an absent id.
type Store interface {
	Put(ctx context.Context, p Partition, rec Record) error
	GetAll(ctx context.Context, p Partition) ([]Record, error)
	GetByID(ctx context.Context, p Partition, id string) (*Record, error)
	GetByIndex(ctx context.Context, p Partition, idx Index, value string) ([]Record, error)
	Delete(ctx context.Context, p Partition, id string) error
	DeleteCascade(ctx context.Context, topicID string) error
	ClearAll(ctx context.Context) error
	Close() error
}

func validPartition(p Partition) bool {
	for _, known := range Partitions {
		if p == known {
			return true
		}
	}
	return false
}

// dependentPartitions are the families removed alongside a topic by
// DeleteCascade, matched through the topic's QueryID.
var dependentPartitions = []Partition{
	PartitionTopicInfo,
	PartitionExplanations,
	PartitionFlashcards,
	PartitionQuizzes,
	PartitionQuizResults,
	PartitionCompletedSteps,
}
