package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// FlatStore is the key/value fallback backend. Keys follow the pattern
// <partition>_<id>; values are the JSON-encoded record envelope, so every
// entry is a self-describing blob. Index lookups are prefix scans with a
// decode-side filter.
type FlatStore struct {
	db *badger.DB
}

func NewFlat(dir string) (*FlatStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open flat store: %w", err)
	}
	return &FlatStore{db: db}, nil
}

func flatKey(p Partition, id string) []byte {
	return []byte(string(p) + "_" + id)
}

func flatPrefix(p Partition) []byte {
	return []byte(string(p) + "_")
}

func (s *FlatStore) Put(ctx context.Context, p Partition, rec Record) error {
	if !validPartition(p) {
		return fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: empty id", ErrBadRecord)
	}
	if len(rec.Payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrBadRecord)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(flatKey(p, rec.ID), blob)
	})
}

func (s *FlatStore) GetAll(ctx context.Context, p Partition) ([]Record, error) {
	if !validPartition(p) {
		return nil, fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	return s.scan(p, func(Record) bool { return true })
}

func (s *FlatStore) GetByID(ctx context.Context, p Partition, id string) (*Record, error) {
	if !validPartition(p) {
		return nil, fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(flatKey(p, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded Record
			if err := json.Unmarshal(val, &decoded); err != nil {
				return err
			}
			rec = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *FlatStore) GetByIndex(ctx context.Context, p Partition, idx Index, value string) ([]Record, error) {
	if !validPartition(p) {
		return nil, fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	var match func(Record) bool
	switch idx {
	case IndexByQuery:
		match = func(r Record) bool { return r.QueryID == value }
	case IndexByCategory:
		match = func(r Record) bool { return r.Category == value }
	case IndexByUserQuery:
		want := value == "true" || value == "1"
		match = func(r Record) bool { return r.IsUserQuery == want }
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadIndex, idx)
	}
	return s.scan(p, match)
}

func (s *FlatStore) Delete(ctx context.Context, p Partition, id string) error {
	if !validPartition(p) {
		return fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := flatKey(p, id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete %s/%s: %w", p, id, ErrNotFound)
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (s *FlatStore) DeleteCascade(ctx context.Context, topicID string) error {
	topic, err := s.GetByID(ctx, PartitionTopics, topicID)
	if err != nil {
		return err
	}
	if topic == nil {
		return fmt.Errorf("cascade %s: %w", topicID, ErrNotFound)
	}

	// Collect every key first so the batch commits as one unit.
	keys := [][]byte{flatKey(PartitionTopics, topicID)}
	if topic.QueryID != "" {
		for _, dep := range dependentPartitions {
			recs, err := s.GetByIndex(ctx, dep, IndexByQuery, topic.QueryID)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				keys = append(keys, flatKey(dep, rec.ID))
			}
		}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *FlatStore) ClearAll(ctx context.Context) error {
	for _, p := range Partitions {
		if err := s.db.DropPrefix(flatPrefix(p)); err != nil {
			return fmt.Errorf("clear %s: %w", p, err)
		}
	}
	return nil
}

func (s *FlatStore) Close() error {
	return s.db.Close()
}

func (s *FlatStore) scan(p Partition, match func(Record) bool) ([]Record, error) {
	prefix := flatPrefix(p)
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					// Skip undecodable entries; a corrupt blob must not
					// poison the whole listing.
					return nil
				}
				if match(rec) {
					out = append(out, rec)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

// sortRecords orders by creation time then id so both backends list in the
// same order.
func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
