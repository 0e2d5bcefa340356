package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the structured backend. All partitions live in one records
// table keyed (partition, id) with the secondary-index columns broken out, so
// index lookups stay real SQL lookups instead of scans.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer; matches WAL + the one-op-per-transaction discipline.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS records (
			partition TEXT NOT NULL,
			id TEXT NOT NULL,
			query_id TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			is_user_query INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (partition, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_query ON records(partition, query_id);`,
		`CREATE INDEX IF NOT EXISTS idx_records_category ON records(partition, category);`,
		`CREATE INDEX IF NOT EXISTS idx_records_user_query ON records(partition, is_user_query);`,
		`CREATE INDEX IF NOT EXISTS idx_records_created ON records(partition, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, p Partition, rec Record) error {
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records(partition, id, query_id, category, is_user_query, created_at, payload)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(partition, id) DO UPDATE SET
			query_id=excluded.query_id,
			category=excluded.category,
			is_user_query=excluded.is_user_query,
			created_at=excluded.created_at,
			payload=excluded.payload`,
		string(p),
		rec.ID,
		rec.QueryID,
		rec.Category,
		boolInt(rec.IsUserQuery),
		rec.CreatedAt.UTC().Format(timeLayout),
		rec.Payload,
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", p, rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, p Partition) ([]Record, error) {
	if !validPartition(p) {
		return nil, fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	return s.query(ctx,
		`SELECT id, query_id, category, is_user_query, created_at, payload
		 FROM records WHERE partition = ? ORDER BY created_at ASC, id ASC`, string(p))
}

func (s *SQLiteStore) GetByID(ctx context.Context, p Partition, id string) (*Record, error) {
	if !validPartition(p) {
		return nil, fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	recs, err := s.query(ctx,
		`SELECT id, query_id, category, is_user_query, created_at, payload
		 FROM records WHERE partition = ? AND id = ?`, string(p), id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	rec := recs[0]
	return &rec, nil
}

func (s *SQLiteStore) GetByIndex(ctx context.Context, p Partition, idx Index, value string) ([]Record, error) {
	if !validPartition(p) {
		return nil, fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	var column string
	arg := any(value)
	switch idx {
	case IndexByQuery:
		column = "query_id"
	case IndexByCategory:
		column = "category"
	case IndexByUserQuery:
		column = "is_user_query"
		arg = boolInt(value == "true" || value == "1")
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadIndex, idx)
	}
	return s.query(ctx, fmt.Sprintf(
		`SELECT id, query_id, category, is_user_query, created_at, payload
		 FROM records WHERE partition = ? AND %s = ? ORDER BY created_at ASC, id ASC`, column),
		string(p), arg)
}

func (s *SQLiteStore) Delete(ctx context.Context, p Partition, id string) error {
	if !validPartition(p) {
		return fmt.Errorf("%w: %q", ErrBadPartition, p)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE partition = ? AND id = ?`, string(p), id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", p, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete %s/%s: %w", p, id, ErrNotFound)
	}
	return nil
}

// DeleteCascade removes the topic row plus every dependent-partition row
// matching its query id, in one transaction. All or nothing.
func (s *SQLiteStore) DeleteCascade(ctx context.Context, topicID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cascade begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var queryID string
	row := tx.QueryRowContext(ctx,
		`SELECT query_id FROM records WHERE partition = ? AND id = ?`,
		string(PartitionTopics), topicID)
	if err := row.Scan(&queryID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("cascade %s: %w", topicID, ErrNotFound)
		}
		return fmt.Errorf("cascade lookup %s: %w", topicID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE partition = ? AND id = ?`,
		string(PartitionTopics), topicID); err != nil {
		return fmt.Errorf("cascade topic %s: %w", topicID, err)
	}
	if queryID != "" {
		for _, dep := range dependentPartitions {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM records WHERE partition = ? AND query_id = ?`,
				string(dep), queryID); err != nil {
				return fmt.Errorf("cascade %s for %s: %w", dep, topicID, err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var isUserQuery int
		var created string
		if err := rows.Scan(&rec.ID, &rec.QueryID, &rec.Category, &isUserQuery, &created, &rec.Payload); err != nil {
			return nil, err
		}
		rec.IsUserQuery = isUserQuery != 0
		if ts, err := time.Parse(timeLayout, created); err == nil {
			rec.CreatedAt = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
