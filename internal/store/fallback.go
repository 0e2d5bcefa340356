package store

import (
	"context"
	"errors"

	clog "github.com/charmbracelet/log"

	"learnloop/internal/telemetry"
)

// Fallback composes the structured backend with the flat key/value backend.
// Writes try the primary and repeat against the backup when the primary
// fails for infrastructure reasons; reads degrade the same way. Callers see
// one Store and never branch on which backend answered.
type Fallback struct {
	primary Store
	backup  Store
	log     *clog.Logger
	journal *telemetry.Journal
}

func NewFallback(primary, backup Store, log *clog.Logger, journal *telemetry.Journal) *Fallback {
	return &Fallback{primary: primary, backup: backup, log: log, journal: journal}
}

// schemaRejected reports errors that describe the record, not the backend.
// Retrying those against the backup would just fail again.
func schemaRejected(err error) bool {
	return errors.Is(err, ErrBadRecord) || errors.Is(err, ErrBadPartition) || errors.Is(err, ErrBadIndex)
}

func (f *Fallback) downgrade(op string, p Partition, err error) {
	f.log.Warn("structured store failed, using flat fallback", "op", op, "partition", p, "err", err)
	f.journal.Event(telemetry.EventStoreFallback, map[string]any{
		"op":        op,
		"partition": string(p),
		"err":       err.Error(),
	})
}

func (f *Fallback) Put(ctx context.Context, p Partition, rec Record) error {
	err := f.primary.Put(ctx, p, rec)
	if err == nil || schemaRejected(err) {
		return err
	}
	f.downgrade("put", p, err)
	return f.backup.Put(ctx, p, rec)
}

func (f *Fallback) GetAll(ctx context.Context, p Partition) ([]Record, error) {
	recs, err := f.primary.GetAll(ctx, p)
	if err == nil || schemaRejected(err) {
		return recs, err
	}
	f.downgrade("get_all", p, err)
	return f.backup.GetAll(ctx, p)
}

func (f *Fallback) GetByID(ctx context.Context, p Partition, id string) (*Record, error) {
	rec, err := f.primary.GetByID(ctx, p, id)
	if err != nil {
		if schemaRejected(err) {
			return nil, err
		}
		f.downgrade("get_by_id", p, err)
		return f.backup.GetByID(ctx, p, id)
	}
	if rec == nil {
		// Records written during an earlier downgrade live only in the
		// backup; a primary miss is not authoritative.
		return f.backup.GetByID(ctx, p, id)
	}
	return rec, nil
}

func (f *Fallback) GetByIndex(ctx context.Context, p Partition, idx Index, value string) ([]Record, error) {
	recs, err := f.primary.GetByIndex(ctx, p, idx, value)
	if err == nil || schemaRejected(err) {
		return recs, err
	}
	f.downgrade("get_by_index", p, err)
	return f.backup.GetByIndex(ctx, p, idx, value)
}

// Delete removes the record from whichever backends hold it. Not-found only
// propagates when neither store had the record.
func (f *Fallback) Delete(ctx context.Context, p Partition, id string) error {
	primaryErr := f.primary.Delete(ctx, p, id)
	if primaryErr != nil && !errors.Is(primaryErr, ErrNotFound) && !schemaRejected(primaryErr) {
		f.downgrade("delete", p, primaryErr)
	}
	backupErr := f.backup.Delete(ctx, p, id)
	if primaryErr == nil || backupErr == nil {
		return nil
	}
	if schemaRejected(primaryErr) {
		return primaryErr
	}
	return primaryErr
}

func (f *Fallback) DeleteCascade(ctx context.Context, topicID string) error {
	primaryErr := f.primary.DeleteCascade(ctx, topicID)
	if primaryErr != nil && !errors.Is(primaryErr, ErrNotFound) {
		f.downgrade("delete_cascade", PartitionTopics, primaryErr)
	}
	backupErr := f.backup.DeleteCascade(ctx, topicID)
	if primaryErr == nil || backupErr == nil {
		return nil
	}
	return primaryErr
}

func (f *Fallback) ClearAll(ctx context.Context) error {
	primaryErr := f.primary.ClearAll(ctx)
	if primaryErr != nil {
		f.downgrade("clear_all", "", primaryErr)
	}
	backupErr := f.backup.ClearAll(ctx)
	if primaryErr == nil {
		return backupErr
	}
	if backupErr == nil {
		return nil
	}
	return primaryErr
}

func (f *Fallback) Close() error {
	primaryErr := f.primary.Close()
	backupErr := f.backup.Close()
	if primaryErr != nil {
		return primaryErr
	}
	return backupErr
}
