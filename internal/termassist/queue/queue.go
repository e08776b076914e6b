// Package queue implements the directory-entry queue: a snapshot of one
// directory's children held in an external ordered list, populated from the
// scanner and drained in FIFO batches.
//
// The queue assumes a single consumer per directory key. Two concurrent
// PopBatch calls on the same directory may observe the same length and claim
// overlapping entries, and a concurrent reload may reset a queue mid-drain.
// Callers that need multi-consumer safety must serialise access per key.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bdobrica/termassist/internal/termassist/entry"
)

// DefaultKeyPrefix namespaces queue keys in a shared store.
const DefaultKeyPrefix = "termassist:entries:"

// ErrInvalidBatchSize is returned by PopBatch for a non-positive batch size.
var ErrInvalidBatchSize = errors.New("batch size must be positive")

var errWrongType = errors.New("operation against a key holding the wrong kind of value")

// QueueError wraps a failure of the backing store or of entry
// (de)serialisation. It is never retried by this package.
type QueueError struct {
	Op  string
	Key string
	Err error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *QueueError) Unwrap() error { return e.Err }

// Scanner produces a directory's entries, directories first.
type Scanner interface {
	Scan(dir string) ([]entry.Entry, error)
}

// LoadStatus describes the outcome of EnsureLoaded.
type LoadStatus struct {
	Dir           string
	AlreadyLoaded bool
	// Count is the number of entries written on a fresh load, or the number
	// still queued when the queue was already loaded.
	Count int
}

// String renders the status for humans and for tool results.
func (s LoadStatus) String() string {
	if s.AlreadyLoaded {
		return fmt.Sprintf("Entries in %s are already loaded (%d remaining).", s.Dir, s.Count)
	}
	return fmt.Sprintf("Loaded %d entries from %s.", s.Count, s.Dir)
}

// Batch is the result of one PopBatch call.
type Batch struct {
	Dir     string
	Folders []entry.Entry
	Files   []entry.Entry
	// Remaining is the queue length after the pop.
	Remaining int
}

// Len returns the number of entries in the batch.
func (b *Batch) Len() int { return len(b.Folders) + len(b.Files) }

// Queue is the entry queue over a ListStore.
type Queue struct {
	store   ListStore
	scanner Scanner
	prefix  string
}

// Option configures a Queue.
type Option func(*Queue)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(q *Queue) { q.prefix = prefix }
}

// New returns a Queue that keeps its state in store and repopulates from
// scanner.
func New(store ListStore, scanner Scanner, opts ...Option) *Queue {
	q := &Queue{store: store, scanner: scanner, prefix: DefaultKeyPrefix}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Key returns the namespaced store key for dir. Relative paths are resolved
// against the working directory so that "." keeps meaning the same directory
// across a change of working directory.
func (q *Queue) Key(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return q.prefix + abs
	}
	return q.prefix + filepath.Clean(dir)
}

// EnsureLoaded makes sure a well-formed queue exists for dir. An existing
// list is left untouched. A missing key, or a key holding anything other than
// a list, triggers a fresh scan whose entries are written in scanner order.
// A failed scan writes nothing.
func (q *Queue) EnsureLoaded(ctx context.Context, dir string) (LoadStatus, error) {
	key := q.Key(dir)

	kind, err := q.store.KeyType(ctx, key)
	if err != nil {
		return LoadStatus{}, &QueueError{Op: "type", Key: key, Err: err}
	}

	switch kind {
	case KeyList:
		n, err := q.store.Len(ctx, key)
		if err != nil {
			return LoadStatus{}, &QueueError{Op: "len", Key: key, Err: err}
		}
		return LoadStatus{Dir: dir, AlreadyLoaded: true, Count: int(n)}, nil
	case KeyOther:
		slog.Warn("queue: key holds unexpected representation; rebuilding", "key", key)
		if err := q.store.Delete(ctx, key); err != nil {
			return LoadStatus{}, &QueueError{Op: "delete", Key: key, Err: err}
		}
	}

	entries, err := q.scanner.Scan(dir)
	if err != nil {
		return LoadStatus{}, fmt.Errorf("load %s: %w", dir, err)
	}

	values := make([]string, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return LoadStatus{}, &QueueError{Op: "encode", Key: key, Err: err}
		}
		values = append(values, string(data))
	}
	if err := q.store.PushTail(ctx, key, values...); err != nil {
		return LoadStatus{}, &QueueError{Op: "push", Key: key, Err: err}
	}

	slog.Debug("queue: loaded directory", "dir", dir, "key", key, "entries", len(values))
	return LoadStatus{Dir: dir, Count: len(values)}, nil
}

// PopBatch loads dir if needed and removes up to size entries from the front
// of its queue. Folders and files keep their queue order within the batch.
func (q *Queue) PopBatch(ctx context.Context, dir string, size int) (*Batch, error) {
	if size <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if _, err := q.EnsureLoaded(ctx, dir); err != nil {
		return nil, err
	}

	key := q.Key(dir)
	b := &Batch{Dir: dir}
	for i := 0; i < size; i++ {
		raw, ok, err := q.store.PopHead(ctx, key)
		if err != nil {
			return nil, &QueueError{Op: "pop", Key: key, Err: err}
		}
		if !ok {
			break
		}
		var e entry.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			// A list holding undecodable items is malformed. Entries already
			// popped in this batch cannot be pushed back to the head, so the
			// whole key is dropped and the next call rescans the directory.
			slog.Warn("queue: undecodable item; dropping queue", "key", key, "err", err)
			if derr := q.store.Delete(ctx, key); derr != nil {
				return nil, &QueueError{Op: "delete", Key: key, Err: derr}
			}
			return nil, &QueueError{Op: "decode", Key: key, Err: err}
		}
		if e.IsDir() {
			b.Folders = append(b.Folders, e)
		} else {
			b.Files = append(b.Files, e)
		}
	}

	n, err := q.store.Len(ctx, key)
	if err != nil {
		return nil, &QueueError{Op: "len", Key: key, Err: err}
	}
	b.Remaining = int(n)
	return b, nil
}

// Remaining returns the number of queued entries for dir without loading it.
func (q *Queue) Remaining(ctx context.Context, dir string) (int, error) {
	key := q.Key(dir)
	kind, err := q.store.KeyType(ctx, key)
	if err != nil {
		return 0, &QueueError{Op: "type", Key: key, Err: err}
	}
	if kind != KeyList {
		return 0, nil
	}
	n, err := q.store.Len(ctx, key)
	if err != nil {
		return 0, &QueueError{Op: "len", Key: key, Err: err}
	}
	return int(n), nil
}

// Reset discards the queue for dir. The next EnsureLoaded rescans.
func (q *Queue) Reset(ctx context.Context, dir string) error {
	key := q.Key(dir)
	if err := q.store.Delete(ctx, key); err != nil {
		return &QueueError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
