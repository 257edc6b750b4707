package service

import (
	"sync"
	"time"

	"github.com/mapgrove/mapsync/models"
)

type queueEntry struct {
	op        models.SyncOperation
	attempts  int
	notBefore time.Time
}

type operationQueue struct {
	mu      sync.Mutex
	pending map[string]*queueEntry // keyed by map ID
	order   []string               // first-enqueue order of map IDs
	notify  chan struct{}
}

// NewOperationQueue constructs an empty coalescing queue.
func NewOperationQueue() OperationQueue {
	return &operationQueue{
		pending: make(map[string]*queueEntry),
		notify:  make(chan struct{}, 1),
	}
}

// Enqueue implements [OperationQueue]. A newer operation for a map already
// queued takes over that map's slot and position; its retry state resets
// because the content being sent is new.
func (q *operationQueue) Enqueue(op models.SyncOperation) {
	q.mu.Lock()
	if _, exists := q.pending[op.MapID]; !exists {
		q.order = append(q.order, op.MapID)
	}
	q.pending[op.MapID] = &queueEntry{op: op}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// DequeueReady implements [OperationQueue]. Operations still in their
// retry hold-off stay queued so one map's backoff never blocks another's
// progress.
func (q *operationQueue) DequeueReady(limit int, now time.Time) []PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var (
		ready     []PendingOperation
		remaining []string
	)

	for _, mapID := range q.order {
		entry, ok := q.pending[mapID]
		if !ok {
			continue
		}

		if len(ready) >= limit || now.Before(entry.notBefore) {
			remaining = append(remaining, mapID)
			continue
		}

		ready = append(ready, PendingOperation{Op: entry.op, Attempts: entry.attempts})
		delete(q.pending, mapID)
	}

	q.order = remaining
	return ready
}

// Requeue implements [OperationQueue]. A newer operation enqueued while
// this one was in flight supersedes it; otherwise the operation returns to
// the back of the queue with an incremented attempt count.
func (q *operationQueue) Requeue(p PendingOperation, notBefore time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.pending[p.Op.MapID]; exists {
		return
	}

	q.pending[p.Op.MapID] = &queueEntry{
		op:        p.Op,
		attempts:  p.Attempts + 1,
		notBefore: notBefore,
	}
	q.order = append(q.order, p.Op.MapID)
}

func (q *operationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

func (q *operationQueue) Notify() <-chan struct{} {
	return q.notify
}
