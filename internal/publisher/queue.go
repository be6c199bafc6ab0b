package publisher

import (
	"sync"

	"github.com/roach88/trustlog/internal/op"
)

// batchQueue is a thread-safe FIFO queue of delivered operation batches.
//
// The queue is unbounded so a log source callback never blocks on a slow
// fold. The signal channel (buffered, size 1) coalesces wakeups and is
// closed by Close so a waiting drain loop always wakes.
type batchQueue struct {
	mu      sync.Mutex
	batches [][]op.Operation
	closed  bool
	signal  chan struct{}
}

func newBatchQueue() *batchQueue {
	return &batchQueue{signal: make(chan struct{}, 1)}
}

// Enqueue adds a batch to the back of the queue.
// Returns false if the queue is closed.
func (q *batchQueue) Enqueue(ops []op.Operation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.batches = append(q.batches, ops)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front batch without blocking.
func (q *batchQueue) TryDequeue() ([]op.Operation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.batches) == 0 {
		return nil, false
	}
	b := q.batches[0]
	q.batches[0] = nil // release for GC
	if len(q.batches) == 1 {
		q.batches = q.batches[:0]
	} else {
		q.batches = q.batches[1:]
	}
	return b, true
}

// Wait returns a channel that signals when batches may be available.
func (q *batchQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and empty.
func (q *batchQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.batches) == 0
}

// Len returns the number of pending batches.
func (q *batchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.batches)
}

// Close stops further enqueues and wakes any waiter.
func (q *batchQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
