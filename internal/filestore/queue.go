package filestore

import (
	"context"
	"sync"
)

// Queue runs operations one at a time in the order they were enqueued.
//
// Each call links itself behind the current tail: it waits for its
// predecessor to finish, runs, then signals its successor. A sync.Mutex
// gives exclusion but not arrival order, which the store relies on.
type Queue struct {
	mu   sync.Mutex
	tail chan struct{}
}

// NewQueue returns an idle queue.
func NewQueue() *Queue {
	done := make(chan struct{})
	close(done)
	return &Queue{tail: done}
}

// Do waits for every previously enqueued operation, then runs op.
// If ctx ends while waiting, Do returns ctx.Err() without running op;
// the slot is still handed on in order once the predecessor completes.
func (q *Queue) Do(ctx context.Context, op func() error) error {
	mine := make(chan struct{})
	q.mu.Lock()
	prev := q.tail
	q.tail = mine
	q.mu.Unlock()

	select {
	case <-prev:
	case <-ctx.Done():
		go func() {
			<-prev
			close(mine)
		}()
		return ctx.Err()
	}
	defer close(mine)
	return op()
}
