package relay

import (
	"context"
	"sync"
	"time"
)

// Chunk is one unit of decoded audio. The relay never looks inside it and
// nobody may modify it after Push.
type Chunk []byte

// Queue is a fixed-capacity FIFO of chunks with drop-oldest overflow.
//
// It is safe for one writer and one reader running concurrently. Push never
// blocks; Pop waits at most the given timeout.
type Queue struct {
	mu   sync.Mutex
	buf  []Chunk
	head int
	size int

	// wake carries at most one pending "something was pushed" token
	wake chan struct{}
}

// NewQueue creates a queue holding at most capacity chunks
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		buf:  make([]Chunk, capacity),
		wake: make(chan struct{}, 1),
	}
}

// Push appends a chunk. When the queue is full the oldest chunk is evicted
// first and Push reports true.
func (q *Queue) Push(c Chunk) (evicted bool) {
	q.mu.Lock()
	if q.size == len(q.buf) {
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		evicted = true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = c
	q.size++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return evicted
}

// Pop removes and returns the oldest chunk. If the queue stays empty for the
// whole timeout, or ctx is done first, it returns false. An empty result is a
// normal condition, not an error.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (Chunk, bool) {
	if c, ok := q.tryPop(); ok {
		return c, true
	}
	if timeout <= 0 {
		return nil, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.wake:
			if c, ok := q.tryPop(); ok {
				return c, true
			}
		case <-timer.C:
			return q.tryPop()
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (q *Queue) tryPop() (Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return nil, false
	}
	c := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return c, true
}

// Len returns the current number of chunks. The value may be stale by the
// time the caller acts on it.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Reset drops every buffered chunk
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.buf {
		q.buf[i] = nil
	}
	q.head = 0
	q.size = 0
}
