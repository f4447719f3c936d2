package supervisor

import "sync"

// chunkQueue is a FIFO of byte chunks shared by one drainer (producer) and
// the joining goroutine (consumer).
//
// The queue is unbounded; the drainer must never block on it, or the child
// would block on a full pipe.
type chunkQueue struct {
	mu     sync.Mutex
	chunks [][]byte
	closed bool
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{chunks: make([][]byte, 0, 16)}
}

// Push appends a chunk. The queue takes ownership of p.
// Returns false if the queue is closed.
func (q *chunkQueue) Push(p []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.chunks = append(q.chunks, p)
	return true
}

// PopAll removes every queued chunk in order.
func (q *chunkQueue) PopAll() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.chunks) == 0 {
		return nil
	}
	out := q.chunks
	q.chunks = make([][]byte, 0, 16)
	return out
}

// Len returns the number of queued chunks.
func (q *chunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// Close stops further pushes. Queued chunks remain poppable.
func (q *chunkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
