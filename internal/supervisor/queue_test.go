package supervisor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkQueue_FIFO(t *testing.T) {
	q := newChunkQueue()
	require.True(t, q.Push([]byte("a")))
	require.True(t, q.Push([]byte("b")))
	require.True(t, q.Push([]byte("c")))
	assert.Equal(t, 3, q.Len())

	got := q.PopAll()
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, got)
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.PopAll())
}

func TestChunkQueue_CloseKeepsQueued(t *testing.T) {
	q := newChunkQueue()
	q.Push([]byte("kept"))
	q.Close()

	assert.False(t, q.Push([]byte("dropped")))
	assert.Equal(t, [][]byte{[]byte("kept")}, q.PopAll())
}

func TestChunkQueue_ConcurrentProducerConsumer(t *testing.T) {
	q := newChunkQueue()
	const n = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push([]byte{byte(i % 251)})
		}
		q.Close()
	}()

	var got []byte
	for len(got) < n {
		for _, p := range q.PopAll() {
			got = append(got, p...)
		}
	}
	wg.Wait()

	require.Len(t, got, n)
	for i, b := range got {
		require.Equal(t, byte(i%251), b, "position %d", i)
	}
}
