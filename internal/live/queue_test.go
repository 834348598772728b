package live

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopTask(tag string, order *[]string) task {
	return task{fn: func(ctx context.Context) error {
		*order = append(*order, tag)
		return nil
	}}
}

func TestTaskQueue_EnqueueDequeue(t *testing.T) {
	q := newTaskQueue()

	var order []string
	ok := q.Enqueue(noopTask("a", &order))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	require.NoError(t, got.fn(context.Background()))
	assert.Equal(t, []string{"a"}, order)
}

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()

	var order []string
	for _, tag := range []string{"a", "b", "c"} {
		q.Enqueue(noopTask(tag, &order))
	}

	for range 3 {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		require.NoError(t, got.fn(context.Background()))
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTaskQueue_TryDequeue_Empty(t *testing.T) {
	q := newTaskQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestTaskQueue_EnqueueAfterClose(t *testing.T) {
	q := newTaskQueue()
	q.Close()

	ok := q.Enqueue(task{fn: func(ctx context.Context) error { return nil }})
	assert.False(t, ok, "enqueue after close should fail")
}

func TestTaskQueue_CloseIdempotent(t *testing.T) {
	q := newTaskQueue()
	q.Close()
	q.Close()
}

func TestTaskQueue_WaitSignalsOnEnqueue(t *testing.T) {
	q := newTaskQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	q.Enqueue(task{fn: func(ctx context.Context) error { return nil }})
	<-done
}

func TestTaskQueue_ConcurrentEnqueue(t *testing.T) {
	q := newTaskQueue()

	const n = 100
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(task{fn: func(ctx context.Context) error { return nil }})
		}()
	}
	wg.Wait()

	assert.Equal(t, n, q.Len())
}
