package relay

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkOf(s string) Chunk { return Chunk(s) }

func drain(t *testing.T, q *Queue) []string {
	t.Helper()
	var out []string
	for {
		c, ok := q.Pop(context.Background(), 0)
		if !ok {
			return out
		}
		out = append(out, string(c))
	}
}

func TestQueue_DropOldestScenario(t *testing.T) {
	q := NewQueue(3)

	assert.False(t, q.Push(chunkOf("A")))
	assert.False(t, q.Push(chunkOf("B")))
	assert.False(t, q.Push(chunkOf("C")))
	assert.True(t, q.Push(chunkOf("D")), "fourth push must evict")
	require.Equal(t, 3, q.Len())

	ctx := context.Background()
	for _, want := range []string{"B", "C", "D"} {
		c, ok := q.Pop(ctx, 10*time.Millisecond)
		require.True(t, ok)
		assert.Equal(t, want, string(c))
	}

	_, ok := q.Pop(ctx, 10*time.Millisecond)
	assert.False(t, ok, "queue should report empty")
}

func TestQueue_NeverExceedsCapacity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	q := NewQueue(7)

	for i := 0; i < 2000; i++ {
		if rng.Intn(3) == 0 {
			q.Pop(context.Background(), 0)
		} else {
			q.Push(chunkOf(fmt.Sprint(i)))
		}
		require.LessOrEqual(t, q.Len(), q.Cap(), "after operation %d", i)
	}
}

func TestQueue_DropOldestLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const capacity = 5
	q := NewQueue(capacity)
	var model []string

	for i := 0; i < 500; i++ {
		if rng.Intn(4) == 0 {
			c, ok := q.Pop(context.Background(), 0)
			if len(model) == 0 {
				require.False(t, ok)
				continue
			}
			require.True(t, ok)
			require.Equal(t, model[0], string(c))
			model = model[1:]
			continue
		}

		v := fmt.Sprint(i)
		evicted := q.Push(chunkOf(v))
		if len(model) == capacity {
			require.True(t, evicted)
			model = append(model[1:], v)
		} else {
			require.False(t, evicted)
			model = append(model, v)
		}
		require.Equal(t, len(model), q.Len())
	}

	assert.Equal(t, model, drain(t, q))
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(10)
	want := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, v := range want {
		q.Push(chunkOf(v))
	}
	assert.Equal(t, want, drain(t, q))
}

func TestQueue_PopTimesOutWhenEmpty(t *testing.T) {
	q := NewQueue(2)

	start := time.Now()
	c, ok := q.Pop(context.Background(), 30*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Nil(t, c)
	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestQueue_PopWakesOnPush(t *testing.T) {
	q := NewQueue(2)

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push(chunkOf("late"))
	}()

	start := time.Now()
	c, ok := q.Pop(context.Background(), 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "late", string(c))
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueue_PopReturnsOnCancel(t *testing.T) {
	q := NewQueue(2)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, ok := q.Pop(ctx, 5*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueue_ConcurrentSingleProducerSingleConsumer(t *testing.T) {
	const total = 5000
	q := NewQueue(total)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Push(chunkOf(fmt.Sprint(i)))
		}
	}()

	got := make([]string, 0, total)
	for len(got) < total {
		c, ok := q.Pop(context.Background(), time.Second)
		require.True(t, ok, "consumer starved after %d chunks", len(got))
		got = append(got, string(c))
	}
	wg.Wait()

	for i, v := range got {
		require.Equal(t, fmt.Sprint(i), v)
	}
}

func TestQueue_Reset(t *testing.T) {
	q := NewQueue(3)
	q.Push(chunkOf("a"))
	q.Push(chunkOf("b"))

	q.Reset()

	assert.Equal(t, 0, q.Len())
	q.Push(chunkOf("c"))
	assert.Equal(t, []string{"c"}, drain(t, q))
}
