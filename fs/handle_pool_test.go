package fs

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeFactory(counter *int64) HandleFactory {
	dir := os.TempDir()
	return func() (*os.File, error) {
		n := atomic.AddInt64(counter, 1)
		return os.CreateTemp(dir, fmt.Sprintf("lss-fake-%d-*", n))
	}
}

func TestHandlePoolCapacity(t *testing.T) {
	var built int64
	pool := NewHandlePool(2, fakeFactory(&built))

	ctx := context.Background()
	h1, err := pool.GetAsync(ctx)
	require.NoError(t, err)
	h2, err := pool.GetAsync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&built))
	assert.Equal(t, 2, pool.OpenCount())

	// A third claim should not build a handle past capacity; it must
	// suspend until one is returned.
	claimed := make(chan *os.File, 1)
	go func() {
		h, _ := pool.GetAsync(ctx)
		claimed <- h
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-claimed:
		t.Fatal("third claim should not have completed before a return")
	default:
	}

	pool.Return(h1)
	h3 := <-claimed
	assert.NotNil(t, h3)
	assert.Equal(t, int64(2), atomic.LoadInt64(&built), "no new handle should be built past capacity")

	pool.Return(h2)
	pool.Return(h3)
}

func TestHandlePoolFIFO(t *testing.T) {
	var built int64
	pool := NewHandlePool(1, fakeFactory(&built))
	ctx := context.Background()

	h, err := pool.GetAsync(ctx)
	require.NoError(t, err)

	const waiters = 5
	order := make(chan int, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		idx := i
		go func() {
			defer wg.Done()
			// Stagger registration so wait order is deterministic.
			time.Sleep(time.Duration(idx) * 5 * time.Millisecond)
			hh, err := pool.GetAsync(ctx)
			require.NoError(t, err)
			order <- idx
			time.Sleep(5 * time.Millisecond)
			pool.Return(hh)
		}()
	}
	time.Sleep(time.Duration(waiters) * 5 * time.Millisecond)
	pool.Return(h)
	wg.Wait()
	close(order)

	var got []int
	for v := range order {
		got = append(got, v)
	}
	require.Len(t, got, waiters)
	for i := range got {
		assert.Equal(t, i, got[i], "waiters should be served in FIFO registration order")
	}
}

func TestHandlePoolTryGet(t *testing.T) {
	var built int64
	pool := NewHandlePool(1, fakeFactory(&built))
	_, ok := pool.TryGet()
	assert.False(t, ok, "empty pool below capacity should not synthesize a handle on try_get")

	ctx := context.Background()
	h, err := pool.GetAsync(ctx)
	require.NoError(t, err)
	pool.Return(h)

	got, ok := pool.TryGet()
	assert.True(t, ok)
	assert.Same(t, h, got)
}

func TestHandlePoolCancellationDoesNotLeak(t *testing.T) {
	var built int64
	pool := NewHandlePool(1, fakeFactory(&built))
	ctx := context.Background()
	h, err := pool.GetAsync(ctx)
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := pool.GetAsync(cctx)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	err = <-done
	assert.Error(t, err)

	// The held handle must still be returnable and re-claimable: nothing
	// leaked despite the cancellation racing the wait registration.
	pool.Return(h)
	h2, err := pool.GetAsync(context.Background())
	require.NoError(t, err)
	assert.Same(t, h, h2)
}

func TestHandlePoolDispose(t *testing.T) {
	var built int64
	pool := NewHandlePool(2, fakeFactory(&built))
	ctx := context.Background()
	h, err := pool.GetAsync(ctx)
	require.NoError(t, err)
	require.NoError(t, pool.Dispose())

	_, ok := pool.TryGet()
	assert.False(t, ok)
	_, err = pool.GetAsync(ctx)
	assert.Error(t, err)

	// Returning a handle after dispose closes it rather than re-pooling it.
	pool.Return(h)
	_, ok = pool.TryGet()
	assert.False(t, ok)
}
