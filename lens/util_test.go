package lens

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripedMutexSameIndexExclusive(t *testing.T) {
	if testing.Short() {
		t.Skip("skip in short mode")
	}
	t.Parallel()

	sm := newStripedMutex(8)

	var mu sync.Mutex
	var running, maxRunning int
	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			l := sm.Lock(3)

			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()

			l.Unlock()
			wg.Done()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxRunning)
}

func TestStripedMutexDifferentIndexesConcurrent(t *testing.T) {
	if testing.Short() {
		t.Skip("skip in short mode")
	}
	t.Parallel()

	sm := newStripedMutex(8)

	var mu sync.Mutex
	var running, maxRunning int
	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(index int) {
			l := sm.Lock(index)

			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()

			l.Unlock()
			wg.Done()
		}(i % 2)
	}
	wg.Wait()

	require.Greater(t, maxRunning, 1)
}

func TestStripedMutexIndexMapping(t *testing.T) {
	t.Parallel()

	sm := newStripedMutex(8)
	assert.Same(t, sm.getLock(1), sm.getLock(9))
	assert.Same(t, sm.getLock(2), sm.getLock(-2))
	assert.NotSame(t, sm.getLock(1), sm.getLock(2))
}

func TestErrGroupLimitCPU(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	errGroup := ErrGroupLimitCPU()
	for i := 0; i < 100; i++ {
		errGroup.Go(func() error {
			count.Add(1)
			return nil
		})
	}
	require.NoError(t, errGroup.Wait())
	assert.Equal(t, int32(100), count.Load())
}
