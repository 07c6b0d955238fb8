package lens

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

const ErrorLogPrefix = "!! "

// ErrGroupLimitCPU returns an errgroup limited to NumCPU.
func ErrGroupLimitCPU() *errgroup.Group {
	errGroup := &errgroup.Group{}
	errGroup.SetLimit(runtime.NumCPU())
	return errGroup
}

func newDefaultStripedMutex() *stripedMutex {
	return newStripedMutex(251) // prime number provides better distributions
}

// newStripedMutex creates a new mutex with the given concurrency.
func newStripedMutex(stripes uint) *stripedMutex {
	m := &stripedMutex{make([]sync.Mutex, stripes)}
	return m
}

// stripedMutex serializes work per pool index without a lock for every index.
type stripedMutex struct {
	locks []sync.Mutex
}

// Lock acquire lock for a given index, returning the mutex for an easy unlock.
func (m *stripedMutex) Lock(index int) *sync.Mutex {
	l := m.getLock(index)
	l.Lock()
	return l
}

func (m *stripedMutex) getLock(index int) *sync.Mutex {
	if index < 0 {
		index = -index
	}
	return &m.locks[uint(index)%uint(len(m.locks))]
}
