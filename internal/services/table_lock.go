package services

import (
	"sync"
	"time"
)

// DefaultLockTimeout bounds how long a registration request waits for a
// contended table before failing with ErrBusy.
const DefaultLockTimeout = 3 * time.Second

// TableLocker serializes registration, cancellation and promotion per
// table. Operations on different tables never block each other. The
// in-process lock pairs with the row-level lock the transaction takes on
// the table row, which covers multi-process deployments.
type TableLocker struct {
	mu    sync.Mutex
	locks map[uint]*tableLock
}

type tableLock struct {
	ch   chan struct{}
	refs int
}

func NewTableLocker() *TableLocker {
	return &TableLocker{locks: make(map[uint]*tableLock)}
}

// Acquire takes the lock for a table, waiting at most timeout. It
// returns a release func on success and ErrBusy on timeout.
func (l *TableLocker) Acquire(tableID uint, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[tableID]
	if !ok {
		lk = &tableLock{ch: make(chan struct{}, 1)}
		l.locks[tableID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case lk.ch <- struct{}{}:
		return func() {
			<-lk.ch
			l.release(tableID, lk)
		}, nil
	case <-timer.C:
		l.release(tableID, lk)
		return nil, ErrBusy
	}
}

func (l *TableLocker) release(tableID uint, lk *tableLock) {
	l.mu.Lock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, tableID)
	}
	l.mu.Unlock()
}
