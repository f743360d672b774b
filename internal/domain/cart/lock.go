package cart

import "sync"

// cartLocks serializes mutations per cart id within a process. Entries are
// dropped once no caller holds or waits on them.
type cartLocks struct {
	mu    sync.Mutex
	locks map[string]*cartLock
}

type cartLock struct {
	sync.Mutex
	refs int
}

// lock acquires the lock for id and returns its release func.
func (l *cartLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*cartLock{}
	}
	cl, ok := l.locks[id]
	if !ok {
		cl = &cartLock{}
		l.locks[id] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.Lock()
	return func() {
		cl.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
