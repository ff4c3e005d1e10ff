package delivery

import "sync"

// threadLocks serializes appends and batch read-transitions per thread id
// so a thread's message sequence stays strictly append-ordered. Entries
// are created on first use and kept; the map is bounded by the number of
// threads the process has touched.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (t *threadLocks) lock(threadID string) (unlock func()) {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[string]*sync.Mutex)
	}
	l, ok := t.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[threadID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
