package market

import "sync"

// requestLocks hands out one mutex per request identifier. Every mutation of
// a request and its bids runs under that mutex, which gives the engine its
// per-request serialization boundary; operations on distinct requests never
// contend.
//
// Entries are kept for the life of the process, terminal requests included:
// removing one while a goroutine still waits on it would hand out a second
// mutex for the same identifier and break the serialization guarantee. The
// footprint is one mutex per request ever touched, in line with the
// in-memory store holding every request anyway.
type requestLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRequestLocks() *requestLocks {
	return &requestLocks{locks: map[string]*sync.Mutex{}}
}

// acquire locks the mutex of the given request and returns the unlock
// function.
func (l *requestLocks) acquire(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
