package engine

import "sync"

// instanceLocks hands out one mutex per workflow instance id. Advancement is
// a read-modify-write of current_step/status; two concurrent replies (e.g. a
// duplicate webhook delivery) must not both observe the same step.
type instanceLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newInstanceLocks() *instanceLocks {
	return &instanceLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *instanceLocks) get(instanceID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[instanceID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[instanceID] = m
	}
	return m
}
