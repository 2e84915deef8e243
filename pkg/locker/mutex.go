package locker

import "sync"

// Mutex is a FIFO mutual exclusion lock. The Nth acquisition is granted
// only after the releaser of the (N-1)th has been called.
// The zero value is an unlocked mutex.
type Mutex struct {
	mu   sync.Mutex
	tail <-chan struct{} // closed once every issued acquisition has released
}

func NewMutex() *Mutex {
	return new(Mutex)
}

// Mutexes is a factory of Mutex instances, for use as the innermost
// layer of a lock stack.
func Mutexes() Lock[NoArgs] {
	return NewMutex()
}

// Acquire appends a link to the chain. The acquisition becomes ready when
// the previous link closes and closes its own link on release.
func (m *Mutex) Acquire(NoArgs) *Pending {
	next := make(chan struct{})

	m.mu.Lock()
	prev := m.tail
	m.tail = next
	m.mu.Unlock()

	if prev == nil {
		prev = closedChan
	}
	return &Pending{ready: prev, release: once(func() { close(next) })}
}

// WaitForUnlock blocks until every acquisition issued before the call
// has been released.
func (m *Mutex) WaitForUnlock(NoArgs) {
	m.mu.Lock()
	tail := m.tail
	m.mu.Unlock()

	if tail != nil {
		<-tail
	}
}

// Lock acquires the mutex, blocking until it is granted.
func (m *Mutex) Lock() Releaser {
	return m.Acquire(NoArgs{}).Wait()
}
