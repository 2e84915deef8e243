package bench

import (
	"sync"

	"github.com/forscht/relock/pkg/locker"
)

// monitor tracks who is inside each exclusion scope and counts every
// entry that breaks reader/writer exclusion.
type monitor struct {
	mu         sync.Mutex
	scopes     map[string]*occupancy
	violations int
	maxReaders int
}

type occupancy struct {
	readers int
	writers int
}

func newMonitor() *monitor {
	return &monitor{scopes: make(map[string]*occupancy)}
}

// enter records an entry into scope and returns the matching exit.
func (m *monitor) enter(scope string, mode locker.Mode) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.scopes[scope]
	if !ok {
		o = &occupancy{}
		m.scopes[scope] = o
	}
	if mode == locker.Write {
		if o.readers > 0 || o.writers > 0 {
			m.violations++
		}
		o.writers++
	} else {
		if o.writers > 0 {
			m.violations++
		}
		o.readers++
		if o.readers > m.maxReaders {
			m.maxReaders = o.readers
		}
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if mode == locker.Write {
			o.writers--
		} else {
			o.readers--
		}
		if o.readers == 0 && o.writers == 0 {
			delete(m.scopes, scope)
		}
	}
}

func (m *monitor) result() (violations, maxReaders int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations, m.maxReaders
}
