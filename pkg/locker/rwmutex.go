package locker

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Mode is the access type of an RWMutex acquisition.
type Mode uint8

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// Access is the argument of an RWMutex acquisition.
type Access[A any] struct {
	Mode Mode
	Args A
}

// As returns the Access arguments for an acquisition in mode m.
func As[A any](m Mode, args A) Access[A] {
	return Access[A]{Mode: m, Args: args}
}

// RWStats is a snapshot of an RWMutex's counters.
type RWStats struct {
	Readers        int // readers counted in, granted or about to be
	BlockedReaders int // readers waiting for earlier writers
	Writers        int // writers holding or queued
}

// RWMutex is a reader/writer lock layered over two inner locks: the read
// gate, held by the current group of readers or by a writer, and the
// write gate, which serializes writers in arrival order.
//
// By default the lock is writer-preferring: a reader waits for every
// writer that arrived before it, so a steady stream of readers cannot
// starve a writer. With PreferRead, readers join an active group even
// while writers wait.
//
// The first reader of a group acquires the read gate with its own
// arguments; later readers of the same group share that grant.
type RWMutex[A any] struct {
	readGate   Lock[A]
	writeGate  Lock[A]
	preferRead bool
	logger     zerolog.Logger

	mu      sync.Mutex
	readers int
	blocked int
	group   *Pending        // read gate acquisition held for the readers
	writers []chan struct{} // outstanding writers, closed on release
}

func NewRWMutex[A any](newLock func() Lock[A], opts ...Option) *RWMutex[A] {
	o := newOptions(opts)
	return &RWMutex[A]{
		readGate:   newLock(),
		writeGate:  newLock(),
		preferRead: o.preferRead,
		logger:     o.logger.With().Str("c", "rwmutex").Logger(),
	}
}

// RWMutexes returns a factory of RWMutex instances built over newLock.
func RWMutexes[A any](newLock func() Lock[A], opts ...Option) func() Lock[Access[A]] {
	return func() Lock[Access[A]] { return NewRWMutex(newLock, opts...) }
}

func (rw *RWMutex[A]) Acquire(a Access[A]) *Pending {
	if a.Mode == Write {
		return rw.acquireWrite(a.Args)
	}
	return rw.acquireRead(a.Args)
}

func (rw *RWMutex[A]) acquireRead(args A) *Pending {
	rw.mu.Lock()
	var ahead []chan struct{}
	if !rw.preferRead {
		ahead = slices.Clone(rw.writers)
	}
	if len(ahead) == 0 {
		p := rw.enter(args)
		rw.mu.Unlock()
		return p
	}
	rw.blocked++
	rw.mu.Unlock()

	rw.logger.Debug().Int("writers", len(ahead)).Msg("READ_BLOCKED")
	return async(func() Releaser {
		for _, w := range ahead {
			<-w
		}
		rw.mu.Lock()
		rw.blocked--
		p := rw.enter(args)
		rw.mu.Unlock()
		return p.Wait()
	})
}

// enter counts a reader in. The first reader of a group acquires the
// read gate; later readers share its grant. Must be called with rw.mu held.
func (rw *RWMutex[A]) enter(args A) *Pending {
	joined := rw.readers > 0
	if !joined {
		rw.group = rw.readGate.Acquire(args)
	}
	rw.readers++
	group := rw.group
	return &Pending{
		ready:   group.ready,
		yield:   joined,
		release: once(func() { rw.leave(group) }),
	}
}

func (rw *RWMutex[A]) leave(group *Pending) {
	release := group.releaser()

	rw.mu.Lock()
	rw.readers--
	last := rw.readers == 0
	if last {
		rw.group = nil
	}
	rw.mu.Unlock()

	if last {
		release()
	}
}

func (rw *RWMutex[A]) acquireWrite(args A) *Pending {
	done := make(chan struct{})

	rw.mu.Lock()
	rw.writers = append(rw.writers, done)
	gate := rw.writeGate.Acquire(args)
	rw.mu.Unlock()

	return async(func() Releaser {
		releaseGate := gate.Wait()
		releaseReaders := rw.readGate.Acquire(args).Wait()
		return once(func() {
			releaseReaders()
			releaseGate()

			rw.mu.Lock()
			rw.writers = slices.DeleteFunc(rw.writers, func(w chan struct{}) bool { return w == done })
			rw.mu.Unlock()
			close(done)
		})
	})
}

// WaitForUnlock blocks until an acquisition in a.Mode would be granted
// without waiting. For writes it waits once for every writer outstanding
// at call time and then for the reader group to drain.
func (rw *RWMutex[A]) WaitForUnlock(a Access[A]) {
	rw.mu.Lock()
	writers := slices.Clone(rw.writers)
	readers := rw.readers
	rw.mu.Unlock()

	if a.Mode == Read && rw.preferRead {
		if readers == 0 {
			rw.readGate.WaitForUnlock(a.Args)
		}
		return
	}
	for _, w := range writers {
		<-w
	}
	if a.Mode == Write {
		rw.readGate.WaitForUnlock(a.Args)
	}
}

// Stats returns a snapshot of the lock's counters.
func (rw *RWMutex[A]) Stats() RWStats {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return RWStats{
		Readers:        rw.readers,
		BlockedReaders: rw.blocked,
		Writers:        len(rw.writers),
	}
}
