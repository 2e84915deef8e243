// Package locker provides composable mutual exclusion primitives.
// Every lock in the package implements Lock, parameterized by the
// arguments it needs for one acquisition, so locks can be stacked:
// a Reentrant lock over a Keyed lock over an RWMutex over a Mutex.
//
// Acquisition is split in two steps. Acquire never blocks: it fixes the
// caller's place in the queue and returns a Pending. Pending.Wait blocks
// until the permission is granted and returns the Releaser that gives it
// back. A Releaser must be called exactly once per acquisition; extra
// calls are ignored.
package locker

import (
	"runtime"
	"sync/atomic"
)

// Releaser relinquishes one granted permission. It is idempotent.
type Releaser func()

// NoArgs is the argument type of locks that need no acquisition arguments.
type NoArgs = struct{}

// Lock is the contract shared by every lock in this package.
type Lock[A any] interface {
	// Acquire queues an acquisition and returns without blocking.
	Acquire(args A) *Pending
	// WaitForUnlock blocks until the lock is free for args. It does not
	// grant access.
	WaitForUnlock(args A)
}

// Pending is an issued acquisition that resolves to a Releaser.
type Pending struct {
	ready   <-chan struct{}
	release Releaser // valid once ready is closed
	yield   bool
}

// Ready returns a channel that is closed once the permission is granted.
func (p *Pending) Ready() <-chan struct{} { return p.ready }

// Granted reports whether the permission has been granted.
func (p *Pending) Granted() bool {
	select {
	case <-p.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until the permission is granted and returns its Releaser.
// Grants that did not contend still yield the processor once, so callers
// observe the same scheduling behavior whether or not they had to wait.
func (p *Pending) Wait() Releaser {
	<-p.ready
	if p.yield {
		runtime.Gosched()
	}
	return p.release
}

// releaser waits for the grant without yielding. Used on release paths.
func (p *Pending) releaser() Releaser {
	<-p.ready
	return p.release
}

// async runs fn on its own goroutine and resolves to the Releaser it returns.
func async(fn func() Releaser) *Pending {
	ready := make(chan struct{})
	p := &Pending{ready: ready}
	go func() {
		p.release = fn()
		close(ready)
	}()
	return p
}

var closedChan = initClosedChan()

func initClosedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// grant is the record behind a Releaser. The released flag is flipped
// exactly once, so release runs at most once however often it is called.
type grant struct {
	released atomic.Bool
	release  func()
}

func (g *grant) do() {
	if g.released.CompareAndSwap(false, true) {
		g.release()
	}
}

func once(release func()) Releaser {
	g := &grant{release: release}
	return g.do
}

// Adapt exposes l as a Lock over a different argument type.
func Adapt[A, B any](l Lock[B], fn func(A) B) Lock[A] {
	return adapted[A, B]{l, fn}
}

type adapted[A, B any] struct {
	l  Lock[B]
	fn func(A) B
}

func (a adapted[A, B]) Acquire(args A) *Pending { return a.l.Acquire(a.fn(args)) }

func (a adapted[A, B]) WaitForUnlock(args A) { a.l.WaitForUnlock(a.fn(args)) }
