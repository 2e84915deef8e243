package locker

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Scoped is the argument of a Reentrant acquisition: the acquiring
// Domain and the arguments forwarded to the inner lock.
type Scoped[A any] struct {
	Domain *Domain
	Args   A
}

// In returns the Scoped arguments for an acquisition by d.
func In[A any](d *Domain, args A) Scoped[A] {
	return Scoped[A]{Domain: d, Args: args}
}

// Reentrant is a lock that a single Domain may acquire several times
// without blocking on itself, while every other Domain is excluded.
//
// Only the first acquisition of a domain reaches the inner lock; nested
// acquisitions join it and their inner arguments are ignored. The inner
// lock is released when the last of them is.
//
// Permissions are never upgraded: over an RWMutex, a domain holding Read
// that re-enters with Write gets the shared Read permission back. Take
// Write on the first acquisition if the domain may need to write.
type Reentrant[A any] struct {
	inner  Lock[A]
	greedy bool
	logger zerolog.Logger

	mu      sync.Mutex
	records map[*Domain]*record // greedy
	queue   []*record           // non-greedy, arrival order
}

// record is the queued acquisition of one domain.
type record struct {
	domain  *Domain
	count   int
	pending *Pending // inner acquisition
}

func NewReentrant[A any](newLock func() Lock[A], opts ...Option) *Reentrant[A] {
	o := newOptions(opts)
	return &Reentrant[A]{
		inner:   newLock(),
		greedy:  o.greedy,
		logger:  o.logger.With().Str("c", "reentrant").Logger(),
		records: make(map[*Domain]*record),
	}
}

// ReentrantLocks returns a factory of Reentrant locks built over newLock.
func ReentrantLocks[A any](newLock func() Lock[A], opts ...Option) func() Lock[Scoped[A]] {
	return func() Lock[Scoped[A]] { return NewReentrant(newLock, opts...) }
}

// Acquire acquires the lock for s.Domain. A nil Domain acquires as a
// fresh anonymous domain.
func (r *Reentrant[A]) Acquire(s Scoped[A]) *Pending {
	if s.Domain == nil {
		s.Domain = NewDomain()
	}

	r.mu.Lock()
	rec, joined := r.enqueue(s)
	count := rec.count
	r.mu.Unlock()

	if joined {
		r.logger.Debug().Stringer("domain", s.Domain).Int("count", count).Msg("REENTER")
	}
	return &Pending{
		ready:   rec.pending.ready,
		yield:   joined,
		release: once(func() { r.release(rec) }),
	}
}

// enqueue returns the record the acquisition belongs to and whether it
// joined an existing one. Must be called with r.mu held.
func (r *Reentrant[A]) enqueue(s Scoped[A]) (*record, bool) {
	if r.greedy {
		if rec, ok := r.records[s.Domain]; ok {
			rec.count++
			return rec, true
		}
		rec := r.newRecord(s)
		r.records[s.Domain] = rec
		return rec, false
	}

	if n := len(r.queue); n > 0 && r.queue[n-1].domain == s.Domain {
		r.queue[n-1].count++
		return r.queue[n-1], true
	}
	// A domain that already holds the lock must not queue behind itself.
	for _, rec := range r.queue {
		if rec.domain == s.Domain && rec.pending.Granted() {
			rec.count++
			return rec, true
		}
	}
	rec := r.newRecord(s)
	r.queue = append(r.queue, rec)
	return rec, false
}

func (r *Reentrant[A]) newRecord(s Scoped[A]) *record {
	return &record{
		domain:  s.Domain,
		count:   1,
		pending: r.inner.Acquire(s.Args),
	}
}

func (r *Reentrant[A]) release(rec *record) {
	release := rec.pending.releaser()

	r.mu.Lock()
	rec.count--
	done := rec.count == 0
	if done {
		r.forget(rec)
	}
	r.mu.Unlock()

	if done {
		r.logger.Debug().Stringer("domain", rec.domain).Msg("RELEASE")
		release()
	}
}

// forget removes rec from the bookkeeping. Must be called with r.mu held.
func (r *Reentrant[A]) forget(rec *record) {
	if r.greedy {
		if r.records[rec.domain] == rec {
			delete(r.records, rec.domain)
		}
		return
	}
	r.queue = slices.DeleteFunc(r.queue, func(q *record) bool { return q == rec })
}

// WaitForUnlock returns immediately if s.Domain holds the lock, since
// acquiring it would not block; otherwise it waits on the inner lock.
func (r *Reentrant[A]) WaitForUnlock(s Scoped[A]) {
	if s.Domain != nil && r.holds(s.Domain) {
		return
	}
	r.inner.WaitForUnlock(s.Args)
}

func (r *Reentrant[A]) holds(d *Domain) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.greedy {
		rec, ok := r.records[d]
		return ok && rec.pending.Granted()
	}
	return slices.ContainsFunc(r.queue, func(rec *record) bool {
		return rec.domain == d && rec.pending.Granted()
	})
}
