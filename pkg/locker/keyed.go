package locker

import (
	"sync"

	"github.com/rs/zerolog"
)

// KeyArgs is the argument of a Keyed acquisition.
type KeyArgs[K comparable, A any] struct {
	Key  K
	Args A
}

// At returns the KeyArgs for an acquisition of key.
func At[K comparable, A any](key K, args A) KeyArgs[K, A] {
	return KeyArgs[K, A]{Key: key, Args: args}
}

// Keyed maps keys to independent locks. A lock is created on the first
// acquisition of its key and is reference counted; it is removed once
// every acquisition of the key has been released, so an unbounded key
// space does not leak.
type Keyed[K comparable, A any] struct {
	newLock func() Lock[A]
	resolve Resolver[K]
	logger  zerolog.Logger

	mu    sync.Mutex
	locks map[K]*lockRef[A]
}

type lockRef[A any] struct {
	lock  Lock[A]
	count int
}

// NewKeyed returns a Keyed lock that builds one lock per key with newLock.
// Keys are normalized with resolve before lookup; a nil resolve uses keys
// as they are.
func NewKeyed[K comparable, A any](newLock func() Lock[A], resolve Resolver[K], opts ...Option) *Keyed[K, A] {
	o := newOptions(opts)
	if resolve == nil {
		resolve = Identity[K]
	}
	return &Keyed[K, A]{
		newLock: newLock,
		resolve: resolve,
		logger:  o.logger.With().Str("c", "keyed").Logger(),
		locks:   make(map[K]*lockRef[A]),
	}
}

// KeyedLocks returns a factory of Keyed locks built over newLock.
func KeyedLocks[K comparable, A any](newLock func() Lock[A], resolve Resolver[K], opts ...Option) func() Lock[KeyArgs[K, A]] {
	return func() Lock[KeyArgs[K, A]] { return NewKeyed(newLock, resolve, opts...) }
}

// Acquire acquires the lock of ka.Key, creating it if needed.
func (k *Keyed[K, A]) Acquire(ka KeyArgs[K, A]) *Pending {
	key := k.resolve(ka.Key)

	k.mu.Lock()
	ref, ok := k.locks[key]
	if !ok {
		ref = &lockRef[A]{lock: k.newLock()}
		k.locks[key] = ref
	}
	ref.count++
	p := ref.lock.Acquire(ka.Args)
	k.mu.Unlock()

	if !ok {
		k.logger.Debug().Any("key", key).Msg("CREATE")
	}
	return &Pending{
		ready:   p.ready,
		yield:   p.yield,
		release: once(func() { k.release(key, ref, p) }),
	}
}

func (k *Keyed[K, A]) release(key K, ref *lockRef[A], p *Pending) {
	p.releaser()()

	k.mu.Lock()
	ref.count--
	evict := ref.count == 0
	if evict {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	if evict {
		k.logger.Debug().Any("key", key).Msg("EVICT")
	}
}

// WaitForUnlock waits on the lock of ka.Key. A key with no live lock is
// uncontended and returns immediately.
func (k *Keyed[K, A]) WaitForUnlock(ka KeyArgs[K, A]) {
	key := k.resolve(ka.Key)

	k.mu.Lock()
	ref, ok := k.locks[key]
	k.mu.Unlock()

	if ok {
		ref.lock.WaitForUnlock(ka.Args)
	}
}

// WithLock runs fn while holding the lock of key and releases it on every
// exit path. The error or panic of fn is propagated.
func (k *Keyed[K, A]) WithLock(key K, args A, fn func() error) error {
	return WithPermissions([]*Pending{k.Acquire(At(key, args))}, fn)
}

// Len returns the number of keys with a live lock.
func (k *Keyed[K, A]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
