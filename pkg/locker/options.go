package locker

import "github.com/rs/zerolog"

type options struct {
	logger     zerolog.Logger
	greedy     bool
	preferRead bool
}

// Option configures a lock at construction.
type Option func(*options)

// WithLogger sets the logger used for debug events. Locks log nothing by default.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Greedy selects the queuing policy of a Reentrant lock. A greedy lock
// (the default) lets a domain join its own queued acquisition ahead of
// domains that arrived later; a non-greedy lock queues every new request
// in arrival order unless the domain already holds the lock.
func Greedy(greedy bool) Option {
	return func(o *options) { o.greedy = greedy }
}

// PreferRead makes an RWMutex reader-preferring: readers join an active
// reader group even while writers wait, which may starve writers.
// RWMutex is writer-preferring by default.
func PreferRead(preferRead bool) Option {
	return func(o *options) { o.preferRead = preferRead }
}

func newOptions(opts []Option) options {
	o := options{
		logger: zerolog.Nop(),
		greedy: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
