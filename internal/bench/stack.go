package bench

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/forscht/relock/pkg/locker"
	"github.com/forscht/relock/pkg/validator"
)

// ErrInvalidStack is returned when a stack is not an ordered subsequence
// of reentrant, keyed, rw, mutex ending with mutex.
var ErrInvalidStack = errors.New("invalid lock stack")

// Op is the single argument that drives every layer of a built stack.
type Op struct {
	Domain *locker.Domain
	Key    string
	Mode   locker.Mode
}

type stack struct {
	lock      locker.Lock[Op]
	resolve   locker.Resolver[string]
	keyed     bool
	rw        bool
	reentrant bool
}

// scope names the exclusion scope of key: the resolved key when the
// stack is keyed, the whole stack otherwise.
func (s *stack) scope(key string) string {
	if !s.keyed {
		return ""
	}
	return s.resolve(key)
}

// Build assembles the lock stack described by cfg.
func Build(cfg Config) (locker.Lock[Op], error) {
	s, err := build(cfg)
	if err != nil {
		return nil, err
	}
	return s.lock, nil
}

func build(cfg Config) (*stack, error) {
	if !validator.ValidStack(cfg.Stack) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStack, strings.Join(cfg.Stack, ","))
	}

	s := &stack{
		resolve:   resolver(cfg),
		keyed:     cfg.has("keyed"),
		rw:        cfg.has("rw"),
		reentrant: cfg.has("reentrant"),
	}
	opts := []locker.Option{
		locker.WithLogger(log.Logger),
		locker.Greedy(cfg.Greedy),
		locker.PreferRead(cfg.PreferRead),
	}

	var newLock func() locker.Lock[Op]
	for i := len(cfg.Stack) - 1; i >= 0; i-- {
		inner := newLock
		switch cfg.Stack[i] {
		case "mutex":
			newLock = func() locker.Lock[Op] {
				return locker.Adapt(locker.Mutexes(), func(Op) locker.NoArgs { return locker.NoArgs{} })
			}
		case "rw":
			newLock = func() locker.Lock[Op] {
				return locker.Adapt[Op, locker.Access[Op]](locker.NewRWMutex(inner, opts...), func(op Op) locker.Access[Op] {
					return locker.As(op.Mode, op)
				})
			}
		case "keyed":
			newLock = func() locker.Lock[Op] {
				return locker.Adapt[Op, locker.KeyArgs[string, Op]](locker.NewKeyed(inner, s.resolve, opts...), func(op Op) locker.KeyArgs[string, Op] {
					return locker.At(op.Key, op)
				})
			}
		case "reentrant":
			newLock = func() locker.Lock[Op] {
				return locker.Adapt[Op, locker.Scoped[Op]](locker.NewReentrant(inner, opts...), func(op Op) locker.Scoped[Op] {
					return locker.In(op.Domain, op)
				})
			}
		}
	}

	s.lock = newLock()
	return s, nil
}

func resolver(cfg Config) locker.Resolver[string] {
	switch cfg.Resolver {
	case "path":
		return locker.PathResolver(afero.NewOsFs())
	case "stripe":
		return locker.Striped(uint64(cfg.Stripes))
	default:
		return locker.Identity[string]
	}
}
