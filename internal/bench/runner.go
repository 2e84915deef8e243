// Package bench drives concurrent workloads through a lock stack and
// checks that the stack keeps readers and writers apart.
package bench

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/forscht/relock/pkg/locker"
)

// Run executes the workload described by cfg and reports what happened.
// Each worker owns one Domain and performs cfg.Ops operations on random
// keys. The run stops at the first worker error or when ctx is done.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := build(cfg)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:        sg.Generate(),
		Stack:     cfg.Stack,
		Workers:   cfg.Workers,
		Ops:       cfg.Workers * cfg.Ops,
		StartedAt: time.Now(),
	}
	log.Info().Str("c", "bench").Str("id", report.ID.String()).Strs("stack", cfg.Stack).
		Int("workers", cfg.Workers).Int("ops", cfg.Ops).Msg("run started")

	var (
		m                        = newMonitor()
		reads, writes, reentries atomic.Int64
		keys                     = make(map[string]struct{})
	)
	for _, key := range cfg.Keys {
		keys[s.scope(key)] = struct{}{}
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for w := 0; w < cfg.Workers; w++ {
		rnd := rand.New(rand.NewSource(cfg.Seed + int64(w)))
		p.Go(func(ctx context.Context) error {
			d := locker.NewDomain()
			for i := 0; i < cfg.Ops; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				op := Op{Domain: d, Key: cfg.Keys[rnd.Intn(len(cfg.Keys))], Mode: locker.Write}
				if s.rw && rnd.Float64() < cfg.ReadRatio {
					op.Mode = locker.Read
				}

				pending := s.lock.Acquire(op)
				select {
				case <-pending.Ready():
				case <-ctx.Done():
					go func() { pending.Wait()() }()
					return ctx.Err()
				}

				err := locker.WithPermissions([]*locker.Pending{pending}, func() error {
					leave := m.enter(s.scope(op.Key), op.Mode)
					defer leave()

					if s.reentrant {
						for j := 0; j < cfg.Reentry; j++ {
							s.lock.Acquire(op).Wait()()
							reentries.Add(1)
						}
					}
					time.Sleep(cfg.Hold)
					return nil
				})
				if err != nil {
					return err
				}

				if op.Mode == locker.Read {
					reads.Add(1)
				} else {
					writes.Add(1)
				}
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		log.Warn().Str("c", "bench").Str("id", report.ID.String()).Err(err).Msg("run aborted")
		return nil, err
	}

	report.Reads = reads.Load()
	report.Writes = writes.Load()
	report.Reentries = reentries.Load()
	report.Violations, report.MaxReaders = m.result()
	report.Keys = len(keys)
	report.Elapsed = time.Since(report.StartedAt)

	log.Info().Str("c", "bench").Str("id", report.ID.String()).Int("violations", report.Violations).
		Dur("elapsed", report.Elapsed).Msg("run finished")
	return report, nil
}
