// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package launcher drives parallel iteration over a flat workload index space.
//
// The range [0, n) is split into grains of at least Config.Grain workloads, and each grain is run
// in a worker of an internal pool. Kernels use it to call their per-workload body, which
// resolves addresses through an indexer.Indexer.
package launcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/internal/workerspool"
	"k8s.io/klog/v2"
)

// Launcher runs loops over workload indices, in parallel when configured so.
//
// It is safe for concurrent use.
type Launcher struct {
	config Config
	pool   *workerspool.Pool
}

// New creates a Launcher from a configuration string. See ParseConfig for the format.
func New(config string) (*Launcher, error) {
	cfg, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg), nil
}

// MustNew is like New, but panics on error.
func MustNew(config string) *Launcher {
	return must.M1(New(config))
}

// NewWithConfig creates a Launcher from an already parsed Config.
func NewWithConfig(cfg Config) *Launcher {
	if cfg.Grain <= 0 {
		cfg.Grain = DefaultGrain
	}
	return &Launcher{config: cfg, pool: workerspool.New(cfg.Parallelism)}
}

// Sequential returns a Launcher that runs everything in the calling goroutine.
func Sequential() *Launcher {
	return NewWithConfig(Config{Parallelism: 0, Grain: DefaultGrain})
}

// Config returns the configuration of the launcher.
func (l *Launcher) Config() Config { return l.config }

// IsParallel returns whether the launcher may run grains concurrently.
func (l *Launcher) IsParallel() bool { return l.pool.IsEnabled() }

// String implements fmt.Stringer.
func (l *Launcher) String() string {
	return fmt.Sprintf("Launcher(%s)", l.config)
}

// NumGrains returns the number of grains the range [0, n) is split into.
func (l *Launcher) NumGrains(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return (n + l.config.Grain - 1) / l.config.Grain
}

// ParallelForRange calls body(start, end) over a partition of [0, n) into contiguous grains.
//
// Grains may run concurrently, so body must be safe to call from multiple goroutines on disjoint ranges.
// It returns when all started grains are finished. If ctx is done no new grains are started and ctx.Err()
// is returned. A panic in body is converted to an error; the first one is returned.
func (l *Launcher) ParallelForRange(ctx context.Context, n int64, body func(start, end int64)) error {
	if n <= 0 {
		return ctx.Err()
	}
	grain := l.config.Grain
	numGrains := l.NumGrains(n)
	if klog.V(2).Enabled() {
		klog.Infof("ParallelForRange(n=%d): %d grains of %d, %s", n, numGrains, grain, l)
	}

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	failed := func() bool {
		errMu.Lock()
		defer errMu.Unlock()
		return firstErr != nil
	}

	for start := int64(0); start < n; start += grain {
		if err := ctx.Err(); err != nil {
			setErr(err)
			break
		}
		if failed() {
			break
		}
		end := min(start+grain, n)
		task := func() {
			defer wg.Done()
			if exception := exceptions.Try(func() { body(start, end) }); exception != nil {
				setErr(panicToError(exception, start, end))
			}
		}
		wg.Add(1)
		if numGrains == 1 {
			task()
		} else {
			l.pool.WaitToStart(task)
		}
	}
	wg.Wait()
	return firstErr
}

// ParallelFor calls body(w) once for every workload index w in [0, n).
//
// See ParallelForRange for the concurrency and error semantics.
func (l *Launcher) ParallelFor(ctx context.Context, n int64, body func(w int64)) error {
	return l.ParallelForRange(ctx, n, func(start, end int64) {
		for w := start; w < end; w++ {
			body(w)
		}
	})
}

// SequentialFor calls body(w) for every w in [0, n) in order, in the calling goroutine.
// It checks ctx once per grain.
func (l *Launcher) SequentialFor(ctx context.Context, n int64, body func(w int64)) error {
	for start := int64(0); start < n; start += l.config.Grain {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+l.config.Grain, n)
		for w := start; w < end; w++ {
			body(w)
		}
	}
	return nil
}

func panicToError(exception any, start, end int64) error {
	if err, ok := exception.(error); ok {
		return errors.WithMessagef(err, "panic in workloads [%d, %d)", start, end)
	}
	return errors.Errorf("panic in workloads [%d, %d): %v", start, end, exception)
}
