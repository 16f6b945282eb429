// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultValues(), cfg)

	cfg, err = ParseConfig("parallelism=3, grain=100")
	require.NoError(t, err)
	require.Equal(t, Config{Parallelism: 3, Grain: 100}, cfg)
	require.Equal(t, "parallelism=3,grain=100", cfg.String())

	cfg, err = ParseConfig("parallelism=-5")
	require.NoError(t, err)
	require.Equal(t, -1, cfg.Parallelism)
	require.Equal(t, int64(DefaultGrain), cfg.Grain)

	for _, config := range []string{"parallelism", "grain=0", "grain=x", "parallelism=two", "workers=2"} {
		_, err = ParseConfig(config)
		require.Error(t, err, "config %q should fail", config)
		fmt.Printf("\t%q -> %v\n", config, err)
	}
}

func TestDefault(t *testing.T) {
	t.Setenv(OPEN3D_LAUNCHER, "parallelism=2,grain=10")
	l := Default()
	require.NotNil(t, l)
	require.Same(t, l, Default())
	fmt.Printf("\tDefault() = %s\n", l)
}

func TestParallelFor(t *testing.T) {
	for _, config := range []string{"parallelism=0,grain=7", "parallelism=4,grain=7", "parallelism=-1,grain=1", "parallelism=2"} {
		t.Run(config, func(t *testing.T) {
			l := MustNew(config)
			for _, n := range []int64{0, 1, 6, 7, 8, 100, 1001} {
				counts := make([]atomic.Int32, n)
				err := l.ParallelFor(context.Background(), n, func(w int64) {
					counts[w].Add(1)
				})
				require.NoError(t, err)
				for w := range counts {
					require.Equal(t, int32(1), counts[w].Load(), "n=%d, workload %d", n, w)
				}
			}
		})
	}
}

func TestParallelForRange(t *testing.T) {
	l := MustNew("parallelism=3,grain=10")
	require.True(t, l.IsParallel())
	require.Equal(t, int64(4), l.NumGrains(31))
	require.Equal(t, int64(0), l.NumGrains(0))

	var total, numCalls atomic.Int64
	err := l.ParallelForRange(context.Background(), 31, func(start, end int64) {
		require.Less(t, start, end)
		require.LessOrEqual(t, end-start, int64(10))
		total.Add(end - start)
		numCalls.Add(1)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(31), total.Load())
	assert.Equal(t, int64(4), numCalls.Load())
}

func TestSequential(t *testing.T) {
	l := Sequential()
	require.False(t, l.IsParallel())
	var order []int64
	require.NoError(t, l.ParallelFor(context.Background(), 5, func(w int64) { order = append(order, w) }))
	require.Equal(t, []int64{0, 1, 2, 3, 4}, order)

	order = nil
	require.NoError(t, l.SequentialFor(context.Background(), 3, func(w int64) { order = append(order, w) }))
	require.Equal(t, []int64{0, 1, 2}, order)
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := MustNew("parallelism=2,grain=1").ParallelFor(ctx, 100, func(w int64) { called = true })
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
	require.ErrorIs(t, Sequential().SequentialFor(ctx, 10, func(int64) {}), context.Canceled)

	// Cancel in the middle of a sequential run: no more grains are started.
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	var numRun int64
	err = MustNew("parallelism=0,grain=10").ParallelFor(ctx, 100, func(w int64) {
		numRun++
		if w == 15 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int64(20), numRun)
}

func TestPanics(t *testing.T) {
	l := MustNew("parallelism=2,grain=4")
	err := l.ParallelFor(context.Background(), 16, func(w int64) {
		if w == 9 {
			panic("boom")
		}
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.Contains(t, err.Error(), "[8, 12)")
	require.Panics(t, func() { MustNew("grain=-1") })
}
