// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Saturate(t *testing.T) {
	wantTasks := 5
	pool := New(wantTasks)

	var count atomic.Int32
	allStarted := make(chan struct{})
	done := make(chan struct{})
	go func() {
		pool.Saturate(func() {
			got := count.Add(1)
			runtime.Gosched()
			if int(got) == wantTasks {
				close(allStarted)
				return
			}
			<-allStarted
		})
		close(done)
	}()

	select {
	case <-done:
		// Success
	case <-time.After(time.Second):
		t.Fatal("Timeout before all tasks were executed.")
	}
	require.Equal(t, int32(wantTasks), count.Load())
	require.Equal(t, 0, pool.NumRunning())

	// No parallelism: runs inline exactly once.
	pool = New(0)
	require.False(t, pool.IsEnabled())
	count.Store(0)
	pool.Saturate(func() { count.Add(1) })
	assert.Equal(t, int32(1), count.Load())

	// Unlimited.
	pool = New(-1)
	require.True(t, pool.IsUnlimited())
	count.Store(0)
	pool.Saturate(func() { count.Add(1) })
	assert.Equal(t, int32(runtime.NumCPU()), count.Load())
}

func TestPool_WaitToStart(t *testing.T) {
	pool := New(2)
	var running, maxRunning atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		pool.WaitToStart(func() {
			defer wg.Done()
			current := running.Add(1)
			for {
				previous := maxRunning.Load()
				if current <= previous || maxRunning.CompareAndSwap(previous, current) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		})
	}
	wg.Wait()
	require.LessOrEqual(t, int(maxRunning.Load()), 2)
	require.GreaterOrEqual(t, int(maxRunning.Load()), 1)

	// Parallelism disabled: runs inline.
	pool = New(0)
	ran := false
	pool.WaitToStart(func() { ran = true })
	require.True(t, ran)
	require.False(t, pool.StartIfAvailable(func() {}))
}
