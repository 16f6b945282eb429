// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape_Strides(t *testing.T) {
	shape := Make(dtypes.F32, 2, 3, 4)
	require.Equal(t, []int{12, 4, 1}, shape.Strides())
	require.Equal(t, []int64{48, 16, 4}, shape.ByteStrides())

	shape = Make(dtypes.F64, 5)
	require.Equal(t, []int{1}, shape.Strides())
	require.Equal(t, []int64{8}, shape.ByteStrides())

	shape = Make(dtypes.F32, 3, 1, 2)
	require.Equal(t, []int{2, 2, 1}, shape.Strides())

	// Zero-sized and scalars.
	require.Equal(t, []int{0, 0}, Make(dtypes.F32, 0, 3).Strides())
	require.Nil(t, Make(dtypes.F32).Strides())
}

func TestShape_Iter(t *testing.T) {
	// Only one value to iterate:
	shape := Make(dtypes.F32, 1, 1, 1, 1)
	collect := make([][]int, 0, shape.Size())
	for flatIdx, indices := range shape.Iter() {
		collect = append(collect, slices.Clone(indices))
		require.Equal(t, 0, flatIdx)
	}
	require.Equal(t, [][]int{{0, 0, 0, 0}}, collect)

	shape = Make(dtypes.F64, 3, 2)
	collect = make([][]int, 0, shape.Size())
	var counter int
	for flatIdx, indices := range shape.Iter() {
		collect = append(collect, slices.Clone(indices))
		require.Equal(t, counter, flatIdx)
		counter++
	}
	want := [][]int{
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
		{2, 0},
		{2, 1},
	}
	require.Equal(t, want, collect)

	// With axes of dimension 1 in between.
	shape = Make(dtypes.BF16, 3, 1, 2, 1)
	collect = make([][]int, 0, shape.Size())
	counter = 0
	for flatIdx, indices := range shape.Iter() {
		collect = append(collect, slices.Clone(indices))
		require.Equal(t, counter, flatIdx)
		counter++
	}
	want = [][]int{
		{0, 0, 0, 0},
		{0, 0, 1, 0},
		{1, 0, 0, 0},
		{1, 0, 1, 0},
		{2, 0, 0, 0},
		{2, 0, 1, 0},
	}
	require.Equal(t, want, collect)

	// Scalar yields exactly once, zero-sized never.
	counter = 0
	for range Make(dtypes.Int32).Iter() {
		counter++
	}
	require.Equal(t, 1, counter)
	for range Make(dtypes.Int32, 3, 0).Iter() {
		t.Fatal("zero-sized shape should not yield")
	}
}
