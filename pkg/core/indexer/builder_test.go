// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package indexer

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/require"
)

func TestNewTensorRef(t *testing.T) {
	buf := make([]int16, 6)
	ref := NewTensorRef(unsafe.Pointer(&buf[0]), 2, []int64{2, 3}, []int64{6, 2})
	require.Equal(t, 2, ref.Rank)
	require.Equal(t, int64(6), ref.NumElements())
	require.True(t, ref.IsDenseRowMajor())
	transposed := transposedRef(buf, 2, 3)
	require.False(t, transposed.IsDenseRowMajor())
	fmt.Printf("\t%s\n", &ref)
	require.Contains(t, ref.String(), "elementSize=2, extents=[2 3], byteStrides=[6 2]")

	require.Panics(t, func() { _ = NewTensorRef(nil, 2, []int64{2, 3}, []int64{2}) })
	require.Panics(t, func() { _ = NewTensorRef(nil, 2, make([]int64, MaxDims+1), make([]int64, MaxDims+1)) })
	err := exceptions.TryCatch[error](func() { _ = NewTensorRef(nil, 0, nil, nil) })
	require.Error(t, err)
	fmt.Printf("\texpected error: %v\n", err)
}

func TestNewBroadcast(t *testing.T) {
	t.Run("RankPadding", func(t *testing.T) {
		x := make([]float32, 2*3*4)
		bias := make([]float32, 4)
		scalar := make([]float32, 1)
		out := make([]float32, 2*3*4)
		ix, err := NewBroadcast(
			[]TensorRef{denseRef(x, 2, 3, 4), denseRef(bias, 4), denseRef(scalar)},
			[]TensorRef{denseRef(out, 2, 3, 4)})
		require.NoError(t, err)
		require.NoError(t, ix.Validate())
		require.Equal(t, 3, ix.NDims)
		require.Equal(t, [MaxDims]int64{12, 4, 1, 0}, ix.PrimaryStrides)
		require.Equal(t, [MaxDims]int64{1, 1, 4, 0}, ix.Inputs[1].Extents)
		require.Equal(t, [MaxDims]int64{0, 0, 4, 0}, ix.Inputs[1].ByteStrides)
		require.Equal(t, 3, ix.Inputs[2].Rank)
		require.Equal(t, [MaxDims]int64{}, ix.Inputs[2].ByteStrides)
		for w := range ix.NumWorkloads() {
			require.Equal(t, unsafe.Pointer(&bias[w%4]), ix.InputPtr(1, w))
			require.Equal(t, unsafe.Pointer(&scalar[0]), ix.InputPtr(2, w))
		}
	})

	t.Run("NoOutputs", func(t *testing.T) {
		a := make([]int64, 3)
		b := make([]int64, 4)
		ix, err := NewBroadcast([]TensorRef{denseRef(a, 3, 1), denseRef(b, 4)}, nil)
		require.NoError(t, err)
		require.Equal(t, [MaxDims]int64{3, 4, 0, 0}, ix.PrimaryShape)
		require.Equal(t, 0, ix.NumOutputs)
	})

	t.Run("Errors", func(t *testing.T) {
		buf := make([]float32, 12)
		ref := denseRef(buf, 3, 4)
		_, err := NewBroadcast(make([]TensorRef, MaxInputs+1), []TensorRef{ref})
		require.Error(t, err)
		_, err = NewBroadcast([]TensorRef{ref}, make([]TensorRef, MaxOutputs+1))
		require.Error(t, err)
		_, err = NewBroadcast(nil, nil)
		require.Error(t, err)

		// Incompatible input.
		_, err = NewBroadcast([]TensorRef{denseRef(buf, 3, 2)}, []TensorRef{ref})
		require.Error(t, err)

		// Inputs would require the output to grow.
		_, err = NewBroadcast([]TensorRef{denseRef(buf, 2, 3, 2)}, []TensorRef{denseRef(buf, 3, 2)})
		require.Error(t, err)
		_, err = NewBroadcast([]TensorRef{ref}, []TensorRef{denseRef(buf, 1, 4)})
		require.Error(t, err)

		// Outputs must all have the same extents.
		_, err = NewBroadcast([]TensorRef{ref}, []TensorRef{ref, denseRef(buf, 4, 3)})
		require.Error(t, err)
		fmt.Printf("\texpected error: %v\n", err)
	})

	t.Run("Contiguity", func(t *testing.T) {
		buf := make([]float64, 12)
		out := make([]float64, 12)

		// Axes of dimension 1 don't affect contiguity, whatever their stride.
		odd := NewTensorRef(unsafe.Pointer(&buf[0]), 8, []int64{3, 1, 4}, []int64{32, 1000, 8})
		ix, err := NewBroadcast([]TensorRef{odd}, []TensorRef{denseRef(out, 3, 1, 4)})
		require.NoError(t, err)
		require.True(t, ix.InputsContiguous[0])

		// A slice with step 2 on the last axis is not contiguous.
		strided := NewTensorRef(unsafe.Pointer(&buf[0]), 8, []int64{3, 2}, []int64{32, 16})
		ix, err = NewBroadcast([]TensorRef{strided}, []TensorRef{denseRef(out, 3, 2)})
		require.NoError(t, err)
		require.False(t, ix.InputsContiguous[0])
		require.True(t, ix.OutputsContiguous[0])
		for w := range ix.NumWorkloads() {
			row, col := w/2, w%2
			require.Equal(t, unsafe.Pointer(&buf[row*4+col*2]), ix.InputPtr(0, w))
		}
	})
}

func TestNewReduction(t *testing.T) {
	in := make([]int32, 2*3*4)

	t.Run("KeepDims", func(t *testing.T) {
		out := make([]int32, 2*4)
		ix, err := NewReduction(denseRef(in, 2, 3, 4), denseRef(out, 2, 1, 4), []int{1})
		require.NoError(t, err)
		require.NoError(t, ix.Validate())
		require.Equal(t, [MaxDims]int64{2, 3, 4, 0}, ix.PrimaryShape)
		require.Equal(t, [MaxDims]int64{16, 0, 4, 0}, ix.Outputs[0].ByteStrides)
		for w := range ix.NumWorkloads() {
			coords := ix.Coordinates(w)
			require.Equal(t, unsafe.Pointer(&out[coords[0]*4+coords[2]]), ix.OutputPtr(w))
		}
	})

	t.Run("Squeezed", func(t *testing.T) {
		out := make([]int32, 3)
		ix, err := NewReduction(denseRef(in, 2, 3, 4), denseRef(out, 3), []int{0, -1})
		require.NoError(t, err)
		require.NoError(t, ix.Validate())
		require.Equal(t, [MaxDims]int64{0, 4, 0, 0}, ix.Outputs[0].ByteStrides)
		for w := range ix.NumWorkloads() {
			require.Equal(t, unsafe.Pointer(&out[ix.Coordinates(w)[1]]), ix.OutputPtr(w))
		}
	})

	t.Run("AllAxes", func(t *testing.T) {
		out := make([]int32, 1)
		ix, err := NewReduction(denseRef(in, 2, 3, 4), denseRef(out), nil)
		require.NoError(t, err)
		for w := range ix.NumWorkloads() {
			require.Equal(t, unsafe.Pointer(&out[0]), ix.OutputPtr(w))
		}
	})

	t.Run("TrivialAxis", func(t *testing.T) {
		// Reducing over an axis of dimension 1 keeps the output contiguous.
		out := make([]int32, 2*3*4)
		ix, err := NewReduction(denseRef(in, 2, 3, 4, 1), denseRef(out, 2, 3, 4), []int{3})
		require.NoError(t, err)
		require.True(t, ix.OutputsContiguous[0])
	})

	t.Run("Errors", func(t *testing.T) {
		out := make([]int32, 8)
		_, err := NewReduction(denseRef(in, 2, 3, 4), denseRef(out, 2, 4), []int{3})
		require.Error(t, err)
		_, err = NewReduction(denseRef(in, 2, 3, 4), denseRef(out, 2, 4), []int{1, 1})
		require.Error(t, err)
		_, err = NewReduction(denseRef(in, 2, 3, 4), denseRef(out, 8), []int{1})
		require.Error(t, err)
		_, err = NewReduction(denseRef(in, 2, 3, 4), denseRef(out, 4, 2), []int{1})
		require.Error(t, err)
		_, err = NewReduction(denseRef(in, 2, 3, 4), denseRef(out, 2, 2, 2), []int{1})
		require.Error(t, err)
		fmt.Printf("\texpected error: %v\n", err)
	})
}

func TestIndexer_Validate(t *testing.T) {
	in := make([]float32, 12)
	out := make([]float32, 12)
	build := func() *Indexer {
		ix, err := NewBroadcast([]TensorRef{denseRef(in, 3, 4)}, []TensorRef{denseRef(out, 3, 4)})
		require.NoError(t, err)
		require.NoError(t, ix.Validate())
		return ix
	}

	ix := build()
	ix.NDims = MaxDims + 1
	require.Error(t, ix.Validate())

	ix = build()
	ix.NumInputs = MaxInputs + 1
	require.Error(t, ix.Validate())

	ix = build()
	ix.NumOutputs = -1
	require.Error(t, ix.Validate())

	ix = build()
	ix.PrimaryStrides[0] = 3
	require.Error(t, ix.Validate())

	ix = build()
	ix.Inputs[0].Rank = 1
	require.Error(t, ix.Validate())

	ix = build()
	ix.Inputs[0].Extents[1] = 2
	require.Error(t, ix.Validate())

	ix = build()
	ix.Outputs[0].Base = nil
	require.Error(t, ix.Validate())

	// Contiguity flag that lies about the layout.
	ix = build()
	ix.Inputs[0] = transposedRef(in, 4, 3)
	require.Error(t, ix.Validate())
	ix.InputsContiguous[0] = false
	require.NoError(t, ix.Validate())
}
