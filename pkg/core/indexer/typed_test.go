// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package indexer

import (
	"testing"
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// testTypedMatchesGeneric checks that the typed resolution addresses exactly the same bytes as the
// generic one, for contiguous, broadcast and transposed operands of type T.
func testTypedMatchesGeneric[T dtypes.Supported](t *testing.T) {
	const rows, cols = 3, 4
	dense := make([]T, rows*cols)
	column := make([]T, rows)
	transposed := make([]T, rows*cols)
	out := make([]T, rows*cols)
	ix, err := NewBroadcast(
		[]TensorRef{denseRef(dense, rows, cols), denseRef(column, rows, 1), transposedRef(transposed, cols, rows)},
		[]TensorRef{denseRef(out, rows, cols)})
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, false}, ix.InputsContiguous[:ix.NumInputs])

	for w := -1; w < rows*cols; w++ {
		workloadIdx := int64(w)
		for ii := range ix.NumInputs {
			want := ix.InputPtr(ii, workloadIdx)
			require.Equal(t, want, unsafe.Pointer(Input[T](ix, ii, workloadIdx)), "input #%d, workload %d", ii, w)
			for _, isContiguous := range []bool{false, ix.InputsContiguous[ii]} {
				require.Equal(t, ix.Resolve(&ix.Inputs[ii], isContiguous, workloadIdx),
					unsafe.Pointer(Ptr[T](ix, &ix.Inputs[ii], isContiguous, workloadIdx)))
			}
		}
		require.Equal(t, ix.OutputPtr(workloadIdx), unsafe.Pointer(Output[T](ix, workloadIdx)))
		require.Equal(t, ix.OutputPtrAt(0, workloadIdx), unsafe.Pointer(OutputAt[T](ix, 0, workloadIdx)))
	}
}

func TestTyped_MatchesGeneric(t *testing.T) {
	t.Run("bool", testTypedMatchesGeneric[bool])
	t.Run("int", testTypedMatchesGeneric[int])
	t.Run("int8", testTypedMatchesGeneric[int8])
	t.Run("int16", testTypedMatchesGeneric[int16])
	t.Run("int32", testTypedMatchesGeneric[int32])
	t.Run("int64", testTypedMatchesGeneric[int64])
	t.Run("uint8", testTypedMatchesGeneric[uint8])
	t.Run("uint16", testTypedMatchesGeneric[uint16])
	t.Run("uint32", testTypedMatchesGeneric[uint32])
	t.Run("uint64", testTypedMatchesGeneric[uint64])
	t.Run("float16", testTypedMatchesGeneric[float16.Float16])
	t.Run("bfloat16", testTypedMatchesGeneric[bfloat16.BFloat16])
	t.Run("float32", testTypedMatchesGeneric[float32])
	t.Run("float64", testTypedMatchesGeneric[float64])
	t.Run("complex64", testTypedMatchesGeneric[complex64])
	t.Run("complex128", testTypedMatchesGeneric[complex128])
}

func TestTyped_Values(t *testing.T) {
	// [2, 3] matrix, read through its [3, 2] transposed view.
	matrix := []float32{
		0, 1, 2,
		10, 11, 12,
	}
	out := make([]float32, 6)
	ix, err := NewBroadcast([]TensorRef{transposedRef(matrix, 2, 3)}, []TensorRef{denseRef(out, 3, 2)})
	require.NoError(t, err)
	for w := range ix.NumWorkloads() {
		*Output[float32](ix, w) = *Input[float32](ix, 0, w)
	}
	require.Equal(t, []float32{0, 10, 1, 11, 2, 12}, out)
}
