// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package indexer

import (
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
)

// The functions below are the typed versions of Indexer.Resolve, Indexer.InputPtr, Indexer.OutputPtr and
// Indexer.OutputPtrAt: they return *T directly, and the contiguous path advances the pointer using the
// size of T, known at compile time, instead of TensorRef.ElementSize.
//
// The caller must make sure T matches the operand's element type (unsafe.Sizeof(T) == ElementSize).

// Ptr returns a pointer to the element of the operand ref for the given workload, or nil for a negative
// workloadIdx.
func Ptr[T dtypes.Supported](ix *Indexer, ref *TensorRef, isContiguous bool, workloadIdx int64) *T {
	if workloadIdx < 0 {
		return nil
	}
	if isContiguous {
		var zero T
		return (*T)(unsafe.Add(ref.Base, uintptr(workloadIdx)*unsafe.Sizeof(zero)))
	}
	var offset int64
	for axis := range ix.NDims {
		divisor := ix.PrimaryStrides[axis]
		coord := workloadIdx / divisor
		workloadIdx %= divisor
		offset += coord * ref.ByteStrides[axis]
	}
	return (*T)(unsafe.Add(ref.Base, offset))
}

// Input returns a pointer to the element of the input inputIdx for the given workload.
//
// It returns nil if inputIdx is not in [0, NumInputs) or if workloadIdx is negative.
func Input[T dtypes.Supported](ix *Indexer, inputIdx int, workloadIdx int64) *T {
	if inputIdx < 0 || inputIdx >= ix.NumInputs {
		return nil
	}
	return Ptr[T](ix, &ix.Inputs[inputIdx], ix.InputsContiguous[inputIdx], workloadIdx)
}

// Output returns a pointer to the element of the first output for the given workload, or nil for a negative
// workloadIdx.
func Output[T dtypes.Supported](ix *Indexer, workloadIdx int64) *T {
	return Ptr[T](ix, &ix.Outputs[0], ix.OutputsContiguous[0], workloadIdx)
}

// OutputAt returns a pointer to the element of the output outputIdx for the given workload, or nil for a
// negative workloadIdx.
//
// As with Indexer.OutputPtrAt, outputIdx is not checked against NumOutputs.
func OutputAt[T dtypes.Supported](ix *Indexer, outputIdx int, workloadIdx int64) *T {
	return Ptr[T](ix, &ix.Outputs[outputIdx], ix.OutputsContiguous[outputIdx], workloadIdx)
}
