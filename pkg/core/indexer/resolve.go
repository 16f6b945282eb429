// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package indexer

import "unsafe"

// Offset returns the byte offset, relative to ref.Base, of the element of the operand ref for the given workload.
//
// It returns ok=false for a negative workloadIdx: this is the "no element" sentinel, and the caller should
// skip the operand for that workload.
//
// If isContiguous, the offset is simply workloadIdx*ref.ElementSize. Otherwise the workload index is decomposed
// into the coordinates of PrimaryShape, and each coordinate is multiplied by the operand's own byte stride on
// that axis, which is 0 for broadcast or reduced axes.
//
// ref must have been broadcast to the Indexer's NDims, and workloadIdx must be < NumWorkloads(): this is
// not checked.
func (ix *Indexer) Offset(ref *TensorRef, isContiguous bool, workloadIdx int64) (offset int64, ok bool) {
	if workloadIdx < 0 {
		return 0, false
	}
	if isContiguous {
		return workloadIdx * ref.ElementSize, true
	}
	for axis := range ix.NDims {
		divisor := ix.PrimaryStrides[axis]
		coord := workloadIdx / divisor
		workloadIdx %= divisor
		offset += coord * ref.ByteStrides[axis]
	}
	return offset, true
}

// Resolve returns the address of the element of the operand ref for the given workload, or nil for a
// negative workloadIdx.
//
// See Offset for details.
func (ix *Indexer) Resolve(ref *TensorRef, isContiguous bool, workloadIdx int64) unsafe.Pointer {
	offset, ok := ix.Offset(ref, isContiguous, workloadIdx)
	if !ok {
		return nil
	}
	return unsafe.Add(ref.Base, offset)
}
