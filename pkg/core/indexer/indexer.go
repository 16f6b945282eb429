// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package indexer maps a linear "workload" index to the address of the corresponding element in each
// operand of an elementwise or reduction operation.
//
// Kernels iterate over a flat index space, [0, Indexer.NumWorkloads()), and for each workload ask the Indexer
// where the element of each input and output operand is. The Indexer takes care of broadcasting
// (operands with byte stride 0 on some axes), reductions (outputs with byte stride 0 on the reduced axes)
// and non-contiguous layouts (transposed or sliced views).
//
// The Indexer is built once (see NewBroadcast and NewReduction) and is immutable afterwards: it can be used
// concurrently, without locking, from any number of goroutines.
//
// The resolution methods trust the state of the Indexer and perform no validation on the hot path. Use
// Indexer.Validate to check the invariants once after construction.
package indexer

import (
	"fmt"
	"strings"
	"unsafe"
)

const (
	// MaxDims is the maximum rank of the operands supported by the Indexer.
	MaxDims = 4

	// MaxInputs is the maximum number of input operands of an Indexer.
	MaxInputs = 4

	// MaxOutputs is the maximum number of output operands of an Indexer.
	MaxOutputs = 2
)

// Indexer resolves workload indices to operand addresses.
//
// All fields are populated once, by NewBroadcast, NewReduction or by hand, and must not change afterwards.
type Indexer struct {
	// NumInputs and NumOutputs are the number of active operands.
	NumInputs, NumOutputs int

	// Inputs and Outputs operands. Only the first NumInputs/NumOutputs are active.
	Inputs  [MaxInputs]TensorRef
	Outputs [MaxOutputs]TensorRef

	// InputsContiguous and OutputsContiguous flag operands whose memory, walked in the iteration
	// order of PrimaryShape, is densely packed: the workload index is directly their element index.
	InputsContiguous  [MaxInputs]bool
	OutputsContiguous [MaxOutputs]bool

	// PrimaryShape is the unified iteration shape. For broadcasting operations it is the output shape,
	// for reductions it is the input shape.
	PrimaryShape [MaxDims]int64

	// PrimaryStrides are the mixed-radix divisors used to decompose a workload index into per-axis
	// coordinates of PrimaryShape (row-major: the last axis is the fastest). They are not memory strides.
	PrimaryStrides [MaxDims]int64

	// NDims is the number of active axes in PrimaryShape and PrimaryStrides.
	NDims int
}

// NumWorkloads returns the total number of workloads, the product of the PrimaryShape dimensions.
func (ix *Indexer) NumWorkloads() int64 {
	n := int64(1)
	for axis := range ix.NDims {
		n *= ix.PrimaryShape[axis]
	}
	return n
}

// Coordinates decomposes the workload index into its coordinates in PrimaryShape.
// Axes >= NDims are left as 0.
func (ix *Indexer) Coordinates(workloadIdx int64) (coords [MaxDims]int64) {
	for axis := range ix.NDims {
		divisor := ix.PrimaryStrides[axis]
		coords[axis] = workloadIdx / divisor
		workloadIdx %= divisor
	}
	return
}

// WorkloadIndex is the inverse of Coordinates: it recombines the coordinates in PrimaryShape into
// the workload index.
func (ix *Indexer) WorkloadIndex(coords [MaxDims]int64) (workloadIdx int64) {
	for axis := range ix.NDims {
		workloadIdx += coords[axis] * ix.PrimaryStrides[axis]
	}
	return
}

// InputPtr returns the address of the element of the input operand inputIdx for the given workload.
//
// It returns nil if inputIdx is not in [0, NumInputs) or if workloadIdx is negative.
func (ix *Indexer) InputPtr(inputIdx int, workloadIdx int64) unsafe.Pointer {
	if inputIdx < 0 || inputIdx >= ix.NumInputs {
		return nil
	}
	return ix.Resolve(&ix.Inputs[inputIdx], ix.InputsContiguous[inputIdx], workloadIdx)
}

// OutputPtr returns the address of the element of the first output for the given workload, or nil if
// workloadIdx is negative.
func (ix *Indexer) OutputPtr(workloadIdx int64) unsafe.Pointer {
	return ix.Resolve(&ix.Outputs[0], ix.OutputsContiguous[0], workloadIdx)
}

// OutputPtrAt returns the address of the element of the output operand outputIdx for the given workload,
// or nil if workloadIdx is negative.
//
// Unlike InputPtr, outputIdx is not checked against NumOutputs: the caller must keep it in
// [0, NumOutputs). An outputIdx >= MaxOutputs panics with an index out of range. Use CheckedOutputPtr
// for the checked version.
func (ix *Indexer) OutputPtrAt(outputIdx int, workloadIdx int64) unsafe.Pointer {
	return ix.Resolve(&ix.Outputs[outputIdx], ix.OutputsContiguous[outputIdx], workloadIdx)
}

// CheckedOutputPtr is like OutputPtrAt, but returns nil if outputIdx is not in [0, NumOutputs) or
// if workloadIdx is not in [0, NumWorkloads()).
func (ix *Indexer) CheckedOutputPtr(outputIdx int, workloadIdx int64) unsafe.Pointer {
	if outputIdx < 0 || outputIdx >= ix.NumOutputs || workloadIdx >= ix.NumWorkloads() {
		return nil
	}
	return ix.Resolve(&ix.Outputs[outputIdx], ix.OutputsContiguous[outputIdx], workloadIdx)
}

// String implements fmt.Stringer, and pretty-prints the Indexer.
func (ix *Indexer) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Indexer{primaryShape=%v, primaryStrides=%v, workloads=%d",
		ix.PrimaryShape[:ix.NDims], ix.PrimaryStrides[:ix.NDims], ix.NumWorkloads())
	for ii := range ix.NumInputs {
		_, _ = fmt.Fprintf(&sb, ", input#%d=%s (contiguous=%v)", ii, &ix.Inputs[ii], ix.InputsContiguous[ii])
	}
	for ii := range ix.NumOutputs {
		_, _ = fmt.Fprintf(&sb, ", output#%d=%s (contiguous=%v)", ii, &ix.Outputs[ii], ix.OutputsContiguous[ii])
	}
	sb.WriteString("}")
	return sb.String()
}
