// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package indexer

import (
	"fmt"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/sunbuny/Open3D/pkg/core/shapes"
)

// TensorRef describes the memory layout of one operand: where it starts, the size of its elements
// and, for each axis, its extent and its stride in bytes.
//
// A byte stride of 0 on an axis encodes a broadcast axis: the same memory is addressed for every
// index along it.
//
// TensorRef doesn't own the memory pointed by Base: the caller must keep it alive (and valid) for as long
// as addresses are resolved from it. It is a plain value, safe to copy.
type TensorRef struct {
	// Base points to the first byte of the operand.
	Base unsafe.Pointer

	// Rank is the number of active axes, 0 <= Rank <= MaxDims.
	Rank int

	// ElementSize in bytes.
	ElementSize int64

	// Extents holds the number of elements per axis. Axes >= Rank are ignored.
	Extents [MaxDims]int64

	// ByteStrides holds the number of bytes to advance one element on each axis. Axes >= Rank are ignored.
	ByteStrides [MaxDims]int64
}

// NewTensorRef creates a TensorRef with the given layout.
//
// It panics if len(extents) != len(byteStrides), if the rank is larger than MaxDims or if elementSize <= 0:
// these are bugs in the caller.
func NewTensorRef(base unsafe.Pointer, elementSize int64, extents, byteStrides []int64) TensorRef {
	if len(extents) != len(byteStrides) {
		exceptions.Panicf("indexer.NewTensorRef: got %d extents but %d strides", len(extents), len(byteStrides))
	}
	if len(extents) > MaxDims {
		exceptions.Panicf("indexer.NewTensorRef: rank %d is larger than the maximum supported (MaxDims=%d)", len(extents), MaxDims)
	}
	if elementSize <= 0 {
		exceptions.Panicf("indexer.NewTensorRef: invalid element size %d", elementSize)
	}
	ref := TensorRef{
		Base:        base,
		Rank:        len(extents),
		ElementSize: elementSize,
	}
	copy(ref.Extents[:], extents)
	copy(ref.ByteStrides[:], byteStrides)
	return ref
}

// DenseTensorRef returns the TensorRef for a densely packed, row-major, operand of the given shape
// starting at base.
func DenseTensorRef(base unsafe.Pointer, shape shapes.Shape) TensorRef {
	extents := make([]int64, shape.Rank())
	for axis, dim := range shape.Dimensions {
		extents[axis] = int64(dim)
	}
	byteStrides := shape.ByteStrides()
	if byteStrides == nil {
		byteStrides = make([]int64, 0)
	}
	return NewTensorRef(base, int64(shape.ElementSize()), extents, byteStrides)
}

// NumElements returns the product of the extents of the active axes.
func (ref *TensorRef) NumElements() int64 {
	n := int64(1)
	for axis := range ref.Rank {
		n *= ref.Extents[axis]
	}
	return n
}

// IsDenseRowMajor returns whether the operand is densely packed in row-major order for its own extents:
// no gaps and no broadcast axes. Axes of extent 1 are ignored, since they are never advanced.
func (ref *TensorRef) IsDenseRowMajor() bool {
	expected := ref.ElementSize
	for axis := ref.Rank - 1; axis >= 0; axis-- {
		extent := ref.Extents[axis]
		if extent == 1 {
			continue
		}
		if ref.ByteStrides[axis] != expected {
			return false
		}
		expected *= extent
	}
	return true
}

// isContiguousFor returns whether walking the operand in the row-major iteration order of primaryShape
// advances its memory by exactly one element per step.
func (ref *TensorRef) isContiguousFor(primaryShape *[MaxDims]int64, nDims int) bool {
	if ref.Rank != nDims {
		return false
	}
	expected := ref.ElementSize
	for axis := nDims - 1; axis >= 0; axis-- {
		dim := primaryShape[axis]
		if dim == 1 {
			continue
		}
		if ref.Extents[axis] != dim || ref.ByteStrides[axis] != expected {
			return false
		}
		expected *= dim
	}
	return true
}

// String implements fmt.Stringer.
func (ref *TensorRef) String() string {
	return fmt.Sprintf("TensorRef{base=%p, elementSize=%d, extents=%v, byteStrides=%v}",
		ref.Base, ref.ElementSize, ref.Extents[:ref.Rank], ref.ByteStrides[:ref.Rank])
}
