/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package tensors implement a strided host `Tensor`: a multidimensional array stored in a Go slice,
// addressed through per-axis byte strides.
//
// Tensors own their storage, and views (Transpose, BroadcastTo, Slice) share it with the tensor they
// were created from, changing only the layout. Views are generally not contiguous, which is what
// the indexer.Indexer is built to address: Tensor.Ref returns the indexer.TensorRef describing the
// tensor layout.
//
// There are various ways to construct a Tensor:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int): creates a Tensor with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2}) // Tensor with [[1,2], [3,4]]
package tensors

import (
	"fmt"
	"reflect"
	"slices"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/sunbuny/Open3D/pkg/core/indexer"
	"github.com/sunbuny/Open3D/pkg/core/shapes"
)

// Tensor is a multidimensional array, possibly a strided view on the storage of another Tensor.
//
// Tensors are not safe for concurrent mutation: kernels writing to a Tensor must not overlap with
// readers of the same storage.
type Tensor struct {
	shape shapes.Shape

	// byteStrides per axis; 0 for broadcast axes and possibly negative for reversed axes.
	byteStrides []int64

	// flat holds the storage, a slice of the Go type of the dtype. It is shared by views.
	flat any

	// data points to the first byte of flat, and numBytes is the size of flat in bytes.
	data     unsafe.Pointer
	numBytes int

	// offset in bytes from data to the element at index [0, 0, ...].
	offset int64

	isView bool
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
//
// It panics if you provide an invalid shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	size := shape.Size()
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, max(size, 1))
	strides := shape.ByteStrides()
	if strides == nil {
		strides = []int64{}
	}
	return &Tensor{
		shape:       shape.Clone(),
		byteStrides: strides,
		flat:        flatV.Interface(),
		data:        flatV.UnsafePointer(),
		numBytes:    size * shape.ElementSize(),
	}
}

// FromScalarAndDimensions creates a tensor with the given dimensions, filled with the
// given scalar value replicated everywhere.
// The `DType` is inferred from the value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor {
	t := FromShape(shapes.Make(dtypes.FromGenericsType[T](), dimensions...))
	flat := unsafe.Slice((*T)(t.data), t.Size())
	for ii := range flat {
		flat[ii] = value
	}
	return t
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
// The `DType` is inferred from the `data` type.
//
// It panics if the size of data is wrong for the shape.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	// Copy bytes: the storage of int is an int64 (or int32) slice.
	var zero T
	dataAsBytes := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), uintptr(len(data))*unsafe.Sizeof(zero))
	if len(dataAsBytes) != t.numBytes {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data has %d bytes but tensor storage has %d bytes",
			shape, len(dataAsBytes), t.numBytes)
	}
	copy(t.bytes(), dataAsBytes)
	return t
}

// FromScalar creates a scalar tensor with the given value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

func (t *Tensor) bytes() []byte {
	return unsafe.Slice((*byte)(t.data), t.numBytes)
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size returns the number of elements of the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// ByteStrides returns a copy of the per-axis byte strides.
func (t *Tensor) ByteStrides() []int64 { return slices.Clone(t.byteStrides) }

// IsView returns whether the tensor shares the storage of another tensor.
func (t *Tensor) IsView() bool { return t.isView }

// IsContiguous returns whether the tensor elements are densely packed in row-major order, starting at the
// beginning of its storage. Axes of dimension 1 are ignored.
func (t *Tensor) IsContiguous() bool {
	if t.offset != 0 {
		return false
	}
	dense := t.shape.ByteStrides()
	for axis, dim := range t.shape.Dimensions {
		if dim != 1 && t.byteStrides[axis] != dense[axis] {
			return false
		}
	}
	return true
}

// Ref returns the indexer.TensorRef describing the layout of the tensor.
//
// The returned reference keeps the storage alive. It panics if the rank is larger than indexer.MaxDims.
func (t *Tensor) Ref() indexer.TensorRef {
	extents := make([]int64, t.Rank())
	for axis, dim := range t.shape.Dimensions {
		extents[axis] = int64(dim)
	}
	return indexer.NewTensorRef(unsafe.Add(t.data, t.offset), int64(t.shape.ElementSize()), extents, t.byteStrides)
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	if t.isView {
		return fmt.Sprintf("Tensor%s{byteStrides=%v, offset=%d, view}", t.shape, t.byteStrides, t.offset)
	}
	return fmt.Sprintf("Tensor%s", t.shape)
}

// elementPtr returns the address of the element at the given indices. It doesn't check bounds.
func (t *Tensor) elementPtr(indices []int) unsafe.Pointer {
	offset := t.offset
	for axis, idx := range indices {
		offset += int64(idx) * t.byteStrides[axis]
	}
	return unsafe.Add(t.data, offset)
}
