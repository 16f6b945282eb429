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

package tensors

import (
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/indexer"
)

// checkDType returns an error if T doesn't match the tensor dtype.
func checkDType[T dtypes.Supported](t *Tensor) error {
	if dtype := dtypes.FromGenericsType[T](); dtype != t.DType() {
		var zero T
		return errors.Errorf("tensor %s has dtype %s, it can't be accessed as %T (%s)", t.shape, t.DType(), zero, dtype)
	}
	return nil
}

// At returns the element at the given indices. It works on views as well.
//
// It panics if T doesn't match the tensor dtype or if the indices are out of range.
func At[T dtypes.Supported](t *Tensor, indices ...int) T {
	if err := checkDType[T](t); err != nil {
		panic(err)
	}
	t.checkIndices(indices)
	return *(*T)(t.elementPtr(indices))
}

// SetAt sets the element at the given indices.
//
// It panics if T doesn't match the tensor dtype or if the indices are out of range. Setting an element
// of a broadcast view sets all elements that share its storage.
func SetAt[T dtypes.Supported](t *Tensor, value T, indices ...int) {
	if err := checkDType[T](t); err != nil {
		panic(err)
	}
	t.checkIndices(indices)
	*(*T)(t.elementPtr(indices)) = value
}

func (t *Tensor) checkIndices(indices []int) {
	if len(indices) != t.Rank() {
		exceptions.Panicf("tensor %s indexed with %d indices", t.shape, len(indices))
	}
	for axis, idx := range indices {
		if idx < 0 || idx >= t.shape.Dimensions[axis] {
			exceptions.Panicf("tensor %s: index %d out of range for axis %d", t.shape, idx, axis)
		}
	}
}

// CopyFlatData returns a copy of the tensor elements in row-major order of its (possibly strided) layout.
func CopyFlatData[T dtypes.Supported](t *Tensor) ([]T, error) {
	if err := checkDType[T](t); err != nil {
		return nil, err
	}
	flat := make([]T, t.Size())
	if len(flat) == 0 {
		return flat, nil
	}
	if t.Rank() > indexer.MaxDims {
		for flatIdx, indices := range t.shape.Iter() {
			flat[flatIdx] = *(*T)(t.elementPtr(indices))
		}
		return flat, nil
	}
	ix, err := indexer.NewBroadcast([]indexer.TensorRef{t.Ref()}, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "CopyFlatData(%s)", t)
	}
	for w := range int64(len(flat)) {
		flat[w] = *indexer.Input[T](ix, 0, w)
	}
	return flat, nil
}

// MustCopyFlatData is like CopyFlatData, but panics on error.
func MustCopyFlatData[T dtypes.Supported](t *Tensor) []T {
	flat, err := CopyFlatData[T](t)
	if err != nil {
		panic(err)
	}
	return flat
}

// Contiguous returns t if it is already contiguous, or a new densely packed copy of it otherwise.
func (t *Tensor) Contiguous() (*Tensor, error) {
	if t.IsContiguous() {
		return t, nil
	}
	return t.Clone()
}

// Clone returns a new densely packed tensor with a copy of the elements of t.
func (t *Tensor) Clone() (*Tensor, error) {
	clone := FromShape(t.shape)
	elementSize := t.shape.ElementSize()
	if t.Size() == 0 {
		return clone, nil
	}
	if t.Rank() > indexer.MaxDims {
		dst := clone.bytes()
		for flatIdx, indices := range t.shape.Iter() {
			copy(dst[flatIdx*elementSize:(flatIdx+1)*elementSize], unsafe.Slice((*byte)(t.elementPtr(indices)), elementSize))
		}
		return clone, nil
	}
	ix, err := indexer.NewBroadcast([]indexer.TensorRef{t.Ref()}, []indexer.TensorRef{clone.Ref()})
	if err != nil {
		return nil, errors.WithMessagef(err, "Clone(%s)", t)
	}
	for w := range ix.NumWorkloads() {
		copy(unsafe.Slice((*byte)(ix.OutputPtr(w)), elementSize), unsafe.Slice((*byte)(ix.InputPtr(0, w)), elementSize))
	}
	return clone, nil
}

// Flat returns the storage of the tensor as a slice of the Go type of its dtype (`any` holding a `[]T`).
//
// For views, it is the storage of the tensor they were created from, which is not in the view's layout.
func (t *Tensor) Flat() any {
	return t.flat
}
