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
	"slices"

	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/shapes"
)

func (t *Tensor) newView(shape shapes.Shape, byteStrides []int64, offset int64) *Tensor {
	return &Tensor{
		shape:       shape,
		byteStrides: byteStrides,
		flat:        t.flat,
		data:        t.data,
		numBytes:    t.numBytes,
		offset:      offset,
		isView:      true,
	}
}

// Transpose returns a view of the tensor with the axes permuted: axis i of the result is axis permutation[i]
// of t.
func (t *Tensor) Transpose(permutation ...int) (*Tensor, error) {
	shape, err := shapes.TransposeShape(t.shape, permutation)
	if err != nil {
		return nil, errors.WithMessage(err, "Tensor.Transpose")
	}
	byteStrides := make([]int64, len(permutation))
	for axis, srcAxis := range permutation {
		byteStrides[axis] = t.byteStrides[srcAxis]
	}
	return t.newView(shape, byteStrides, t.offset), nil
}

// BroadcastTo returns a view of the tensor expanded to the given dimensions, without copying.
//
// Axes are aligned on the right: t can have a lower rank, and its axes of dimension 1 can be expanded.
// Expanded axes have a byte stride of 0, so the view must not be written to.
func (t *Tensor) BroadcastTo(dimensions ...int) (*Tensor, error) {
	broadcast, err := shapes.BroadcastDimensions(t.shape.Dimensions, dimensions)
	if err != nil {
		return nil, errors.WithMessagef(err, "Tensor.BroadcastTo(%v) of %s", dimensions, t.shape)
	}
	if !slices.Equal(broadcast, dimensions) {
		return nil, errors.Errorf("Tensor.BroadcastTo(%v): tensor %s can't be broadcast to the requested dimensions",
			dimensions, t.shape)
	}
	rankOffset := len(dimensions) - t.Rank()
	byteStrides := make([]int64, len(dimensions))
	for axis := rankOffset; axis < len(dimensions); axis++ {
		srcAxis := axis - rankOffset
		if t.shape.Dimensions[srcAxis] == dimensions[axis] {
			byteStrides[axis] = t.byteStrides[srcAxis]
		}
	}
	return t.newView(shapes.Make(t.DType(), dimensions...), byteStrides, t.offset), nil
}

// Slice returns a view with the given axis restricted to the elements start, start+step, ... up to
// (and excluding) end.
//
// A negative step walks the axis backwards, from start down to (and excluding) end: use end=-1 to include
// index 0. The step can't be 0.
func (t *Tensor) Slice(axis, start, end, step int) (*Tensor, error) {
	if axis < 0 {
		axis += t.Rank()
	}
	if axis < 0 || axis >= t.Rank() {
		return nil, errors.Errorf("Tensor.Slice: axis %d out of range for %s", axis, t.shape)
	}
	dim := t.shape.Dimensions[axis]
	var count int
	switch {
	case step > 0:
		if start < 0 || end > dim || start > end {
			return nil, errors.Errorf("Tensor.Slice: range [%d:%d:%d] invalid for axis %d of dimension %d",
				start, end, step, axis, dim)
		}
		count = (end - start + step - 1) / step
	case step < 0:
		if start >= dim || end < -1 || start < end {
			return nil, errors.Errorf("Tensor.Slice: range [%d:%d:%d] invalid for axis %d of dimension %d",
				start, end, step, axis, dim)
		}
		count = (start - end - step - 1) / -step
	default:
		return nil, errors.Errorf("Tensor.Slice: step can't be 0")
	}

	shape := t.shape.Clone()
	shape.Dimensions[axis] = count
	byteStrides := slices.Clone(t.byteStrides)
	byteStrides[axis] = t.byteStrides[axis] * int64(step)
	offset := t.offset
	if count > 0 {
		offset += int64(start) * t.byteStrides[axis]
	}
	return t.newView(shape, byteStrides, offset), nil
}

// Reverse returns a view with the given axis reversed. Its byte stride becomes negative.
func (t *Tensor) Reverse(axis int) (*Tensor, error) {
	if axis < 0 {
		axis += t.Rank()
	}
	if axis < 0 || axis >= t.Rank() {
		return nil, errors.Errorf("Tensor.Reverse: axis %d out of range for %s", axis, t.shape)
	}
	dim := t.shape.Dimensions[axis]
	return t.Slice(axis, dim-1, -1, -1)
}
