// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"

	"github.com/pkg/errors"
)

// BroadcastDimensions returns the dimensions resulting from broadcasting all the given dimensions
// against each other.
//
// Dimensions are aligned on the right (the last axis): a lower rank operand is implicitly
// prefixed with axes of dimension 1. On each axis the dimensions must either match or be 1.
// Scalars (empty dimensions) broadcast to anything.
func BroadcastDimensions(allDims ...[]int) ([]int, error) {
	rank := 0
	for _, dims := range allDims {
		rank = max(rank, len(dims))
	}
	output := make([]int, rank)
	for axis := range output {
		output[axis] = 1
	}
	for operandIdx, dims := range allDims {
		offset := rank - len(dims)
		for axis, dim := range dims {
			outputAxis := axis + offset
			current := output[outputAxis]
			switch {
			case dim == current || dim == 1:
				// Nothing to change.
			case current == 1:
				output[outputAxis] = dim
			default:
				return nil, errors.Errorf("dimension of axis #%d of operand #%d (%v) cannot be broadcast to %d, "+
					"dimensions must either match or be 1", axis, operandIdx, dims, current)
			}
		}
	}
	return output, nil
}

// BroadcastShapes returns the shape resulting from broadcasting all the given shapes.
// See BroadcastDimensions for details. All shapes must have the same DType.
func BroadcastShapes(allShapes ...Shape) (output Shape, err error) {
	if len(allShapes) == 0 {
		return Invalid(), errors.New("BroadcastShapes requires at least one shape")
	}
	dtype := allShapes[0].DType
	allDims := make([][]int, 0, len(allShapes))
	for ii, shape := range allShapes {
		if !shape.Ok() {
			return Invalid(), errors.Errorf("invalid shape #%d %s given to BroadcastShapes", ii, shape)
		}
		if shape.DType != dtype {
			return Invalid(), errors.Errorf("data types (DType) for BroadcastShapes must match, got %s and %s",
				allShapes[0], shape)
		}
		allDims = append(allDims, shape.Dimensions)
	}
	dims, err := BroadcastDimensions(allDims...)
	if err != nil {
		return Invalid(), errors.WithMessagef(err, "failed to broadcast shapes %v", allShapes)
	}
	return Shape{DType: dtype, Dimensions: dims}, nil
}

// NormalizeAxes returns a copy of the axes where negative values are converted to positive ones (counting from
// the end), after checking that they are in range for the given rank and that there are no repeated axes.
// The returned axes are sorted.
func NormalizeAxes(rank int, axes []int) ([]int, error) {
	normalized := make([]int, 0, len(axes))
	for _, axis := range axes {
		adjusted := axis
		if adjusted < 0 {
			adjusted += rank
		}
		if adjusted < 0 || adjusted >= rank {
			return nil, errors.Errorf("invalid axis %d for rank %d, it must be -rank <= axis < rank", axis, rank)
		}
		normalized = append(normalized, adjusted)
	}
	slices.Sort(normalized)
	for ii := 1; ii < len(normalized); ii++ {
		if normalized[ii] == normalized[ii-1] {
			return nil, errors.Errorf("axes %v repeat axis %d, each axis can appear only once", axes, normalized[ii])
		}
	}
	return normalized, nil
}

// ReduceShape returns the shape of the result of reducing the operand over the given axes.
//
// If keepDims is true the reduced axes are kept with dimension 1, otherwise they are removed.
// If no axes are given, all axes are reduced.
func ReduceShape(operand Shape, axes []int, keepDims bool) (output Shape, err error) {
	if !operand.Ok() {
		return Invalid(), errors.Errorf("invalid shape %s for ReduceShape", operand)
	}
	if len(axes) == 0 {
		axes = make([]int, operand.Rank())
		for axis := range axes {
			axes[axis] = axis
		}
	}
	axes, err = NormalizeAxes(operand.Rank(), axes)
	if err != nil {
		return Invalid(), errors.WithMessagef(err, "ReduceShape(%s)", operand)
	}
	output = Shape{DType: operand.DType, Dimensions: make([]int, 0, operand.Rank())}
	for axis, dim := range operand.Dimensions {
		if slices.Contains(axes, axis) {
			if keepDims {
				output.Dimensions = append(output.Dimensions, 1)
			}
			continue
		}
		output.Dimensions = append(output.Dimensions, dim)
	}
	return output, nil
}

// TransposeShape returns the shape with its axes permuted: output.Dimensions[ii] = operand.Dimensions[permutation[ii]].
//
// There must be one value in permutation for each axis in the operand, and each axis must appear exactly once.
func TransposeShape(operand Shape, permutation []int) (output Shape, err error) {
	rank := operand.Rank()
	if len(permutation) != rank {
		return Invalid(), errors.Errorf("transpose requires all axes permutations to be defined, operand has shape %s, "+
			"but %d permutations were given", operand, len(permutation))
	}
	axesSet := slices.Clone(permutation)
	slices.Sort(axesSet)
	for ii, srcAxis := range axesSet {
		if srcAxis != ii {
			return Invalid(), errors.Errorf("invalid permutation %v given to transpose %s, each axis from 0 to %d "+
				"must appear exactly once", permutation, operand, rank-1)
		}
	}
	output = operand.Clone()
	for axis := range output.Dimensions {
		output.Dimensions[axis] = operand.Dimensions[permutation[axis]]
	}
	return output, nil
}
