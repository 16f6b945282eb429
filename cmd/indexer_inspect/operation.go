// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/indexer"
	"github.com/sunbuny/Open3D/pkg/core/shapes"
	"github.com/sunbuny/Open3D/pkg/core/tensors"
)

type operationConfig struct {
	inputs, output, reduceAxes string
	keepDims                   bool
	dtype                      string
	transposeInputs            bool
}

// operation holds the operands (which own the memory the indexer points to) and the indexer.
type operation struct {
	name    string
	dtype   dtypes.DType
	inputs  []*tensors.Tensor
	outputs []*tensors.Tensor
	ix      *indexer.Indexer
}

var dtypeNames = map[string]dtypes.DType{
	"bool":     dtypes.Bool,
	"int8":     dtypes.Int8,
	"int16":    dtypes.Int16,
	"int32":    dtypes.Int32,
	"int64":    dtypes.Int64,
	"uint8":    dtypes.Uint8,
	"uint16":   dtypes.Uint16,
	"uint32":   dtypes.Uint32,
	"uint64":   dtypes.Uint64,
	"float16":  dtypes.Float16,
	"bfloat16": dtypes.BFloat16,
	"float32":  dtypes.Float32,
	"float64":  dtypes.Float64,
}

func parseDType(name string) (dtypes.DType, error) {
	dtype, found := dtypeNames[strings.ToLower(strings.TrimSpace(name))]
	if !found {
		names := make([]string, 0, len(dtypeNames))
		for name := range dtypeNames {
			names = append(names, name)
		}
		slices.Sort(names)
		return dtypes.InvalidDType, errors.Errorf("unknown dtype %q, valid values are %v", name, names)
	}
	return dtype, nil
}

// parseDimensions parses "3x4x5" into []int{3, 4, 5}. "scalar" is a rank-0 shape.
func parseDimensions(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "scalar" {
		return []int{}, nil
	}
	parts := strings.Split(spec, "x")
	dims := make([]int, len(parts))
	for ii, part := range parts {
		dim, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid dimension %q in shape %q", part, spec)
		}
		if dim < 0 {
			return nil, errors.Errorf("negative dimension %d in shape %q", dim, spec)
		}
		dims[ii] = dim
	}
	return dims, nil
}

func parseAxes(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "all" {
		return nil, nil
	}
	var axes []int
	for _, part := range strings.Split(spec, ",") {
		axis, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid axis %q", part)
		}
		axes = append(axes, axis)
	}
	return axes, nil
}

// newOperand creates a tensor with the given dimensions. If transposed, it is a view with the axes reversed
// of a dense tensor with the reversed dimensions.
func newOperand(dtype dtypes.DType, dims []int, transposed bool) (*tensors.Tensor, error) {
	if !transposed || len(dims) < 2 {
		return tensors.FromShape(shapes.Make(dtype, dims...)), nil
	}
	reversedDims := slices.Clone(dims)
	slices.Reverse(reversedDims)
	permutation := make([]int, len(dims))
	for axis := range permutation {
		permutation[axis] = len(dims) - 1 - axis
	}
	return tensors.FromShape(shapes.Make(dtype, reversedDims...)).Transpose(permutation...)
}

func buildOperation(config operationConfig) (*operation, error) {
	dtype, err := parseDType(config.dtype)
	if err != nil {
		return nil, err
	}
	op := &operation{dtype: dtype}
	var inputsDims [][]int
	for _, spec := range strings.Split(config.inputs, ";") {
		dims, err := parseDimensions(spec)
		if err != nil {
			return nil, err
		}
		inputsDims = append(inputsDims, dims)
		input, err := newOperand(dtype, dims, config.transposeInputs)
		if err != nil {
			return nil, err
		}
		op.inputs = append(op.inputs, input)
	}

	var outputDims []int
	if config.output != "" {
		outputDims, err = parseDimensions(config.output)
		if err != nil {
			return nil, err
		}
	}

	if config.reduceAxes != "" {
		axes, err := parseAxes(config.reduceAxes)
		if err != nil {
			return nil, err
		}
		if len(op.inputs) != 1 {
			return nil, errors.Errorf("reductions take exactly one input, %d given", len(op.inputs))
		}
		if outputDims == nil {
			outputShape, err := shapes.ReduceShape(op.inputs[0].Shape(), axes, config.keepDims)
			if err != nil {
				return nil, err
			}
			outputDims = outputShape.Dimensions
		}
		op.name = "Reduction"
		op.outputs = []*tensors.Tensor{tensors.FromShape(shapes.Make(dtype, outputDims...))}
		inputRef, err := refOf(op.inputs[0])
		if err != nil {
			return nil, err
		}
		outputRef, err := refOf(op.outputs[0])
		if err != nil {
			return nil, err
		}
		op.ix, err = indexer.NewReduction(inputRef, outputRef, axes)
		if err != nil {
			return nil, err
		}
		return op, nil
	}

	if outputDims == nil {
		outputDims, err = shapes.BroadcastDimensions(inputsDims...)
		if err != nil {
			return nil, err
		}
	}
	op.name = "Broadcast"
	op.outputs = []*tensors.Tensor{tensors.FromShape(shapes.Make(dtype, outputDims...))}
	refs := make([]indexer.TensorRef, 0, len(op.inputs)+1)
	for _, operand := range append(slices.Clone(op.inputs), op.outputs[0]) {
		ref, err := refOf(operand)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	op.ix, err = indexer.NewBroadcast(refs[:len(op.inputs)], refs[len(op.inputs):])
	if err != nil {
		return nil, err
	}
	return op, nil
}

func refOf(t *tensors.Tensor) (indexer.TensorRef, error) {
	if t.Rank() > indexer.MaxDims {
		return indexer.TensorRef{}, errors.Errorf("operand %s has rank larger than MaxDims=%d", t.Shape(), indexer.MaxDims)
	}
	return t.Ref(), nil
}
