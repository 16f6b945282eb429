// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels implements elementwise (unary and binary, with broadcasting) and reduction kernels
// over tensors.Tensor, addressing operands through an indexer.Indexer.
//
// Operands can have any layout (transposed, sliced, broadcast views): the kernels iterate the flat
// workload space built by the indexer, and the work is split by a launcher.Launcher. Reductions write
// many workloads to the same output element, so they run sequentially.
//
// All numeric dtypes are supported, Float16 and BFloat16 are computed in float32.
package kernels

import (
	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/indexer"
	"github.com/sunbuny/Open3D/pkg/core/tensors"
)

// UnaryOp enumerates the supported elementwise unary operations.
type UnaryOp int

const (
	OpCopy UnaryOp = iota
	OpNeg
	OpAbs
)

var unaryOpNames = [...]string{OpCopy: "Copy", OpNeg: "Neg", OpAbs: "Abs"}

func (op UnaryOp) String() string {
	if op < 0 || int(op) >= len(unaryOpNames) {
		return "UnaryOp(invalid)"
	}
	return unaryOpNames[op]
}

// BinaryOp enumerates the supported elementwise binary operations.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMax
	OpMin
)

var binaryOpNames = [...]string{OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMax: "Max", OpMin: "Min"}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryOpNames) {
		return "BinaryOp(invalid)"
	}
	return binaryOpNames[op]
}

// ReduceOp enumerates the supported reductions.
type ReduceOp int

const (
	ReduceSum ReduceOp = iota
	ReduceProd
	ReduceMax
	ReduceMin
)

var reduceOpNames = [...]string{ReduceSum: "ReduceSum", ReduceProd: "ReduceProd", ReduceMax: "ReduceMax", ReduceMin: "ReduceMin"}

func (op ReduceOp) String() string {
	if op < 0 || int(op) >= len(reduceOpNames) {
		return "ReduceOp(invalid)"
	}
	return reduceOpNames[op]
}

// operandRef returns the indexer.TensorRef of t, or an error if its rank is not supported by the indexer.
func operandRef(t *tensors.Tensor) (indexer.TensorRef, error) {
	if t.Rank() > indexer.MaxDims {
		return indexer.TensorRef{}, errors.Errorf("tensor %s has rank %d, at most %d is supported by the kernels",
			t.Shape(), t.Rank(), indexer.MaxDims)
	}
	return t.Ref(), nil
}

// checkWritable returns an error if out has broadcast (0 stride) axes, in which case different workloads
// would write to the same element. Zero-sized outputs are never written to.
func checkWritable(out *tensors.Tensor) error {
	if out.Size() == 0 {
		return nil
	}
	for axis, stride := range out.ByteStrides() {
		if stride == 0 && out.Shape().Dimensions[axis] > 1 {
			return errors.Errorf("output tensor %s is broadcast on axis %d, it can't be written to", out, axis)
		}
	}
	return nil
}
