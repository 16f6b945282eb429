// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"context"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/indexer"
	"github.com/sunbuny/Open3D/pkg/core/launcher"
	"github.com/sunbuny/Open3D/pkg/core/shapes"
	"github.com/sunbuny/Open3D/pkg/core/tensors"
)

type binaryKernel func(ctx context.Context, l *launcher.Launcher, ix *indexer.Indexer, op BinaryOp) error

// Binary returns a new dense tensor with op applied elementwise to lhs and rhs, with implicit broadcasting:
// the output shape is the broadcast of both shapes.
//
// Integer division by zero is returned as an error.
func Binary(ctx context.Context, l *launcher.Launcher, op BinaryOp, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	outShape, err := shapes.BroadcastShapes(lhs.Shape(), rhs.Shape())
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", op)
	}
	out := tensors.FromShape(outShape)
	if err := BinaryInto(ctx, l, op, lhs, rhs, out); err != nil {
		return nil, err
	}
	return out, nil
}

// BinaryInto applies op elementwise to lhs and rhs, writing to out, which may be a strided view.
// lhs and rhs are broadcast to the shape of out.
func BinaryInto(ctx context.Context, l *launcher.Launcher, op BinaryOp, lhs, rhs, out *tensors.Tensor) error {
	if lhs.DType() != rhs.DType() || lhs.DType() != out.DType() {
		return errors.Errorf("%s: dtypes don't match: lhs=%s, rhs=%s, out=%s", op, lhs.DType(), rhs.DType(), out.DType())
	}
	if err := checkWritable(out); err != nil {
		return errors.WithMessagef(err, "%s", op)
	}
	refs := make([]indexer.TensorRef, 3)
	for ii, t := range []*tensors.Tensor{lhs, rhs, out} {
		var err error
		refs[ii], err = operandRef(t)
		if err != nil {
			return errors.WithMessagef(err, "%s", op)
		}
	}
	ix, err := indexer.NewBroadcast(refs[:2], refs[2:])
	if err != nil {
		return errors.WithMessagef(err, "%s(%s, %s) into %s", op, lhs, rhs, out)
	}
	kernel, err := binaryDispatcher.Get(out.DType())
	if err != nil {
		return err
	}
	return kernel(ctx, l, ix, op)
}

func binaryFn[T PODNumericConstraints](op BinaryOp) func(a, b T) T {
	switch op {
	case OpAdd:
		return func(a, b T) T { return a + b }
	case OpSub:
		return func(a, b T) T { return a - b }
	case OpMul:
		return func(a, b T) T { return a * b }
	case OpDiv:
		return func(a, b T) T { return a / b }
	case OpMax:
		return func(a, b T) T { return max(a, b) }
	case OpMin:
		return func(a, b T) T { return min(a, b) }
	}
	return nil
}

func execBinary[T PODNumericConstraints](ctx context.Context, l *launcher.Launcher, ix *indexer.Indexer, op BinaryOp) error {
	fn := binaryFn[T](op)
	if fn == nil {
		return errors.Errorf("binary op %s not implemented", op)
	}
	numWorkloads := ix.NumWorkloads()
	if ix.InputsContiguous[0] && ix.InputsContiguous[1] && ix.OutputsContiguous[0] {
		// Fast path: operate on the flat slices.
		lhs := unsafe.Slice((*T)(ix.Inputs[0].Base), numWorkloads)
		rhs := unsafe.Slice((*T)(ix.Inputs[1].Base), numWorkloads)
		output := unsafe.Slice((*T)(ix.Outputs[0].Base), numWorkloads)
		return l.ParallelForRange(ctx, numWorkloads, func(start, end int64) {
			for w := start; w < end; w++ {
				output[w] = fn(lhs[w], rhs[w])
			}
		})
	}
	return l.ParallelForRange(ctx, numWorkloads, func(start, end int64) {
		for w := start; w < end; w++ {
			*indexer.Output[T](ix, w) = fn(*indexer.Input[T](ix, 0, w), *indexer.Input[T](ix, 1, w))
		}
	})
}

func execBinaryHalf[T HalfPrecisionConstraints](toFloat32 func(T) float32, fromFloat32 func(float32) T) binaryKernel {
	return func(ctx context.Context, l *launcher.Launcher, ix *indexer.Indexer, op BinaryOp) error {
		fn := binaryFn[float32](op)
		if fn == nil {
			return errors.Errorf("binary op %s not implemented", op)
		}
		return l.ParallelForRange(ctx, ix.NumWorkloads(), func(start, end int64) {
			for w := start; w < end; w++ {
				a, b := toFloat32(*indexer.Input[T](ix, 0, w)), toFloat32(*indexer.Input[T](ix, 1, w))
				*indexer.Output[T](ix, w) = fromFloat32(fn(a, b))
			}
		})
	}
}
