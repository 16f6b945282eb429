// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"context"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/indexer"
	"github.com/sunbuny/Open3D/pkg/core/launcher"
	"github.com/sunbuny/Open3D/pkg/core/tensors"
)

type unaryKernel func(ctx context.Context, l *launcher.Launcher, ix *indexer.Indexer, op UnaryOp) error

// Unary returns a new dense tensor with op applied to every element of x.
func Unary(ctx context.Context, l *launcher.Launcher, op UnaryOp, x *tensors.Tensor) (*tensors.Tensor, error) {
	out := tensors.FromShape(x.Shape())
	if err := UnaryInto(ctx, l, op, x, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnaryInto applies op to every element of x, writing the result to out, which may be a strided view.
//
// x is broadcast to the shape of out.
func UnaryInto(ctx context.Context, l *launcher.Launcher, op UnaryOp, x, out *tensors.Tensor) error {
	if x.DType() != out.DType() {
		return errors.Errorf("%s: input dtype %s doesn't match output dtype %s", op, x.DType(), out.DType())
	}
	if err := checkWritable(out); err != nil {
		return errors.WithMessagef(err, "%s", op)
	}
	xRef, err := operandRef(x)
	if err != nil {
		return errors.WithMessagef(err, "%s", op)
	}
	outRef, err := operandRef(out)
	if err != nil {
		return errors.WithMessagef(err, "%s", op)
	}
	ix, err := indexer.NewBroadcast([]indexer.TensorRef{xRef}, []indexer.TensorRef{outRef})
	if err != nil {
		return errors.WithMessagef(err, "%s(%s) into %s", op, x, out)
	}
	if op == OpCopy {
		return execCopy(ctx, l, ix)
	}
	kernel, err := unaryDispatcher.Get(x.DType())
	if err != nil {
		return err
	}
	return kernel(ctx, l, ix, op)
}

// execCopy copies the elements bytewise, so it works for any dtype.
func execCopy(ctx context.Context, l *launcher.Launcher, ix *indexer.Indexer) error {
	elementSize := int(ix.Inputs[0].ElementSize)
	return l.ParallelFor(ctx, ix.NumWorkloads(), func(w int64) {
		copy(unsafe.Slice((*byte)(ix.OutputPtr(w)), elementSize), unsafe.Slice((*byte)(ix.InputPtr(0, w)), elementSize))
	})
}

func unaryFn[T PODNumericConstraints](op UnaryOp) func(T) T {
	switch op {
	case OpNeg:
		return func(v T) T { return -v }
	case OpAbs:
		return func(v T) T {
			if v < 0 {
				return -v
			}
			return v
		}
	}
	return nil
}

func execUnary[T PODNumericConstraints](ctx context.Context, l *launcher.Launcher, ix *indexer.Indexer, op UnaryOp) error {
	fn := unaryFn[T](op)
	if fn == nil {
		return errors.Errorf("unary op %s not implemented", op)
	}
	numWorkloads := ix.NumWorkloads()
	if ix.InputsContiguous[0] && ix.OutputsContiguous[0] {
		// Fast path: operate on the flat slices.
		input := unsafe.Slice((*T)(ix.Inputs[0].Base), numWorkloads)
		output := unsafe.Slice((*T)(ix.Outputs[0].Base), numWorkloads)
		return l.ParallelForRange(ctx, numWorkloads, func(start, end int64) {
			for w := start; w < end; w++ {
				output[w] = fn(input[w])
			}
		})
	}
	return l.ParallelForRange(ctx, numWorkloads, func(start, end int64) {
		for w := start; w < end; w++ {
			*indexer.Output[T](ix, w) = fn(*indexer.Input[T](ix, 0, w))
		}
	})
}

func execUnaryHalf[T HalfPrecisionConstraints](toFloat32 func(T) float32, fromFloat32 func(float32) T) unaryKernel {
	return func(ctx context.Context, l *launcher.Launcher, ix *indexer.Indexer, op UnaryOp) error {
		fn := unaryFn[float32](op)
		if fn == nil {
			return errors.Errorf("unary op %s not implemented", op)
		}
		return l.ParallelForRange(ctx, ix.NumWorkloads(), func(start, end int64) {
			for w := start; w < end; w++ {
				*indexer.Output[T](ix, w) = fromFloat32(fn(toFloat32(*indexer.Input[T](ix, 0, w))))
			}
		})
	}
}
