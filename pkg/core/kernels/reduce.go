// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"context"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/indexer"
	"github.com/sunbuny/Open3D/pkg/core/launcher"
	"github.com/sunbuny/Open3D/pkg/core/shapes"
	"github.com/sunbuny/Open3D/pkg/core/tensors"
	"k8s.io/klog/v2"
)

type reduceKernel func(ctx context.Context, l *launcher.Launcher, op ReduceOp, x, out *tensors.Tensor, axes []int) error

// Reduce reduces x over the given axes with op. If axes is empty, all axes are reduced.
//
// If keepDims is true, the reduced axes are kept with dimension 1, otherwise they are removed.
// Reducing an axis of dimension 0 yields the identity of op (e.g. 0 for ReduceSum, -Inf for ReduceMax
// on floats, the lowest value for integers).
//
// Reductions run sequentially in the calling goroutine; the launcher is only used for its grain size
// when checking ctx.
func Reduce(ctx context.Context, l *launcher.Launcher, op ReduceOp, x *tensors.Tensor, axes []int, keepDims bool) (*tensors.Tensor, error) {
	if op < 0 || int(op) >= len(reduceOpNames) {
		return nil, errors.Errorf("Reduce: invalid op %d", op)
	}
	outShape, err := shapes.ReduceShape(x.Shape(), axes, keepDims)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", op)
	}
	if x.Rank() > indexer.MaxDims {
		return nil, errors.Errorf("%s: tensor %s has rank %d, at most %d is supported", op, x.Shape(), x.Rank(), indexer.MaxDims)
	}
	kernel, err := reduceDispatcher.Get(x.DType())
	if err != nil {
		return nil, err
	}
	out := tensors.FromShape(outShape)
	klog.V(2).Infof("%s(%s, axes=%v, keepDims=%v) -> %s", op, x, axes, keepDims, outShape)
	if err := kernel(ctx, l, op, x, out, axes); err != nil {
		return nil, err
	}
	return out, nil
}

func reduceFn[T PODNumericConstraints](op ReduceOp) func(acc, v T) T {
	switch op {
	case ReduceSum:
		return func(acc, v T) T { return acc + v }
	case ReduceProd:
		return func(acc, v T) T { return acc * v }
	case ReduceMax:
		return func(acc, v T) T { return max(acc, v) }
	case ReduceMin:
		return func(acc, v T) T { return min(acc, v) }
	}
	return nil
}

// reduceIdentity returns the initial value of the accumulator for op.
func reduceIdentity[T PODNumericConstraints](op ReduceOp) T {
	switch op {
	case ReduceProd:
		return 1
	case ReduceMax:
		return lowestValue[T]()
	case ReduceMin:
		return highestValue[T]()
	}
	return 0
}

func lowestValue[T PODNumericConstraints]() T {
	var v T
	switch p := any(&v).(type) {
	case *int8:
		*p = math.MinInt8
	case *int16:
		*p = math.MinInt16
	case *int32:
		*p = math.MinInt32
	case *int64:
		*p = math.MinInt64
	case *float32:
		*p = float32(math.Inf(-1))
	case *float64:
		*p = math.Inf(-1)
	}
	return v // Unsigned: 0.
}

func highestValue[T PODNumericConstraints]() T {
	var v T
	switch p := any(&v).(type) {
	case *int8:
		*p = math.MaxInt8
	case *int16:
		*p = math.MaxInt16
	case *int32:
		*p = math.MaxInt32
	case *int64:
		*p = math.MaxInt64
	case *uint8:
		*p = math.MaxUint8
	case *uint16:
		*p = math.MaxUint16
	case *uint32:
		*p = math.MaxUint32
	case *uint64:
		*p = math.MaxUint64
	case *float32:
		*p = float32(math.Inf(1))
	case *float64:
		*p = math.Inf(1)
	}
	return v
}

// reduceInto accumulates x into acc, which must be a fresh dense tensor of dtype T, reading the elements of x
// with read.
func reduceInto[T PODNumericConstraints, In dtypes.Supported](ctx context.Context, l *launcher.Launcher, op ReduceOp,
	x, acc *tensors.Tensor, axes []int, read func(In) T) error {
	fn := reduceFn[T](op)
	accFlat := acc.Flat().([]T)
	identity := reduceIdentity[T](op)
	for ii := range accFlat {
		accFlat[ii] = identity
	}
	ix, err := indexer.NewReduction(x.Ref(), acc.Ref(), axes)
	if err != nil {
		return errors.WithMessagef(err, "%s", op)
	}
	return l.SequentialFor(ctx, ix.NumWorkloads(), func(w int64) {
		accPtr := indexer.Output[T](ix, w)
		*accPtr = fn(*accPtr, read(*indexer.Input[In](ix, 0, w)))
	})
}

func execReduce[T PODNumericConstraints](ctx context.Context, l *launcher.Launcher, op ReduceOp, x, out *tensors.Tensor, axes []int) error {
	return reduceInto(ctx, l, op, x, out, axes, func(v T) T { return v })
}

// execReduceHalf accumulates in float32 and converts the result at the end.
func execReduceHalf[T HalfPrecisionConstraints](toFloat32 func(T) float32, fromFloat32 func(float32) T) reduceKernel {
	return func(ctx context.Context, l *launcher.Launcher, op ReduceOp, x, out *tensors.Tensor, axes []int) error {
		acc := tensors.FromShape(shapes.Make(dtypes.Float32, out.Shape().Dimensions...))
		if err := reduceInto(ctx, l, op, x, acc, axes, toFloat32); err != nil {
			return err
		}
		outFlat := out.Flat().([]T)
		for ii, v := range acc.Flat().([]float32) {
			outFlat[ii] = fromFloat32(v)
		}
		return nil
	}
}
