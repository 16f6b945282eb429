// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// MaxDTypes is the capacity of a DTypeDispatcher: dtypes values must be smaller than it.
const MaxDTypes = 32

// DTypeDispatcher holds one kernel implementation (of type F) per dtype.
type DTypeDispatcher[F any] struct {
	Name  string
	fnMap [MaxDTypes]F
	isSet [MaxDTypes]bool
}

// NewDTypeDispatcher creates a new dispatcher for a class of kernels.
func NewDTypeDispatcher[F any](name string) *DTypeDispatcher[F] {
	return &DTypeDispatcher[F]{
		Name: name,
	}
}

// Get returns the kernel registered for the dtype, or an error if there is none.
func (d *DTypeDispatcher[F]) Get(dtype dtypes.DType) (fn F, err error) {
	if dtype < 0 || int(dtype) >= MaxDTypes || !d.isSet[dtype] {
		err = errors.Errorf("dtype %s not supported by %s", dtype, d.Name)
		return
	}
	return d.fnMap[dtype], nil
}

// Register a kernel to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *DTypeDispatcher[F]) Register(dtype dtypes.DType, fn F) {
	if dtype < 0 || int(dtype) >= MaxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	d.fnMap[dtype] = fn
	d.isSet[dtype] = true
}

// Supports returns whether a kernel was registered for the dtype.
func (d *DTypeDispatcher[F]) Supports(dtype dtypes.DType) bool {
	return dtype >= 0 && int(dtype) < MaxDTypes && d.isSet[dtype]
}

// PODNumericConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 and BFloat16 are not included because they are not natively supported by Go.
type PODNumericConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// HalfPrecisionConstraints are the 16-bit float types, computed by converting to float32.
type HalfPrecisionConstraints interface {
	float16.Float16 | bfloat16.BFloat16
}

func float16ToFloat32(v float16.Float16) float32 { return v.Float32() }
func bfloat16ToFloat32(v bfloat16.BFloat16) float32 { return v.Float32() }

var (
	unaryDispatcher  = NewDTypeDispatcher[unaryKernel]("Unary")
	binaryDispatcher = NewDTypeDispatcher[binaryKernel]("Binary")
	reduceDispatcher = NewDTypeDispatcher[reduceKernel]("Reduce")
)

// Kernels returns the names of the classes of kernels ("Unary", "Binary", "Reduce") implemented for dtype.
func Kernels(dtype dtypes.DType) []string {
	var names []string
	if unaryDispatcher.Supports(dtype) {
		names = append(names, unaryDispatcher.Name)
	}
	if binaryDispatcher.Supports(dtype) {
		names = append(names, binaryDispatcher.Name)
	}
	if reduceDispatcher.Supports(dtype) {
		names = append(names, reduceDispatcher.Name)
	}
	return names
}

func registerPOD[T PODNumericConstraints](dtype dtypes.DType) {
	unaryDispatcher.Register(dtype, execUnary[T])
	binaryDispatcher.Register(dtype, execBinary[T])
	reduceDispatcher.Register(dtype, execReduce[T])
}

func registerHalfPrecision[T HalfPrecisionConstraints](dtype dtypes.DType, toFloat32 func(T) float32, fromFloat32 func(float32) T) {
	unaryDispatcher.Register(dtype, execUnaryHalf(toFloat32, fromFloat32))
	binaryDispatcher.Register(dtype, execBinaryHalf(toFloat32, fromFloat32))
	reduceDispatcher.Register(dtype, execReduceHalf(toFloat32, fromFloat32))
}

func init() {
	registerPOD[int8](dtypes.Int8)
	registerPOD[int16](dtypes.Int16)
	registerPOD[int32](dtypes.Int32)
	registerPOD[int64](dtypes.Int64)
	registerPOD[uint8](dtypes.Uint8)
	registerPOD[uint16](dtypes.Uint16)
	registerPOD[uint32](dtypes.Uint32)
	registerPOD[uint64](dtypes.Uint64)
	registerPOD[float32](dtypes.Float32)
	registerPOD[float64](dtypes.Float64)
	registerHalfPrecision(dtypes.Float16, float16ToFloat32, float16.Fromfloat32)
	registerHalfPrecision(dtypes.BFloat16, bfloat16ToFloat32, bfloat16.FromFloat32)
}
