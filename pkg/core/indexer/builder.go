// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package indexer

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/shapes"
	"k8s.io/klog/v2"
)

// NewBroadcast builds the Indexer of an elementwise operation over the inputs, with implicit broadcasting,
// writing to the outputs.
//
// The iteration shape is the shape of the outputs, which must all have the same extents. Inputs are aligned
// on their last axis, and must be broadcastable to the outputs: on each axis their extent must match or be 1.
// Inputs of lower rank are prefixed with broadcast axes, and broadcast axes get a byte stride of 0.
//
// If there are no outputs, the iteration shape is the broadcast of all inputs.
//
// It returns an error if there are more than MaxInputs inputs or MaxOutputs outputs, or if the shapes are
// not compatible.
func NewBroadcast(inputs, outputs []TensorRef) (*Indexer, error) {
	if len(inputs) > MaxInputs {
		return nil, errors.Errorf("indexer.NewBroadcast: %d inputs given, at most MaxInputs=%d are supported", len(inputs), MaxInputs)
	}
	if len(outputs) > MaxOutputs {
		return nil, errors.Errorf("indexer.NewBroadcast: %d outputs given, at most MaxOutputs=%d are supported", len(outputs), MaxOutputs)
	}
	if len(inputs)+len(outputs) == 0 {
		return nil, errors.New("indexer.NewBroadcast: no operands given")
	}

	allDims := make([][]int, 0, len(inputs)+1)
	var outputDims []int
	if len(outputs) > 0 {
		outputDims = extentsAsDims(&outputs[0])
		for ii := 1; ii < len(outputs); ii++ {
			if !slices.Equal(outputDims, extentsAsDims(&outputs[ii])) {
				return nil, errors.Errorf("indexer.NewBroadcast: output #%d extents %v don't match output #0 extents %v",
					ii, extentsAsDims(&outputs[ii]), outputDims)
			}
		}
		allDims = append(allDims, outputDims)
	}
	for ii := range inputs {
		allDims = append(allDims, extentsAsDims(&inputs[ii]))
	}
	dims, err := shapes.BroadcastDimensions(allDims...)
	if err != nil {
		return nil, errors.WithMessage(err, "indexer.NewBroadcast")
	}
	if len(outputs) > 0 && !slices.Equal(dims, outputDims) {
		return nil, errors.Errorf("indexer.NewBroadcast: inputs broadcast to %v, which doesn't match the outputs extents %v",
			dims, outputDims)
	}

	ix := &Indexer{
		NumInputs:  len(inputs),
		NumOutputs: len(outputs),
	}
	ix.setPrimaryShape(dims)
	for ii := range inputs {
		ix.Inputs[ii] = broadcastTensorRef(&inputs[ii], dims)
		ix.InputsContiguous[ii] = ix.Inputs[ii].isContiguousFor(&ix.PrimaryShape, ix.NDims)
	}
	for ii := range outputs {
		ix.Outputs[ii] = outputs[ii]
		ix.OutputsContiguous[ii] = ix.Outputs[ii].isContiguousFor(&ix.PrimaryShape, ix.NDims)
	}
	if err := ix.finalize("NewBroadcast"); err != nil {
		return nil, err
	}
	return ix, nil
}

// NewReduction builds the Indexer of a reduction of input over the reduceAxes, writing to output.
//
// The iteration shape is the input shape. The output can either keep the reduced axes (with extent 1)
// or have them removed: in both cases it is laid out on the input axes with byte stride 0 on the reduced
// axes, so every workload along a reduced axis addresses the same output element.
//
// Negative axes count from the end. If reduceAxes is empty, all axes are reduced.
//
// Different workloads address the same output element, so the caller must serialize (or otherwise
// synchronize) the writes to the output.
func NewReduction(input, output TensorRef, reduceAxes []int) (*Indexer, error) {
	rank := input.Rank
	if len(reduceAxes) == 0 {
		reduceAxes = make([]int, rank)
		for axis := range reduceAxes {
			reduceAxes[axis] = axis
		}
	}
	axes, err := shapes.NormalizeAxes(rank, reduceAxes)
	if err != nil {
		return nil, errors.WithMessage(err, "indexer.NewReduction")
	}
	keepDims := output.Rank == rank
	if !keepDims && output.Rank != rank-len(axes) {
		return nil, errors.Errorf("indexer.NewReduction: output rank %d is not valid for the reduction of input extents %v "+
			"over axes %v, it should be %d or %d", output.Rank, extentsAsDims(&input), axes, rank, rank-len(axes))
	}

	reducedOutput := TensorRef{
		Base:        output.Base,
		Rank:        rank,
		ElementSize: output.ElementSize,
	}
	outputAxis := 0
	for axis := range rank {
		if slices.Contains(axes, axis) {
			reducedOutput.Extents[axis] = 1
			reducedOutput.ByteStrides[axis] = 0
			if keepDims {
				if output.Extents[outputAxis] != 1 {
					return nil, errors.Errorf("indexer.NewReduction: output extent on reduced axis %d is %d, it should be 1",
						axis, output.Extents[outputAxis])
				}
				outputAxis++
			}
			continue
		}
		if output.Extents[outputAxis] != input.Extents[axis] {
			return nil, errors.Errorf("indexer.NewReduction: output extents %v don't match the input extents %v on "+
				"the non-reduced axis %d", extentsAsDims(&output), extentsAsDims(&input), axis)
		}
		reducedOutput.Extents[axis] = output.Extents[outputAxis]
		reducedOutput.ByteStrides[axis] = output.ByteStrides[outputAxis]
		outputAxis++
	}

	ix := &Indexer{
		NumInputs:  1,
		NumOutputs: 1,
	}
	ix.setPrimaryShape(extentsAsDims(&input))
	ix.Inputs[0] = input
	ix.InputsContiguous[0] = input.isContiguousFor(&ix.PrimaryShape, ix.NDims)
	ix.Outputs[0] = reducedOutput
	ix.OutputsContiguous[0] = reducedOutput.isContiguousFor(&ix.PrimaryShape, ix.NDims)
	if err := ix.finalize("NewReduction"); err != nil {
		return nil, err
	}
	return ix, nil
}

// setPrimaryShape sets the PrimaryShape and the matching row-major PrimaryStrides.
func (ix *Indexer) setPrimaryShape(dims []int) {
	ix.NDims = len(dims)
	stride := int64(1)
	for axis := ix.NDims - 1; axis >= 0; axis-- {
		ix.PrimaryShape[axis] = int64(dims[axis])
		ix.PrimaryStrides[axis] = stride
		stride *= int64(dims[axis])
	}
}

func (ix *Indexer) finalize(builderName string) error {
	if klog.V(2).Enabled() {
		if err := ix.Validate(); err != nil {
			return errors.WithMessagef(err, "indexer.%s built an invalid Indexer", builderName)
		}
		klog.Infof("indexer.%s: %s", builderName, ix)
	} else {
		klog.V(1).Infof("indexer.%s: primaryShape=%v, %d workloads, %d inputs, %d outputs", builderName,
			ix.PrimaryShape[:ix.NDims], ix.NumWorkloads(), ix.NumInputs, ix.NumOutputs)
	}
	return nil
}

// broadcastTensorRef returns ref laid out on the given (broadcast) dims: missing leading axes are added
// with extent 1, and broadcast axes get byte stride 0.
func broadcastTensorRef(ref *TensorRef, dims []int) TensorRef {
	rank := len(dims)
	offset := rank - ref.Rank
	broadcast := TensorRef{
		Base:        ref.Base,
		Rank:        rank,
		ElementSize: ref.ElementSize,
	}
	for axis := range rank {
		srcAxis := axis - offset
		if srcAxis < 0 {
			broadcast.Extents[axis] = 1
			continue
		}
		broadcast.Extents[axis] = ref.Extents[srcAxis]
		if ref.Extents[srcAxis] == 1 && dims[axis] != 1 {
			continue // Broadcast axis: byte stride stays 0.
		}
		broadcast.ByteStrides[axis] = ref.ByteStrides[srcAxis]
	}
	return broadcast
}

func extentsAsDims(ref *TensorRef) []int {
	dims := make([]int, ref.Rank)
	for axis := range ref.Rank {
		dims[axis] = int(ref.Extents[axis])
	}
	return dims
}
