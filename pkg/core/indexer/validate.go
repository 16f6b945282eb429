// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package indexer

import (
	"github.com/pkg/errors"
)

// Validate checks all the invariants the resolution methods rely on, and returns an error describing the
// first one violated.
//
// The resolution methods never check them, so Validate should be used once after an Indexer is
// populated by hand. NewBroadcast and NewReduction call it when the klog verbosity is >= 2.
func (ix *Indexer) Validate() error {
	if ix.NDims < 0 || ix.NDims > MaxDims {
		return errors.Errorf("invalid NDims=%d, it must be 0 <= NDims <= MaxDims=%d", ix.NDims, MaxDims)
	}
	if ix.NumInputs < 0 || ix.NumInputs > MaxInputs {
		return errors.Errorf("invalid NumInputs=%d, it must be 0 <= NumInputs <= MaxInputs=%d", ix.NumInputs, MaxInputs)
	}
	if ix.NumOutputs < 0 || ix.NumOutputs > MaxOutputs {
		return errors.Errorf("invalid NumOutputs=%d, it must be 0 <= NumOutputs <= MaxOutputs=%d", ix.NumOutputs, MaxOutputs)
	}
	for axis := range ix.NDims {
		if ix.PrimaryShape[axis] < 0 {
			return errors.Errorf("invalid negative PrimaryShape[%d]=%d", axis, ix.PrimaryShape[axis])
		}
	}
	if ix.NumWorkloads() > 0 {
		expected := int64(1)
		for axis := ix.NDims - 1; axis >= 0; axis-- {
			if ix.PrimaryStrides[axis] != expected {
				return errors.Errorf("PrimaryStrides%v inconsistent with PrimaryShape%v: PrimaryStrides[%d] should be %d",
					ix.PrimaryStrides[:ix.NDims], ix.PrimaryShape[:ix.NDims], axis, expected)
			}
			expected *= ix.PrimaryShape[axis]
		}
	}
	for ii := range ix.NumInputs {
		if err := ix.validateOperand(&ix.Inputs[ii], ix.InputsContiguous[ii]); err != nil {
			return errors.WithMessagef(err, "input #%d", ii)
		}
	}
	for ii := range ix.NumOutputs {
		if err := ix.validateOperand(&ix.Outputs[ii], ix.OutputsContiguous[ii]); err != nil {
			return errors.WithMessagef(err, "output #%d", ii)
		}
	}
	return nil
}

func (ix *Indexer) validateOperand(ref *TensorRef, isContiguous bool) error {
	if ref.Rank != ix.NDims {
		return errors.Errorf("operand rank %d doesn't match the Indexer NDims=%d", ref.Rank, ix.NDims)
	}
	if ref.ElementSize <= 0 {
		return errors.Errorf("invalid element size %d", ref.ElementSize)
	}
	if ref.Base == nil && ix.NumWorkloads() > 0 {
		return errors.New("nil base address for an operand with workloads")
	}
	for axis := range ix.NDims {
		extent, dim := ref.Extents[axis], ix.PrimaryShape[axis]
		if extent == dim {
			continue
		}
		if extent == 1 && ref.ByteStrides[axis] == 0 {
			// Broadcast (or reduced) axis.
			continue
		}
		return errors.Errorf("extent %d (byte stride %d) on axis %d is not compatible with the primary dimension %d",
			extent, ref.ByteStrides[axis], axis, dim)
	}
	if isContiguous && !ref.isContiguousFor(&ix.PrimaryShape, ix.NDims) {
		return errors.Errorf("operand %s flagged as contiguous, but it is not densely packed for primary shape %v",
			ref, ix.PrimaryShape[:ix.NDims])
	}
	return nil
}
