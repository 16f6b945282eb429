// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunbuny/Open3D/pkg/core/launcher"
)

func TestParse(t *testing.T) {
	dims, err := parseDimensions("3x1x4")
	require.NoError(t, err)
	require.Equal(t, []int{3, 1, 4}, dims)
	dims, err = parseDimensions("scalar")
	require.NoError(t, err)
	require.Empty(t, dims)
	for _, spec := range []string{"", "3x", "3x-1", "ax2"} {
		_, err = parseDimensions(spec)
		require.Error(t, err, "spec %q", spec)
	}

	axes, err := parseAxes("0, -1")
	require.NoError(t, err)
	require.Equal(t, []int{0, -1}, axes)
	axes, err = parseAxes("all")
	require.NoError(t, err)
	require.Nil(t, axes)

	dtype, err := parseDType("BFloat16")
	require.NoError(t, err)
	require.Equal(t, dtypes.BFloat16, dtype)
	_, err = parseDType("float8")
	require.Error(t, err)
}

func TestBuildOperation(t *testing.T) {
	op, err := buildOperation(operationConfig{inputs: "3x1;1x4", dtype: "float32"})
	require.NoError(t, err)
	require.Equal(t, "Broadcast", op.name)
	require.Equal(t, int64(12), op.ix.NumWorkloads())
	require.Equal(t, []int{3, 4}, op.outputs[0].Shape().Dimensions)

	op, err = buildOperation(operationConfig{inputs: "4x3", output: "4x3", dtype: "int8", transposeInputs: true})
	require.NoError(t, err)
	require.False(t, op.ix.InputsContiguous[0])
	require.True(t, op.ix.OutputsContiguous[0])

	op, err = buildOperation(operationConfig{inputs: "2x3x4", reduceAxes: "1", keepDims: true, dtype: "float64"})
	require.NoError(t, err)
	require.Equal(t, "Reduction", op.name)
	require.Equal(t, []int{2, 1, 4}, op.outputs[0].Shape().Dimensions)
	require.Equal(t, int64(24), op.ix.NumWorkloads())

	op, err = buildOperation(operationConfig{inputs: "2x3", reduceAxes: "all", dtype: "int32"})
	require.NoError(t, err)
	require.Equal(t, 0, op.outputs[0].Rank())

	for _, config := range []operationConfig{
		{inputs: "3x2;4", dtype: "float32"},
		{inputs: "3x2", output: "3x3", dtype: "float32"},
		{inputs: "2;2", reduceAxes: "0", dtype: "float32"},
		{inputs: "2x2x2x2x2", dtype: "float32"},
		{inputs: "2", dtype: "complex"},
	} {
		_, err = buildOperation(config)
		require.Error(t, err, "config %+v", config)
		fmt.Printf("\t%+v -> %v\n", config, err)
	}
}

func TestSampleWorkloads(t *testing.T) {
	assert.Equal(t, []int64{0, 1, 2}, sampleWorkloads(3, 8))
	assert.Equal(t, []int64{0, 33, 66, 99}, sampleWorkloads(100, 4))
	assert.Equal(t, []int64{0}, sampleWorkloads(100, 1))
	assert.Nil(t, sampleWorkloads(0, 4))
}

func TestReports(t *testing.T) {
	op, err := buildOperation(operationConfig{inputs: "3x1;1x4", dtype: "float32", transposeInputs: true})
	require.NoError(t, err)
	layout := reportLayout(op)
	fmt.Println(layout)
	require.Contains(t, layout, "input #1")
	require.Contains(t, layout, "output #0")
	require.Contains(t, layout, "ok")
	require.Contains(t, layout, "Unary, Binary, Reduce")
	boolOp, err := buildOperation(operationConfig{inputs: "2x3", dtype: "bool"})
	require.NoError(t, err)
	require.Contains(t, reportLayout(boolOp), "none for Bool")

	samples := reportSamples(op, 4)
	fmt.Println(samples)
	require.Contains(t, samples, "Coordinates")

	require.NoError(t, benchmark(op, launcher.MustNew("parallelism=2,grain=4"), 2))
}
