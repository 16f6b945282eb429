// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sunbuny/Open3D/pkg/core/indexer"
	"github.com/sunbuny/Open3D/pkg/core/kernels"
	"github.com/sunbuny/Open3D/pkg/core/launcher"
	"github.com/sunbuny/Open3D/ui/commandline"
	"k8s.io/klog/v2"
)

// operandRow describes one operand of the indexer.
type operandRow struct {
	name         string
	ref          *indexer.TensorRef
	isContiguous bool
}

func (op *operation) operands() []operandRow {
	ix := op.ix
	rows := make([]operandRow, 0, ix.NumInputs+ix.NumOutputs)
	for ii := range ix.NumInputs {
		rows = append(rows, operandRow{fmt.Sprintf("input #%d", ii), &ix.Inputs[ii], ix.InputsContiguous[ii]})
	}
	for ii := range ix.NumOutputs {
		rows = append(rows, operandRow{fmt.Sprintf("output #%d", ii), &ix.Outputs[ii], ix.OutputsContiguous[ii]})
	}
	return rows
}

func formatInt64s(values []int64) string {
	parts := make([]string, len(values))
	for ii, v := range values {
		parts[ii] = humanize.Comma(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func reportLayout(op *operation) string {
	ix := op.ix
	var sb strings.Builder
	sb.WriteString(commandline.Title(op.name + " indexer") + "\n")

	summary := commandline.NewPlainTable(false)
	summary.Row("primary shape", formatInt64s(ix.PrimaryShape[:ix.NDims]))
	summary.Row("primary strides", formatInt64s(ix.PrimaryStrides[:ix.NDims]))
	summary.Row("# workloads", humanize.Comma(ix.NumWorkloads()))
	summary.Row("# inputs", humanize.Comma(int64(ix.NumInputs)))
	summary.Row("# outputs", humanize.Comma(int64(ix.NumOutputs)))
	var memory uint64
	for _, t := range slices.Concat(op.inputs, op.outputs) {
		memory += uint64(t.Shape().Memory())
	}
	summary.Row("operands memory", humanize.Bytes(memory))
	if available := kernels.Kernels(op.dtype); len(available) > 0 {
		summary.Row("kernels", strings.Join(available, ", "))
	} else {
		summary.Row("kernels", "none for "+op.dtype.String())
	}
	if err := ix.Validate(); err != nil {
		summary.Row("validation", err.Error())
	} else {
		summary.Row("validation", "ok")
	}
	sb.WriteString(summary.Render() + "\n")

	table := commandline.NewPlainTable(true, lipgloss.Right, lipgloss.Left, lipgloss.Left, lipgloss.Center, lipgloss.Right)
	table.Headers("Operand", "Extents", "Byte Strides", "Contiguous", "Element Size")
	for _, row := range op.operands() {
		table.Row(row.name, formatInt64s(row.ref.Extents[:row.ref.Rank]), formatInt64s(row.ref.ByteStrides[:row.ref.Rank]),
			fmt.Sprintf("%v", row.isContiguous), humanize.Bytes(uint64(row.ref.ElementSize)))
	}
	sb.WriteString(table.Render())
	return sb.String()
}

// sampleWorkloads returns up to numSamples workload indices spread evenly over [0, numWorkloads).
func sampleWorkloads(numWorkloads int64, numSamples int) []int64 {
	if numWorkloads <= 0 || numSamples <= 0 {
		return nil
	}
	if int64(numSamples) >= numWorkloads {
		samples := make([]int64, numWorkloads)
		for ii := range samples {
			samples[ii] = int64(ii)
		}
		return samples
	}
	samples := make([]int64, numSamples)
	for ii := range samples {
		samples[ii] = int64(ii) * (numWorkloads - 1) / int64(max(numSamples-1, 1))
	}
	return samples
}

func reportSamples(op *operation, numSamples int) string {
	ix := op.ix
	operands := op.operands()
	headers := []string{"Workload", "Coordinates"}
	for _, row := range operands {
		headers = append(headers, row.name+" offset")
	}
	table := commandline.NewPlainTable(true)
	table.Headers(headers...)
	for _, w := range sampleWorkloads(ix.NumWorkloads(), numSamples) {
		coords := ix.Coordinates(w)
		cells := []string{humanize.Comma(w), formatInt64s(coords[:ix.NDims])}
		for _, row := range operands {
			offset, ok := ix.Offset(row.ref, row.isContiguous, w)
			if !ok {
				cells = append(cells, "nil")
				continue
			}
			cells = append(cells, humanize.Comma(offset))
		}
		table.Row(cells...)
	}
	return commandline.Title("Sample resolutions") + "\n" + table.Render()
}

// benchmark resolves the addresses of every operand for every workload, numRounds times.
func benchmark(op *operation, l *launcher.Launcher, numRounds int) error {
	ix := op.ix
	numWorkloads := ix.NumWorkloads()
	operands := op.operands()
	var resolved, elapsedNanos atomic.Int64
	throughput := func() (string, string) {
		elapsed := time.Duration(elapsedNanos.Load())
		if elapsed == 0 {
			return "resolutions/s", "-"
		}
		return "resolutions/s", humanize.SIWithDigits(float64(resolved.Load())/elapsed.Seconds(), 2, "")
	}
	fmt.Println(commandline.Title(fmt.Sprintf("Benchmark (%s)", l)))
	pBar := commandline.NewProgressBar(numRounds, "resolving", throughput)
	defer pBar.Done()
	ctx := context.Background()
	for range numRounds {
		start := time.Now()
		err := l.ParallelForRange(ctx, numWorkloads, func(startIdx, endIdx int64) {
			var count int64
			for w := startIdx; w < endIdx; w++ {
				for _, row := range operands {
					if ix.Resolve(row.ref, row.isContiguous, w) != nil {
						count++
					}
				}
			}
			resolved.Add(count)
		})
		if err != nil {
			return errors.WithMessage(err, "benchmark")
		}
		elapsedNanos.Add(int64(time.Since(start)))
		pBar.Add(1)
	}
	klog.V(1).Infof("Resolved %s addresses in %s", humanize.Comma(resolved.Load()),
		commandline.FormatDuration(time.Duration(elapsedNanos.Load())))
	return nil
}
