// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// indexer_inspect builds the indexer.Indexer for the given operand shapes, prints its layout and a sample of
// address resolutions, and optionally benchmarks the resolution throughput.
//
// Examples:
//
//	indexer_inspect -inputs "3x1;1x4" -output "3x4"
//	indexer_inspect -inputs "2x3x4" -reduce_axes "1" -keep_dims -samples 4
//	indexer_inspect -inputs "512x512;512" -transpose_inputs -bench_rounds 20 -config "parallelism=8,grain=4096"
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/janpfeifer/must"
	"github.com/sunbuny/Open3D/pkg/core/launcher"
	"k8s.io/klog/v2"
)

var (
	flagInputs = flag.String("inputs", "", "Semicolon-separated list of input shapes, each given as dimensions separated "+
		"by 'x' (e.g. \"3x1;1x4\"). Use \"scalar\" for a rank-0 input.")
	flagOutput = flag.String("output", "", "Output shape (e.g. \"3x4\"). If empty, the broadcast of the inputs "+
		"is used, or the reduced shape if -reduce_axes is set.")
	flagReduceAxes = flag.String("reduce_axes", "", "Comma-separated list of axes to reduce the first input over. "+
		"If set, a reduction indexer is built instead of a broadcast one. Use \"all\" to reduce all axes.")
	flagKeepDims        = flag.Bool("keep_dims", false, "Keep the reduced axes with dimension 1 in the output of a reduction.")
	flagDType           = flag.String("dtype", "float32", "DType of the operands.")
	flagTransposeInputs = flag.Bool("transpose_inputs", false, "Make each input a transposed view (reversed axes) "+
		"of a dense tensor, so they are not contiguous.")
	flagSamples     = flag.Int("samples", 8, "Number of workloads to show resolved addresses for.")
	flagBenchRounds = flag.Int("bench_rounds", 0, "If > 0, benchmark the address resolution of all workloads "+
		"for this number of rounds.")
	flagConfig = flag.String("config", "", fmt.Sprintf("Launcher configuration for the benchmark "+
		"(e.g. \"parallelism=8,grain=4096\"). Defaults to $%s.", launcher.OPEN3D_LAUNCHER))
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagInputs == "" {
		klog.Errorf("Missing -inputs. See 'indexer_inspect -help'.")
		os.Exit(1)
	}
	if len(flag.Args()) > 0 {
		klog.Errorf("Unexpected arguments %q. See 'indexer_inspect -help'.", flag.Args())
		os.Exit(1)
	}

	op, err := buildOperation(operationConfig{
		inputs:          *flagInputs,
		output:          *flagOutput,
		reduceAxes:      *flagReduceAxes,
		keepDims:        *flagKeepDims,
		dtype:           *flagDType,
		transposeInputs: *flagTransposeInputs,
	})
	if err != nil {
		klog.Errorf("Failed to build the indexer: %+v", err)
		os.Exit(1)
	}
	fmt.Println(reportLayout(op))
	if *flagSamples > 0 {
		fmt.Println(reportSamples(op, *flagSamples))
	}
	if *flagBenchRounds > 0 {
		l := launcher.Default()
		if *flagConfig != "" {
			l = must.M1(launcher.New(*flagConfig))
		}
		must.M(benchmark(op, l, *flagBenchRounds))
	}
}
