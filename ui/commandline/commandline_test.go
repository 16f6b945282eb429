// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.23ms", FormatDuration(1234567*time.Nanosecond))
	assert.Equal(t, "2.00s", FormatDuration(2*time.Second))
	assert.Equal(t, "1m30s", FormatDuration(90*time.Second))
	assert.Equal(t, "1m36s", FormatDuration(95600*time.Millisecond))
	assert.Equal(t, "12.35µs", FormatDuration(12346*time.Nanosecond))
	assert.Equal(t, "500ns", FormatDuration(500*time.Nanosecond))
	assert.Equal(t, "0ns", FormatDuration(0))
}

func TestNewPlainTable(t *testing.T) {
	table := NewPlainTable(true)
	table.Headers("Name", "Value")
	table.Row("workloads", "12")
	table.Row("inputs", "2")
	rendered := table.Render()
	fmt.Println(rendered)
	require.Contains(t, rendered, "workloads")
	require.Contains(t, rendered, "Value")
	require.Contains(t, Title("Layout"), "Layout")
}

func TestProgressBar(t *testing.T) {
	maxUpdateFrequency = time.Millisecond
	var buf bytes.Buffer
	pBar := newProgressBar(&buf, 3, "bench", func() (string, string) { return "throughput", "42/s" })
	for range 3 {
		pBar.Add(1)
	}
	pBar.Done()
	output := buf.String()
	require.Contains(t, output, "throughput")
	require.Contains(t, output, "42/s")
	require.Contains(t, output, "3 of 3")

	// Each redraw backs up over the stats table and the bar line only.
	statsLines := strings.Count(pBar.statsStyle.Render(pBar.statsTable.String()), "\n") + 1
	require.Equal(t, 6, statsLines+1)
	require.Equal(t, statsLines+1, pBar.numLinesDrawn())
}
