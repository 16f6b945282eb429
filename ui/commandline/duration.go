// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"time"
)

// durationUnits from largest to smallest, used for durations under a minute.
var durationUnits = []struct {
	unit time.Duration
	name string
}{
	{time.Second, "s"},
	{time.Millisecond, "ms"},
	{time.Microsecond, "µs"},
}

// FormatDuration pretty prints d with 2 decimal places in its largest unit.
// Durations of one minute or more are rounded to the second (e.g. "1m30s"), and durations under
// a microsecond are printed in nanoseconds.
func FormatDuration(d time.Duration) string {
	if d >= time.Minute || d <= -time.Minute {
		return d.Round(time.Second).String()
	}
	abs := max(d, -d)
	for _, u := range durationUnits {
		if abs >= u.unit {
			return fmt.Sprintf("%.2f%s", float64(d)/float64(u.unit), u.name)
		}
	}
	return fmt.Sprintf("%dns", int64(d))
}
