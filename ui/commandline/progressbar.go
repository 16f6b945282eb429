// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each time the progress bar is updated, and it should return a name and the current value when it is called.
type ExtraMetricFn func() (name, value string)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"
)

// maxUpdateFrequency is the time between updates to the commandline display of stats.
var maxUpdateFrequency = time.Millisecond * 200

// ProgressBar displays the progression of a fixed number of rounds, with a table of statistics above the bar.
//
// Updates are drawn asynchronously, so a fast loop is not slowed down by the terminal.
type ProgressBar struct {
	numRounds, done int
	bar             *progressbar.ProgressBar
	start           time.Time

	termenv       *termenv.Output
	statsStyle    lipgloss.Style
	statsTable    *lgtable.Table
	isFirstOutput bool

	updates          chan progressBarUpdate
	asyncUpdatesDone sync.WaitGroup

	extraMetricFns []ExtraMetricFn
}

type progressBarUpdate struct {
	amount int
	done   int
}

// NewProgressBar creates and displays a progress bar for numRounds rounds, with the given description.
//
// Optionally, one can provide extraMetrics: functions that are called at every update of
// the progress bar and should return a name (title) and a value to be included in the
// updated print-out.
func NewProgressBar(numRounds int, description string, extraMetrics ...ExtraMetricFn) *ProgressBar {
	return newProgressBar(os.Stdout, numRounds, description, extraMetrics...)
}

func newProgressBar(w io.Writer, numRounds int, description string, extraMetrics ...ExtraMetricFn) *ProgressBar {
	pBar := &ProgressBar{
		numRounds:      numRounds,
		start:          time.Now(),
		termenv:        termenv.NewOutput(w),
		statsStyle:     lipgloss.NewStyle().PaddingLeft(8),
		isFirstOutput:  true,
		extraMetricFns: extraMetrics,
		updates:        make(chan progressBarUpdate, 100), // Large buffer so things are not blocked.
	}
	pBar.statsTable = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})
	pBar.bar = progressbar.NewOptions(numRounds,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rounds"),
		progressbar.OptionSetTheme(ProgressbarStyle),
	)
	pBar.asyncUpdatesDone.Add(1)
	go pBar.drawLoop(w)
	return pBar
}

func (pBar *ProgressBar) drawLoop(w io.Writer) {
	defer pBar.asyncUpdatesDone.Done()
	for update := range pBar.updates {
		// Exhaust the updates in the buffer:
		amount := update.amount
	exhaust:
		for {
			select {
			case newUpdate, ok := <-pBar.updates:
				if !ok {
					break exhaust
				}
				amount += newUpdate.amount
				update = newUpdate
			default:
				break exhaust
			}
		}

		pBar.statsTable.Data(lgtable.NewStringData())
		pBar.statsTable.Row("Rounds", fmt.Sprintf("%s of %s", humanize.Comma(int64(update.done)), humanize.Comma(int64(pBar.numRounds))))
		pBar.statsTable.Row("Elapsed", FormatDuration(time.Since(pBar.start)))
		for _, extraMetric := range pBar.extraMetricFns {
			name, value := extraMetric()
			pBar.statsTable.Row(name, value)
		}

		// Clear the previous lines that will be overwritten.
		pBar.termenv.HideCursor()
		if !pBar.isFirstOutput {
			pBar.termenv.CursorPrevLine(pBar.numLinesDrawn())
		}
		pBar.isFirstOutput = false

		_, _ = fmt.Fprintln(w, pBar.statsStyle.Render(pBar.statsTable.String()))
		_ = pBar.bar.Add(amount) // Prints progress bar line.
		_, _ = fmt.Fprintln(w)
		pBar.termenv.ShowCursor()
		time.Sleep(maxUpdateFrequency)
	}
}

// numLinesDrawn is the number of lines printed by each update: the stats table (2 borders, "Rounds",
// "Elapsed" and the extra metrics) followed by the progress bar line.
func (pBar *ProgressBar) numLinesDrawn() int {
	return 2 + 2 + len(pBar.extraMetricFns) + 1
}

// Add reports that amount more rounds are finished.
func (pBar *ProgressBar) Add(amount int) {
	pBar.done += amount
	pBar.updates <- progressBarUpdate{amount: amount, done: pBar.done}
}

// Done waits for the pending updates to be drawn and finishes the display. The ProgressBar can't be used afterwards.
func (pBar *ProgressBar) Done() {
	close(pBar.updates)
	pBar.asyncUpdatesDone.Wait()
	pBar.termenv.ShowCursor()
}
