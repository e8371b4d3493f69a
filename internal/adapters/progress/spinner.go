package progress

import (
	"context"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// SpinnerProgressReporter implements progress reporting with a spinner
type SpinnerProgressReporter struct {
	out     io.Writer
	spinner *spinner.Spinner

	currentStage   string
	stageStartTime time.Time
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
func NewSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		out:     out,
		spinner: s,
	}
}

// OnProgress handles progress events
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Spinner {
		if r.currentStage != event.Stage {
			r.currentStage = event.Stage
			r.stageStartTime = time.Now()
		}
		if !r.spinner.Active() {
			r.spinner.Start()
		}
		r.spinner.Suffix = " " + event.Message
		return
	}

	if r.spinner.Active() {
		r.spinner.Stop()
	}

	if event.Stage == usecase.StageConfirmed {
		if receipt, ok := event.Metadata.(*types.Receipt); ok {
			color.New(color.Faint).Fprintf(r.out, "  tx %s (block %s, gas %d, %s)\n",
				receipt.TxHash.Hex(), receipt.BlockNumber, receipt.GasUsed, r.elapsed())
		}
		r.currentStage = ""
	}
}

func (r *SpinnerProgressReporter) elapsed() string {
	if r.stageStartTime.IsZero() {
		return "0s"
	}
	return time.Since(r.stageStartTime).Round(time.Millisecond).String()
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.print(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.print(color.New(color.FgRed), message)
}

// print pauses the spinner while a line is written
func (r *SpinnerProgressReporter) print(c *color.Color, message string) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}

	c.Fprintln(r.out, message)

	if wasActive {
		r.spinner.Start()
	}
}

// Stop stops the spinner if it is running
func (r *SpinnerProgressReporter) Stop() {
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
