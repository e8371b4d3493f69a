package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// ComposeRenderer handles rendering of compose runs
type ComposeRenderer struct {
	out   io.Writer
	tasks *TaskRenderer
}

// NewComposeRenderer creates a new compose renderer
func NewComposeRenderer(out io.Writer) *ComposeRenderer {
	return &ComposeRenderer{
		out:   out,
		tasks: NewTaskRenderer(out),
	}
}

// GetWriter returns the io.Writer used by this renderer
func (r *ComposeRenderer) GetWriter() io.Writer {
	return r.out
}

// RenderComposeResult renders the final summary. Plan and step results are
// rendered while the run progresses.
func (r *ComposeRenderer) RenderComposeResult(result *usecase.ComposeResult) error {
	if result == nil || result.Plan == nil {
		return nil
	}
	r.renderSummary(result)
	return nil
}

// RenderExecutionPlan displays the execution plan
func (r *ComposeRenderer) RenderExecutionPlan(plan *usecase.ExecutionPlan) {
	fmt.Fprintf(r.out, "\n🎯 Composing %s\n", plan.Group)

	color.New(color.Bold).Fprintf(r.out, "📋 Execution Plan:\n")
	fmt.Fprintf(r.out, "%s\n", strings.Repeat("─", 50))

	for i, step := range plan.Components {
		fmt.Fprintf(r.out, "%d. ", i+1)
		color.New(color.FgCyan).Fprintf(r.out, "%s", step.Name)

		fmt.Fprintf(r.out, " → ")
		color.New(color.FgGreen).Fprintf(r.out, "%s", step.Task)

		if len(step.Dependencies) > 0 {
			color.New(color.FgHiBlack).Fprintf(r.out, " (depends on: %v)", step.Dependencies)
		}

		fmt.Fprintln(r.out)
	}

	fmt.Fprintln(r.out)
}

// RenderStepStarting prints the header of a step
func (r *ComposeRenderer) RenderStepStarting(current, total int, name string) {
	fmt.Fprintf(r.out, "\n[%d/%d] Starting %s\n", current, total, name)
}

// RenderStepResult renders a single step result
func (r *ComposeRenderer) RenderStepResult(stepResult *usecase.StepResult) {
	if stepResult.Error != nil {
		color.New(color.FgRed).Fprintf(r.out, "❌ Failed: %v\n", stepResult.Error)
		return
	}
	if stepResult.Result == nil {
		return
	}

	color.New(color.FgGreen).Fprintln(r.out, "✓ Step completed successfully")
	_ = r.tasks.Render(stepResult.Result)
}

func (r *ComposeRenderer) renderSummary(result *usecase.ComposeResult) {
	fmt.Fprintf(r.out, "%s\n", strings.Repeat("═", 70))

	if result.Success {
		color.New(color.FgGreen, color.Bold).Fprintf(r.out,
			"🎉 Successfully composed %s\n", result.Plan.Group)

		fmt.Fprintf(r.out, "\n📊 Summary:\n")
		fmt.Fprintf(r.out, "  • Steps executed: %d/%d\n",
			len(result.ExecutedSteps), len(result.Plan.Components))
		fmt.Fprintf(r.out, "  • Contracts deployed: %d\n", countArtifacts(result))
		return
	}

	color.New(color.FgRed, color.Bold).Fprintf(r.out, "❌ Compose failed\n")

	if result.FailedStep != nil {
		fmt.Fprintf(r.out, "\n📊 Summary:\n")
		fmt.Fprintf(r.out, "  • Failed at step: %s\n", result.FailedStep.Step.Name)
		fmt.Fprintf(r.out, "  • Steps completed: %d/%d\n",
			len(result.ExecutedSteps)-1, len(result.Plan.Components))

		if result.FailedStep.Error != nil {
			fmt.Fprintf(r.out, "  • Error: %v\n", result.FailedStep.Error)
		}
	}
}

// countArtifacts counts distinct deployed addresses, sub-tasks included
func countArtifacts(result *usecase.ComposeResult) int {
	seen := make(map[common.Address]bool)
	var walk func(r *usecase.TaskResult)
	walk = func(r *usecase.TaskResult) {
		if r == nil {
			return
		}
		for _, artifact := range r.Artifacts {
			seen[artifact.Address()] = true
		}
		for _, sub := range r.SubTasks {
			walk(sub)
		}
	}

	for _, step := range result.ExecutedSteps {
		walk(step.Result)
	}
	return len(seen)
}
