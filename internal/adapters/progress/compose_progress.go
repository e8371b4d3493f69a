package progress

import (
	"context"

	"github.com/trebuchet-org/vaultctl/internal/cli/render"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// ComposeProgress handles progress events for compose runs
type ComposeProgress struct {
	composeRenderer *render.ComposeRenderer
	spinner         *SpinnerProgressReporter

	planRendered bool
	currentStep  string
}

// NewComposeProgress creates a new compose progress reporter
func NewComposeProgress(composeRenderer *render.ComposeRenderer) *ComposeProgress {
	return &ComposeProgress{
		composeRenderer: composeRenderer,
		spinner:         NewSpinnerProgressReporter(composeRenderer.GetWriter()),
	}
}

// OnProgress handles progress events for compose operations
func (p *ComposeProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	switch event.Stage {
	case usecase.StagePlanCreated:
		if plan, ok := event.Metadata.(*usecase.ExecutionPlan); ok && !p.planRendered {
			p.composeRenderer.RenderExecutionPlan(plan)
			p.planRendered = true
		}

	case usecase.StageStepStarting:
		if stepInfo, ok := event.Metadata.(map[string]any); ok {
			if stepName, ok := stepInfo["name"].(string); ok {
				p.currentStep = stepName
				p.spinner.Stop()
				p.composeRenderer.RenderStepStarting(event.Current, event.Total, stepName)
			}
		}

	case usecase.StageStepCompleted:
		p.spinner.Stop()
		if stepResult, ok := event.Metadata.(*usecase.StepResult); ok {
			p.composeRenderer.RenderStepResult(stepResult)
		}

	case usecase.StageComposeCompleted:
		// Final summary is rendered by the CLI command after this returns
		p.spinner.Stop()

	default:
		p.spinner.OnProgress(ctx, event)
	}
}

// Info forwards info messages to the spinner
func (p *ComposeProgress) Info(message string) {
	p.spinner.Info(message)
}

// Error forwards error messages to the spinner
func (p *ComposeProgress) Error(message string) {
	p.spinner.Error(message)
}

// Ensure ComposeProgress implements ProgressSink
var _ usecase.ProgressSink = (*ComposeProgress)(nil)
