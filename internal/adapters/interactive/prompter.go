package interactive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// ErrConfirmationRequired is returned when a prompt is needed but the run is non-interactive
var ErrConfirmationRequired = errors.New("confirmation required in non-interactive mode (pass --yes)")

// Prompter asks the user to confirm destructive operations and to pick tasks
type Prompter struct {
	config *config.RuntimeConfig

	confirm func(label string) error
	selectN func(label string, items []string) (int, error)
}

// NewPrompter creates a new prompter backed by promptui
func NewPrompter(cfg *config.RuntimeConfig) *Prompter {
	return &Prompter{
		config:  cfg,
		confirm: runConfirm,
		selectN: runSelect,
	}
}

// Confirm asks a yes/no question. --yes approves without asking.
func (p *Prompter) Confirm(message string) (bool, error) {
	if p.config.AssumeYes {
		return true, nil
	}
	if p.config.NonInteractive {
		return false, ErrConfirmationRequired
	}

	err := p.confirm(message)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, fmt.Errorf("prompt failed: %w", err)
	}
}

// SelectTask lets the user pick a task with fuzzy search
func (p *Prompter) SelectTask(tasks []usecase.Task) (usecase.Task, error) {
	if p.config.NonInteractive {
		return nil, fmt.Errorf("interactive selection not available in non-interactive mode")
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks provided for selection")
	}
	if len(tasks) == 1 {
		return tasks[0], nil
	}

	options := formatTaskOptions(tasks)
	index, err := p.selectN("Select a task", options)
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	return tasks[index], nil
}

func runConfirm(label string) error {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	return err
}

func runSelect(label string, items []string) (int, error) {
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             label,
		Items:             items,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(items),
	}

	index, _, err := promptSelect.Run()
	return index, err
}

// formatTaskOptions creates display strings for task selection
func formatTaskOptions(tasks []usecase.Task) []string {
	options := make([]string, len(tasks))
	for i, task := range tasks {
		name := color.New(color.FgWhite, color.Bold).Sprint(task.Name())
		options[i] = fmt.Sprintf("%s %s", name, color.New(color.Faint).Sprintf("(%s)", task.Description()))
	}
	return options
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

// Ensure the adapter implements the interface
var (
	_ usecase.Confirmer    = (*Prompter)(nil)
	_ usecase.TaskSelector = (*Prompter)(nil)
)
