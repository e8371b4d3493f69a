package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/trebuchet-org/vaultctl/internal/cli/render"
	"github.com/trebuchet-org/vaultctl/internal/domain"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// builtinTasks is the registry used to declare commands before any
// configuration is loaded. Runs always go through the app's registry.
func builtinTasks() *usecase.TaskRegistry {
	return usecase.ProvideTaskRegistry(&config.RuntimeConfig{}, usecase.AlwaysConfirm{})
}

func taskGroup(name string) string {
	switch name {
	case usecase.TaskRefork, usecase.TaskFundNative, usecase.TaskFundToken,
		usecase.TaskSnapshot, usecase.TaskRevert, usecase.TaskAccounts:
		return "simulation"
	default:
		return "vault"
	}
}

// NewTaskCmd creates a command running a single task, with one flag per parameter
func NewTaskCmd(task usecase.Task) *cobra.Command {
	params := task.Parameters()

	cmd := &cobra.Command{
		Use:   task.Name(),
		Short: task.Description(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, task.Name(), collectParams(cmd, params))
		},
	}

	for _, p := range params {
		cmd.Flags().String(p.Name, "", flagUsage(p))
	}

	return cmd
}

// NewRunCmd creates the generic run command
func NewRunCmd() *cobra.Command {
	var params map[string]string

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a task by name",
		Long: `Run a registered task by name, passing parameters with --param.
Without a task name an interactive picker is shown.`,
		Example: `  # Deploy and configure a vault
  vaultctl run bootstrap-vault -p token-address=0x04068DA6C83AFCFA0e13ba15A6696662335D5B75

  # Pick the task interactively
  vaultctl run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				task, err := app.Selector.SelectTask(app.Registry().List())
				if err != nil {
					return err
				}
				name = task.Name()
			}

			return runTask(cmd, name, params)
		},
	}

	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "Task parameter as key=value (repeatable)")

	return cmd
}

// NewTasksCmd lists the registered tasks
func NewTasksCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List available tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return render.NewTasksRenderer(cmd.OutOrStdout(), verbose).Render(builtinTasks().List())
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show task parameters")

	return cmd
}

func runTask(cmd *cobra.Command, name string, params map[string]string) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	result, err := app.Orchestrator.Run(cmd.Context(), name, params)
	if err != nil {
		return reportTaskError(cmd, err)
	}

	return render.NewTaskRenderer(cmd.OutOrStdout()).Render(result)
}

// reportTaskError turns a declined confirmation into a warning, other errors pass through
func reportTaskError(cmd *cobra.Command, err error) error {
	if errors.Is(err, usecase.ErrCancelled) {
		fmt.Fprintln(cmd.ErrOrStderr(), render.FormatWarning(err.Error()))
		return nil
	}
	return err
}

// collectParams returns the parameter flags the user actually set
func collectParams(cmd *cobra.Command, params []domain.TaskParameter) map[string]string {
	declared := make(map[string]bool, len(params))
	for _, p := range params {
		declared[p.Name] = true
	}

	values := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if declared[f.Name] {
			values[f.Name] = f.Value.String()
		}
	})
	return values
}

func flagUsage(p domain.TaskParameter) string {
	var notes []string
	notes = append(notes, string(p.Kind))
	if p.Required {
		notes = append(notes, "required")
	}
	if p.HasDefault() {
		notes = append(notes, fmt.Sprintf("default %s", p.Default))
	}
	return fmt.Sprintf("%s (%s)", p.Description, strings.Join(notes, ", "))
}
