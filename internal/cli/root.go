package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/vaultctl/internal/adapters/progress"
	"github.com/trebuchet-org/vaultctl/internal/app"
	"github.com/trebuchet-org/vaultctl/internal/cli/render"
	"github.com/trebuchet-org/vaultctl/internal/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// Commands that run without a project or a network
var standaloneCommands = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
	"tasks":      true,
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vaultctl",
		Short: "Vault and strategy deployment orchestrator",
		Long: `vaultctl deploys and configures yield vaults, their strategy libraries
and strategies against a hardhat or anvil node, and drives the node's
simulation methods (impersonation, fork resets, snapshots) for testing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if standaloneCommands[cmd.Name()] {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot)
			bindGlobalFlags(v, cmd)

			appInstance, err := app.InitApp(v, newProgressSink(cmd))
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}

			cmd.SetContext(ctx)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network from vaultctl.toml (default localhost)")
	rootCmd.PersistentFlags().String("rpc-url", "", "RPC endpoint, overrides the network's rpc_url")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Approve destructive operations without asking")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "vault",
		Title: "Vault Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "simulation",
		Title: "Simulation Commands",
	})

	runCmd := NewRunCmd()
	runCmd.GroupID = "main"
	rootCmd.AddCommand(runCmd)

	composeCmd := NewComposeCmd()
	composeCmd.GroupID = "main"
	rootCmd.AddCommand(composeCmd)

	tasksCmd := NewTasksCmd()
	tasksCmd.GroupID = "main"
	rootCmd.AddCommand(tasksCmd)

	for _, task := range builtinTasks().List() {
		taskCmd := NewTaskCmd(task)
		taskCmd.GroupID = taskGroup(task.Name())
		rootCmd.AddCommand(taskCmd)
	}

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// newProgressSink picks the progress renderer for the command being run
func newProgressSink(cmd *cobra.Command) usecase.ProgressSink {
	var out io.Writer = cmd.OutOrStdout()
	if f := cmd.Flag("quiet"); f != nil && f.Value.String() == "true" {
		return progress.NewNopSink()
	}
	if cmd.Name() == "compose" {
		return progress.NewComposeProgress(render.NewComposeRenderer(out))
	}
	return progress.NewSpinnerProgressReporter(out)
}

// bindGlobalFlags binds command flags to viper
func bindGlobalFlags(v *viper.Viper, cmd *cobra.Command) {
	// Only bind flags that exist and have been changed
	if f := cmd.Flag("debug"); f != nil && f.Changed {
		v.Set("debug", f.Value.String())
	}
	if f := cmd.Flag("non-interactive"); f != nil && f.Changed {
		v.Set("non_interactive", f.Value.String())
	}
	if f := cmd.Flag("yes"); f != nil && f.Changed {
		v.Set("yes", f.Value.String())
	}
	if f := cmd.Flag("network"); f != nil && f.Changed {
		v.Set("network", f.Value.String())
	}
	if f := cmd.Flag("rpc-url"); f != nil && f.Changed {
		v.Set("rpc_url", f.Value.String())
	}
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
