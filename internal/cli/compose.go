package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/vaultctl/internal/cli/render"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// NewComposeCmd creates the compose command
func NewComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <compose-file>",
		Short: "Run tasks in dependency order from a YAML file",
		Long: `Run multiple tasks in dependency order based on a YAML configuration file.

Each component names a task, its parameters and the components it depends on.
A parameter value of the form ${component.ref} is replaced by the artifact
address or output value of an earlier component.

Example compose file (vault.yaml):
  group: fantom-vault
  components:
    fork:
      task: refork
    vault:
      task: new-vault
      deps: [fork]
      params:
        token-address: "0x04068DA6C83AFCFA0e13ba15A6696662335D5B75"
        vault-name: Vault
        vault-symbol: VLT
    settings:
      task: update-vault-settings
      deps: [vault]
      params:
        vault-address: ${vault.vault}

This will execute: fork → vault → settings`,
		Example: `  # Run a compose file against the default network
  vaultctl compose vault.yaml

  # Against an anvil fork, without confirmation prompts
  vaultctl compose vault.yaml --network anvil-fork --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.Compose.Execute(cmd.Context(), usecase.ComposeParams{ConfigPath: args[0]})

			// Plan and steps were rendered while running; a partial result still gets its summary
			if result != nil {
				renderer := render.NewComposeRenderer(cmd.OutOrStdout())
				if renderErr := renderer.RenderComposeResult(result); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}

	return cmd
}
