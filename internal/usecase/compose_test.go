package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/vaultctl/internal/contracts"
	"github.com/trebuchet-org/vaultctl/internal/domain"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

const composeFile = `
group: fantom-vault
components:
  settings:
    task: update-vault-settings
    deps: [vault]
    params:
      vault-address: ${vault.vault}
      management-fee: "25"
  vault:
    task: new-vault
    params:
      token-address: "0x04068DA6C83AFCFA0e13ba15A6696662335D5B75"
      vault-name: Vault
      vault-symbol: VLT
  strategy:
    task: deploy-strategy
`

func writeCompose(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestComposeTasks_Execute(t *testing.T) {
	f := newFixture(t, nil)
	compose := usecase.NewComposeTasks(f.orch, f.sink)

	result, err := compose.Execute(context.Background(), usecase.ComposeParams{ConfigPath: writeCompose(t, composeFile)})
	require.NoError(t, err)
	require.True(t, result.Success)

	var order []string
	for _, step := range result.Plan.Components {
		order = append(order, step.Name)
	}
	assert.Equal(t, []string{"strategy", "vault", "settings"}, order)
	require.Len(t, result.ExecutedSteps, 3)

	vaultAddr := result.ExecutedSteps[1].Result.Artifact("vault").Address()
	vault := f.chain.vaultAt(vaultAddr)
	require.NotNil(t, vault)
	require.Len(t, vault.setters, 4)
	assert.Equal(t, setterCall{Op: contracts.VaultSetManagementFee, Arg: "25"}, vault.setters[0])
	assert.Equal(t, vaultAddr.Hex(), result.ExecutedSteps[2].Result.Value("vault"))

	stages := f.sink.stages()
	assert.Equal(t, usecase.StagePlanCreated, stages[0])
	assert.Equal(t, usecase.StageComposeCompleted, stages[len(stages)-1])
}

func TestComposeTasks_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, nil)
	compose := usecase.NewComposeTasks(f.orch, f.sink)

	config, err := usecase.ParseComposeConfig([]byte(`
group: broken
components:
  a-vault:
    task: new-vault
    params:
      vault-name: Vault
      vault-symbol: VLT
  b-strategy:
    task: deploy-strategy
    deps: [a-vault]
`))
	require.NoError(t, err)

	result, err := compose.Run(context.Background(), config)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingParameter))
	assert.Contains(t, err.Error(), "component a-vault")

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, "a-vault", result.FailedStep.Step.Name)
	assert.Len(t, result.ExecutedSteps, 1)
	assert.Empty(t, f.chain.contracts)
}

func TestComposeTasks_ResetMustComeFirst(t *testing.T) {
	f := newFixture(t, nil)
	compose := usecase.NewComposeTasks(f.orch, f.sink)

	config, err := usecase.ParseComposeConfig([]byte(`
group: late-reset
components:
  accounts:
    task: accounts
  refork:
    task: refork
    deps: [accounts]
`))
	require.NoError(t, err)

	_, err = compose.Run(context.Background(), config)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrResetNotFirst))
	assert.Empty(t, f.chain.resets)
}

func TestComposeConfig_Validate(t *testing.T) {
	f := newFixture(t, nil)
	registry := f.orch.Registry()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing group",
			yaml:    "components:\n  a:\n    task: accounts\n",
			wantErr: "group name is required",
		},
		{
			name:    "no components",
			yaml:    "group: g\n",
			wantErr: "at least one component is required",
		},
		{
			name:    "missing task",
			yaml:    "group: g\ncomponents:\n  a: {}\n",
			wantErr: "component 'a' must specify a task",
		},
		{
			name:    "unknown task",
			yaml:    "group: g\ncomponents:\n  a:\n    task: new-vaults\n",
			wantErr: `task "new-vaults" not found`,
		},
		{
			name:    "self dependency",
			yaml:    "group: g\ncomponents:\n  a:\n    task: accounts\n    deps: [a]\n",
			wantErr: "cannot depend on itself",
		},
		{
			name:    "unknown dependency",
			yaml:    "group: g\ncomponents:\n  a:\n    task: accounts\n    deps: [b]\n",
			wantErr: "depends on non-existent component 'b'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := usecase.ParseComposeConfig([]byte(tt.yaml))
			require.NoError(t, err)

			err = config.Validate(registry)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDependencyGraph_TopologicalSort(t *testing.T) {
	t.Run("deterministic order", func(t *testing.T) {
		config := &usecase.ComposeConfig{
			Group: "g",
			Components: map[string]*usecase.ComponentConfig{
				"settings": {Task: "update-vault-settings", Deps: []string{"vault"}},
				"vault":    {Task: "new-vault", Deps: []string{"fork"}},
				"fund":     {Task: "fund-native", Deps: []string{"fork"}},
				"fork":     {Task: "refork"},
			},
		}

		steps, err := usecase.NewDependencyGraph(config).TopologicalSort()
		require.NoError(t, err)

		var names []string
		for _, s := range steps {
			names = append(names, s.Name)
		}
		assert.Equal(t, []string{"fork", "fund", "vault", "settings"}, names)
	})

	t.Run("cycle", func(t *testing.T) {
		config := &usecase.ComposeConfig{
			Group: "g",
			Components: map[string]*usecase.ComponentConfig{
				"a": {Task: "accounts", Deps: []string{"b"}},
				"b": {Task: "accounts", Deps: []string{"a"}},
			},
		}

		_, err := usecase.NewDependencyGraph(config).TopologicalSort()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circular dependency detected")
	})
}

func TestComposeTasks_ReferenceMustBeDependency(t *testing.T) {
	f := newFixture(t, nil)
	compose := usecase.NewComposeTasks(f.orch, f.sink)

	config, err := usecase.ParseComposeConfig([]byte(`
group: g
components:
  a-vault:
    task: new-vault
    params:
      token-address: "0x04068DA6C83AFCFA0e13ba15A6696662335D5B75"
      vault-name: Vault
      vault-symbol: VLT
  b-settings:
    task: update-vault-settings
    params:
      vault-address: ${a-vault.vault}
`))
	require.NoError(t, err)

	_, err = compose.Run(context.Background(), config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a dependency of b-settings")
}
