package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/vaultctl/internal/domain"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

var (
	vaultAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	tokenAddr = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

func init() {
	color.NoColor = true
}

func newVaultResult() *usecase.TaskResult {
	result := usecase.NewTaskResult(usecase.TaskNewVault)
	result.Artifacts["vault"] = &domain.Artifact{Contract: domain.ContractRef{Name: "Vault", Address: vaultAddr}}
	result.Artifacts["token"] = &domain.Artifact{Contract: domain.ContractRef{Name: "MiMatic", Address: tokenAddr}}
	result.SetValue("governance", "0x1000000000000000000000000000000000000001")
	return result
}

func TestTaskRenderer_Render(t *testing.T) {
	bootstrap := usecase.NewTaskResult(usecase.TaskBootstrapVault)
	bootstrap.SubTasks = []*usecase.TaskResult{newVaultResult()}

	var buf bytes.Buffer
	require.NoError(t, NewTaskRenderer(&buf).Render(bootstrap))

	out := buf.String()
	assert.Contains(t, out, "bootstrap-vault\n")
	assert.Contains(t, out, "  new-vault\n")
	assert.Regexp(t, `token\s+MiMatic\s+`+tokenAddr.Hex(), out)
	assert.Regexp(t, `vault\s+Vault\s+`+vaultAddr.Hex(), out)
	assert.Regexp(t, `governance\s+0x1000000000000000000000000000000000000001`, out)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("token")), bytes.Index(buf.Bytes(), []byte("vault ")))
}

func TestTasksRenderer_Render(t *testing.T) {
	registry := usecase.ProvideTaskRegistry(&config.RuntimeConfig{Network: &config.Network{Name: "localhost"}}, usecase.AlwaysConfirm{})

	t.Run("names only", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewTasksRenderer(&buf, false).Render(registry.List()))

		assert.Contains(t, buf.String(), "new-vault")
		assert.Contains(t, buf.String(), "deploy-strategy")
		assert.NotContains(t, buf.String(), "--vault-name")
	})

	t.Run("verbose", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewTasksRenderer(&buf, true).Render(registry.List()))

		out := buf.String()
		assert.Regexp(t, `--vault-name\s+String\s+.*required`, out)
		assert.Regexp(t, `--token-address\s+Address`, out)
		assert.Regexp(t, `--performance-fee\s+Int\s+.*default 100`, out)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewTasksRenderer(&buf, false).Render(nil))
		assert.Equal(t, "No tasks registered\n", buf.String())
	})
}

func TestComposeRenderer(t *testing.T) {
	plan := &usecase.ExecutionPlan{
		Group: "fantom-vault",
		Components: []*usecase.ExecutionStep{
			{Name: "vault", Task: usecase.TaskNewVault},
			{Name: "settings", Task: usecase.TaskUpdateVaultSettings, Dependencies: []string{"vault"}},
		},
	}

	t.Run("plan", func(t *testing.T) {
		var buf bytes.Buffer
		NewComposeRenderer(&buf).RenderExecutionPlan(plan)

		assert.Contains(t, buf.String(), "Composing fantom-vault")
		assert.Contains(t, buf.String(), "1. vault → new-vault")
		assert.Contains(t, buf.String(), "2. settings → update-vault-settings (depends on: [vault])")
	})

	t.Run("success summary", func(t *testing.T) {
		var buf bytes.Buffer
		result := &usecase.ComposeResult{
			Plan:    plan,
			Success: true,
			ExecutedSteps: []*usecase.StepResult{
				{Step: plan.Components[0], Result: newVaultResult()},
				{Step: plan.Components[1], Result: usecase.NewTaskResult(usecase.TaskUpdateVaultSettings)},
			},
		}
		require.NoError(t, NewComposeRenderer(&buf).RenderComposeResult(result))

		assert.Contains(t, buf.String(), "Successfully composed fantom-vault")
		assert.Contains(t, buf.String(), "Steps executed: 2/2")
		assert.Contains(t, buf.String(), "Contracts deployed: 2")
	})

	t.Run("failure summary", func(t *testing.T) {
		var buf bytes.Buffer
		failed := &usecase.StepResult{Step: plan.Components[1], Error: errors.New("governance mismatch")}
		result := &usecase.ComposeResult{
			Plan:          plan,
			FailedStep:    failed,
			ExecutedSteps: []*usecase.StepResult{{Step: plan.Components[0], Result: newVaultResult()}, failed},
		}
		require.NoError(t, NewComposeRenderer(&buf).RenderComposeResult(result))

		assert.Contains(t, buf.String(), "Compose failed")
		assert.Contains(t, buf.String(), "Failed at step: settings")
		assert.Contains(t, buf.String(), "Steps completed: 1/2")
		assert.Contains(t, buf.String(), "Error: governance mismatch")
	})

	t.Run("step result", func(t *testing.T) {
		var buf bytes.Buffer
		NewComposeRenderer(&buf).RenderStepResult(&usecase.StepResult{Step: plan.Components[0], Error: errors.New("boom")})
		assert.Equal(t, "❌ Failed: boom\n", buf.String())
	})
}

func TestFormatWarning(t *testing.T) {
	assert.Equal(t, "⚠️  cancelled by user", FormatWarning("cancelled by user"))
}
