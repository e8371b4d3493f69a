package interactive

import (
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

func newTestPrompter(cfg *config.RuntimeConfig, answer error) (*Prompter, *int) {
	asked := 0
	p := NewPrompter(cfg)
	p.confirm = func(string) error {
		asked++
		return answer
	}
	return p, &asked
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.RuntimeConfig
		answer    error
		want      bool
		wantErr   error
		wantAsked int
	}{
		{name: "assume yes", cfg: config.RuntimeConfig{AssumeYes: true}, want: true},
		{name: "assume yes wins over non-interactive", cfg: config.RuntimeConfig{AssumeYes: true, NonInteractive: true}, want: true},
		{name: "non-interactive refuses", cfg: config.RuntimeConfig{NonInteractive: true}, wantErr: ErrConfirmationRequired},
		{name: "accepted", answer: nil, want: true, wantAsked: 1},
		{name: "declined", answer: promptui.ErrAbort, want: false, wantAsked: 1},
		{name: "interrupted", answer: promptui.ErrInterrupt, wantErr: promptui.ErrInterrupt, wantAsked: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			p, asked := newTestPrompter(&cfg, tt.answer)

			ok, err := p.Confirm("Reset the network?")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantAsked, *asked)
		})
	}
}

func TestPrompter_SelectTask(t *testing.T) {
	color.NoColor = true
	registry := usecase.ProvideTaskRegistry(&config.RuntimeConfig{Network: &config.Network{}}, usecase.AlwaysConfirm{})
	tasks := registry.List()

	t.Run("non-interactive", func(t *testing.T) {
		_, err := NewPrompter(&config.RuntimeConfig{NonInteractive: true}).SelectTask(tasks)
		require.Error(t, err)
	})

	t.Run("single task needs no prompt", func(t *testing.T) {
		p := NewPrompter(&config.RuntimeConfig{})
		p.selectN = func(string, []string) (int, error) {
			t.Fatal("prompted")
			return 0, nil
		}
		task, err := p.SelectTask(tasks[:1])
		require.NoError(t, err)
		assert.Equal(t, tasks[0].Name(), task.Name())
	})

	t.Run("picks selected index", func(t *testing.T) {
		p := NewPrompter(&config.RuntimeConfig{})
		var shown []string
		p.selectN = func(_ string, items []string) (int, error) {
			shown = items
			return 2, nil
		}
		task, err := p.SelectTask(tasks)
		require.NoError(t, err)
		assert.Equal(t, tasks[2].Name(), task.Name())
		assert.Len(t, shown, len(tasks))
		assert.Contains(t, shown[2], tasks[2].Name())
	})

	t.Run("cancelled", func(t *testing.T) {
		p := NewPrompter(&config.RuntimeConfig{})
		p.selectN = func(string, []string) (int, error) { return 0, promptui.ErrInterrupt }
		_, err := p.SelectTask(tasks)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "selection cancelled")
	})
}

func TestFuzzySearch(t *testing.T) {
	items := []string{"new-vault", "update-vault-settings", "fund-native"}
	search := createFuzzySearchFunc(items)

	assert.True(t, search("", 0))
	assert.True(t, search("VAULT", 0))
	assert.True(t, search("uvs", 1))
	assert.False(t, search("xyz", 2))
}
