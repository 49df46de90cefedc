// File: cmd/root_test.go
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/automator"
	"github.com/xkilldash9x/socialgraph-cli/internal/config"
	"github.com/xkilldash9x/socialgraph-cli/internal/coordinator"
)

func TestNewRootCommandStructure(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"collect", "automate", "cancel", "unfriend"} {
		assert.True(t, names[want], "missing %s subcommand", want)
	}

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("output"))
	assert.NotNil(t, root.PersistentFlags().Lookup("format"))
}

func TestInitializeViperReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
graph:
  base_url: "https://graph.example.com"
collector:
  max_items: 25
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	v, err := initializeViper(path)
	require.NoError(t, err)

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "https://graph.example.com", cfg.Graph().BaseURL)
	assert.Equal(t, 25, cfg.Collector().MaxItems)
}

func TestInitializeViperMissingFileFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	v, err := initializeViper("")
	require.NoError(t, err)

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com", cfg.Graph().BaseURL)
}

func TestApplyRootFlags(t *testing.T) {
	root := NewRootCommand()
	require.NoError(t, root.PersistentFlags().Set("headless", "false"))
	require.NoError(t, root.PersistentFlags().Set("output", "out.json"))
	require.NoError(t, root.PersistentFlags().Set("format", "csv"))

	cfg := config.NewDefaultConfig()
	applyRootFlags(root, cfg)

	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, "out.json", cfg.Report().Output)
	assert.Equal(t, "csv", cfg.Report().Format)
}

func TestRunOnBus(t *testing.T) {
	coord := coordinator.New(nil, 0, zap.NewNop())

	calls := 0
	reply := runOnBus(context.Background(), coord, schemas.CommandStartAutomation,
		func(ctx context.Context, cmd schemas.Command) (any, error) {
			calls++
			return "started", nil
		})
	assert.True(t, reply.OK)
	assert.Equal(t, "started", reply.Result)
	assert.Equal(t, 1, calls)

	// The variant stays routable for attached surfaces afterwards.
	again := coord.Dispatch(context.Background(),
		schemas.Command{Type: schemas.CommandStartAutomation})
	assert.True(t, again.OK)
	assert.Equal(t, 2, calls)

	failed := runOnBus(context.Background(), coord, schemas.CommandCancelOutgoing,
		func(ctx context.Context, cmd schemas.Command) (any, error) {
			return nil, errors.New("no requests page")
		})
	assert.False(t, failed.OK)
	assert.Equal(t, "no requests page", failed.Error)
}

func TestIgnoreStop(t *testing.T) {
	assert.NoError(t, ignoreStop(nil))
	assert.NoError(t, ignoreStop(automator.ErrStopped))
	assert.NoError(t, ignoreStop(context.Canceled))

	hard := errors.New("browser crashed")
	assert.Equal(t, hard, ignoreStop(hard))
}
