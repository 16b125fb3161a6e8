package mutation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
)

func TestNew_UnsupportedBackend(t *testing.T) {
	cfg := config.DefaultModelConfig()
	cfg.ModelType = "pytorch"

	_, err := New(cfg, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedBackend)
}

func TestNew_RemoteStrategyNeedsRemoteBackend(t *testing.T) {
	cfg := config.DefaultModelConfig()
	cfg.ModelType = config.BackendOpenAI
	cfg.ModelPath = "code-davinci-002"
	cfg.Strategy = config.StrategyRemote

	_, err := New(cfg, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestNew_SelectsStrategyForOpenAIBackend(t *testing.T) {
	cfg := config.DefaultModelConfig()
	cfg.ModelType = config.BackendOpenAI
	cfg.ModelPath = "code-davinci-002"
	cfg.Strategy = config.StrategyDiff

	model, err := New(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &DiffModel{}, model)

	cfg.Strategy = config.StrategyPrompt
	model, err = New(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &PromptModel{}, model)
}

func TestNew_RemoteBackend(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("secret"), 0600))

	cfg := config.DefaultModelConfig()
	cfg.ModelType = config.BackendRemote
	cfg.Strategy = config.StrategyRemote
	cfg.ModelUsed = "luminous-base"
	cfg.APITokenFile = tokenPath

	model, err := New(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &RemoteModel{}, model)
}

func TestNew_RemoteBackendRequiresRemoteStrategy(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("secret"), 0600))

	for _, strategy := range []string{config.StrategyDiff, config.StrategyPrompt} {
		cfg := config.DefaultModelConfig()
		cfg.ModelType = config.BackendRemote
		cfg.Strategy = strategy
		cfg.ModelUsed = "luminous-base"
		cfg.APITokenFile = tokenPath

		_, err := New(cfg, nil, nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	}
}

func TestNew_RemoteBackendMissingCredentialFailsFast(t *testing.T) {
	cfg := config.DefaultModelConfig()
	cfg.ModelType = config.BackendRemote
	cfg.Strategy = config.StrategyRemote
	cfg.ModelUsed = "luminous-base"
	cfg.APITokenFile = filepath.Join(t.TempDir(), "missing")

	_, err := New(cfg, nil, nil, nil)
	require.Error(t, err)
}
