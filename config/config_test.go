package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/mutagen/core"
)

func TestValidate_UnsupportedBackend(t *testing.T) {
	cfg := DefaultModelConfig()
	cfg.ModelType = "tensorflow"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedBackend)
}

func TestValidate_BatchSize(t *testing.T) {
	cfg := DefaultModelConfig()
	cfg.BatchSize = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestValidate_RemoteRequiresModel(t *testing.T) {
	cfg := DefaultModelConfig()
	cfg.ModelType = BackendRemote
	cfg.Strategy = StrategyRemote
	err := cfg.Validate()
	require.Error(t, err)

	cfg.ModelUsed = "luminous-base"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	data := []byte("model_type: openai\nmodel_path: code-davinci-002\nbatch_size: 8\nnum_return_sequences: 2\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendOpenAI, cfg.ModelType)
	assert.Equal(t, "code-davinci-002", cfg.ModelPath)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 2, cfg.NumReturnSequences)
	// untouched defaults survive
	assert.Equal(t, StrategyPrompt, cfg.Strategy)
	assert.InDelta(t, 0.95, cfg.TopP, 1e-6)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MUTAGEN_BATCH_SIZE", "4")
	t.Setenv("MUTAGEN_STRATEGY", "diff")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, StrategyDiff, cfg.Strategy)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/model.yaml")
	assert.Error(t, err)
}
