package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snow-ghost/mutagen/core"
)

// Backend selectors for ModelConfig.ModelType.
const (
	BackendHF     = "hf"     // local batched inference runtime
	BackendOpenAI = "openai" // OpenAI-compatible completion API
	BackendRemote = "remote" // hosted completion API with retry loop
)

// Strategy selectors for ModelConfig.Strategy.
const (
	StrategyPrompt = "prompt"
	StrategyDiff   = "diff"
	StrategyRemote = "remote"
)

// RetryConfig holds the remote client retry policy. MaxRetries <= 0 retries
// without bound, matching the behavior of retry-until-cancelled deployments.
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay     time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
}

// DefaultRetryConfig returns the default remote retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    0, // unbounded
		BaseDelay:     250 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ModelConfig is the full configuration surface of a mutation model. It is
// constructed once, owned by one strategy instance for its lifetime, and
// never mutated after construction.
type ModelConfig struct {
	ModelType string `json:"model_type" yaml:"model_type"` // hf|openai|remote
	Strategy  string `json:"strategy" yaml:"strategy"`     // prompt|diff|remote
	ModelPath string `json:"model_path" yaml:"model_path"` // model name or path
	BaseURL   string `json:"base_url" yaml:"base_url"`

	BatchSize          int      `json:"batch_size" yaml:"batch_size"`
	Temp               float32  `json:"temp" yaml:"temp"`
	TopP               float32  `json:"top_p" yaml:"top_p"`
	GenMaxLen          int      `json:"gen_max_len" yaml:"gen_max_len"`
	DoSample           bool     `json:"do_sample" yaml:"do_sample"`
	NumReturnSequences int      `json:"num_return_sequences" yaml:"num_return_sequences"`
	LogitsOnly         bool     `json:"logits_only" yaml:"logits_only"`
	StopSequences      []string `json:"stop_sequences,omitempty" yaml:"stop_sequences,omitempty"`
	FrequencyPenalty   float32  `json:"frequency_penalty" yaml:"frequency_penalty"`
	Seed               int64    `json:"seed" yaml:"seed"`

	// Remote backend
	APITokenFile string `json:"api_token_file,omitempty" yaml:"api_token_file,omitempty"`
	ModelUsed    string `json:"model_used,omitempty" yaml:"model_used,omitempty"`
	MaxRPM       int    `json:"max_rpm,omitempty" yaml:"max_rpm,omitempty"`

	// Encoding
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"` // tiktoken encoding name

	CacheSize int         `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
	Retry     RetryConfig `json:"retry" yaml:"retry"`
}

// DefaultModelConfig returns a configuration with the sampling defaults used
// across the pipeline.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		ModelType:          BackendHF,
		Strategy:           StrategyPrompt,
		BatchSize:          32,
		Temp:               0.85,
		TopP:               0.95,
		GenMaxLen:          768,
		DoSample:           true,
		NumReturnSequences: 1,
		Encoding:           "cl100k_base",
		Retry:              DefaultRetryConfig(),
	}
}

// Validate checks the configuration before any generation is attempted.
func (c *ModelConfig) Validate() error {
	switch c.ModelType {
	case BackendHF, BackendOpenAI, BackendRemote:
	default:
		return fmt.Errorf("%w: model_type %q", core.ErrUnsupportedBackend, c.ModelType)
	}
	switch c.Strategy {
	case StrategyPrompt, StrategyDiff, StrategyRemote:
	default:
		return fmt.Errorf("%w: strategy %q", core.ErrInvalidConfig, c.Strategy)
	}
	if c.ModelType != BackendRemote {
		if c.BatchSize < 1 {
			return fmt.Errorf("%w: batch_size must be >= 1, got %d", core.ErrInvalidConfig, c.BatchSize)
		}
		if c.NumReturnSequences < 1 {
			return fmt.Errorf("%w: num_return_sequences must be >= 1, got %d", core.ErrInvalidConfig, c.NumReturnSequences)
		}
	}
	if c.GenMaxLen < 1 {
		return fmt.Errorf("%w: gen_max_len must be >= 1, got %d", core.ErrInvalidConfig, c.GenMaxLen)
	}
	if c.ModelType == BackendRemote && c.ModelUsed == "" {
		return fmt.Errorf("%w: model_used is required for the remote backend", core.ErrInvalidConfig)
	}
	return nil
}

// Load reads a model configuration from a YAML file, applies environment
// overrides, and validates the result.
func Load(path string) (*ModelConfig, error) {
	cfg := DefaultModelConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config values from the environment.
func applyEnv(cfg *ModelConfig) {
	cfg.ModelType = getEnv("MUTAGEN_MODEL_TYPE", cfg.ModelType)
	cfg.Strategy = getEnv("MUTAGEN_STRATEGY", cfg.Strategy)
	cfg.ModelPath = getEnv("MUTAGEN_MODEL_PATH", cfg.ModelPath)
	cfg.BaseURL = getEnv("MUTAGEN_BASE_URL", cfg.BaseURL)
	cfg.BatchSize = getEnvInt("MUTAGEN_BATCH_SIZE", cfg.BatchSize)
	cfg.GenMaxLen = getEnvInt("MUTAGEN_GEN_MAX_LEN", cfg.GenMaxLen)
	cfg.APITokenFile = getEnv("MUTAGEN_API_TOKEN_FILE", cfg.APITokenFile)
	cfg.ModelUsed = getEnv("MUTAGEN_MODEL_USED", cfg.ModelUsed)
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
