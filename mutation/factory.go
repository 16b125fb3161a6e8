package mutation

import (
	"fmt"
	"os"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
	"github.com/snow-ghost/mutagen/engine/local"
	"github.com/snow-ghost/mutagen/engine/openai"
	"github.com/snow-ghost/mutagen/engine/remote"
	"github.com/snow-ghost/mutagen/pkg/logging"
	"github.com/snow-ghost/mutagen/pkg/metrics"
	"github.com/snow-ghost/mutagen/pkg/tokens"
	"github.com/snow-ghost/mutagen/pkg/tracing"
)

// defaultRuntimeURL is where the local inference server listens when the
// configuration names no base_url.
const defaultRuntimeURL = "http://localhost:8000"

// New builds the mutation model selected by cfg.ModelType and cfg.Strategy.
// All construction failures, including an unsupported backend selector,
// surface here before any generation is attempted.
func New(cfg *config.ModelConfig, log *logging.Logger, met *metrics.PipelineMetrics, tracer *tracing.Tracer) (core.MutationModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNop()
	}
	if tracer == nil {
		tracer = tracing.NewNopTracer()
	}

	switch cfg.ModelType {
	case config.BackendRemote:
		if cfg.Strategy != config.StrategyRemote {
			return nil, fmt.Errorf("%w: strategy %q cannot use the remote backend", core.ErrInvalidConfig, cfg.Strategy)
		}
		client, err := remote.NewClient(cfg, log, met)
		if err != nil {
			return nil, err
		}
		return NewRemoteModel(cfg, client, met, tracer)

	case config.BackendHF:
		enc, err := tokens.NewTiktokenEncoder(cfg.Encoding, 0)
		if err != nil {
			return nil, err
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultRuntimeURL
		}
		eng, err := local.New(cfg, local.NewHTTPRuntime(baseURL), enc, log, met)
		if err != nil {
			return nil, err
		}
		return newStrategy(cfg, eng, log, met, tracer)

	case config.BackendOpenAI:
		eng, err := openai.New(cfg, os.Getenv("OPENAI_API_KEY"), log, met)
		if err != nil {
			return nil, err
		}
		return newStrategy(cfg, eng, log, met, tracer)

	default:
		return nil, fmt.Errorf("%w: model_type %q", core.ErrUnsupportedBackend, cfg.ModelType)
	}
}

// newStrategy wraps a batch engine in the configured strategy front end.
func newStrategy(cfg *config.ModelConfig, eng core.Engine, log *logging.Logger, met *metrics.PipelineMetrics, tracer *tracing.Tracer) (core.MutationModel, error) {
	switch cfg.Strategy {
	case config.StrategyPrompt:
		return NewPromptModel(cfg, eng, log, met, tracer)
	case config.StrategyDiff:
		return NewDiffModel(cfg, eng, log, met, tracer)
	default:
		return nil, fmt.Errorf("%w: strategy %q requires the remote backend", core.ErrInvalidConfig, cfg.Strategy)
	}
}
