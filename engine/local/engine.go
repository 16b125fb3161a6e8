package local

import (
	"context"
	"fmt"
	"time"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
	"github.com/snow-ghost/mutagen/pkg/logging"
	"github.com/snow-ghost/mutagen/pkg/metrics"
	"github.com/snow-ghost/mutagen/pkg/tokens"
)

// maxInputTokens bounds prompt length at tokenization; longer prompts keep
// their tail, matching left-padded truncation.
const maxInputTokens = 2048

// Engine partitions prompts into fixed-size chunks and runs each through a
// local model runtime. One instance serves one caller at a time; overlapping
// Generate calls from multiple goroutines are not supported.
type Engine struct {
	cfg     *config.ModelConfig
	runtime Runtime
	encoder tokens.Encoder
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
}

// New creates a batched engine from configuration. A nil logger discards
// output; nil metrics disable recording.
func New(cfg *config.ModelConfig, rt Runtime, enc tokens.Encoder, log *logging.Logger, met *metrics.PipelineMetrics) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, fmt.Errorf("%w: runtime is required", core.ErrInvalidConfig)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: encoder is required", core.ErrInvalidConfig)
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		runtime: rt,
		encoder: enc,
		logger:  log,
		metrics: met,
	}, nil
}

// Generate runs all prompts through the model in ceil(N/B) contiguous chunks
// of input order and accumulates results keyed by prompt text. Duplicate
// prompts across chunks merge under one key; the returned set iterates in
// first-seen-prompt order.
func (e *Engine) Generate(ctx context.Context, prompts []string) (*core.GenerationSet, error) {
	if len(prompts) == 0 {
		return nil, core.ErrEmptyBatch
	}

	batchSize := e.cfg.BatchSize
	totalBatches := (len(prompts) + batchSize - 1) / batchSize
	set := core.NewGenerationSet()

	for i := 0; i < totalBatches; i++ {
		start := i * batchSize
		end := min((i+1)*batchSize, len(prompts))
		chunk := prompts[start:end]

		began := time.Now()
		if err := e.runChunk(ctx, chunk, set); err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", i+1, totalBatches, err)
		}
		elapsed := time.Since(began)

		e.logger.LogBatch(e.cfg.ModelType, i, len(chunk), elapsed)
		if e.metrics != nil {
			e.metrics.RecordBatch(e.cfg.ModelType, elapsed)
		}
	}

	return set, nil
}

// runChunk tokenizes one chunk with padding and truncation and appends its
// generations to set.
func (e *Engine) runChunk(ctx context.Context, chunk []string, set *core.GenerationSet) error {
	batch, err := tokens.PadBatch(e.encoder, chunk, maxInputTokens)
	if err != nil {
		return err
	}

	if e.cfg.LogitsOnly {
		resp, err := e.runtime.Score(ctx, ScoreRequest{
			InputIDs:      batch.InputIDs,
			AttentionMask: batch.AttentionMask,
		})
		if err != nil {
			return err
		}
		for j, prompt := range chunk {
			set.Add(prompt, core.Generation{Logits: resp.Logits[j]})
		}
		return nil
	}

	n := e.cfg.NumReturnSequences
	resp, err := e.runtime.Generate(ctx, GenerateRequest{
		InputIDs:           batch.InputIDs,
		AttentionMask:      batch.AttentionMask,
		DoSample:           e.cfg.DoSample,
		NumReturnSequences: n,
		Temperature:        e.cfg.Temp,
		TopP:               e.cfg.TopP,
		MaxNewTokens:       e.cfg.GenMaxLen,
		PadTokenID:         e.encoder.PadID(),
	})
	if err != nil {
		return err
	}

	for j, prompt := range chunk {
		for k := 0; k < n; k++ {
			seq := resp.Sequences[j*n+k]
			if len(seq) < batch.Width {
				return fmt.Errorf("sequence shorter than prompt width: %d < %d", len(seq), batch.Width)
			}
			// slice off the padded prompt prefix before decoding
			text, err := e.encoder.Decode(seq[batch.Width:])
			if err != nil {
				return fmt.Errorf("failed to decode continuation: %w", err)
			}
			set.Add(prompt, core.Generation{Text: text})
		}
	}
	return nil
}
