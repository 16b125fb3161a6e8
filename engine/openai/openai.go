// Package openai implements the inference engine over an OpenAI-compatible
// completion API. Prompts are sent in configured batch sizes with
// n = num_return_sequences completions per prompt.
package openai

import (
	"context"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
	"github.com/snow-ghost/mutagen/pkg/cache"
	"github.com/snow-ghost/mutagen/pkg/logging"
	"github.com/snow-ghost/mutagen/pkg/metrics"
)

// Engine is the completion engine for remote OpenAI-compatible servers,
// including local vLLM-style deployments that expose the same API.
type Engine struct {
	cfg     *config.ModelConfig
	client  *goopenai.Client
	cache   *cache.CompletionCache
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
}

// New creates a completion engine from configuration. apiKey may be empty
// for local deployments that skip authentication.
func New(cfg *config.ModelConfig, apiKey string, log *logging.Logger, met *metrics.PipelineMetrics) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LogitsOnly {
		return nil, fmt.Errorf("%w: logits_only is not supported by the openai backend", core.ErrInvalidConfig)
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: model_path is required for the openai backend", core.ErrInvalidConfig)
	}

	clientCfg := goopenai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var completionCache *cache.CompletionCache
	if cfg.CacheSize > 0 {
		var err error
		completionCache, err = cache.NewCompletionCache(cfg.CacheSize, time.Hour)
		if err != nil {
			return nil, err
		}
	}

	if log == nil {
		log = logging.NewNop()
	}

	return &Engine{
		cfg:     cfg,
		client:  goopenai.NewClientWithConfig(clientCfg),
		cache:   completionCache,
		logger:  log,
		metrics: met,
	}, nil
}

// Generate runs all prompts through the completion API in ceil(N/B)
// contiguous chunks and accumulates results keyed by prompt text in
// first-seen order.
func (e *Engine) Generate(ctx context.Context, prompts []string) (*core.GenerationSet, error) {
	if len(prompts) == 0 {
		return nil, core.ErrEmptyBatch
	}

	results := make(map[string][]core.Generation)

	var missing []string
	pending := make(map[string]bool)
	for _, p := range prompts {
		if _, done := results[p]; done {
			continue
		}
		if pending[p] {
			continue
		}
		if gens, ok := e.lookupCache(p); ok {
			results[p] = gens
			continue
		}
		pending[p] = true
		missing = append(missing, p)
	}

	batchSize := e.cfg.BatchSize
	totalBatches := (len(missing) + batchSize - 1) / batchSize
	for i := 0; i < totalBatches; i++ {
		start := i * batchSize
		end := min((i+1)*batchSize, len(missing))
		chunk := missing[start:end]

		began := time.Now()
		if err := e.runChunk(ctx, chunk, results); err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", i+1, totalBatches, err)
		}
		elapsed := time.Since(began)

		e.logger.LogBatch(e.cfg.ModelType, i, len(chunk), elapsed)
		if e.metrics != nil {
			e.metrics.RecordBatch(e.cfg.ModelType, elapsed)
		}
	}

	// rebuild first-seen input order regardless of cache hit placement
	set := core.NewGenerationSet()
	seen := make(map[string]bool)
	for _, p := range prompts {
		if seen[p] {
			continue
		}
		seen[p] = true
		for _, g := range results[p] {
			set.Add(p, g)
		}
	}
	return set, nil
}

// runChunk sends one chunk of prompts to the completion endpoint and groups
// the returned choices back to their prompts.
func (e *Engine) runChunk(ctx context.Context, chunk []string, results map[string][]core.Generation) error {
	n := e.cfg.NumReturnSequences
	req := goopenai.CompletionRequest{
		Model:            e.cfg.ModelPath,
		Prompt:           chunk,
		MaxTokens:        e.cfg.GenMaxLen,
		Temperature:      e.cfg.Temp,
		TopP:             e.cfg.TopP,
		N:                n,
		Stop:             e.cfg.StopSequences,
		FrequencyPenalty: e.cfg.FrequencyPenalty,
	}

	resp, err := e.client.CreateCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) != len(chunk)*n {
		return fmt.Errorf("openai returned %d choices for %d prompts", len(resp.Choices), len(chunk))
	}

	for _, choice := range resp.Choices {
		promptIdx := choice.Index / n
		if promptIdx < 0 || promptIdx >= len(chunk) {
			return fmt.Errorf("openai choice index %d out of range", choice.Index)
		}
		prompt := chunk[promptIdx]
		results[prompt] = append(results[prompt], core.Generation{Text: choice.Text})
	}

	for _, p := range chunk {
		e.storeCache(p, results[p])
	}
	return nil
}

// lookupCache retrieves cached generations for a prompt, if caching is on.
func (e *Engine) lookupCache(prompt string) ([]core.Generation, bool) {
	if e.cache == nil {
		return nil, false
	}
	gens, ok := e.cache.Get(e.cacheKey(prompt))
	if e.metrics != nil {
		if ok {
			e.metrics.RecordCacheHit()
		} else {
			e.metrics.RecordCacheMiss()
		}
	}
	return gens, ok
}

// storeCache records generations for a prompt, if caching is on.
func (e *Engine) storeCache(prompt string, gens []core.Generation) {
	if e.cache == nil || len(gens) == 0 {
		return
	}
	e.cache.Set(e.cacheKey(prompt), gens)
}

func (e *Engine) cacheKey(prompt string) cache.Key {
	return cache.NewKey(prompt, e.cfg.ModelPath, e.cfg.Temp, e.cfg.TopP, e.cfg.GenMaxLen, e.cfg.NumReturnSequences)
}
