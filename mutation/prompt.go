// Package mutation implements the strategy layer of the pipeline: the
// polymorphic front ends that turn batches of prompt/template records into
// candidate program strings. Strategies compose an inference engine with
// prompt templating, completion truncation, and diff-protocol parsing; the
// backend and strategy are selected by configuration at construction, never
// by runtime type inspection.
package mutation

import (
	"context"
	"fmt"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
	"github.com/snow-ghost/mutagen/pkg/logging"
	"github.com/snow-ghost/mutagen/pkg/metrics"
	"github.com/snow-ghost/mutagen/pkg/tracing"
	"github.com/snow-ghost/mutagen/truncate"
)

// PromptModel is the full-rewrite strategy: each completion is truncated and
// appended to its record's template, producing one candidate per record in
// input order.
type PromptModel struct {
	cfg     *config.ModelConfig
	engine  core.Engine
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
	tracer  *tracing.Tracer
}

// NewPromptModel creates the full-rewrite strategy over an inference engine.
func NewPromptModel(cfg *config.ModelConfig, engine core.Engine, log *logging.Logger, met *metrics.PipelineMetrics, tracer *tracing.Tracer) (*PromptModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: engine is required", core.ErrInvalidConfig)
	}
	if log == nil {
		log = logging.NewNop()
	}
	if tracer == nil {
		tracer = tracing.NewNopTracer()
	}
	return &PromptModel{cfg: cfg, engine: engine, logger: log, metrics: met, tracer: tracer}, nil
}

// GeneratePrograms sends all record prompts to the engine and renders one
// candidate per record, preserving input order. Records sharing identical
// prompt text consume successive generations recorded under that text.
func (m *PromptModel) GeneratePrograms(ctx context.Context, records []core.PromptRecord, opts core.GenerateOptions) ([]string, error) {
	ctx, span := m.tracer.StartGenerationSpan(ctx, m.cfg.ModelType, m.cfg.Strategy, len(records))
	defer span.End()

	set, err := m.engine.Generate(ctx, recordPrompts(records))
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}

	cursor := make(map[string]int)
	out := make([]string, 0, len(records))
	for i, rec := range records {
		gens := set.Get(rec.Prompt)
		if len(gens) == 0 {
			m.drop(dropNoGeneration, i, nil)
			continue
		}
		idx := cursor[rec.Prompt]
		if idx >= len(gens) {
			idx = len(gens) - 1
		}
		cursor[rec.Prompt]++
		out = append(out, renderCandidate(rec.Template, gens[idx].Text, opts))
	}

	if m.metrics != nil {
		m.metrics.RecordGenerations(m.cfg.ModelType, m.cfg.Strategy, set.Len())
		m.metrics.RecordCandidates(m.cfg.ModelType, m.cfg.Strategy, len(out))
	}
	return out, nil
}

func (m *PromptModel) drop(reason string, recordIndex int, err error) {
	m.logger.LogDrop(reason, recordIndex, err)
	if m.metrics != nil {
		m.metrics.RecordDrop(reason)
	}
}

// renderCandidate appends a completion to its template. With truncation
// skipped the raw completion goes under one fixed-width indent block;
// otherwise the truncation heuristic selected by opts bounds it first.
func renderCandidate(template, completion string, opts core.GenerateOptions) string {
	if opts.SkipTruncation {
		return template + "\n    " + completion
	}
	return template + truncate.Truncate(completion, truncate.Options{
		OnlyLocalScope: opts.LocalScopeTruncate,
	})
}

// recordPrompts projects the prompt texts of a record batch, keeping input
// order including duplicates.
func recordPrompts(records []core.PromptRecord) []string {
	prompts := make([]string, len(records))
	for i, r := range records {
		prompts[i] = r.Prompt
	}
	return prompts
}
