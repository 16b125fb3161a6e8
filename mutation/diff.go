package mutation

import (
	"context"
	"fmt"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
	"github.com/snow-ghost/mutagen/diffproto"
	"github.com/snow-ghost/mutagen/pkg/logging"
	"github.com/snow-ghost/mutagen/pkg/metrics"
	"github.com/snow-ghost/mutagen/pkg/tracing"
	"github.com/snow-ghost/mutagen/truncate"
)

// Drop reasons recorded when the diff strategy cannot turn a completion into
// a candidate program.
const (
	dropNoGeneration  = "no_generation"
	dropIncompleteDoc = "incomplete_document"
	dropApplyFailed   = "apply_failed"
)

// DiffModel is the structured-diff strategy: each truncated completion is
// appended to its record's template, the result is parsed as a tagged diff
// document, and the hunk is applied against the record's prompt text.
// Malformed output is never an error; the record is dropped, counted,
// and logged, and the output list shrinks. Callers detect under-production
// by comparing counts.
type DiffModel struct {
	cfg     *config.ModelConfig
	engine  core.Engine
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
	tracer  *tracing.Tracer
}

// NewDiffModel creates the structured-diff strategy over an inference engine.
func NewDiffModel(cfg *config.ModelConfig, engine core.Engine, log *logging.Logger, met *metrics.PipelineMetrics, tracer *tracing.Tracer) (*DiffModel, error) {
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
	return &DiffModel{cfg: cfg, engine: engine, logger: log, metrics: met, tracer: tracer}, nil
}

// GeneratePrograms sends all record prompts to the engine, joins each
// truncated completion to its record's template, parses the result as a diff
// document, and applies the validated hunk to the record's prompt.
// Index-to-input correspondence is lost for dropped
// entries; surviving candidates keep their relative input order.
func (m *DiffModel) GeneratePrograms(ctx context.Context, records []core.PromptRecord, opts core.GenerateOptions) ([]string, error) {
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

		candidate, err := m.applyCompletion(rec, gens[idx].Text, opts, i)
		if err != nil {
			continue // already counted
		}
		out = append(out, candidate)
	}

	if m.metrics != nil {
		m.metrics.RecordGenerations(m.cfg.ModelType, m.cfg.Strategy, set.Len())
		m.metrics.RecordCandidates(m.cfg.ModelType, m.cfg.Strategy, len(out))
	}
	return out, nil
}

// applyCompletion runs one completion through the diff protocol. The tagged
// document header normally arrives via the record's template, with the
// completion continuing after the <DFF> tag, so the two are joined and the
// completion truncated before the document is extracted. The validated hunk
// is bounded to diff-shaped lines, stripped of any fabricated next document,
// and applied against the prompt text.
func (m *DiffModel) applyCompletion(rec core.PromptRecord, completion string, opts core.GenerateOptions, recordIndex int) (string, error) {
	code := rec.Template + truncate.Truncate(completion, truncate.Options{
		OnlyLocalScope: opts.LocalScopeTruncate,
	})
	doc, err := diffproto.Split(code)
	if err != nil {
		m.drop(dropIncompleteDoc, recordIndex, err)
		return "", err
	}

	hunk := diffproto.TruncateHunk(doc.Diff)
	candidate, err := diffproto.Apply(rec.Prompt, hunk)
	if err != nil {
		m.drop(dropApplyFailed, recordIndex, err)
		return "", err
	}
	return candidate, nil
}

func (m *DiffModel) drop(reason string, recordIndex int, err error) {
	m.logger.LogDrop(reason, recordIndex, err)
	if m.metrics != nil {
		m.metrics.RecordDrop(reason)
	}
}
