package mutation

import (
	"context"
	"fmt"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
	"github.com/snow-ghost/mutagen/pkg/metrics"
	"github.com/snow-ghost/mutagen/pkg/tracing"
)

// RemoteModel is the hosted-API strategy. It performs no local truncation
// and no diff parsing: each record's prompt goes out as a single completion
// request and the completion text comes back as the candidate. Retries live
// inside the client; the only error that reaches the caller mid-batch is a
// propagated cancellation.
type RemoteModel struct {
	cfg     *config.ModelConfig
	client  core.Completer
	metrics *metrics.PipelineMetrics
	tracer  *tracing.Tracer
}

// NewRemoteModel creates the hosted-API strategy over a completion client.
func NewRemoteModel(cfg *config.ModelConfig, client core.Completer, met *metrics.PipelineMetrics, tracer *tracing.Tracer) (*RemoteModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: completion client is required", core.ErrInvalidConfig)
	}
	if tracer == nil {
		tracer = tracing.NewNopTracer()
	}
	return &RemoteModel{cfg: cfg, client: client, metrics: met, tracer: tracer}, nil
}

// Complete returns a single completion for a single prompt.
func (m *RemoteModel) Complete(ctx context.Context, prompt string) (string, error) {
	return m.client.Complete(ctx, prompt)
}

// GeneratePrograms completes each record's prompt in input order, one
// request per record.
func (m *RemoteModel) GeneratePrograms(ctx context.Context, records []core.PromptRecord, _ core.GenerateOptions) ([]string, error) {
	ctx, span := m.tracer.StartGenerationSpan(ctx, m.cfg.ModelType, m.cfg.Strategy, len(records))
	defer span.End()

	out := make([]string, 0, len(records))
	for _, rec := range records {
		text, err := m.client.Complete(ctx, rec.Prompt)
		if err != nil {
			tracing.RecordSpanError(span, err)
			return nil, err
		}
		out = append(out, text)
	}

	if m.metrics != nil {
		m.metrics.RecordGenerations(m.cfg.ModelType, m.cfg.Strategy, len(out))
		m.metrics.RecordCandidates(m.cfg.ModelType, m.cfg.Strategy, len(out))
	}
	return out, nil
}
