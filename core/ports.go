package core

import "context"

// Engine turns a batch of prompts into generations. Implementations block
// for the duration of inference and are not safe for overlapping calls from
// multiple goroutines; the pipeline assumes exclusive single-caller use per
// instance.
type Engine interface {
	Generate(ctx context.Context, prompts []string) (*GenerationSet, error)
}

// MutationModel produces candidate programs from a batch of prompt/template
// records. The diff strategy may return fewer candidates than records when
// model output cannot be parsed or applied; callers detect under-production
// by comparing counts.
type MutationModel interface {
	GeneratePrograms(ctx context.Context, records []PromptRecord, opts GenerateOptions) ([]string, error)
}

// Completer returns a single completion for a single prompt. The remote
// strategy exposes it directly for callers that do not batch.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
