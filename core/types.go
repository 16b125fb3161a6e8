package core

// PromptRecord is the immutable input unit of the pipeline. Prompt is the
// text sent to the model; Template is the code fragment a completion is
// appended to, or the base text a diff is applied against.
type PromptRecord struct {
	Prompt   string
	Template string
}

// Generation is a single model output for one prompt. In logits-only mode
// Text is empty and Logits holds per-token score rows instead; the two modes
// are mutually exclusive per configuration.
type Generation struct {
	Text   string
	Logits [][]float32
}

// GenerateOptions control post-processing of completions.
type GenerateOptions struct {
	LocalScopeTruncate bool // truncate completions to the local scope
	SkipTruncation     bool // append raw completion under one indent block
}

// GenerationSet accumulates generations keyed by prompt text. Duplicate
// prompts merge under one key; iteration order is the order prompt texts were
// first seen, not the original request order.
type GenerationSet struct {
	order    []string
	byPrompt map[string][]Generation
}

// NewGenerationSet creates an empty generation set.
func NewGenerationSet() *GenerationSet {
	return &GenerationSet{byPrompt: make(map[string][]Generation)}
}

// Add appends a generation under the given prompt text.
func (s *GenerationSet) Add(prompt string, gen Generation) {
	if _, seen := s.byPrompt[prompt]; !seen {
		s.order = append(s.order, prompt)
	}
	s.byPrompt[prompt] = append(s.byPrompt[prompt], gen)
}

// Get returns the generations recorded for a prompt text.
func (s *GenerationSet) Get(prompt string) []Generation {
	return s.byPrompt[prompt]
}

// Prompts returns the distinct prompt texts in first-seen order.
func (s *GenerationSet) Prompts() []string {
	return s.order
}

// Len returns the number of distinct prompt texts.
func (s *GenerationSet) Len() int {
	return len(s.order)
}

// Flatten returns all generations in first-seen-prompt order.
func (s *GenerationSet) Flatten() []Generation {
	var out []Generation
	for _, p := range s.order {
		out = append(out, s.byPrompt[p]...)
	}
	return out
}
