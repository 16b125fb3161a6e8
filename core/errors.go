package core

import "errors"

var (
	// ErrUnsupportedBackend is returned at construction for an unknown
	// model_type selector.
	ErrUnsupportedBackend = errors.New("unsupported model backend")

	// ErrInvalidConfig is returned at construction when a required
	// configuration value is missing or out of range.
	ErrInvalidConfig = errors.New("invalid model configuration")

	// ErrEmptyBatch is returned when an engine is asked to generate from
	// zero prompts.
	ErrEmptyBatch = errors.New("empty prompt batch")
)
