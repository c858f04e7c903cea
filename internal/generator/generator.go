// Package generator produces section drafts with multiple backend support.
package generator

import (
	"context"
	"fmt"
)

// Request carries everything a backend needs to draft one section.
type Request struct {
	SessionID   string `json:"session_id"`
	SectionID   string `json:"section_id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// Feedback is the reviewer feedback from the rejection that triggered
	// this attempt; empty on a first draft.
	Feedback string `json:"feedback,omitempty"`

	// PreviousContent is the rejected draft being revised; empty on a
	// first draft.
	PreviousContent string `json:"previous_content,omitempty"`

	// Revision is the attempt ordinal, zero for the first draft.
	Revision int `json:"revision"`
}

// Result is a completed draft.
type Result struct {
	Content   string `json:"content"`
	ModelName string `json:"model_name"`
}

// Generator defines the interface for section draft providers.
type Generator interface {
	// Generate produces a draft for one section. It blocks until the
	// draft is ready or the context is done.
	Generate(ctx context.Context, req Request) (Result, error)
}

// ProviderType identifies the generation backend.
type ProviderType string

const (
	// ProviderHTTP calls an external generation service.
	ProviderHTTP ProviderType = "http"

	// ProviderStatic renders drafts from builtin templates, for local
	// development and tests.
	ProviderStatic ProviderType = "static"
)

// Config holds configuration for creating a Generator.
type Config struct {
	// Provider specifies which generation backend to use.
	Provider ProviderType

	// URL is the base URL of the generation service (http provider).
	URL string
}

// New creates a Generator based on the provided configuration.
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case ProviderHTTP, "":
		if cfg.URL == "" {
			return nil, fmt.Errorf("http generator requires a service URL")
		}
		return NewHTTP(cfg.URL), nil

	case ProviderStatic:
		return NewStatic(), nil

	default:
		return nil, fmt.Errorf("unknown generator provider: %s", cfg.Provider)
	}
}
