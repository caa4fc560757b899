// Package ner defines the entity-recognition contract consumed by the
// resolution engine and the adapters that fulfil it. Building or training a
// model is out of scope; engines are external capabilities producing labeled
// spans.
package ner

import (
	"context"
	"strings"

	"github.com/lucasvilar/garimpo/internal/model"
)

// Engine produces labeled entity spans for a text.
type Engine interface {
	// Name returns the engine identifier.
	Name() string

	// Analyze returns the entity spans detected in text. Offsets are byte
	// offsets into text; callers discard malformed spans.
	Analyze(ctx context.Context, text string) ([]model.EntitySpan, error)
}

// Config holds NER engine configuration.
type Config struct {
	Provider  string // "openai" or "" (disabled: pattern matching only)
	Model     string
	APIKey    string
	BaseURL   string // Custom endpoint (OpenAI-compatible servers)
	Timeout   int    // seconds
	MaxTokens int
}

// ConfigFromModel converts the application NER configuration.
func ConfigFromModel(cfg model.NERConfig) Config {
	return Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
	}
}

// MapLabel translates the label taxonomies different engines emit into the
// two labels the pipeline understands. Unknown labels map to "".
func MapLabel(raw string) model.SpanLabel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PER", "PERSON":
		return model.LabelPerson
	case "LOC", "LOCATION", "GPE", "CITY":
		return model.LabelLocation
	default:
		return ""
	}
}
