package ner

import (
	"fmt"
	"strings"
)

// NewEngine creates an engine from configuration. An empty provider returns
// nil: the pipeline then relies on pattern matching alone.
func NewEngine(config Config) (Engine, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIEngine(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown NER provider: %s (supported: openai)", config.Provider)
	}
}
