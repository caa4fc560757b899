package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/lucasvilar/garimpo/internal/model"
)

// OpenAIEngine implements Engine using OpenAI chat completions. Any
// OpenAI-compatible endpoint works through BaseURL.
type OpenAIEngine struct {
	client *openai.Client
	config Config
}

// NewOpenAIEngine creates a new OpenAI-backed engine.
func NewOpenAIEngine(config Config) (*OpenAIEngine, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the engine name.
func (e *OpenAIEngine) Name() string { return "openai" }

const systemPrompt = `You are a named-entity recognizer for Brazilian Portuguese news text.
Return a JSON array of entity mentions. Each element must be an object with:
"text" (exact surface form), "label" (PERSON or LOCATION), "start" and "end"
(byte offsets of the surface form in the input, start inclusive, end exclusive)
and "confidence" (0 to 1). Return only the JSON array, no prose.`

// rawSpan is the JSON shape the model is asked to produce.
type rawSpan struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Analyze asks the model for entity spans in text.
func (e *OpenAIEngine) Analyze(ctx context.Context, text string) ([]model.EntitySpan, error) {
	timeout := time.Duration(e.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatModel := e.config.Model
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	maxTokens := e.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("ner completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ner completion: empty response")
	}

	return ParseSpans(resp.Choices[0].Message.Content)
}

// ParseSpans decodes the model response into entity spans, tolerating
// markdown code fences and dropping entries with unknown labels.
func ParseSpans(content string) ([]model.EntitySpan, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var raw []rawSpan
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}

	spans := make([]model.EntitySpan, 0, len(raw))
	for _, item := range raw {
		label := MapLabel(item.Label)
		if label == "" {
			continue
		}
		spans = append(spans, model.EntitySpan{
			Text:       item.Text,
			Label:      label,
			Start:      item.Start,
			End:        item.End,
			Confidence: item.Confidence,
			Method:     "ner",
		})
	}
	return spans, nil
}
