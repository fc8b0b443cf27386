// Package ai scores proposed term-to-entry equivalences with an LLM.
//
// The client makes exactly one completion attempt per mapping. Callers
// treat any failure as "no verdict" and substitute a placeholder, so
// curation never blocks on the collaborator being up.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/traditional-medicine/mapcurator/internal/core"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are a terminology reviewer for traditional medicine vocabularies.
Given a biomedical classification entry and a traditional medicine term with its definition,
judge whether the term is a clinically plausible equivalent of the entry.
Respond with JSON only: {"justification": "<one or two sentences>", "confidence": <0-100>}`

// Client implements core.Justifier over the OpenAI chat API.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// Config holds the client settings. Zero values get sensible defaults.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewClient creates a justification client.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 256
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	return &Client{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
	}
}

// verdict is the JSON shape the model is asked to produce.
type verdict struct {
	Justification string `json:"justification"`
	Confidence    int    `json:"confidence"`
}

// Justify asks the model to judge one proposed equivalence. A single
// attempt, no retries: the caller's placeholder path handles failures.
func (c *Client) Justify(ctx context.Context, entryName, termText, description string) (core.Justification, error) {
	userPrompt := fmt.Sprintf("Classification entry: %s\nTraditional medicine term: %s", entryName, termText)
	if description != "" {
		userPrompt += "\nTerm definition: " + description
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	})
	if err != nil {
		return core.Justification{}, fmt.Errorf("justify %q/%q: %w", entryName, termText, err)
	}
	if len(resp.Choices) == 0 {
		return core.Justification{}, fmt.Errorf("justify %q/%q: empty response", entryName, termText)
	}

	return parseVerdict(resp.Choices[0].Message.Content)
}

// parseVerdict extracts the JSON verdict from a model reply, tolerating
// markdown fences and surrounding prose.
func parseVerdict(content string) (core.Justification, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return core.Justification{}, fmt.Errorf("no JSON object in model reply: %q", content)
	}

	var v verdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return core.Justification{}, fmt.Errorf("parse model reply: %w", err)
	}
	if strings.TrimSpace(v.Justification) == "" {
		return core.Justification{}, fmt.Errorf("model reply has no justification: %q", content)
	}

	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 100 {
		v.Confidence = 100
	}
	return core.Justification{Text: v.Justification, Confidence: v.Confidence}, nil
}
