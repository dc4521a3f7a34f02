package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"horse.fit/driftnet/internal/report"
	analysisschema "horse.fit/driftnet/schema"
)

// OpenAIConfig configures the chat-completions analyzer.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIAnalyzer implements Analyzer over the OpenAI chat API.
type OpenAIAnalyzer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIAnalyzer creates an analyzer backed by the OpenAI API.
func NewOpenAIAnalyzer(cfg OpenAIConfig) (*OpenAIAnalyzer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.GPT4oMini
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &OpenAIAnalyzer{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

// ClassifyScope asks the model what the document covers and validates the verdict.
func (a *OpenAIAnalyzer) ClassifyScope(ctx context.Context, text string) (*Classification, error) {
	raw, err := a.complete(ctx, classifySystemPrompt, text)
	if err != nil {
		return nil, &ClassificationError{Err: err}
	}

	payload, err := analysisschema.ValidateScopePayload(raw)
	if err != nil {
		return nil, &ClassificationError{Err: err}
	}

	scope, err := ParseScope(payload.Scope)
	if err != nil {
		return nil, &ClassificationError{Err: err}
	}

	return &Classification{
		Scope:      scope,
		Confidence: payload.Confidence,
		Reasoning:  payload.Reasoning,
	}, nil
}

// ExtractIncident extracts a structured incident record from a single-incident span.
func (a *OpenAIAnalyzer) ExtractIncident(ctx context.Context, text string) (*report.IncidentExtraction, error) {
	raw, err := a.complete(ctx, extractIncidentSystemPrompt, text)
	if err != nil {
		return nil, &ExtractionError{Span: -1, Err: err}
	}

	extraction, err := analysisschema.ValidateIncidentPayload(raw)
	if err != nil {
		return nil, &ExtractionError{Span: -1, Err: err}
	}
	return extraction, nil
}

// SplitIncidents splits a multi-incident document into per-incident text spans.
func (a *OpenAIAnalyzer) SplitIncidents(ctx context.Context, text string) ([]string, error) {
	raw, err := a.complete(ctx, splitIncidentsSystemPrompt, text)
	if err != nil {
		return nil, &ExtractionError{Span: -1, Err: err}
	}

	var payload struct {
		Incidents []string `json:"incidents"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ExtractionError{Span: -1, Err: fmt.Errorf("decode split response: %w", err)}
	}

	spans := make([]string, 0, len(payload.Incidents))
	for _, span := range payload.Incidents {
		if trimmed := strings.TrimSpace(span); trimmed != "" {
			spans = append(spans, trimmed)
		}
	}
	if len(spans) == 0 {
		return nil, &ExtractionError{Span: -1, Err: fmt.Errorf("model returned no spans")}
	}
	return spans, nil
}

// ExtractOverview extracts a structured record from an industry-overview document.
func (a *OpenAIAnalyzer) ExtractOverview(ctx context.Context, text string) (*report.OverviewExtraction, error) {
	raw, err := a.complete(ctx, extractOverviewSystemPrompt, text)
	if err != nil {
		return nil, &ExtractionError{Span: -1, Err: err}
	}

	extraction, err := analysisschema.ValidateOverviewPayload(raw)
	if err != nil {
		return nil, &ExtractionError{Span: -1, Err: err}
	}
	return extraction, nil
}

func (a *OpenAIAnalyzer) complete(ctx context.Context, systemPrompt, userText string) (json.RawMessage, error) {
	if a == nil || a.client == nil {
		return nil, fmt.Errorf("analyzer is not initialized")
	}
	if strings.TrimSpace(userText) == "" {
		return nil, fmt.Errorf("document text is empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := a.client.CreateChatCompletion(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	content := StripCodeFence(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("chat completion returned empty content")
	}
	return json.RawMessage(content), nil
}

// StripCodeFence removes a surrounding markdown code fence, if present.
func StripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
