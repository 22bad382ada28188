package provider

import (
	"context"
	"time"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// Anthropic invokes the Anthropic Messages API.
type Anthropic struct {
	apiKey  string
	model   string
	baseURL string
	client  httpDoer
}

// NewAnthropic creates an Anthropic adapter. baseURL may be empty for the
// public endpoint. The key is checked at call time, not here, so a chain can
// be assembled from config before credentials are validated.
func NewAnthropic(apiKey, model, baseURL string) *Anthropic {
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &Anthropic{apiKey: apiKey, model: model, baseURL: baseURL, client: newHTTPClient()}
}

// Name implements Invoker.
func (a *Anthropic) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Invoke implements Invoker. Anthropic has no native JSON response mode, so
// JSONMode is expressed through the system prompt contract; callers validate
// the output regardless.
func (a *Anthropic) Invoke(ctx context.Context, req Request) (*Response, error) {
	if a.apiKey == "" {
		return nil, apperrors.NewProviderError(a.Name(), apperrors.ClassConfig, "api key not configured", nil)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	system := req.SystemPrompt
	if req.JSONMode {
		system += "\n\nRespond with a single valid JSON object and nothing else."
	}

	payload := anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}

	start := time.Now()
	var out anthropicResponse
	if err := postJSON(ctx, a.client, a.Name(), a.baseURL+"/v1/messages", headers, payload, &out); err != nil {
		return nil, err
	}

	var text string
	for _, block := range out.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, apperrors.NewProviderError(a.Name(), apperrors.ClassInvalidOutput, "empty completion", nil)
	}
	return &Response{
		Provider: a.Name(),
		Model:    a.model,
		Text:     text,
		Elapsed:  time.Since(start),
		Usage:    Usage{InputTokens: out.Usage.InputTokens, OutputTokens: out.Usage.OutputTokens},
	}, nil
}
