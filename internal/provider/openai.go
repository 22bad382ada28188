package provider

import (
	"context"
	"time"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
)

const openaiDefaultBaseURL = "https://api.openai.com"

// OpenAI invokes the OpenAI Chat Completions API.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  httpDoer
}

// NewOpenAI creates an OpenAI adapter. baseURL may be empty for the public
// endpoint.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	return &OpenAI{apiKey: apiKey, model: model, baseURL: baseURL, client: newHTTPClient()}
}

// Name implements Invoker.
func (o *OpenAI) Name() string { return "openai" }

type openaiRequest struct {
	Model               string          `json:"model"`
	Messages            []openaiMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *openaiFormat   `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Invoke implements Invoker.
func (o *OpenAI) Invoke(ctx context.Context, req Request) (*Response, error) {
	if o.apiKey == "" {
		return nil, apperrors.NewProviderError(o.Name(), apperrors.ClassConfig, "api key not configured", nil)
	}

	payload := openaiRequest{
		Model: o.model,
		Messages: []openaiMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxCompletionTokens: req.MaxTokens,
	}
	if req.JSONMode {
		payload.ResponseFormat = &openaiFormat{Type: "json_object"}
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	start := time.Now()
	var out openaiResponse
	if err := postJSON(ctx, o.client, o.Name(), o.baseURL+"/v1/chat/completions", headers, payload, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, apperrors.NewProviderError(o.Name(), apperrors.ClassInvalidOutput, "empty completion", nil)
	}
	return &Response{
		Provider: o.Name(),
		Model:    o.model,
		Text:     out.Choices[0].Message.Content,
		Elapsed:  time.Since(start),
		Usage:    Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens},
	}, nil
}
