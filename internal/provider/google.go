package provider

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
)

const googleDefaultBaseURL = "https://generativelanguage.googleapis.com"

// Google invokes the Gemini generateContent API.
type Google struct {
	apiKey  string
	model   string
	baseURL string
	client  httpDoer
}

// NewGoogle creates a Google adapter. baseURL may be empty for the public
// endpoint.
func NewGoogle(apiKey, model, baseURL string) *Google {
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}
	return &Google{apiKey: apiKey, model: model, baseURL: baseURL, client: newHTTPClient()}
}

// Name implements Invoker.
func (g *Google) Name() string { return "google" }

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
	MaxOutputTokens  int    `json:"maxOutputTokens,omitempty"`
}

type googleRequest struct {
	SystemInstruction *googleContent          `json:"systemInstruction,omitempty"`
	Contents          []googleContent         `json:"contents"`
	GenerationConfig  *googleGenerationConfig `json:"generationConfig,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Invoke implements Invoker.
func (g *Google) Invoke(ctx context.Context, req Request) (*Response, error) {
	if g.apiKey == "" {
		return nil, apperrors.NewProviderError(g.Name(), apperrors.ClassConfig, "api key not configured", nil)
	}

	payload := googleRequest{
		Contents: []googleContent{{Role: "user", Parts: []googlePart{{Text: req.UserPrompt}}}},
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &googleContent{Parts: []googlePart{{Text: req.SystemPrompt}}}
	}
	cfg := &googleGenerationConfig{MaxOutputTokens: req.MaxTokens}
	if req.JSONMode {
		cfg.ResponseMimeType = "application/json"
	}
	if cfg.ResponseMimeType != "" || cfg.MaxOutputTokens > 0 {
		payload.GenerationConfig = cfg
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	headers := map[string]string{"x-goog-api-key": g.apiKey}

	start := time.Now()
	var out googleResponse
	if err := postJSON(ctx, g.client, g.Name(), url, headers, payload, &out); err != nil {
		return nil, err
	}

	var text string
	if len(out.Candidates) > 0 {
		for _, part := range out.Candidates[0].Content.Parts {
			text += part.Text
		}
	}
	if text == "" {
		return nil, apperrors.NewProviderError(g.Name(), apperrors.ClassInvalidOutput, "empty completion", nil)
	}
	return &Response{
		Provider: g.Name(),
		Model:    g.model,
		Text:     text,
		Elapsed:  time.Since(start),
		Usage: Usage{
			InputTokens:  out.UsageMetadata.PromptTokenCount,
			OutputTokens: out.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}
