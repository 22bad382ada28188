// Package provider wraps the upstream generation APIs behind a single Invoker
// interface and routes calls through per-role fallback chains with bounded
// retries and circuit breaking.
package provider

import (
	"context"
	"time"
)

// Role names for the pipeline's provider chains.
const (
	RoleResearch   = "research"
	RoleStrategist = "strategist"
	RolePlanner    = "planner"
)

// Request is a single generation request, provider-agnostic.
type Request struct {
	// SystemPrompt frames the model's role and output contract.
	SystemPrompt string
	// UserPrompt carries the per-call content.
	UserPrompt string
	// JSONMode asks the provider for a machine-parseable JSON object. Not
	// every provider enforces it natively; callers must still validate.
	JSONMode bool
	// MaxTokens caps the generated output. Zero uses the adapter default.
	MaxTokens int
}

// Usage is the token accounting a provider reports for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the result of a successful provider invocation, including the
// telemetry callers persist alongside generated content.
type Response struct {
	Provider string
	Model    string
	Text     string
	Elapsed  time.Duration
	Usage    Usage
}

// Invoker is a single upstream provider. Implementations classify their
// failures as *errors.ProviderError so the router can dispatch on them.
type Invoker interface {
	// Name returns the provider's chain name ("anthropic", "openai", "google").
	Name() string

	// Invoke performs one generation call. It must honor ctx cancellation.
	Invoke(ctx context.Context, req Request) (*Response, error)
}
