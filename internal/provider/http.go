package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
)

// defaultMaxTokens caps generation when the request does not specify one.
const defaultMaxTokens = 8192

// httpDoer lets tests substitute the transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func newHTTPClient() *http.Client {
	// Per-call deadlines come from the router's role timeouts via ctx; the
	// client timeout is only a backstop for calls made without one.
	return &http.Client{Timeout: 5 * time.Minute}
}

// classifyStatus maps an upstream HTTP status to a failure class.
// 429 and 529 are overload signals the router retries with backoff;
// auth failures are configuration problems that can never succeed on retry.
func classifyStatus(status int) apperrors.FailureClass {
	switch status {
	case http.StatusTooManyRequests, 529:
		return apperrors.ClassTransient
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.ClassConfig
	default:
		return apperrors.ClassUnknown
	}
}

// postJSON sends the payload and decodes the response body into out.
// Non-2xx responses come back as a classified *ProviderError carrying a
// bounded slice of the upstream body.
func postJSON(ctx context.Context, client httpDoer, provider, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewProviderError(provider, apperrors.ClassUnknown, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewProviderError(provider, apperrors.ClassUnknown, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return apperrors.NewProviderError(provider, apperrors.ClassTimeout, "request timed out", err)
		}
		return apperrors.NewProviderError(provider, apperrors.ClassUnknown, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.NewProviderError(provider, apperrors.ClassUnknown, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, apperrors.Truncate(string(raw), 200))
		return apperrors.NewProviderError(provider, classifyStatus(resp.StatusCode), msg, nil)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewProviderError(provider, apperrors.ClassInvalidOutput, "decode response", err)
	}
	return nil
}
