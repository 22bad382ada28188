package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/event"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/logging"
)

const (
	// maxTransientRetries is how many times one provider is re-tried after a
	// rate-limit or overload signal before the router falls through.
	maxTransientRetries = 3
	// baseBackoff is the first retry delay; it doubles per retry (2s, 4s, 8s).
	baseBackoff = 2 * time.Second
)

// AggregateError is returned when every provider in a role's chain failed.
// Failures preserves chain order, with one entry per exhausted provider.
type AggregateError struct {
	Role     string
	Failures []*apperrors.ProviderError
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s (%s): %s", f.Provider, f.Class, f.Message)
	}
	return fmt.Sprintf("all providers failed for role %s: [%s]", e.Role, strings.Join(parts, "; "))
}

// Unwrap exposes the per-provider failures to errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Router dispatches generation requests to per-role provider chains.
//
// Within a chain each provider is tried in order. Transient failures are
// retried on the same provider with exponential backoff before falling
// through; configuration failures fall through immediately, since retrying a
// missing credential cannot help. A chain with a single provider additionally
// runs behind a circuit breaker, because there is nowhere to fall through to
// and hammering a dead provider only burns the caller's timeout.
//
// Chains are registered at startup; Invoke is safe for concurrent use.
type Router struct {
	chains   map[string][]Invoker
	timeouts map[string]time.Duration
	breakers map[string]*Breaker
	bus      *event.Bus
	log      *logging.Logger

	// sleep is injectable so tests do not wait out real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRouter creates a Router with no chains registered.
func NewRouter(bus *event.Bus, log *logging.Logger) *Router {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Router{
		chains:   make(map[string][]Invoker),
		timeouts: make(map[string]time.Duration),
		breakers: make(map[string]*Breaker),
		bus:      bus,
		log:      log,
		sleep:    sleepCtx,
	}
}

// RegisterRole installs the ordered provider chain and per-call timeout for a
// role, replacing any previous registration. Not safe to call concurrently
// with Invoke.
func (r *Router) RegisterRole(role string, timeout time.Duration, chain ...Invoker) {
	r.chains[role] = chain
	r.timeouts[role] = timeout
	for _, inv := range chain {
		if _, ok := r.breakers[inv.Name()]; !ok {
			r.breakers[inv.Name()] = NewBreaker()
		}
	}
}

// Chain returns the registered provider names for a role, in order.
func (r *Router) Chain(role string) []string {
	names := make([]string, 0, len(r.chains[role]))
	for _, inv := range r.chains[role] {
		names = append(names, inv.Name())
	}
	return names
}

// Invoke runs a request through the role's chain and returns the first
// success. When the whole chain is exhausted it returns an *AggregateError
// listing every provider's final failure in chain order.
func (r *Router) Invoke(ctx context.Context, role string, req Request) (*Response, error) {
	chain := r.chains[role]
	if len(chain) == 0 {
		return nil, fmt.Errorf("no providers registered for role %s", role)
	}
	log := r.log.With("role", role)
	useBreaker := len(chain) == 1

	var failures []*apperrors.ProviderError
	for _, inv := range chain {
		resp, pe := r.invokeOne(ctx, role, inv, req, useBreaker, log)
		if pe == nil {
			return resp, nil
		}
		failures = append(failures, pe)
		if ctx.Err() != nil {
			break
		}
		if r.bus != nil {
			r.bus.Publish(event.NewProviderFailoverEvent(role, inv.Name(), pe.Class.String()))
		}
		log.Warn("provider failed, falling through",
			"provider", inv.Name(), "class", pe.Class.String(), "error", pe.Message)
	}
	return nil, &AggregateError{Role: role, Failures: failures}
}

// invokeOne calls a single provider with the role timeout and the transient
// retry policy. It returns the final classified failure after retries are
// exhausted, or nil on success.
func (r *Router) invokeOne(ctx context.Context, role string, inv Invoker, req Request, useBreaker bool, log *logging.Logger) (*Response, *apperrors.ProviderError) {
	var br *Breaker
	if useBreaker {
		br = r.breakers[inv.Name()]
		if !br.Allow() {
			return nil, apperrors.NewProviderError(inv.Name(), apperrors.ClassUnknown,
				"circuit open", apperrors.ErrCircuitOpen)
		}
	}

	var lastErr *apperrors.ProviderError
	for attempt := 0; ; attempt++ {
		resp, err := r.callWithTimeout(ctx, role, inv, req)
		if err == nil {
			if br != nil {
				br.RecordSuccess()
			}
			return resp, nil
		}
		lastErr = asProviderError(inv.Name(), err)

		// Only overload signals are worth re-trying the same provider.
		if lastErr.Class != apperrors.ClassTransient || attempt >= maxTransientRetries {
			break
		}
		delay := baseBackoff << attempt
		log.Info("transient provider failure, backing off",
			"provider", inv.Name(), "attempt", attempt+1, "delay", delay.String())
		if err := r.sleep(ctx, delay); err != nil {
			break
		}
	}

	if br != nil {
		br.RecordFailure()
	}
	return nil, lastErr
}

// callWithTimeout applies the role's per-call timeout around one invocation.
func (r *Router) callWithTimeout(ctx context.Context, role string, inv Invoker, req Request) (*Response, error) {
	if t := r.timeouts[role]; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	start := time.Now()
	resp, err := inv.Invoke(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded && apperrors.ClassOf(err) == apperrors.ClassUnknown {
			return nil, apperrors.NewProviderError(inv.Name(), apperrors.ClassTimeout, "call timed out", err)
		}
		return nil, err
	}
	if resp.Elapsed == 0 {
		resp.Elapsed = time.Since(start)
	}
	return resp, nil
}

// asProviderError normalizes any error into a *ProviderError for the
// aggregate report.
func asProviderError(provider string, err error) *apperrors.ProviderError {
	var pe *apperrors.ProviderError
	if apperrors.As(err, &pe) {
		return pe
	}
	return apperrors.NewProviderError(provider, apperrors.ClassUnknown,
		apperrors.Truncate(err.Error(), apperrors.MaxPersistedMessage), err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
