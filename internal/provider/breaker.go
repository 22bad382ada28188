package provider

import (
	"sync"
	"time"
)

const (
	// breakerThreshold is how many consecutive failures open the circuit.
	breakerThreshold = 3
	// breakerCooldown is how long an open circuit rejects before allowing
	// a single half-open probe.
	breakerCooldown = 60 * time.Second
)

// Breaker is a consecutive-failure circuit breaker for one provider. After
// the threshold is reached calls are rejected for the cooldown period, then
// exactly one probe is let through; its outcome closes or re-opens the
// circuit. Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker with the default threshold and cooldown.
func NewBreaker() *Breaker {
	return &Breaker{
		threshold: breakerThreshold,
		cooldown:  breakerCooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. While the circuit is open it
// returns false until the cooldown elapses, then true exactly once for the
// half-open probe; further calls are rejected until the probe resolves.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	if b.probing {
		return false
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a failure; on crossing the threshold (or on a failed
// half-open probe) the circuit opens for a fresh cooldown.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.probing {
		// Failed probe: re-open for another full cooldown.
		b.failures = b.threshold
		b.probing = false
		b.openedAt = b.now()
		return
	}
	if b.failures == b.threshold {
		b.openedAt = b.now()
	}
}

// Open reports whether the circuit is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.threshold {
		return false
	}
	return b.probing || b.now().Sub(b.openedAt) < b.cooldown
}
