package provider

import (
	"testing"
	"time"
)

func testBreaker(base time.Time) (*Breaker, *time.Time) {
	now := base
	b := NewBreaker()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerClosedUntilThreshold(t *testing.T) {
	b, _ := testBreaker(time.Now())
	for i := 0; i < breakerThreshold-1; i++ {
		if !b.Allow() {
			t.Fatalf("breaker rejected before threshold at failure %d", i)
		}
		b.RecordFailure()
	}
	if b.Open() {
		t.Fatal("breaker open below threshold")
	}
	if !b.Allow() {
		t.Fatal("breaker rejected below threshold")
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := testBreaker(time.Now())
	for i := 0; i < breakerThreshold; i++ {
		b.RecordFailure()
	}
	if !b.Open() {
		t.Fatal("breaker closed after threshold failures")
	}
	if b.Allow() {
		t.Fatal("open breaker allowed a call inside cooldown")
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b, _ := testBreaker(time.Now())
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if b.Open() {
		t.Fatal("non-consecutive failures opened the breaker")
	}
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	base := time.Now()
	b, now := testBreaker(base)
	for i := 0; i < breakerThreshold; i++ {
		b.RecordFailure()
	}

	*now = base.Add(breakerCooldown - time.Second)
	if b.Allow() {
		t.Fatal("probe allowed before cooldown elapsed")
	}

	*now = base.Add(breakerCooldown)
	if !b.Allow() {
		t.Fatal("probe rejected after cooldown")
	}
	// Exactly one probe: concurrent callers are rejected until it resolves.
	if b.Allow() {
		t.Fatal("second probe allowed while first in flight")
	}
}

func TestBreakerProbeSuccessCloses(t *testing.T) {
	base := time.Now()
	b, now := testBreaker(base)
	for i := 0; i < breakerThreshold; i++ {
		b.RecordFailure()
	}
	*now = base.Add(breakerCooldown)
	if !b.Allow() {
		t.Fatal("probe rejected")
	}
	b.RecordSuccess()
	if b.Open() {
		t.Fatal("breaker still open after successful probe")
	}
	if !b.Allow() {
		t.Fatal("closed breaker rejected a call")
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	base := time.Now()
	b, now := testBreaker(base)
	for i := 0; i < breakerThreshold; i++ {
		b.RecordFailure()
	}
	*now = base.Add(breakerCooldown)
	if !b.Allow() {
		t.Fatal("probe rejected")
	}
	b.RecordFailure()

	if !b.Open() {
		t.Fatal("breaker closed after failed probe")
	}
	// The failed probe starts a fresh cooldown from its failure time.
	*now = base.Add(breakerCooldown + breakerCooldown/2)
	if b.Allow() {
		t.Fatal("probe allowed before the renewed cooldown elapsed")
	}
	*now = base.Add(2 * breakerCooldown)
	if !b.Allow() {
		t.Fatal("probe rejected after renewed cooldown")
	}
}
