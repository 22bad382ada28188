package phase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/event"
)

// Sentinel errors returned by the tracker.
var (
	// ErrUnknownPhase is returned when a phase is not part of the pipeline.
	ErrUnknownPhase = errors.New("unknown phase")

	// ErrRegression is returned when a transition would move a snapshot's
	// recorded phase backward.
	ErrRegression = errors.New("phase regression rejected")
)

// Store is the durable record the tracker writes through. The persisted row
// is the source of truth for progress; bus notifications are hints only.
type Store interface {
	// StrategyPhase returns the currently recorded phase for a snapshot,
	// or empty string if the strategy row does not exist yet.
	StrategyPhase(ctx context.Context, snapshotID string) (Phase, error)

	// WriteStrategyPhase records the phase and its start timestamp.
	WriteStrategyPhase(ctx context.Context, snapshotID string, p Phase, at time.Time) error

	// StrategyTiming returns the recorded phase, when that phase started,
	// and when the overall pipeline started.
	StrategyTiming(ctx context.Context, snapshotID string) (Phase, time.Time, time.Time, error)
}

// TimingInfo is a read-only view of a snapshot's progress through the pipeline.
type TimingInfo struct {
	Phase             Phase
	PhaseStartedAt    time.Time
	PipelineStartedAt time.Time
	ExpectedDuration  time.Duration
}

// Tracker maintains durable and ephemeral progress state for snapshots.
// Durable phase writes go through Store; a best-effort phase.changed event is
// published to the bus for any in-process subscribers (polling layers use the
// durable record, the event only reduces their latency).
type Tracker struct {
	store Store
	bus   *event.Bus
	now   func() time.Time
}

// NewTracker creates a Tracker over the given store and event bus.
// The bus may be nil, in which case notifications are skipped.
func NewTracker(store Store, bus *event.Bus) *Tracker {
	return &Tracker{
		store: store,
		bus:   bus,
		now:   time.Now,
	}
}

// SetPhase advances the recorded phase for a snapshot.
//
// The transition is validated against the pipeline order: attempts to set an
// earlier (or equal) phase fail with ErrRegression, except PhaseFailed which
// is reachable from any non-complete phase. On success the durable record is
// updated first, then a notification is published.
func (t *Tracker) SetPhase(ctx context.Context, snapshotID string, p Phase) error {
	if !Valid(p) {
		return fmt.Errorf("%w: %q", ErrUnknownPhase, p)
	}

	current, err := t.store.StrategyPhase(ctx, snapshotID)
	if err != nil {
		return fmt.Errorf("read current phase: %w", err)
	}
	if current != "" && !CanTransition(current, p) {
		return fmt.Errorf("%w: %s -> %s for snapshot %s", ErrRegression, current, p, snapshotID)
	}

	startedAt := t.now()
	if err := t.store.WriteStrategyPhase(ctx, snapshotID, p, startedAt); err != nil {
		return fmt.Errorf("write phase: %w", err)
	}

	if t.bus != nil {
		t.bus.Publish(event.NewPhaseChangedEvent(snapshotID, string(p), startedAt, ExpectedDuration(p)))
	}
	return nil
}

// Fail marks the snapshot's pipeline as failed. Unlike SetPhase with an
// arbitrary target, this never returns a regression error: failed is reachable
// from every non-terminal phase.
func (t *Tracker) Fail(ctx context.Context, snapshotID string) error {
	return t.SetPhase(ctx, snapshotID, PhaseFailed)
}

// TimingInfo returns the current phase, when it started, and when the
// pipeline itself started, for caller-side progress estimation.
func (t *Tracker) TimingInfo(ctx context.Context, snapshotID string) (TimingInfo, error) {
	p, phaseAt, pipelineAt, err := t.store.StrategyTiming(ctx, snapshotID)
	if err != nil {
		return TimingInfo{}, fmt.Errorf("read timing: %w", err)
	}
	return TimingInfo{
		Phase:             p,
		PhaseStartedAt:    phaseAt,
		PipelineStartedAt: pipelineAt,
		ExpectedDuration:  ExpectedDuration(p),
	}, nil
}
