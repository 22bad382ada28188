// Package event defines the notification events that decouple the strategy
// pipeline from its observers (CLI status, polling layers). Events are
// ephemeral: consumers must treat the persisted strategy row as the source of
// truth and use these only to avoid high-frequency polling.
package event

import "time"

// Event is the interface all published events implement.
type Event interface {
	// EventType returns a string identifier, convention "category.action"
	// (e.g. "phase.changed", "ranking.ready").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides the common fields; embed it in concrete event types.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Pipeline progress events
// -----------------------------------------------------------------------------

// PhaseChangedEvent is emitted whenever a snapshot's pipeline advances to a
// new phase. ExpectedDuration is a static estimate for progress display only.
type PhaseChangedEvent struct {
	baseEvent
	SnapshotID       string
	Phase            string
	PhaseStartedAt   time.Time
	ExpectedDuration time.Duration
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(snapshotID, phase string, startedAt time.Time, expected time.Duration) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent:        newBaseEvent("phase.changed"),
		SnapshotID:       snapshotID,
		Phase:            phase,
		PhaseStartedAt:   startedAt,
		ExpectedDuration: expected,
	}
}

// StrategyReadyEvent is emitted once tactical synthesis has been persisted,
// so pollers waiting on the immediate strategy can stop polling.
type StrategyReadyEvent struct {
	baseEvent
	SnapshotID string
	Status     string
}

// NewStrategyReadyEvent creates a StrategyReadyEvent.
func NewStrategyReadyEvent(snapshotID, status string) StrategyReadyEvent {
	return StrategyReadyEvent{
		baseEvent:  newBaseEvent("strategy.ready"),
		SnapshotID: snapshotID,
		Status:     status,
	}
}

// RankingReadyEvent is emitted once a ranking and its candidates have been
// persisted atomically.
type RankingReadyEvent struct {
	baseEvent
	SnapshotID string
	RankingID  string
	Candidates int
}

// NewRankingReadyEvent creates a RankingReadyEvent.
func NewRankingReadyEvent(snapshotID, rankingID string, candidates int) RankingReadyEvent {
	return RankingReadyEvent{
		baseEvent:  newBaseEvent("ranking.ready"),
		SnapshotID: snapshotID,
		RankingID:  rankingID,
		Candidates: candidates,
	}
}

// -----------------------------------------------------------------------------
// Provider events
// -----------------------------------------------------------------------------

// ProviderFailoverEvent is emitted when a provider in a role chain fails and
// the router moves on to the next entry.
type ProviderFailoverEvent struct {
	baseEvent
	Role     string
	Provider string
	Reason   string
}

// NewProviderFailoverEvent creates a ProviderFailoverEvent.
func NewProviderFailoverEvent(role, provider, reason string) ProviderFailoverEvent {
	return ProviderFailoverEvent{
		baseEvent: newBaseEvent("provider.failover"),
		Role:      role,
		Provider:  provider,
		Reason:    reason,
	}
}
