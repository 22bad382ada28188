// Package phase defines the lifecycle phases of a strategy pipeline run and
// the rules governing transitions between them. It provides a formal state
// machine so that progress for a snapshot can only move forward through the
// pipeline, or jump to the terminal failed phase.
package phase

import (
	"time"
)

// Phase represents a discrete step in the strategy pipeline lifecycle.
type Phase string

const (
	// PhaseStarting is the initial phase, set when the strategy row is created.
	PhaseStarting Phase = "starting"

	// PhaseResolving covers context gathering: events, news, traffic, closures.
	PhaseResolving Phase = "resolving"

	// PhaseAnalyzing covers analysis of the gathered briefing before synthesis.
	PhaseAnalyzing Phase = "analyzing"

	// PhaseImmediate indicates the tactical strategy has been synthesized.
	PhaseImmediate Phase = "immediate"

	// PhaseVenues covers the candidate generation provider call.
	PhaseVenues Phase = "venues"

	// PhaseRouting covers drive-time and earnings scoring of candidates.
	PhaseRouting Phase = "routing"

	// PhasePlaces covers candidate enrichment with place details.
	PhasePlaces Phase = "places"

	// PhaseVerifying covers schema validation and persistence of the ranking.
	PhaseVerifying Phase = "verifying"

	// PhaseComplete indicates the full pipeline finished successfully.
	PhaseComplete Phase = "complete"

	// PhaseFailed indicates the run terminated with an error.
	// It is reachable from every other phase.
	PhaseFailed Phase = "failed"
)

// Pipeline returns all non-terminal-failure phases in lifecycle order.
// The strategy sequence (starting through immediate) chains directly into
// the candidate sequence (venues through complete).
func Pipeline() []Phase {
	return []Phase{
		PhaseStarting,
		PhaseResolving,
		PhaseAnalyzing,
		PhaseImmediate,
		PhaseVenues,
		PhaseRouting,
		PhasePlaces,
		PhaseVerifying,
		PhaseComplete,
	}
}

// phaseRank maps each pipeline phase to its position in lifecycle order.
// PhaseFailed has no rank; it is handled explicitly as a terminal jump.
var phaseRank = func() map[Phase]int {
	ranks := make(map[Phase]int)
	for i, p := range Pipeline() {
		ranks[p] = i
	}
	return ranks
}()

// Valid reports whether p is a known phase.
func Valid(p Phase) bool {
	if p == PhaseFailed {
		return true
	}
	_, ok := phaseRank[p]
	return ok
}

// IsTerminal returns true for the two terminal phases, Complete and Failed.
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// CanTransition reports whether a recorded phase may move from `from` to `to`.
// PhaseFailed is reachable from any non-terminal phase; otherwise the target
// must be a strictly later pipeline phase. Terminal phases are absorbing, so
// regressions and repeats are not allowed.
func CanTransition(from, to Phase) bool {
	if to == PhaseFailed {
		return !from.IsTerminal()
	}
	if from == PhaseFailed {
		return false
	}
	fromRank, ok := phaseRank[from]
	if !ok {
		// Unknown prior phase: allow any known pipeline phase so a row
		// written by an older build does not wedge the pipeline.
		_, known := phaseRank[to]
		return known
	}
	toRank, ok := phaseRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// expectedDurations is a static table of how long each phase typically takes.
// It exists purely so callers can render progress estimates; correctness of
// the pipeline never depends on these values.
var expectedDurations = map[Phase]time.Duration{
	PhaseStarting:  2 * time.Second,
	PhaseResolving: 15 * time.Second,
	PhaseAnalyzing: 10 * time.Second,
	PhaseImmediate: 45 * time.Second,
	PhaseVenues:    90 * time.Second,
	PhaseRouting:   8 * time.Second,
	PhasePlaces:    12 * time.Second,
	PhaseVerifying: 5 * time.Second,
}

// ExpectedDuration returns the typical duration of a phase for progress
// estimation. Terminal phases return zero.
func ExpectedDuration(p Phase) time.Duration {
	return expectedDurations[p]
}
