// Package strategy is the pipeline orchestrator: it takes a snapshot id from
// intake to a persisted strategy and ranked candidate list, coordinating the
// lock manager, phase tracker, provider router, freshness filters, and store.
package strategy

import (
	"context"
	"time"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/provider"
)

// Run statuses persisted on the strategy row.
const (
	// StatusPending is set when the row is created, before a worker starts.
	StatusPending = "pending"
	// StatusRunning is set while a worker holds the lock and works the
	// pipeline.
	StatusRunning = "running"
	// StatusOK is a fully successful run.
	StatusOK = "ok"
	// StatusPartial is a run that completed with degraded context: at least
	// one research sub-source failed and was replaced by an empty result.
	StatusPartial = "partial"
	// StatusFailed is a run that stopped in stage B or C.
	StatusFailed = "failed"
	// StatusRejected is a run blocked by the safety gate before synthesis.
	StatusRejected = "rejected"
)

// Result summarizes one Run call.
type Result struct {
	SnapshotID string
	// Status is the persisted run status, or Deduplicated when this call
	// yielded to a concurrent holder.
	Status string
	// Deduplicated is true when another worker already held the lock and
	// its run was recent; nothing was executed by this call.
	Deduplicated bool
	// RankingID is set when stage C persisted a ranking.
	RankingID string
	// Candidates is the number of persisted candidates.
	Candidates int
}

// Invoker is the slice of the provider router the orchestrator uses.
// *provider.Router implements it.
type Invoker interface {
	Invoke(ctx context.Context, role string, req provider.Request) (*provider.Response, error)
}

// Locker is the slice of the lock manager the orchestrator uses.
// *lock.Manager implements it.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (bool, error)
	AcquireBlocking(ctx context.Context, key string) error
	Release(key string)
	HeldRecently(ctx context.Context, key string, staleAfter time.Duration) (bool, error)
}
