// Package lock provides distributed mutual exclusion over snapshot ids.
//
// The primitive is a lease row (key, holder, expiry) acquired with an atomic
// conditional upsert, so identical keys exclude each other across independent
// worker processes sharing the same database. Every lease carries a TTL: a
// live holder renews it from a background heartbeat, and a crashed holder's
// lease simply expires, so no key can stay locked forever.
package lock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/logging"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/store"
)

// LeaseStore is the persistence contract the manager acquires through.
// *store.Store implements it.
type LeaseStore interface {
	TryAcquireLease(ctx context.Context, key, holderID string, now time.Time, ttl time.Duration) (bool, error)
	RenewLease(ctx context.Context, key, holderID string, now time.Time, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, key, holderID string) error
	GetLease(ctx context.Context, key string) (*store.Lease, error)
}

// Options tunes the manager. Zero values fall back to defaults.
type Options struct {
	// TTL is the lease lifetime; the heartbeat renews at TTL/3.
	TTL time.Duration
	// AcquireWait bounds AcquireBlocking. Blocking waits are always bounded.
	AcquireWait time.Duration
	// PollInterval is how often AcquireBlocking re-checks the lease.
	PollInterval time.Duration
}

const (
	defaultTTL          = 30 * time.Second
	defaultAcquireWait  = 90 * time.Second
	defaultPollInterval = 250 * time.Millisecond
)

// Manager acquires and releases leases on behalf of a single process.
// Each Manager has a unique holder id, so it can always recognize (and only
// release) its own leases. Safe for concurrent use.
type Manager struct {
	store    LeaseStore
	holderID string
	opts     Options
	log      *logging.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel map[string]context.CancelFunc // key -> heartbeat cancel
}

// NewManager creates a Manager with a fresh holder identity.
func NewManager(store LeaseStore, opts Options, log *logging.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.AcquireWait <= 0 {
		opts.AcquireWait = defaultAcquireWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Manager{
		store:    store,
		holderID: uuid.NewString(),
		opts:     opts,
		log:      log,
		now:      time.Now,
		cancel:   make(map[string]context.CancelFunc),
	}
}

// HolderID returns this manager's lease identity.
func (m *Manager) HolderID() string { return m.holderID }

// LockKey hashes an arbitrary string key into the compact lease namespace.
// Snapshot ids are free-form; hashing keeps the key space uniform regardless
// of their shape.
func LockKey(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return fmt.Sprintf("strategy:%016x", h.Sum64())
}

// TryAcquire attempts to take the lock without blocking. On success a
// heartbeat goroutine renews the lease until Release.
func (m *Manager) TryAcquire(ctx context.Context, key string) (bool, error) {
	lk := LockKey(key)
	ok, err := m.store.TryAcquireLease(ctx, lk, m.holderID, m.now(), m.opts.TTL)
	if err != nil {
		return false, fmt.Errorf("try acquire %s: %w", lk, err)
	}
	if !ok {
		return false, nil
	}
	m.startHeartbeat(lk)
	return true, nil
}

// AcquireBlocking waits for the lock to become available, polling until the
// configured bound elapses. Returns ErrLockNotAcquired when the bound is hit
// and the context error when ctx is canceled first.
func (m *Manager) AcquireBlocking(ctx context.Context, key string) error {
	deadline := m.now().Add(m.opts.AcquireWait)
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := m.TryAcquire(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if m.now().After(deadline) {
			return fmt.Errorf("%w: %s after %s", apperrors.ErrLockNotAcquired, key, m.opts.AcquireWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release drops the lock and stops its heartbeat. Safe to call when the lock
// was never held or was already lost; callers defer it on every exit path.
func (m *Manager) Release(key string) {
	lk := LockKey(key)

	m.mu.Lock()
	if cancel, ok := m.cancel[lk]; ok {
		cancel()
		delete(m.cancel, lk)
	}
	m.mu.Unlock()

	// Release uses a fresh context: the critical section's context may
	// already be canceled and the lease must still be dropped.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.ReleaseLease(ctx, lk, m.holderID); err != nil {
		m.log.Warn("lease release failed; lease will expire by TTL", "key", lk, "error", err)
	}
}

// Holder reports who currently holds the lock for key and since when.
// Returns (nil, nil) when the key is unlocked or the lease has expired.
func (m *Manager) Holder(ctx context.Context, key string) (*store.Lease, error) {
	lease, err := m.store.GetLease(ctx, LockKey(key))
	if err != nil {
		return nil, err
	}
	if lease == nil || !lease.ExpiresAt.After(m.now()) {
		return nil, nil
	}
	return lease, nil
}

// HeldRecently reports whether the lock is held and was acquired within
// staleAfter. The orchestrator uses this to distinguish an active run
// (deduplicate) from a wedged one (block-wait for the lease to expire).
func (m *Manager) HeldRecently(ctx context.Context, key string, staleAfter time.Duration) (bool, error) {
	lease, err := m.Holder(ctx, key)
	if err != nil {
		return false, err
	}
	if lease == nil {
		return false, nil
	}
	return m.now().Sub(lease.AcquiredAt) < staleAfter, nil
}

// startHeartbeat renews the lease at TTL/3 until Release cancels it.
func (m *Manager) startHeartbeat(lk string) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if prev, ok := m.cancel[lk]; ok {
		prev() // re-acquisition of a key we already hold
	}
	m.cancel[lk] = cancel
	m.mu.Unlock()

	interval := m.opts.TTL / 3
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := m.store.RenewLease(ctx, lk, m.holderID, m.now(), m.opts.TTL)
				if err != nil {
					m.log.Warn("lease renewal failed", "key", lk, "error", err)
					continue
				}
				if !ok {
					m.log.Warn("lease lost; stopping heartbeat", "key", lk)
					return
				}
			}
		}
	}()
}
