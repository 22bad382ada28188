// Package internal contains integration tests that verify the pipeline
// packages work together: the orchestrator composed over the real store and
// lock manager, with events observed through the bus the way the CLI does.
package internal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/event"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/lock"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/phase"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/provider"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/store"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/strategy"
)

// stubRouter answers every role with canned, valid output.
type stubRouter struct{}

func (stubRouter) Invoke(_ context.Context, role string, _ provider.Request) (*provider.Response, error) {
	var text string
	switch role {
	case provider.RoleResearch:
		text = "[]"
	case provider.RoleStrategist:
		text = "Hold position near the convention center."
	case provider.RolePlanner:
		text = `{"extended_strategy": "Rotate between downtown and the airport.",
			"candidates": [{"name": "Convention Center", "category": "venue",
			"latitude": 32.77, "longitude": -96.8, "drive_minutes": 5,
			"est_earnings": 12, "rationale": "Expo ends soon."}]}`
	}
	return &provider.Response{Provider: "stub", Model: "stub-model", Text: text, Elapsed: time.Millisecond}, nil
}

func TestPipelineEventFlow(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "integration.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.InsertSnapshot(ctx, store.Snapshot{
		SnapshotID:       "snap-int",
		Latitude:         32.7767,
		Longitude:        -96.797,
		FormattedAddress: "Dallas, TX",
		Timezone:         "America/Chicago",
	}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	bus := event.NewBus()
	var mu sync.Mutex
	var phases []string
	var ordered []string
	bus.Subscribe("phase.changed", func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, e.(event.PhaseChangedEvent).Phase)
	})
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		ordered = append(ordered, e.EventType())
	})

	locks := lock.NewManager(st, lock.Options{TTL: time.Minute}, nil)
	orch := strategy.New(st, locks, stubRouter{}, bus, nil, strategy.Options{})

	res, err := orch.Run(ctx, "snap-int")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != strategy.StatusOK {
		t.Fatalf("status = %s", res.Status)
	}

	mu.Lock()
	defer mu.Unlock()

	// Every published phase moves strictly forward through the pipeline.
	last := phase.PhaseStarting
	for _, p := range phases {
		cur := phase.Phase(p)
		if !phase.CanTransition(last, cur) {
			t.Errorf("published phase went %s -> %s", last, cur)
		}
		last = cur
	}
	if last != phase.PhaseComplete {
		t.Errorf("final published phase = %s, want complete", last)
	}

	// strategy.ready precedes ranking.ready.
	sr, rr := -1, -1
	for i, typ := range ordered {
		switch typ {
		case "strategy.ready":
			sr = i
		case "ranking.ready":
			rr = i
		}
	}
	if sr == -1 || rr == -1 || sr > rr {
		t.Errorf("event order = %v", ordered)
	}

	// The durable record agrees with the events.
	row, err := st.GetStrategy(ctx, "snap-int")
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}
	if row.Phase != phase.PhaseComplete || row.Status != strategy.StatusOK {
		t.Errorf("row = %s/%s", row.Phase, row.Status)
	}
	if _, candidates, err := st.GetRanking(ctx, "snap-int"); err != nil || len(candidates) != 1 {
		t.Errorf("ranking: %v, %d candidates", err, len(candidates))
	}
}

func TestPipelineLockExcludesSecondWorker(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "integration.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	m1 := lock.NewManager(st, lock.Options{TTL: time.Minute}, nil)
	m2 := lock.NewManager(st, lock.Options{TTL: time.Minute}, nil)

	ok, err := m1.TryAcquire(ctx, "snap-x")
	if err != nil || !ok {
		t.Fatalf("first worker acquire: ok=%v err=%v", ok, err)
	}
	defer m1.Release("snap-x")

	ok, err = m2.TryAcquire(ctx, "snap-x")
	if err != nil {
		t.Fatalf("second worker acquire: %v", err)
	}
	if ok {
		t.Fatal("two workers hold the same snapshot lock")
	}

	held, err := m2.HeldRecently(ctx, "snap-x", 3*time.Minute)
	if err != nil || !held {
		t.Fatalf("held recently = %v, err = %v", held, err)
	}
}
