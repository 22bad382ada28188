package phase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/event"
)

// memStore is an in-memory Store for tracker tests.
type memStore struct {
	mu       sync.Mutex
	phases   map[string]Phase
	phaseAt  map[string]time.Time
	pipeline map[string]time.Time
	readErr  error
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{
		phases:   make(map[string]Phase),
		phaseAt:  make(map[string]time.Time),
		pipeline: make(map[string]time.Time),
	}
}

func (m *memStore) StrategyPhase(_ context.Context, id string) (Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.phases[id], nil
}

func (m *memStore) WriteStrategyPhase(_ context.Context, id string, p Phase, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.pipeline[id]; !ok {
		m.pipeline[id] = at
	}
	m.phases[id] = p
	m.phaseAt[id] = at
	return nil
}

func (m *memStore) StrategyTiming(_ context.Context, id string) (Phase, time.Time, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phases[id], m.phaseAt[id], m.pipeline[id], nil
}

func TestSetPhaseAdvances(t *testing.T) {
	st := newMemStore()
	tr := NewTracker(st, nil)
	ctx := context.Background()

	for _, p := range Pipeline() {
		if err := tr.SetPhase(ctx, "snap-1", p); err != nil {
			t.Fatalf("SetPhase(%s): %v", p, err)
		}
	}
	got, _ := st.StrategyPhase(ctx, "snap-1")
	if got != PhaseComplete {
		t.Fatalf("final phase = %s, want complete", got)
	}
}

func TestSetPhaseRejectsRegression(t *testing.T) {
	st := newMemStore()
	tr := NewTracker(st, nil)
	ctx := context.Background()

	if err := tr.SetPhase(ctx, "snap-1", PhaseVenues); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	err := tr.SetPhase(ctx, "snap-1", PhaseResolving)
	if !errors.Is(err, ErrRegression) {
		t.Fatalf("want ErrRegression, got %v", err)
	}
	// The durable record is untouched by the rejected write.
	got, _ := st.StrategyPhase(ctx, "snap-1")
	if got != PhaseVenues {
		t.Fatalf("phase after rejected regression = %s, want venues", got)
	}
}

func TestSetPhaseRejectsRepeat(t *testing.T) {
	st := newMemStore()
	tr := NewTracker(st, nil)
	ctx := context.Background()

	if err := tr.SetPhase(ctx, "snap-1", PhaseRouting); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	if err := tr.SetPhase(ctx, "snap-1", PhaseRouting); !errors.Is(err, ErrRegression) {
		t.Fatalf("want ErrRegression on repeat, got %v", err)
	}
}

func TestSetPhaseUnknown(t *testing.T) {
	tr := NewTracker(newMemStore(), nil)
	if err := tr.SetPhase(context.Background(), "snap-1", "warp"); !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("want ErrUnknownPhase, got %v", err)
	}
}

func TestFailFromAnyPhase(t *testing.T) {
	for _, from := range Pipeline()[:len(Pipeline())-1] {
		st := newMemStore()
		tr := NewTracker(st, nil)
		ctx := context.Background()
		if err := tr.SetPhase(ctx, "snap-1", from); err != nil {
			t.Fatalf("setup %s: %v", from, err)
		}
		if err := tr.Fail(ctx, "snap-1"); err != nil {
			t.Errorf("Fail from %s: %v", from, err)
		}
	}
}

func TestFailFromCompleteRejected(t *testing.T) {
	st := newMemStore()
	tr := NewTracker(st, nil)
	ctx := context.Background()

	if err := tr.SetPhase(ctx, "snap-1", PhaseComplete); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := tr.Fail(ctx, "snap-1"); !errors.Is(err, ErrRegression) {
		t.Fatalf("want ErrRegression failing a complete run, got %v", err)
	}
}

func TestFailTwiceRejected(t *testing.T) {
	st := newMemStore()
	bus := event.NewBus()
	tr := NewTracker(st, bus)
	ctx := context.Background()

	var published int
	bus.Subscribe("phase.changed", func(event.Event) { published++ })

	if err := tr.SetPhase(ctx, "snap-1", PhaseResolving); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := tr.Fail(ctx, "snap-1"); err != nil {
		t.Fatalf("first Fail: %v", err)
	}
	if err := tr.Fail(ctx, "snap-1"); !errors.Is(err, ErrRegression) {
		t.Fatalf("want ErrRegression failing an already-failed run, got %v", err)
	}
	// The repeated failure neither re-stamps the record nor re-notifies.
	if published != 2 {
		t.Errorf("published %d events, want 2", published)
	}
}

func TestSetPhasePublishesEvent(t *testing.T) {
	st := newMemStore()
	bus := event.NewBus()
	tr := NewTracker(st, bus)

	var got []event.Event
	bus.Subscribe("phase.changed", func(e event.Event) {
		got = append(got, e)
	})

	if err := tr.SetPhase(context.Background(), "snap-1", PhaseResolving); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("published %d events, want 1", len(got))
	}
	pc, ok := got[0].(event.PhaseChangedEvent)
	if !ok {
		t.Fatalf("event type %T", got[0])
	}
	if pc.SnapshotID != "snap-1" || pc.Phase != "resolving" {
		t.Errorf("event = %+v", pc)
	}
	if pc.ExpectedDuration != ExpectedDuration(PhaseResolving) {
		t.Errorf("expected duration = %v", pc.ExpectedDuration)
	}
}

func TestSetPhaseWriteFailureNoEvent(t *testing.T) {
	st := newMemStore()
	st.writeErr = errors.New("disk full")
	bus := event.NewBus()
	tr := NewTracker(st, bus)

	published := 0
	bus.Subscribe("phase.changed", func(event.Event) { published++ })

	if err := tr.SetPhase(context.Background(), "snap-1", PhaseResolving); err == nil {
		t.Fatal("want error when durable write fails")
	}
	if published != 0 {
		t.Fatalf("published %d events after failed write, want 0", published)
	}
}

func TestTimingInfo(t *testing.T) {
	st := newMemStore()
	tr := NewTracker(st, nil)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }
	if err := tr.SetPhase(ctx, "snap-1", PhaseStarting); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	tr.now = func() time.Time { return base.Add(10 * time.Second) }
	if err := tr.SetPhase(ctx, "snap-1", PhaseVenues); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}

	info, err := tr.TimingInfo(ctx, "snap-1")
	if err != nil {
		t.Fatalf("TimingInfo: %v", err)
	}
	if info.Phase != PhaseVenues {
		t.Errorf("phase = %s", info.Phase)
	}
	if !info.PhaseStartedAt.Equal(base.Add(10 * time.Second)) {
		t.Errorf("phase started = %v", info.PhaseStartedAt)
	}
	if !info.PipelineStartedAt.Equal(base) {
		t.Errorf("pipeline started = %v", info.PipelineStartedAt)
	}
	if info.ExpectedDuration != ExpectedDuration(PhaseVenues) {
		t.Errorf("expected duration = %v", info.ExpectedDuration)
	}
}
