package event

import (
	"sync"
	"testing"
	"time"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()

	called := false
	id := bus.Subscribe("phase.changed", func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus()

	var received Event
	bus.Subscribe("phase.changed", func(e Event) {
		received = e
	})

	bus.Publish(NewPhaseChangedEvent("snap-1", "resolving", time.Now(), 15*time.Second))

	if received == nil {
		t.Fatal("Handler should have received the event")
	}
	if received.EventType() != "phase.changed" {
		t.Errorf("Expected event type 'phase.changed', got '%s'", received.EventType())
	}
	pce, ok := received.(PhaseChangedEvent)
	if !ok {
		t.Fatalf("Expected PhaseChangedEvent, got %T", received)
	}
	if pce.SnapshotID != "snap-1" || pce.Phase != "resolving" {
		t.Errorf("Unexpected payload: %+v", pce)
	}
}

func TestBus_PublishDoesNotReachOtherTypes(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe("ranking.ready", func(e Event) {
		calls++
	})

	bus.Publish(NewStrategyReadyEvent("snap-1", "ok"))

	if calls != 0 {
		t.Errorf("Handler for other event type should not be called, got %d calls", calls)
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	var types []string
	bus.SubscribeAll(func(e Event) {
		types = append(types, e.EventType())
	})

	bus.Publish(NewStrategyReadyEvent("snap-1", "ok"))
	bus.Publish(NewRankingReadyEvent("snap-1", "rank-1", 6))

	if len(types) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(types))
	}
	if types[0] != "strategy.ready" || types[1] != "ranking.ready" {
		t.Errorf("Unexpected event order: %v", types)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe("phase.changed", func(e Event) {
		calls++
	})

	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return true for a live subscription")
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return false the second time")
	}

	bus.Publish(NewPhaseChangedEvent("snap-1", "venues", time.Now(), 0))
	if calls != 0 {
		t.Errorf("Unsubscribed handler should not be called, got %d calls", calls)
	}
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	bus.Subscribe("phase.changed", func(e Event) {
		panic("boom")
	})
	called := false
	bus.Subscribe("phase.changed", func(e Event) {
		called = true
	})

	bus.Publish(NewPhaseChangedEvent("snap-1", "places", time.Now(), 0))

	if !called {
		t.Error("Second handler should still run after the first panics")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe("phase.changed", func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewPhaseChangedEvent("snap-1", "routing", time.Now(), 0))
		}()
	}
	wg.Wait()

	if count != 20 {
		t.Errorf("Expected 20 deliveries, got %d", count)
	}
}
