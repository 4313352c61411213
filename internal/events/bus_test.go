package events

import (
	"sync"
	"testing"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(10)

	var mu sync.Mutex
	received := []Event{}

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventSolutionFound)

	bus.Publish(EventSolutionFound, map[string]any{"plan_length": 4})
	bus.Close()

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventSolutionFound {
		t.Errorf("expected type %s, got %s", EventSolutionFound, received[0].Type)
	}
	if n, ok := received[0].Data["plan_length"].(int); !ok || n != 4 {
		t.Errorf("expected plan_length 4, got %v", received[0].Data["plan_length"])
	}
	if received[0].Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestBus_MultipleTypesOneSubscriber(t *testing.T) {
	bus := NewBus(10)

	var mu sync.Mutex
	seen := map[EventType]int{}
	bus.Subscribe(func(e Event) {
		mu.Lock()
		seen[e.Type]++
		mu.Unlock()
	}, AllTypes...)

	bus.Publish(EventSearchStarted, nil)
	bus.Publish(EventProgress, nil)
	bus.Publish(EventProgress, nil)
	bus.Publish(EventSearchFailed, nil)
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if seen[EventSearchStarted] != 1 || seen[EventProgress] != 2 || seen[EventSearchFailed] != 1 {
		t.Errorf("unexpected deliveries: %v", seen)
	}
	if seen[EventSolutionFound] != 0 {
		t.Errorf("solution_found was never published, got %d", seen[EventSolutionFound])
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(10)

	var mu sync.Mutex
	count := 0
	unsub := bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}, EventProgress)

	unsub()
	bus.Publish(EventProgress, nil)
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("expected no deliveries after unsubscribe, got %d", count)
	}
}

func TestBus_FullSubscriberDropsEvents(t *testing.T) {
	bus := NewBus(1)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.Subscribe(func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	}, EventProgress)

	bus.Publish(EventProgress, nil)
	<-started // first event is being handled, buffer is empty
	bus.Publish(EventProgress, nil)
	bus.Publish(EventProgress, nil)

	if got := bus.Dropped(); got != 1 {
		t.Errorf("expected 1 dropped event, got %d", got)
	}
	close(block)
	bus.Close()
}

func TestBus_SubscriberPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(10)

	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n == 1 {
			panic("boom")
		}
	}, EventProgress)

	bus.Publish(EventProgress, nil)
	bus.Publish(EventProgress, nil)
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("expected 2 deliveries, got %d", count)
	}
}
