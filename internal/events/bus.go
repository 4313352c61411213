// Package events carries search lifecycle events from the planner to
// observers such as the CLI trace file.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// EventSearchStarted is published once the task is grounded and the
	// initial state evaluated.
	EventSearchStarted EventType = "search_started"
	// EventProgress is published every N expansions.
	EventProgress EventType = "progress"
	// EventSolutionFound is published when a goal node is reached.
	EventSolutionFound EventType = "solution_found"
	// EventSearchFailed is published when the search stops without a plan.
	EventSearchFailed EventType = "search_failed"
)

// AllTypes lists every event the planner publishes.
var AllTypes = []EventType{EventSearchStarted, EventProgress, EventSolutionFound, EventSearchFailed}

type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]any
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

// Publisher is what the search engine needs from a bus.
type Publisher interface {
	Publish(eventType EventType, data map[string]any)
}

// Bus is a non-blocking event bus. Events are delivered asynchronously via
// buffered channels; when a subscriber's channel is full the event is
// dropped for that subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	bufferSize  int
	wg          sync.WaitGroup
	dropped     atomic.Int64
}

// NewBus creates a new event bus with the specified buffer size per subscriber.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers fn for the given event types. fn runs on its own
// goroutine, one per type. Returns an unsubscribe function.
func (b *Bus) Subscribe(fn Subscriber, types ...EventType) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	chans := make(map[EventType]chan Event, len(types))
	for _, et := range types {
		ch := make(chan Event, b.bufferSize)
		chans[et] = ch
		b.subscribers[et] = append(b.subscribers[et], ch)

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for event := range ch {
				deliver(fn, event)
			}
		}()
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		for et, ch := range chans {
			subs := b.subscribers[et]
			for i, subCh := range subs {
				if subCh == ch {
					b.subscribers[et] = append(subs[:i], subs[i+1:]...)
					close(ch)
					break
				}
			}
		}
	}
}

// deliver isolates the bus from subscriber panics.
func deliver(fn Subscriber, event Event) {
	defer func() { _ = recover() }()
	fn(event)
}

// Publish sends an event to all subscribers of the given type without
// blocking.
func (b *Bus) Publish(eventType EventType, data map[string]any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	for _, ch := range b.subscribers[eventType] {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped is the number of events discarded because a subscriber was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels and waits until every queued event
// has been delivered.
func (b *Bus) Close() {
	b.mu.Lock()
	for eventType, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, eventType)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
