// Package events provides the in-process event bus that fans bootstrap
// lifecycle events out to the shell, the notifier, and tests. Channel
// handlers publish here instead of calling collaborators directly, so the
// dispatch surface stays a single ingress point.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tessera-apps/tessera/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// EventReady - the instance owns the endpoint and is serving
	EventReady EventType = "ready"

	// EventLaunchReceived - a second instance handed its arguments over
	EventLaunchReceived EventType = "launch_received"

	// EventLaunchForwarded - this process forwarded its launch to a running
	// instance and is about to exit
	EventLaunchForwarded EventType = "launch_forwarded"

	// EventCredentialPrompt - a helper asked for credentials
	EventCredentialPrompt EventType = "credential_prompt"

	// EventShutdownRequested - a signal, control command, or fault asked the
	// instance to stop
	EventShutdownRequested EventType = "shutdown_requested"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ReadyEvent is published once the endpoint is bound and serving.
type ReadyEvent struct {
	BaseEvent
	Endpoint string
	PID      int
}

// LaunchReceivedEvent carries the arguments a second instance handed over.
type LaunchReceivedEvent struct {
	BaseEvent
	Arguments []string
}

// LaunchForwardedEvent is published by a redundant process after a
// successful hand-off, just before it exits.
type LaunchForwardedEvent struct {
	BaseEvent
	Endpoint  string
	Arguments []string
}

// CredentialPromptEvent is published when a helper requests credentials
// for an authority (proxy host, registry, etc).
type CredentialPromptEvent struct {
	BaseEvent
	Authority string
	Realm     string
}

// ShutdownRequestedEvent carries the reason the instance is stopping:
// "signal", "control", or "fault".
type ShutdownRequestedEvent struct {
	BaseEvent
	Reason string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Never blocks: a subscriber
// with a full buffer loses the event and the drop counter is incremented.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishReady is a convenience method for the bound-and-serving event.
func (eb *EventBus) PublishReady(endpoint string, pid int) {
	eb.Publish(&ReadyEvent{
		BaseEvent: BaseEvent{
			EventType: EventReady,
			Time:      time.Now(),
		},
		Endpoint: endpoint,
		PID:      pid,
	})
}

// PublishLaunchReceived is a convenience method for inbound hand-offs.
func (eb *EventBus) PublishLaunchReceived(args []string) {
	eb.Publish(&LaunchReceivedEvent{
		BaseEvent: BaseEvent{
			EventType: EventLaunchReceived,
			Time:      time.Now(),
		},
		Arguments: args,
	})
}

// PublishLaunchForwarded is a convenience method for outbound hand-offs.
func (eb *EventBus) PublishLaunchForwarded(endpoint string, args []string) {
	eb.Publish(&LaunchForwardedEvent{
		BaseEvent: BaseEvent{
			EventType: EventLaunchForwarded,
			Time:      time.Now(),
		},
		Endpoint:  endpoint,
		Arguments: args,
	})
}

// PublishCredentialPrompt is a convenience method for relayed credential
// prompts.
func (eb *EventBus) PublishCredentialPrompt(authority, realm string) {
	eb.Publish(&CredentialPromptEvent{
		BaseEvent: BaseEvent{
			EventType: EventCredentialPrompt,
			Time:      time.Now(),
		},
		Authority: authority,
		Realm:     realm,
	})
}

// PublishShutdownRequested is a convenience method for stop requests.
func (eb *EventBus) PublishShutdownRequested(reason string) {
	eb.Publish(&ShutdownRequestedEvent{
		BaseEvent: BaseEvent{
			EventType: EventShutdownRequested,
			Time:      time.Now(),
		},
		Reason: reason,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
// This prevents memory leaks from abandoned subscriptions
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			// Remove channel by replacing with last element and truncating
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to
// full buffers.
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
