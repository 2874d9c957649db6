package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"office-dashboard/internal/shared/logger"
)

// Event types published by the dashboard.
const (
	EventTypeDocumentCreated   = "document.created"
	EventTypeDocumentUpdated   = "document.updated"
	EventTypeDocumentDeleted   = "document.deleted"
	EventTypeResponseCollected = "response.collected"
	EventTypeTenantRegistered  = "tenant.registered"
)

// Event is anything that can travel over the bus.
type Event interface {
	Type() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// Handler reacts to a published event.
type Handler func(ctx context.Context, event Event) error

// Publisher is the narrow side of the bus that usecases depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type subscription struct {
	name    string
	handler Handler
}

// EventBus is an in-process, typed fan-out bus. Handlers run
// synchronously in subscription order.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	logger   logger.Logger
	config   BusConfig
}

// BusConfig controls delivery.
type BusConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultBusConfig delivers synchronously with two retries.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		MaxRetries: 2,
		RetryDelay: 50 * time.Millisecond,
	}
}

// NewEventBus creates a bus with DefaultBusConfig.
func NewEventBus(log logger.Logger) *EventBus {
	return NewEventBusWithConfig(log, DefaultBusConfig())
}

// NewEventBusWithConfig creates a bus with a custom configuration.
func NewEventBusWithConfig(log logger.Logger, config BusConfig) *EventBus {
	if log == nil {
		log = logger.Nop()
	}
	return &EventBus{
		handlers: make(map[string][]subscription),
		logger:   log.WithComponent("eventbus"),
		config:   config,
	}
}

// Subscribe registers a named handler for eventType.
func (eb *EventBus) Subscribe(eventType, name string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{name: name, handler: handler})
	eb.logger.Debugf("handler %s subscribed to %s", name, eventType)
}

// SubscribeMany registers the same handler for several event types.
func (eb *EventBus) SubscribeMany(eventTypes []string, name string, handler Handler) {
	for _, t := range eventTypes {
		eb.Subscribe(t, name, handler)
	}
}

// Publish delivers event to every handler subscribed to its type. Handler
// failures are retried and then reported; delivery to the remaining
// handlers continues.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	subs := append([]subscription(nil), eb.handlers[event.Type()]...)
	eb.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	var firstErr error
	for _, s := range subs {
		if err := eb.execute(ctx, event, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (eb *EventBus) execute(ctx context.Context, event Event, s subscription) error {
	var lastErr error
	for attempt := 0; attempt <= eb.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(eb.config.RetryDelay)
		}
		if lastErr = s.handler(ctx, event); lastErr == nil {
			return nil
		}
		eb.logger.Warnf("handler %s failed for %s (attempt %d): %v", s.name, event.Type(), attempt+1, lastErr)
	}
	eb.logger.Errorf("handler %s gave up on %s: %v", s.name, event.Type(), lastErr)
	return fmt.Errorf("handler %s: %w", s.name, lastErr)
}

// BasicEvent is the default Event implementation.
type BasicEvent struct {
	eventType string
	data      interface{}
	timestamp time.Time
	source    string
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType string, data interface{}, source string) Event {
	return &BasicEvent{eventType: eventType, data: data, timestamp: time.Now().UTC(), source: source}
}

func (e *BasicEvent) Type() string         { return e.eventType }
func (e *BasicEvent) Data() interface{}    { return e.data }
func (e *BasicEvent) Timestamp() time.Time { return e.timestamp }
func (e *BasicEvent) Source() string       { return e.source }
