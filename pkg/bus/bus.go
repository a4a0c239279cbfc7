// Package bus implements the process-wide pub/sub fabric.
//
// Events are dot-namespaced ({category}.{rest}); subscribers attach by exact
// type, by single-segment glob pattern, or to the firehose. Emit dispatches
// synchronously and returns the joined handler errors, so emitters see
// failures instead of the bus swallowing them. A separate Hooks sub-bus runs
// awaited request/response chains where each tap may transform the payload.
//
// Example usage:
//
//	b := bus.New(bus.Options{})
//	unsub, err := b.OnPattern("pulse.*", func(e bus.Event) error {
//		fmt.Println("pulse:", e.Type)
//		return nil
//	})
//	if err != nil {
//		return err
//	}
//	defer unsub()
//
//	err = b.Emit(bus.Event{Type: "pulse.activity", Source: "scheduler"})
package bus

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is the unit of traffic on the bus.
type Event struct {
	// ID uniquely identifies the event. Emit fills it when empty.
	ID string `json:"id"`

	// Type is the dot-namespaced event type (e.g. "channel.user.blocked").
	Type string `json:"type"`

	// Category is the first dot segment of Type. Emit fills it when empty.
	Category string `json:"category"`

	// Timestamp is when the event was emitted. Emit fills it when zero.
	Timestamp time.Time `json:"timestamp"`

	// Source identifies the emitter (e.g. "system", "ws:<sessionId>").
	Source string `json:"source"`

	// Data is the event payload.
	Data map[string]any `json:"data"`
}

// Handler receives the full event. Pattern and firehose subscriptions use
// this shape.
type Handler func(Event) error

// DataHandler receives only the event payload. Exact-type subscriptions use
// this shape.
type DataHandler func(data map[string]any) error

// Options configures a Bus.
type Options struct {
	// Clock returns the current time for event timestamps. Nil means
	// time.Now; tests inject a fake.
	Clock func() time.Time
}

type subscriber struct {
	id      uint64
	handler Handler
}

type patternSubscriber struct {
	subscriber
	pattern  string
	segments []string
}

type firehoseSubscriber struct {
	subscriber
	prefix string
}

// Bus routes events to subscribers. The zero value is not usable; call New.
//
// Bus is safe for concurrent use.
type Bus struct {
	clock func() time.Time
	hooks *Hooks

	mu       sync.RWMutex
	nextID   uint64
	exact    map[string][]subscriber
	patterns []patternSubscriber
	firehose []firehoseSubscriber
}

// New creates an empty bus.
func New(opts Options) *Bus {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Bus{
		clock: clock,
		hooks: newHooks(),
		exact: make(map[string][]subscriber),
	}
}

// Hooks returns the bus's hook sub-bus.
func (b *Bus) Hooks() *Hooks {
	return b.hooks
}

// On subscribes to one exact event type. The handler receives the event
// payload. The returned closure unsubscribes and is idempotent.
func (b *Bus) On(eventType string, handler DataHandler) func() {
	wrapped := func(e Event) error { return handler(e.Data) }

	b.mu.Lock()
	id := b.allocateID()
	b.exact[eventType] = append(b.exact[eventType], subscriber{id: id, handler: wrapped})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.exact[eventType]
		for i := range subs {
			if subs[i].id == id {
				b.exact[eventType] = append(subs[:i], subs[i+1:]...)
				if len(b.exact[eventType]) == 0 {
					delete(b.exact, eventType)
				}
				return
			}
		}
	}
}

// OnPattern subscribes to every event whose type matches the glob pattern.
// Patterns are dot-segmented with * as a single-segment wildcard; see
// ValidatePattern for the accepted shape.
func (b *Bus) OnPattern(pattern string, handler Handler) (func(), error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	b.mu.Lock()
	id := b.allocateID()
	b.patterns = append(b.patterns, patternSubscriber{
		subscriber: subscriber{id: id, handler: handler},
		pattern:    pattern,
		segments:   strings.Split(pattern, "."),
	})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.patterns {
			if b.patterns[i].id == id {
				b.patterns = append(b.patterns[:i], b.patterns[i+1:]...)
				return
			}
		}
	}, nil
}

// OnAll subscribes to every event on the bus.
func (b *Bus) OnAll(handler Handler) func() {
	return b.onFirehose("", handler)
}

// OnAny subscribes to every event whose type starts with prefix. An empty
// prefix matches everything, same as OnAll.
func (b *Bus) OnAny(prefix string, handler Handler) func() {
	return b.onFirehose(prefix, handler)
}

func (b *Bus) onFirehose(prefix string, handler Handler) func() {
	b.mu.Lock()
	id := b.allocateID()
	b.firehose = append(b.firehose, firehoseSubscriber{
		subscriber: subscriber{id: id, handler: handler},
		prefix:     prefix,
	})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.firehose {
			if b.firehose[i].id == id {
				b.firehose = append(b.firehose[:i], b.firehose[i+1:]...)
				return
			}
		}
	}
}

// allocateID must be called with b.mu held.
func (b *Bus) allocateID() uint64 {
	b.nextID++
	return b.nextID
}

// Emit dispatches an event to every matching subscriber: exact-type first,
// then patterns, then the firehose, each in registration order. Empty ID,
// Category and Timestamp fields are filled before dispatch. Handler errors
// (and recovered panics) are joined and returned; every subscriber still
// runs.
func (b *Bus) Emit(event Event) error {
	if event.Type == "" {
		return errors.New("event type is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.clock()
	}
	if event.Category == "" {
		event.Category = Category(event.Type)
	}

	// Snapshot under the read lock so handlers can subscribe or
	// unsubscribe without deadlocking.
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.exact[event.Type])+len(b.patterns)+len(b.firehose))
	for _, sub := range b.exact[event.Type] {
		handlers = append(handlers, sub.handler)
	}
	for _, sub := range b.patterns {
		if matchSegments(sub.segments, event.Type) {
			handlers = append(handlers, sub.handler)
		}
	}
	for _, sub := range b.firehose {
		if sub.prefix == "" || strings.HasPrefix(event.Type, sub.prefix) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := safeCall(handler, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// safeCall runs one handler, converting a panic into an error so a bad
// subscriber cannot take down the emitter or starve later subscribers.
func safeCall(handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on %s: %v", event.Type, r)
		}
	}()
	return handler(event)
}

// SubscriberCount returns how many subscriptions would see the given event
// type. Intended for tests and introspection.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.exact[eventType])
	for _, sub := range b.patterns {
		if matchSegments(sub.segments, eventType) {
			n++
		}
	}
	for _, sub := range b.firehose {
		if sub.prefix == "" || strings.HasPrefix(eventType, sub.prefix) {
			n++
		}
	}
	return n
}

// Category returns the first dot segment of an event type ("system" for
// "system.shutdown"). A type without dots is its own category.
func Category(eventType string) string {
	if idx := strings.IndexByte(eventType, '.'); idx >= 0 {
		return eventType[:idx]
	}
	return eventType
}

var (
	defaultBus   *Bus
	defaultBusMu sync.Mutex
)

// Default returns the process-wide bus, building it on first call.
func Default() *Bus {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()
	if defaultBus == nil {
		defaultBus = New(Options{})
	}
	return defaultBus
}

// ResetDefault discards the process-wide bus along with its subscriptions
// and hooks. The next Default call builds a fresh one. Intended for tests.
func ResetDefault() {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()
	defaultBus = nil
}
