// Package dispatch provides the synchronous publish/subscribe bus that fans
// classified console output out to subscribers.
//
// Each supervised server owns its own Bus; there is no package-level state.
// Handlers run on the publishing goroutine, so a slow handler delays the
// next console line.
package dispatch

import (
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

// ID identifies a subscription. It is returned by every Subscribe call and
// accepted by Unsubscribe.
type ID string

// allEvents is the topic key for handlers registered with SubscribeAll.
const allEvents event.Type = "*"

type subscription[T any] struct {
	id      ID
	handler func(T)
}

// topic is an ordered list of handlers for one payload type.
type topic[T any] struct {
	subs []subscription[T]
}

func (t *topic[T]) add(id ID, h func(T)) {
	t.subs = append(t.subs, subscription[T]{id: id, handler: h})
}

func (t *topic[T]) remove(id ID) bool {
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (t *topic[T]) snapshot() []subscription[T] {
	out := make([]subscription[T], len(t.subs))
	copy(out, t.subs)
	return out
}

// Bus is a synchronous pub/sub dispatcher. It is safe for concurrent use.
type Bus struct {
	logger *slog.Logger

	mu           sync.RWMutex
	events       map[event.Type]*topic[event.Event]
	lines        topic[event.Line]
	unclassified topic[event.Line]
	raw          topic[string]
	unrecognized topic[string]
	transitions  topic[event.Transition]

	nextID atomic.Uint64
}

// NewBus creates an empty bus. Handler panics are logged to logger; a nil
// logger discards them.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		logger: logger,
		events: make(map[event.Type]*topic[event.Event]),
	}
}

func (b *Bus) generateID() ID {
	return ID("sub-" + strconv.FormatUint(b.nextID.Add(1), 10))
}

// Subscribe registers a handler for a single event type.
func (b *Bus) Subscribe(t event.Type, h func(event.Event)) ID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.generateID()
	tp, ok := b.events[t]
	if !ok {
		tp = &topic[event.Event]{}
		b.events[t] = tp
	}
	tp.add(id, h)
	return id
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h func(event.Event)) ID {
	return b.Subscribe(allEvents, h)
}

// SubscribeLines registers a handler for every line that matched the
// console grammar, classified or not.
func (b *Bus) SubscribeLines(h func(event.Line)) ID {
	return subscribeTopic(b, &b.lines, h)
}

// SubscribeUnclassified registers a handler for grammar-matching lines that
// no matcher claimed.
func (b *Bus) SubscribeUnclassified(h func(event.Line)) ID {
	return subscribeTopic(b, &b.unclassified, h)
}

// SubscribeRaw registers a handler for every raw line, verbatim.
func (b *Bus) SubscribeRaw(h func(string)) ID {
	return subscribeTopic(b, &b.raw, h)
}

// SubscribeUnrecognized registers a handler for raw lines that did not
// match the console grammar.
func (b *Bus) SubscribeUnrecognized(h func(string)) ID {
	return subscribeTopic(b, &b.unrecognized, h)
}

// SubscribeTransitions registers a handler for lifecycle state changes.
func (b *Bus) SubscribeTransitions(h func(event.Transition)) ID {
	return subscribeTopic(b, &b.transitions, h)
}

func subscribeTopic[T any](b *Bus, tp *topic[T], h func(T)) ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.generateID()
	tp.add(id, h)
	return id
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, tp := range b.events {
		if tp.remove(id) {
			return true
		}
	}
	return b.lines.remove(id) ||
		b.unclassified.remove(id) ||
		b.raw.remove(id) ||
		b.unrecognized.remove(id) ||
		b.transitions.remove(id)
}

// PublishEvent delivers ev to handlers of its type, then to handlers of all
// events. Within each group handlers run in registration order.
func (b *Bus) PublishEvent(ev event.Event) {
	b.mu.RLock()
	var specific, wildcard []subscription[event.Event]
	if tp, ok := b.events[ev.Type]; ok {
		specific = tp.snapshot()
	}
	if tp, ok := b.events[allEvents]; ok {
		wildcard = tp.snapshot()
	}
	b.mu.RUnlock()

	for _, s := range specific {
		b.safeCall(string(ev.Type), func() { s.handler(ev) })
	}
	for _, s := range wildcard {
		b.safeCall(string(ev.Type), func() { s.handler(ev) })
	}
}

// PublishLine delivers a grammar-matching line.
func (b *Bus) PublishLine(l event.Line) { publish(b, &b.lines, "line", l) }

// PublishUnclassified delivers a line no matcher claimed.
func (b *Bus) PublishUnclassified(l event.Line) {
	publish(b, &b.unclassified, "unclassified", l)
}

// PublishRaw delivers a raw line.
func (b *Bus) PublishRaw(raw string) { publish(b, &b.raw, "raw", raw) }

// PublishUnrecognized delivers a raw line that missed the console grammar.
func (b *Bus) PublishUnrecognized(raw string) {
	publish(b, &b.unrecognized, "unrecognized", raw)
}

// PublishTransition delivers a lifecycle state change.
func (b *Bus) PublishTransition(tr event.Transition) {
	publish(b, &b.transitions, "transition", tr)
}

func publish[T any](b *Bus, tp *topic[T], kind string, v T) {
	b.mu.RLock()
	subs := tp.snapshot()
	b.mu.RUnlock()

	for _, s := range subs {
		b.safeCall(kind, func() { s.handler(v) })
	}
}

// safeCall invokes a handler and recovers from any panic so one handler
// cannot stop delivery to the others.
func (b *Bus) safeCall(kind string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				"kind", kind,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	call()
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := len(b.lines.subs) + len(b.unclassified.subs) + len(b.raw.subs) +
		len(b.unrecognized.subs) + len(b.transitions.subs)
	for _, tp := range b.events {
		count += len(tp.subs)
	}
	return count
}
