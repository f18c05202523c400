// ABOUTME: Best-effort live channel registry mirroring dispatcher responses per session key
// ABOUTME: At most one subscriber per key; a new subscription silently replaces the prior one

package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 16

// Event is one frame mirrored onto a session's live channel.
type Event struct {
	// Name is the SSE event name ("ready", "message").
	Name string
	// Data is the JSON body of the frame.
	Data json.RawMessage
}

// Bridge maintains at most one live output channel per session key and
// mirrors dispatcher responses onto it. Delivery is best effort: publishing
// to a key with no subscriber is a silent no-op, and a subscriber that cannot
// accept an event is dropped rather than blocking the request path.
type Bridge struct {
	mu     sync.Mutex
	subs   map[string]chan Event
	logger *slog.Logger
}

// NewBridge creates a bridge. Pass nil logger for default.
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		subs:   make(map[string]chan Event),
		logger: logger.With("component", "stream"),
	}
}

// Subscribe registers a live channel for the session key and returns it.
// Any prior subscriber for the key is replaced and its channel closed.
// The first event delivered is "ready" carrying the session key. The
// subscription is removed when ctx is cancelled.
func (b *Bridge) Subscribe(ctx context.Context, key string) <-chan Event {
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if prior, ok := b.subs[key]; ok {
		close(prior)
		b.logger.Debug("subscriber replaced", "session_id", key)
	}
	b.subs[key] = ch

	// Delivered under the lock so a racing Subscribe cannot close ch between
	// registration and the first write. The fresh buffer makes this non-blocking.
	ready, _ := json.Marshal(map[string]string{"sessionId": key})
	ch <- Event{Name: "ready", Data: ready}
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "session_id", key)

	go func() {
		<-ctx.Done()
		b.remove(key, ch)
	}()

	return ch
}

// Publish delivers an event to the key's subscriber, if any. Publishing to an
// unsubscribed key is a silent no-op. A subscriber whose channel is full is
// treated as dead: it is unsubscribed and its channel closed, and the publish
// still succeeds from the caller's point of view.
func (b *Bridge) Publish(key string, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[key]
	if !ok {
		return
	}

	select {
	case ch <- event:
	default:
		delete(b.subs, key)
		close(ch)
		b.logger.Debug("dropped dead subscriber on publish", "session_id", key)
	}
}

// PublishJSON marshals v and publishes it as an event with the given name.
func (b *Bridge) PublishJSON(key, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling stream event: %w", err)
	}
	b.Publish(key, Event{Name: name, Data: data})
	return nil
}

// Unsubscribe removes the key's subscription and closes its channel.
// Unsubscribing a key with no subscriber is a no-op.
func (b *Bridge) Unsubscribe(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[key]
	if !ok {
		return
	}
	delete(b.subs, key)
	close(ch)

	b.logger.Debug("subscriber removed", "session_id", key)
}

// remove unsubscribes only if ch is still the key's current channel, so a
// stale cleanup goroutine never tears down a replacement subscriber.
func (b *Bridge) remove(key string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.subs[key]
	if !ok || current != ch {
		return
	}
	delete(b.subs, key)
	close(ch)
}

// Close shuts down the bridge and closes all subscriber channels.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, ch := range b.subs {
		close(ch)
		delete(b.subs, key)
	}
}
