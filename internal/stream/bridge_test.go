// ABOUTME: Tests for the session stream bridge
// ABOUTME: Covers ready events, replacement, dead-subscriber drops, and goroutine hygiene

package stream

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed before event arrived")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribe_DeliversReadyFirst(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "sess-1")

	ev := recvEvent(t, ch)
	assert.Equal(t, "ready", ev.Name)

	var body map[string]string
	require.NoError(t, json.Unmarshal(ev.Data, &body))
	assert.Equal(t, "sess-1", body["sessionId"])
}

func TestPublish_ReachesSubscriber(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "sess-2")
	recvEvent(t, ch) // ready

	b.Publish("sess-2", Event{Name: "message", Data: json.RawMessage(`{"n":1}`)})

	ev := recvEvent(t, ch)
	assert.Equal(t, "message", ev.Name)
	assert.JSONEq(t, `{"n":1}`, string(ev.Data))
}

func TestPublish_NoSubscriberIsNoOp(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	// Must not panic or block.
	b.Publish("sess-3", Event{Name: "message", Data: json.RawMessage(`{}`)})
}

func TestSubscribe_ReplacesPriorSubscriber(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := b.Subscribe(ctx, "sess-4")
	recvEvent(t, first)

	second := b.Subscribe(ctx, "sess-4")
	recvEvent(t, second)

	// The first channel is closed when replaced.
	select {
	case _, ok := <-first:
		assert.False(t, ok, "expected first channel to be closed")
	case <-time.After(time.Second):
		t.Fatal("first channel was not closed after replacement")
	}

	b.Publish("sess-4", Event{Name: "message", Data: json.RawMessage(`{"to":"second"}`)})
	ev := recvEvent(t, second)
	assert.JSONEq(t, `{"to":"second"}`, string(ev.Data))
}

func TestPublish_DropsSaturatedSubscriber(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "sess-5")

	// Fill the buffer without draining. The ready event already occupies
	// one slot.
	for i := 0; i < subscriberBufferSize; i++ {
		b.Publish("sess-5", Event{Name: "message", Data: json.RawMessage(`{}`)})
	}

	// The next publish cannot be delivered, so the subscriber is dropped.
	b.Publish("sess-5", Event{Name: "message", Data: json.RawMessage(`{}`)})

	drained := 0
	for range ch {
		drained++
	}
	assert.Equal(t, subscriberBufferSize, drained)

	// The key is free again for a new subscriber.
	fresh := b.Subscribe(ctx, "sess-5")
	ev := recvEvent(t, fresh)
	assert.Equal(t, "ready", ev.Name)
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "sess-6")
	recvEvent(t, ch)

	b.Unsubscribe("sess-6")

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	// Idempotent.
	b.Unsubscribe("sess-6")
}

func TestSubscribe_ContextCancelRemovesSubscriber(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx, "sess-7")
	recvEvent(t, ch)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}

	b.Publish("sess-7", Event{Name: "message", Data: json.RawMessage(`{}`)})
}

func TestSubscribe_StaleCancelDoesNotRemoveReplacement(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	firstCtx, firstCancel := context.WithCancel(context.Background())
	first := b.Subscribe(firstCtx, "sess-8")
	recvEvent(t, first)

	secondCtx, secondCancel := context.WithCancel(context.Background())
	defer secondCancel()
	second := b.Subscribe(secondCtx, "sess-8")
	recvEvent(t, second)

	// Cancelling the replaced subscription must not tear down the live one.
	firstCancel()
	time.Sleep(50 * time.Millisecond)

	b.Publish("sess-8", Event{Name: "message", Data: json.RawMessage(`{"alive":true}`)})
	ev := recvEvent(t, second)
	assert.JSONEq(t, `{"alive":true}`, string(ev.Data))
}

func TestSubscribe_ConcurrentSameKeyDoesNotPanic(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	// Racing resubscriptions on one key must never send on a channel that a
	// replacement has already closed.
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())

		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Subscribe(ctx, "sess-race")
			}()
		}
		wg.Wait()
		cancel()
	}

	// The surviving subscriber, if any, is cancelled above. A fresh one works.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx, "sess-race")
	ev := recvEvent(t, ch)
	assert.Equal(t, "ready", ev.Name)
}

func TestIndependentKeys(t *testing.T) {
	b := NewBridge(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := b.Subscribe(ctx, "sess-a")
	c := b.Subscribe(ctx, "sess-b")
	recvEvent(t, a)
	recvEvent(t, c)

	b.Publish("sess-a", Event{Name: "message", Data: json.RawMessage(`{"for":"a"}`)})

	ev := recvEvent(t, a)
	assert.JSONEq(t, `{"for":"a"}`, string(ev.Data))

	select {
	case ev := <-c:
		t.Fatalf("unexpected event on other key: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
