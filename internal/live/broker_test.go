package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFeedLifecycle(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	var mu sync.Mutex
	started := 0
	active := 0
	b.openFeed = func(ctx context.Context, scheduledSessionID string) {
		mu.Lock()
		started++
		active++
		mu.Unlock()
		<-ctx.Done()
		mu.Lock()
		active--
		mu.Unlock()
	}

	counts := func() (int, int) {
		mu.Lock()
		defer mu.Unlock()
		return started, active
	}

	c1 := b.Subscribe("session-1")
	c2 := b.Subscribe("session-1")

	s, _ := counts()
	assert.Equal(t, 1, s, "one feed per session regardless of client count")

	b.Unsubscribe(c1)
	s, a := counts()
	assert.Equal(t, 1, s)
	assert.Equal(t, 1, a, "feed stays open while a client remains")

	b.Unsubscribe(c2)
	require.Eventually(t, func() bool {
		_, a := counts()
		return a == 0
	}, time.Second, time.Millisecond, "feed should stop when the last client leaves")

	c3 := b.Subscribe("session-1")
	defer b.Unsubscribe(c3)

	require.Eventually(t, func() bool {
		s, a := counts()
		return s == 2 && a == 1
	}, time.Second, time.Millisecond, "resubscribing opens exactly one new feed")
}

func TestBrokerBroadcast(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	b.openFeed = func(ctx context.Context, scheduledSessionID string) {
		<-ctx.Done()
	}

	client := b.Subscribe("session-1")
	defer b.Unsubscribe(client)

	assert.True(t, b.HasSubscribers("session-1"))
	assert.False(t, b.HasSubscribers("session-2"))

	b.broadcast("session-1", Event{Type: "tick"})

	select {
	case got := <-client.Events:
		assert.Equal(t, "tick", got.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast event")
	}
}
