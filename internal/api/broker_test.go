package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(RunsTopic)

	evt := Event{Type: "test.event", Data: map[string]any{"x": 1}}
	b.Publish(RunsTopic, evt)
	b.Publish("other", Event{Type: "ignored"})

	select {
	case got := <-ch:
		assert.Equal(t, evt.Type, got.Type)
		assert.Equal(t, 1, got.Data["x"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(RunsTopic, ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	// second unsubscribe is a no-op
	b.Unsubscribe(RunsTopic, ch)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(RunsTopic)
	defer b.Unsubscribe(RunsTopic, ch)
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish(RunsTopic, Event{Type: "e"})
	}
	assert.Len(t, ch, cap(ch))
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe(RunsTopic)
	b.Publish(RunsTopic, Event{Type: "run.completed", Data: map[string]any{"bestCost": 8.5}})

	select {
	case got := <-ch:
		assert.Equal(t, "run.completed", got.Type)
		assert.Equal(t, 8.5, got.Data["bestCost"])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}

	b.Unsubscribe(RunsTopic, ch)
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestNewRedisBrokerBadURL(t *testing.T) {
	_, err := NewRedisBroker("not a url")
	require.Error(t, err)
}
