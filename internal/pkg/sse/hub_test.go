package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToTopic(t *testing.T) {
	hub := NewHub()
	a, cleanupA := hub.Subscribe("screen-a")
	defer cleanupA()
	b, cleanupB := hub.Subscribe("screen-b")
	defer cleanupB()

	hub.Publish("screen-a", Event{Event: "page", Data: 1})

	select {
	case ev := <-a:
		assert.Equal(t, "page", ev.Event)
		assert.Equal(t, "screen-a", ev.Topic)
	default:
		t.Fatal("subscriber of screen-a got nothing")
	}
	select {
	case ev := <-b:
		t.Fatalf("unexpected event on screen-b: %+v", ev)
	default:
	}
}

func TestHub_Publish_NonBlockingWhenFull(t *testing.T) {
	hub := NewHub()
	_, cleanup := hub.Subscribe("screen")
	defer cleanup()

	assert.NotPanics(t, func() {
		for i := 0; i < hub.buffer*3; i++ {
			hub.Publish("screen", Event{Event: "metrics"})
		}
	})
}

func TestHub_Close_EndsSubscriptions(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("screen")
	_, cleanup2 := hub.Subscribe("screen")
	require.Equal(t, 2, hub.SubscriberCount("screen"))

	hub.Close("screen")

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.TotalSubscribers())

	assert.NotPanics(t, cleanup)
	assert.NotPanics(t, cleanup2)
}

func TestHub_Cleanup_Idempotent(t *testing.T) {
	hub := NewHub()
	_, cleanup := hub.Subscribe("screen")

	cleanup()
	assert.NotPanics(t, cleanup)
	assert.Equal(t, 0, hub.SubscriberCount("screen"))
}
