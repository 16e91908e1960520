package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToUserSubscribers(t *testing.T) {
	hub := NewHub(2)
	a := hub.Subscribe("u1")
	b := hub.Subscribe("u1")
	other := hub.Subscribe("u2")
	defer other.Close()

	assert.Equal(t, 2, hub.Subscribers("u1"))
	assert.Equal(t, 2, hub.Publish(Event{Type: EventWalletUpdated, UserID: "u1"}))

	evt := <-a.C
	assert.Equal(t, EventWalletUpdated, evt.Type)
	assert.False(t, evt.At.IsZero())
	<-b.C
	assert.Empty(t, other.C)

	a.Close()
	a.Close()
	_, open := <-a.C
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers("u1"))

	b.Close()
	assert.Zero(t, hub.Subscribers("u1"))
	assert.Zero(t, hub.Publish(Event{Type: EventWalletUpdated, UserID: "u1"}))
}

func TestHubDropsEventsForSlowSubscribers(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("u1")
	defer sub.Close()

	require.Equal(t, 1, hub.Publish(Event{Type: EventLevelUp, UserID: "u1"}))
	assert.Zero(t, hub.Publish(Event{Type: EventLevelUp, UserID: "u1"}))
	assert.Len(t, sub.C, 1)
}

func TestNilHubPublishIsNoop(t *testing.T) {
	var hub *Hub
	assert.Zero(t, hub.Publish(Event{Type: EventWalletUpdated, UserID: "u1"}))
}
