package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var got []*Event
	bus.Subscribe(EventReservationCreated, func(event *Event) error {
		got = append(got, event)
		return nil
	})

	payload := ReservationEventPayload{ReservationID: 1, UserID: 2, SpaceID: 3, RoomNumber: 101}
	require.NoError(t, bus.PublishJSON(EventReservationCreated, payload))

	require.Len(t, got, 1)
	assert.Equal(t, EventReservationCreated, got[0].Type)
	assert.False(t, got[0].CreatedAt.IsZero())

	var decoded ReservationEventPayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestEventBusOnlyMatchingSubscribers(t *testing.T) {
	bus := NewEventBus()

	created, deleted := 0, 0
	bus.Subscribe(EventReservationCreated, func(*Event) error { created++; return nil })
	bus.Subscribe(EventReservationDeleted, func(*Event) error { deleted++; return nil })

	require.NoError(t, bus.PublishJSON(EventReservationCreated, SpaceEventPayload{}))
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, deleted)
}

func TestEventBusNilSafe(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventReservationCreated, nil))
}
