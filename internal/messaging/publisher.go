package messaging

import (
	"encoding/json"
	"fmt"
)

// Bus is the publish side of the broadcast transport.
type Bus interface {
	Publish(subject string, data []byte) error
}

// RoomSubject returns the broadcast subject for a room.
func RoomSubject(roomId string) string {
	return fmt.Sprintf("room.%s", roomId)
}

// Envelope frames every event crossing the wire, in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomPublisher implements game.Publisher over the bus: it wraps an event
// payload in an envelope and publishes it to the room's subject. Events
// published from one goroutine to the same room keep their order.
type RoomPublisher struct {
	bus Bus
}

func NewRoomPublisher(bus Bus) *RoomPublisher {
	return &RoomPublisher{bus: bus}
}

func (p *RoomPublisher) PublishToRoom(roomId string, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling %s payload: %w", event, err)
	}

	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshalling %s envelope: %w", event, err)
	}

	return p.bus.Publish(RoomSubject(roomId), frame)
}
