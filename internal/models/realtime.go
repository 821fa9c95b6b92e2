package models

import (
	"encoding/json"
	"time"
)

// Push-channel event names. The backend emits and consumes the same set.
const (
	EventRandomJoin      = "random:join"
	EventRandomMatched   = "random:matched"
	EventRandomTimeout   = "random:timeout"
	EventRoomMessage     = "room:message"
	EventRoomPartnerLeft = "room:partner-left"
	EventRoomEnded       = "room:ended"
	EventRoomEnd         = "room:end"
	EventMuted           = "muted"
)

// Envelope is the JSON frame exchanged over the push channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RandomJoinPayload is emitted to enter the matching queue.
type RandomJoinPayload struct {
	UserID string `json:"user_id"`
}

// RandomMatchedPayload announces a successful pairing.
type RandomMatchedPayload struct {
	PartnerID string `json:"partner_id"`
	RoomID    string `json:"room_id"`
}

// RoomMessagePayload is the wire form of a chat message, both for push
// delivery and for the REST history endpoint.
type RoomMessagePayload struct {
	ID         string `json:"id,omitempty"`
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	Content    string `json:"content"`
	// Timestamp is unix milliseconds, server clock. Zero on outgoing
	// frames; the server stamps them.
	Timestamp int64 `json:"timestamp,omitempty"`
	// Type distinguishes text from presence decoration such as "typing".
	Type string `json:"type,omitempty"`
}

// ToMessage converts a wire message into the display model, classifying the
// direction against the local user id.
func (p RoomMessagePayload) ToMessage(selfID string) Message {
	sender := SenderOther
	switch p.SenderID {
	case selfID:
		sender = SenderSelf
	case "system":
		sender = SenderSystem
	}
	return Message{
		ID:          p.ID,
		Text:        p.Content,
		Sender:      sender,
		Timestamp:   time.UnixMilli(p.Timestamp),
		DisplayName: p.SenderName,
	}
}

// RoomPartnerLeftPayload announces the other participant leaving a room.
type RoomPartnerLeftPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// RoomEndedPayload announces a room closed by the server.
type RoomEndedPayload struct {
	RoomID string `json:"room_id"`
}

// RoomEndPayload is emitted to end the current room before re-matching.
type RoomEndPayload struct {
	RoomID string `json:"room_id"`
}

// MutedPayload carries a server-issued mute. A nil MutedUntil means the mute
// has no known end.
type MutedPayload struct {
	MutedUntil *int64 `json:"muted_until"`
}
