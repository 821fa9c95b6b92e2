package models

import "time"

// ChatRoom is the client view of a 1-on-1 room as returned by the room
// service. Both random-chat rooms and DM rooms share this shape.
type ChatRoom struct {
	// RoomID is the unique identifier for the chat room (UUID).
	RoomID string `json:"room_id"`
	// User1ID is the anonymous ID of the first user in the room.
	User1ID string `json:"user1_id"`
	// User2ID is the anonymous ID of the second user in the room.
	User2ID string `json:"user2_id"`
	// IsActive indicates whether the chat room is currently active.
	IsActive bool `json:"is_active"`
	// StartedAt is the timestamp when the chat room was created.
	StartedAt time.Time `json:"started_at"`
}

// PartnerOf returns the id of the other participant, or "" when the given
// user is not in the room.
func (r *ChatRoom) PartnerOf(userID string) string {
	switch userID {
	case r.User1ID:
		return r.User2ID
	case r.User2ID:
		return r.User1ID
	}
	return ""
}
