package models

import (
	"strings"
	"time"
)

// PairingState is the lifecycle state of a random-chat pairing.
type PairingState string

const (
	PairingIdle        PairingState = "idle"
	PairingSearching   PairingState = "searching"
	PairingActive      PairingState = "active"
	PairingPartnerLeft PairingState = "partner-left"
	PairingEnded       PairingState = "ended"
)

// PairingSession represents one random-chat pairing on the client side.
// At most one session is active per client; a new match request retires the
// previous one.
type PairingSession struct {
	// RoomID is the server-assigned room, or a synthesized local id when
	// the session was restored from the URL without one.
	RoomID string `json:"room_id"`
	// SelfID is the anonymous id of the local user.
	SelfID string `json:"self_id"`
	// PartnerID is the anonymous id of the matched stranger.
	PartnerID string `json:"partner_id"`
	// PartnerDisplayName is filled in lazily from the user service.
	PartnerDisplayName string `json:"partner_display_name"`
	// State is the lifecycle state, see PairingState.
	State PairingState `json:"state"`
	// CreatedAt is when the match event was received.
	CreatedAt time.Time `json:"created_at"`
}

// Synthesized reports whether the room id was made up client-side (URL
// restore path) and is therefore meaningless to the server.
func (s *PairingSession) Synthesized() bool {
	return s != nil && strings.HasPrefix(s.RoomID, ProvisionalPrefix)
}

// CanSend reports whether outgoing messages are allowed in this session.
// History stays visible after a partner leaves, but sends are blocked until
// the user requests a new partner.
func (s *PairingSession) CanSend() bool {
	return s != nil && s.State == PairingActive
}
