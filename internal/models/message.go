package models

import (
	"strings"
	"time"
)

// Sender identifies the direction of a displayed message relative to the
// local user.
type Sender string

const (
	SenderSelf   Sender = "self"
	SenderOther  Sender = "other"
	SenderSystem Sender = "system"
)

// ProvisionalPrefix marks client-generated message ids. A message keeps a
// provisional id until the server copy of it arrives and replaces it.
const ProvisionalPrefix = "local-"

// Message is the display model managed by the reconciler. It is what the host
// UI renders; the wire representation lives in realtime.go.
type Message struct {
	// ID is either a client-generated provisional id (ProvisionalPrefix)
	// or a server-issued confirmed id.
	ID string `json:"id"`
	// Text is the message content.
	Text string `json:"text"`
	// Sender is the message direction: self, other or system.
	Sender Sender `json:"sender"`
	// Timestamp is when the message was created, client-local for
	// provisional entries and server-issued for confirmed ones.
	Timestamp time.Time `json:"timestamp"`
	// DisplayName is the name shown next to the message.
	DisplayName string `json:"display_name"`
}

// Provisional reports whether the message still carries a client-generated id.
func (m Message) Provisional() bool {
	return strings.HasPrefix(m.ID, ProvisionalPrefix)
}
