package models

import "time"

// MuteRecord is a server-issued sanction on outgoing sends. A nil Until means
// the mute has no known end and must be rendered differently from "not
// muted"; "not muted" is the absence of a record, never a sentinel value.
type MuteRecord struct {
	Until *time.Time `json:"until"`
}

// Permanent reports whether the mute has no known end.
func (r *MuteRecord) Permanent() bool {
	return r != nil && r.Until == nil
}

// TransportState describes the push connection.
type TransportState int

const (
	TransportDisconnected TransportState = iota
	TransportConnecting
	TransportConnected
)

func (s TransportState) String() string {
	switch s {
	case TransportConnecting:
		return "connecting"
	case TransportConnected:
		return "connected"
	}
	return "disconnected"
}
