// Package transport owns the push channel: a single duplex websocket
// connection to the backend, created lazily on first need and reused across
// pairings.
package transport

import (
	"context"
	"encoding/json"
	"errors"

	"chatgogo/client/internal/models"
)

var (
	// ErrNotConnected is returned by Send when the push channel is down.
	// Callers on the message-send path degrade to the REST fallback
	// instead of surfacing this to the user.
	ErrNotConnected = errors.New("transport: push channel not connected")
	// ErrSendBufferFull is returned when the outbound queue is saturated.
	ErrSendBufferFull = errors.New("transport: send buffer full")
)

// Handler receives the raw payload of a push event.
type Handler func(data json.RawMessage)

// Transport is the push channel as seen by the engine. Implementations do not
// reconnect on their own; callers must check Connected immediately before use
// and fall back to REST when it reports false.
type Transport interface {
	// Connect establishes the push connection. Calling it while connected
	// is a no-op.
	Connect(ctx context.Context) error
	// Send emits one event. Returns ErrNotConnected when the channel is
	// down at send time.
	Send(event string, payload any) error
	// On registers a handler for an event. Handlers for the same event
	// are invoked in registration order.
	On(event string, h Handler)
	// OnStateChange registers an observer of the connection state.
	OnStateChange(fn func(models.TransportState))
	// Connected reports whether the channel is usable right now.
	Connected() bool
	// Disconnect tears the connection down. It is only called on logout
	// or unmount, never between pairings.
	Disconnect() error
}
