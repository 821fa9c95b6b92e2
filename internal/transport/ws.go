package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatgogo/client/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// WS implements Transport over a gorilla/websocket client connection.
type WS struct {
	url   string
	token string
	log   zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	state     models.TransportState
	send      chan models.Envelope
	handlers  map[string][]Handler
	stateSubs []func(models.TransportState)
}

func NewWS(url, token string, log zerolog.Logger) *WS {
	return &WS{
		url:      url,
		token:    token,
		log:      log,
		state:    models.TransportDisconnected,
		handlers: make(map[string][]Handler),
	}
}

// Connect dials the push endpoint with the bearer token and starts the read
// and write pumps. Safe to call repeatedly; only the first call after a
// disconnect does work.
func (w *WS) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.state != models.TransportDisconnected {
		w.mu.Unlock()
		return nil
	}
	w.state = models.TransportConnecting
	w.notifyLocked(models.TransportConnecting)
	w.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+w.token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, header)
	if err != nil {
		w.mu.Lock()
		w.state = models.TransportDisconnected
		w.notifyLocked(models.TransportDisconnected)
		w.mu.Unlock()
		return fmt.Errorf("dial push channel: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.send = make(chan models.Envelope, sendBufferSize)
	w.state = models.TransportConnected
	w.notifyLocked(models.TransportConnected)
	send := w.send
	w.mu.Unlock()

	go w.readPump(conn)
	go w.writePump(conn, send)

	w.log.Info().Str("url", w.url).Msg("push channel connected")
	return nil
}

// Send queues one event for the write pump.
func (w *WS) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	// The non-blocking enqueue happens under the lock so it cannot race
	// with markDisconnected closing the channel.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != models.TransportConnected {
		return ErrNotConnected
	}
	select {
	case w.send <- models.Envelope{Event: event, Data: data}:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (w *WS) On(event string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[event] = append(w.handlers[event], h)
}

func (w *WS) OnStateChange(fn func(models.TransportState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stateSubs = append(w.stateSubs, fn)
}

func (w *WS) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == models.TransportConnected
}

// Disconnect closes the connection. The read pump observes the close and
// marks the transport disconnected.
func (w *WS) Disconnect() error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// notifyLocked invokes state observers. Called with w.mu held; observers run
// on their own goroutine so they cannot deadlock back into the transport.
func (w *WS) notifyLocked(state models.TransportState) {
	for _, fn := range w.stateSubs {
		go fn(state)
	}
}

// markDisconnected flips the state once per connection. The conn argument
// guards against a stale pump of a previous connection tearing down a new one.
func (w *WS) markDisconnected(conn *websocket.Conn) {
	w.mu.Lock()
	if w.conn != conn {
		w.mu.Unlock()
		return
	}
	w.conn = nil
	w.state = models.TransportDisconnected
	w.notifyLocked(models.TransportDisconnected)
	close(w.send)
	w.mu.Unlock()

	conn.Close()
	w.log.Info().Msg("push channel disconnected")
}

// readPump reads envelopes off the wire and dispatches them to handlers.
func (w *WS) readPump(conn *websocket.Conn) {
	defer w.markDisconnected(conn)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				w.log.Warn().Err(err).Msg("push channel read error")
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			w.log.Warn().Err(err).Msg("dropping malformed push frame")
			continue
		}
		w.dispatch(env)
	}
}

func (w *WS) dispatch(env models.Envelope) {
	w.mu.Lock()
	handlers := append([]Handler(nil), w.handlers[env.Event]...)
	w.mu.Unlock()

	if len(handlers) == 0 {
		w.log.Debug().Str("event", env.Event).Msg("unhandled push event")
		return
	}
	for _, h := range handlers {
		h(env.Data)
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings.
func (w *WS) writePump(conn *websocket.Conn, send chan models.Envelope) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case env, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(env); err != nil {
				w.log.Warn().Err(err).Str("event", env.Event).Msg("push channel write error")
				return
			}

			// Flush whatever queued up behind this frame.
			n := len(send)
			for i := 0; i < n; i++ {
				next := <-send
				if err := conn.WriteJSON(next); err != nil {
					return
				}
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
