// Package engine is the client core: it wires the pairing state machine, the
// push transport, the polling backstop, the reconciler, URL session
// persistence and the mute enforcer into one send/receive surface for the
// host UI.
//
// Nothing in here is fatal. The engine degrades — falls back to polling,
// leaves a message unconfirmed, drops a stale poll result — rather than
// surfacing errors for transient conditions.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chatgogo/client/internal/config"
	"chatgogo/client/internal/identity"
	"chatgogo/client/internal/models"
	"chatgogo/client/internal/mute"
	"chatgogo/client/internal/pairing"
	"chatgogo/client/internal/poller"
	"chatgogo/client/internal/presence"
	"chatgogo/client/internal/reconcile"
	"chatgogo/client/internal/session"
	"chatgogo/client/internal/transport"
)

var (
	// ErrMuted is returned by Send while a server-issued mute is active.
	ErrMuted = errors.New("engine: muted by the server")
	// ErrNoActiveRoom is returned by Send when nothing is open.
	ErrNoActiveRoom = errors.New("engine: no active room")
	// ErrPartnerGone is returned by Send after the partner left or the
	// room ended; history stays visible but sends are blocked.
	ErrPartnerGone = errors.New("engine: partner left, request a new one")
)

const typingType = "typing"

// API is the client side of the backend's REST services, satisfied by
// rest.Client.
type API interface {
	RecentMessages(ctx context.Context, roomID string, limit int) ([]models.RoomMessagePayload, error)
	SendMessage(ctx context.Context, msg models.RoomMessagePayload) (*models.RoomMessagePayload, error)
	Room(ctx context.Context, roomID string) (*models.ChatRoom, error)
	User(ctx context.Context, userID string) (*models.User, error)
	CreateDM(ctx context.Context, selfID, otherID string) (*models.ChatRoom, error)
}

// Engine owns the displayed message list. The reconciler is its single
// writer; push events, poll results and optimistic sends all funnel through
// it.
type Engine struct {
	ident *identity.Identity
	tr    transport.Transport
	api   API
	pair  *pairing.Service
	poll  *poller.Scheduler
	mutes *mute.Enforcer
	urls  *session.Store
	log   zerolog.Logger

	mu          sync.Mutex
	roomID      string
	isDM        bool
	dmPartner   *models.User
	lastPairing models.PairingState
	list        []models.Message
	onList      []func([]models.Message)
	onTyping    []func(userID string)
}

func New(ident *identity.Identity, tr transport.Transport, api API, urls *session.Store, gate presence.Gate, log zerolog.Logger) *Engine {
	e := &Engine{
		ident: ident,
		tr:    tr,
		api:   api,
		mutes: mute.NewEnforcer(),
		urls:  urls,
		log:   log,
	}
	e.pair = pairing.NewService(ident.UserID, tr, urls, log)
	e.poll = poller.New(gate, e.fetchHistory, config.PollInterval, log)

	tr.On(models.EventRoomMessage, e.handleRoomMessage)
	tr.On(models.EventMuted, e.handleMuted)
	e.pair.OnChange(e.handlePairingChange)
	return e
}

// OnMessages subscribes to changes of the displayed list. The callback
// receives a copy.
func (e *Engine) OnMessages(fn func([]models.Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onList = append(e.onList, fn)
}

// OnTyping subscribes to partner typing notifications.
func (e *Engine) OnTyping(fn func(userID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTyping = append(e.onTyping, fn)
}

// Messages returns a copy of the displayed list.
func (e *Engine) Messages() []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Message(nil), e.list...)
}

// Muted returns the active mute record, if any. Expired records self-heal
// inside the enforcer.
func (e *Engine) Muted() *models.MuteRecord { return e.mutes.IsMuted() }

// PairingState exposes the pairing lifecycle for the host UI.
func (e *Engine) PairingState() models.PairingState { return e.pair.State() }

// Session returns a copy of the current pairing session, or nil.
func (e *Engine) Session() *models.PairingSession { return e.pair.Session() }

// Connected reports the push channel state.
func (e *Engine) Connected() bool { return e.tr.Connected() }

// RequestMatch asks for a random partner. Supersedes any current session.
func (e *Engine) RequestMatch(ctx context.Context) error {
	return e.pair.RequestMatch(ctx)
}

// NextPartner ends the current pairing (best effort) and searches again.
func (e *Engine) NextPartner(ctx context.Context) error {
	return e.pair.NextPartner(ctx)
}

// ClosePairing returns to the idle view: session gone, URL cleared, polling
// stopped. Closing while a direct-message room is displayed retires that room
// the same way, so the view and the URL never disagree.
func (e *Engine) ClosePairing() {
	e.mu.Lock()
	dm := e.isDM
	if dm {
		e.roomID, e.isDM = "", false
		e.dmPartner = nil
		e.list = nil
	}
	e.mu.Unlock()

	if dm {
		e.poll.Stop()
		e.urls.Write(nil)
		e.notifyList()
		return
	}
	e.pair.Close()
}

// DMPartner returns the partner of the displayed direct-message room, or nil
// when no DM is open. The display name is filled from the user service, best
// effort.
func (e *Engine) DMPartner() *models.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isDM || e.dmPartner == nil {
		return nil
	}
	u := *e.dmPartner
	return &u
}

// OpenDM opens (or creates) the direct-message room with another user and
// makes it the displayed room. Any random pairing is retired first.
func (e *Engine) OpenDM(ctx context.Context, otherUserID string) error {
	room, err := e.api.CreateDM(ctx, e.ident.UserID, otherUserID)
	if err != nil {
		return err
	}
	e.pair.Close()

	partner := &models.User{ID: otherUserID}
	if u, err := e.api.User(ctx, otherUserID); err == nil {
		partner = u
	} else {
		e.log.Debug().Err(err).Str("user_id", otherUserID).Msg("dm partner lookup failed")
	}

	e.mu.Lock()
	e.roomID = room.RoomID
	e.isDM = true
	e.dmPartner = partner
	e.list = nil
	e.mu.Unlock()
	e.notifyList()

	e.urls.Write(session.DM(room.RoomID))
	e.poll.Start(room.RoomID, e.onPolled)
	return nil
}

// Send delivers a message to the displayed room: optimistic append first,
// push channel if connected, REST fallback otherwise. A REST failure leaves
// the provisional entry in place (best-effort semantics) and is not surfaced.
func (e *Engine) Send(ctx context.Context, text string) error {
	// Re-checked here, at send time, never cached from an earlier render.
	if rec := e.mutes.IsMuted(); rec != nil {
		return ErrMuted
	}

	e.mu.Lock()
	roomID, isDM := e.roomID, e.isDM
	e.mu.Unlock()

	if roomID == "" {
		return ErrNoActiveRoom
	}
	if !isDM && !e.pair.CanSend() {
		return ErrPartnerGone
	}

	msg := reconcile.NewProvisional(text, e.ident.DisplayName, time.Now())
	e.mu.Lock()
	e.list = reconcile.AppendLocal(e.list, msg)
	e.mu.Unlock()
	e.notifyList()

	payload := models.RoomMessagePayload{
		RoomID:     roomID,
		SenderID:   e.ident.UserID,
		SenderName: e.ident.DisplayName,
		Content:    text,
	}

	if e.tr.Connected() {
		if err := e.tr.Send(models.EventRoomMessage, payload); err == nil {
			return nil
		}
		// Fall through: the channel dropped between the check and the
		// write. The REST path covers it.
	}

	confirmed, err := e.api.SendMessage(ctx, payload)
	if err != nil {
		// DeliveryUnconfirmed: the provisional entry stays visible, no
		// retry, nothing surfaced.
		e.log.Debug().Err(err).Str("room_id", roomID).Msg("rest send failed, message stays provisional")
		return nil
	}
	e.applyIncoming(*confirmed)
	return nil
}

// SendTyping emits a typing notification. Push-only decoration: silently
// dropped when the channel is down, never REST-degraded.
func (e *Engine) SendTyping() {
	e.mu.Lock()
	roomID := e.roomID
	e.mu.Unlock()

	if roomID == "" || !e.tr.Connected() {
		return
	}
	e.tr.Send(models.EventRoomMessage, models.RoomMessagePayload{
		RoomID:   roomID,
		SenderID: e.ident.UserID,
		Type:     typingType,
	})
}

// Restore re-derives the session from the URL on mount. Lookup failures fall
// back to the default no-active-room view; they are logged, never returned.
func (e *Engine) Restore(ctx context.Context) {
	st := e.urls.Read()
	if st == nil {
		return
	}

	switch st.Kind {
	case session.KindDM:
		e.restoreDM(ctx, st.DMRoomID)
	case session.KindRandom:
		e.restoreRandom(ctx, st.PartnerID)
	}
}

// restoreDM re-fetches the room identity and its history; the URL is not
// trusted for anything beyond the id.
func (e *Engine) restoreDM(ctx context.Context, roomID string) {
	room, err := e.api.Room(ctx, roomID)
	if err != nil {
		e.log.Warn().Err(err).Str("room_id", roomID).Msg("dm restore failed, falling back to empty view")
		e.urls.Write(nil)
		return
	}

	var (
		partner *models.User
		history []models.RoomMessagePayload
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := e.api.User(gctx, room.PartnerOf(e.ident.UserID))
		partner = u
		return err
	})
	g.Go(func() error {
		msgs, err := e.api.RecentMessages(gctx, roomID, config.HistoryPageSize)
		history = msgs
		return err
	})
	if err := g.Wait(); err != nil {
		e.log.Warn().Err(err).Str("room_id", roomID).Msg("dm restore lookups failed, falling back to empty view")
		e.urls.Write(nil)
		return
	}

	e.mu.Lock()
	e.roomID = room.RoomID
	e.isDM = true
	e.dmPartner = partner
	e.list = reconcile.Reconcile(toMessages(history, e.ident.UserID), nil)
	e.mu.Unlock()
	e.notifyList()

	e.log.Info().Str("room_id", room.RoomID).Str("partner", partner.DisplayName).Msg("dm restored from url")
	e.poll.Start(room.RoomID, e.onPolled)
}

// restoreRandom rebuilds a read-only pairing from the partner id; the display
// name is fetched best effort.
func (e *Engine) restoreRandom(ctx context.Context, partnerID string) {
	e.pair.Restore(partnerID)
	if u, err := e.api.User(ctx, partnerID); err == nil {
		e.pair.SetPartnerName(partnerID, u.DisplayName)
	} else {
		e.log.Debug().Err(err).Str("partner_id", partnerID).Msg("partner lookup failed on restore")
	}
}

// Close tears the engine down on unmount: polling stopped, push channel
// closed.
func (e *Engine) Close() {
	e.poll.Stop()
	e.tr.Disconnect()
}

func (e *Engine) handlePairingChange(state models.PairingState, sess *models.PairingSession) {
	e.mu.Lock()
	repeated := state == e.lastPairing
	e.lastPairing = state
	e.mu.Unlock()

	switch state {
	case models.PairingSearching:
		e.poll.Stop()
		e.mu.Lock()
		e.roomID, e.isDM = "", false
		e.dmPartner = nil
		e.list = nil
		e.mu.Unlock()
		e.notifyList()

	case models.PairingActive:
		e.mu.Lock()
		alreadyDisplayed := e.roomID == sess.RoomID
		if !alreadyDisplayed {
			e.roomID, e.isDM = sess.RoomID, false
			e.list = nil
		}
		e.mu.Unlock()
		if !alreadyDisplayed {
			e.notifyList()
			e.poll.Start(sess.RoomID, e.onPolled)
			go e.fetchPartnerName(sess.PartnerID)
		}

	case models.PairingPartnerLeft:
		if sess != nil && sess.Synthesized() {
			// URL-restored read-only session: show it, don't poll a
			// room the server has never heard of.
			e.mu.Lock()
			e.roomID, e.isDM = sess.RoomID, false
			e.mu.Unlock()
			return
		}
		// A replayed notification (late name fill, duplicate frame) must
		// not append a second notice.
		if repeated {
			return
		}
		e.appendSystem("Your partner left the chat.")

	case models.PairingEnded:
		if repeated {
			return
		}
		e.appendSystem("This chat has ended.")

	case models.PairingIdle:
		e.mu.Lock()
		dm := e.isDM
		if !dm {
			e.roomID = ""
			e.list = nil
		}
		e.mu.Unlock()
		if !dm {
			e.poll.Stop()
			e.notifyList()
		}
	}
}

// fetchPartnerName fills in the partner's display name once the match lands.
func (e *Engine) fetchPartnerName(partnerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
	defer cancel()
	if u, err := e.api.User(ctx, partnerID); err == nil {
		e.pair.SetPartnerName(partnerID, u.DisplayName)
	}
}

func (e *Engine) handleRoomMessage(data json.RawMessage) {
	var p models.RoomMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		e.log.Warn().Err(err).Msg("malformed room message")
		return
	}
	if p.Type == typingType {
		if p.SenderID != e.ident.UserID {
			e.notifyTyping(p.SenderID)
		}
		return
	}
	e.applyIncoming(p)
}

func (e *Engine) handleMuted(data json.RawMessage) {
	var p models.MutedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	var until *time.Time
	if p.MutedUntil != nil {
		t := time.UnixMilli(*p.MutedUntil)
		until = &t
	}
	e.mutes.ApplyMute(until)
	e.log.Info().Msg("muted by the server")
}

// applyIncoming reconciles one confirmed message into the displayed list.
// Messages for rooms other than the displayed one are dropped; background
// rooms are never reconciled speculatively.
func (e *Engine) applyIncoming(p models.RoomMessagePayload) {
	e.mu.Lock()
	if p.RoomID != e.roomID {
		e.mu.Unlock()
		return
	}
	e.list = reconcile.Reconcile([]models.Message{p.ToMessage(e.ident.UserID)}, e.list)
	e.mu.Unlock()
	e.notifyList()
}

// onPolled folds a poll result into the list, never replacing it wholesale:
// a slow response must not discard a just-sent optimistic message.
func (e *Engine) onPolled(roomID string, msgs []models.Message) {
	e.mu.Lock()
	if roomID != e.roomID {
		e.mu.Unlock()
		return
	}
	e.list = reconcile.Reconcile(msgs, e.list)
	e.mu.Unlock()
	e.notifyList()
}

func (e *Engine) fetchHistory(ctx context.Context, roomID string) ([]models.Message, error) {
	payloads, err := e.api.RecentMessages(ctx, roomID, config.HistoryPageSize)
	if err != nil {
		return nil, err
	}
	return toMessages(payloads, e.ident.UserID), nil
}

func (e *Engine) appendSystem(text string) {
	e.mu.Lock()
	e.list = reconcile.AppendLocal(e.list, models.Message{
		ID:        models.ProvisionalPrefix + uuid.New().String(),
		Text:      text,
		Sender:    models.SenderSystem,
		Timestamp: time.Now(),
	})
	e.mu.Unlock()
	e.notifyList()
}

func (e *Engine) notifyList() {
	e.mu.Lock()
	list := append([]models.Message(nil), e.list...)
	subs := append(([]func([]models.Message))(nil), e.onList...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(list)
	}
}

func (e *Engine) notifyTyping(userID string) {
	e.mu.Lock()
	subs := append(([]func(string))(nil), e.onTyping...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(userID)
	}
}

func toMessages(payloads []models.RoomMessagePayload, selfID string) []models.Message {
	out := make([]models.Message, 0, len(payloads))
	for _, p := range payloads {
		if p.Type == typingType {
			continue
		}
		out = append(out, p.ToMessage(selfID))
	}
	return out
}
