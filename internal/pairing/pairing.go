// Package pairing drives the lifecycle of an anonymous match on the client:
// it issues the join request, consumes the matched/timeout/partner-left/ended
// events from the push channel and exposes the current pairing state.
package pairing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatgogo/client/internal/models"
	"chatgogo/client/internal/session"
	"chatgogo/client/internal/transport"
)

// OnChange observes state transitions. Invoked outside the service lock with
// a copy of the session, never the live struct.
type OnChange func(state models.PairingState, sess *models.PairingSession)

// Service is the client half of the matching protocol the backend's matcher
// implements. One instance per client; at most one session at a time.
type Service struct {
	selfID string
	tr     transport.Transport
	urls   *session.Store
	log    zerolog.Logger

	mu       sync.Mutex
	state    models.PairingState
	session  *models.PairingSession
	onChange []OnChange
}

func NewService(selfID string, tr transport.Transport, urls *session.Store, log zerolog.Logger) *Service {
	s := &Service{
		selfID: selfID,
		tr:     tr,
		urls:   urls,
		log:    log,
		state:  models.PairingIdle,
	}
	s.bind()
	return s
}

// bind registers the push-channel handlers. A dropped and re-established
// connection keeps the handlers; it never re-requests a match by itself.
func (s *Service) bind() {
	s.tr.On(models.EventRandomMatched, s.handleMatched)
	s.tr.On(models.EventRandomTimeout, s.handleTimeout)
	s.tr.On(models.EventRoomPartnerLeft, s.handlePartnerLeft)
	s.tr.On(models.EventRoomEnded, s.handleEnded)
}

// OnChange subscribes to state transitions.
func (s *Service) OnChange(fn OnChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// State returns the current lifecycle state.
func (s *Service) State() models.PairingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns a copy of the current session, or nil.
func (s *Service) Session() *models.PairingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.session)
}

// CanSend reports whether outgoing messages are allowed right now.
func (s *Service) CanSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.CanSend()
}

// RequestMatch enters the searching state and emits the join request. Any
// previous session is retired first; the engine never queues more than one
// pairing request. The connection is established lazily here on first need.
//
// No client-side timeout: the state stays searching until the server answers
// with a matched or timeout event.
func (s *Service) RequestMatch(ctx context.Context) error {
	if !s.tr.Connected() {
		if err := s.tr.Connect(ctx); err != nil {
			return fmt.Errorf("request match: %w", err)
		}
	}

	s.mu.Lock()
	s.session = nil
	s.state = models.PairingSearching
	s.mu.Unlock()
	s.notify()

	if err := s.tr.Send(models.EventRandomJoin, models.RandomJoinPayload{UserID: s.selfID}); err != nil {
		s.mu.Lock()
		s.state = models.PairingIdle
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("request match: %w", err)
	}
	s.log.Info().Str("user_id", s.selfID).Msg("searching for a partner")
	return nil
}

// NextPartner ends the current room (best effort, fire-and-forget) and
// re-requests a match.
func (s *Service) NextPartner(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess != nil && !sess.Synthesized() && s.tr.Connected() {
		// Failure to deliver the end signal never blocks re-matching.
		if err := s.tr.Send(models.EventRoomEnd, models.RoomEndPayload{RoomID: sess.RoomID}); err != nil {
			s.log.Debug().Err(err).Str("room_id", sess.RoomID).Msg("best-effort room end not delivered")
		}
	}
	return s.RequestMatch(ctx)
}

// Close retires the session entirely: state back to idle, URL session state
// cleared.
func (s *Service) Close() {
	s.mu.Lock()
	s.session = nil
	s.state = models.PairingIdle
	s.mu.Unlock()

	s.urls.Write(nil)
	s.notify()
}

// Restore rebuilds a best-effort session from a partner id persisted in the
// URL. The original room id is not recoverable, so a client-local one is
// synthesized for display and the session is treated as read-only history:
// sends stay blocked until the user explicitly requests a new partner.
func (s *Service) Restore(partnerID string) {
	s.mu.Lock()
	s.session = &models.PairingSession{
		RoomID:    models.ProvisionalPrefix + uuid.New().String(),
		SelfID:    s.selfID,
		PartnerID: partnerID,
		State:     models.PairingPartnerLeft,
		CreatedAt: time.Now(),
	}
	s.state = models.PairingPartnerLeft
	s.mu.Unlock()
	s.notify()
}

// SetPartnerName fills in the lazily fetched display name. Subscribers are
// re-notified only when the name actually changed; a no-op fill never replays
// the current state.
func (s *Service) SetPartnerName(partnerID, name string) {
	s.mu.Lock()
	changed := s.session != nil && s.session.PartnerID == partnerID && s.session.PartnerDisplayName != name
	if changed {
		s.session.PartnerDisplayName = name
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *Service) handleMatched(data json.RawMessage) {
	var p models.RandomMatchedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Warn().Err(err).Msg("malformed matched event")
		return
	}

	s.mu.Lock()
	// The server is authoritative for match state; accept the match even
	// if a stale searching flag was already cleared locally.
	s.session = &models.PairingSession{
		RoomID:    p.RoomID,
		SelfID:    s.selfID,
		PartnerID: p.PartnerID,
		State:     models.PairingActive,
		CreatedAt: time.Now(),
	}
	s.state = models.PairingActive
	s.mu.Unlock()

	s.urls.Write(session.Random(p.PartnerID))
	s.log.Info().Str("room_id", p.RoomID).Str("partner_id", p.PartnerID).Msg("matched")
	s.notify()
}

func (s *Service) handleTimeout(json.RawMessage) {
	s.mu.Lock()
	if s.state != models.PairingSearching {
		s.mu.Unlock()
		return
	}
	s.state = models.PairingIdle
	s.mu.Unlock()

	s.log.Info().Msg("match search timed out")
	s.notify()
}

func (s *Service) handlePartnerLeft(data json.RawMessage) {
	var p models.RoomPartnerLeftPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	s.mu.Lock()
	if s.session == nil || s.session.RoomID != p.RoomID {
		s.mu.Unlock()
		return
	}
	// History stays addressable; only sends are blocked from here on.
	s.session.State = models.PairingPartnerLeft
	s.state = models.PairingPartnerLeft
	s.mu.Unlock()

	s.log.Info().Str("room_id", p.RoomID).Msg("partner left")
	s.notify()
}

func (s *Service) handleEnded(data json.RawMessage) {
	var p models.RoomEndedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	s.mu.Lock()
	if s.session == nil || s.session.RoomID != p.RoomID {
		s.mu.Unlock()
		return
	}
	s.session.State = models.PairingEnded
	s.state = models.PairingEnded
	s.mu.Unlock()

	s.log.Info().Str("room_id", p.RoomID).Msg("room ended")
	s.notify()
}

func (s *Service) notify() {
	s.mu.Lock()
	state := s.state
	sess := copySession(s.session)
	subs := append([]OnChange(nil), s.onChange...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state, sess)
	}
}

func copySession(sess *models.PairingSession) *models.PairingSession {
	if sess == nil {
		return nil
	}
	out := *sess
	return &out
}
