// Package poller pulls message history for a room on a fixed interval. It is
// the correctness backstop behind the push channel: gated by presence, fed
// through the reconciler by its caller, and never the source of a wholesale
// list replacement.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatgogo/client/internal/models"
	"chatgogo/client/internal/presence"
)

// FetchFunc pulls recent history for a room.
type FetchFunc func(ctx context.Context, roomID string) ([]models.Message, error)

// OnMessages receives a successful poll result. The room id is passed back so
// the caller can discard results for a room it no longer displays.
type OnMessages func(roomID string, msgs []models.Message)

// Scheduler polls at most one room at a time. Starting a poll for a new room
// implicitly stops the previous one.
type Scheduler struct {
	gate     presence.Gate
	fetch    FetchFunc
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

func New(gate presence.Gate, fetch FetchFunc, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{gate: gate, fetch: fetch, interval: interval, log: log}
}

// Start begins polling roomID: one immediate pass, then one per interval.
// Any previous poll loop is cancelled first.
func (s *Scheduler) Start(roomID string, onMessages OnMessages) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx, gen, roomID, onMessages)
}

// Stop cancels the current poll loop, if any.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *Scheduler) run(ctx context.Context, gen uint64, roomID string, onMessages OnMessages) {
	s.tick(ctx, gen, roomID, onMessages)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, gen, roomID, onMessages)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, gen uint64, roomID string, onMessages OnMessages) {
	// Presence gate: skip the network call entirely, not just the UI
	// update, when nobody is looking.
	if !s.gate.Active() {
		return
	}

	msgs, err := s.fetch(ctx, roomID)
	if err != nil {
		// Swallow and retry next tick; a flaky poll never stops the
		// scheduler and never surfaces to the user.
		s.log.Debug().Err(err).Str("room_id", roomID).Msg("poll fetch failed")
		return
	}

	// A response that raced a room switch or a Stop is stale; dropping it
	// here keeps old-room history out of the new room's list.
	if !s.current(gen) || ctx.Err() != nil {
		return
	}
	onMessages(roomID, msgs)
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}
