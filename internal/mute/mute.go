// Package mute tracks a server-issued temporary mute and gates outgoing
// sends until it elapses.
package mute

import (
	"sync"
	"time"

	"chatgogo/client/internal/models"
)

// Enforcer holds at most one MuteRecord. The expiry it trusts is the
// server-issued timestamp, never a locally started countdown; expired records
// self-heal on the next IsMuted check, so no timer has to fire for
// correctness.
type Enforcer struct {
	mu  sync.Mutex
	rec *models.MuteRecord
	now func() time.Time
}

func NewEnforcer() *Enforcer {
	return &Enforcer{now: time.Now}
}

// ApplyMute stores a server-issued mute. A nil until means the mute has no
// known end (permanent).
func (e *Enforcer) ApplyMute(until *time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec = &models.MuteRecord{Until: until}
}

// Clear drops any stored mute.
func (e *Enforcer) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec = nil
}

// IsMuted returns the active mute record, or nil when the user may send.
// A record whose expiry has passed is cleared as a side effect of the check,
// so callers re-checking right before a send see the lift immediately.
func (e *Enforcer) IsMuted() *models.MuteRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec == nil {
		return nil
	}
	if e.rec.Until != nil && !e.rec.Until.After(e.now()) {
		e.rec = nil
		return nil
	}
	rec := *e.rec
	return &rec
}
