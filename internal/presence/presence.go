// Package presence decides whether background work is worth doing right now.
package presence

import "sync/atomic"

// Gate reports whether the user is plausibly looking at the chat. The polling
// scheduler consults it before every tick and skips the network call entirely
// when it returns false.
type Gate interface {
	Active() bool
}

// Tracker is the default Gate. The host shell feeds it visibility and focus
// signals; until told otherwise it assumes a visible, focused window.
type Tracker struct {
	hidden    atomic.Bool
	unfocused atomic.Bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// SetVisible records whether the document is visible.
func (t *Tracker) SetVisible(visible bool) {
	t.hidden.Store(!visible)
}

// SetFocused records whether the window has focus.
func (t *Tracker) SetFocused(focused bool) {
	t.unfocused.Store(!focused)
}

// Active reports true only when the document is visible and the window is
// focused.
func (t *Tracker) Active() bool {
	return !t.hidden.Load() && !t.unfocused.Load()
}
