// Package reconcile merges locally-originated optimistic messages with the
// confirmed server copies of the same messages, without ever showing a user
// their own message twice.
//
// The provisional→confirmed match is a deliberate heuristic (direction +
// exact text + timestamp window). It tolerates false negatives — an unmatched
// provisional entry simply stays in the list — but must never merge two
// genuinely different messages. Callers should treat this package as the only
// place that knows about the heuristic, so a server-assigned correlation id
// can replace it later without touching them.
package reconcile

import (
	"time"

	"github.com/google/uuid"

	"chatgogo/client/internal/config"
	"chatgogo/client/internal/models"
)

// NewProvisional builds an optimistic display message with a client-generated
// provisional id.
func NewProvisional(text, displayName string, now time.Time) models.Message {
	return models.Message{
		ID:          models.ProvisionalPrefix + uuid.New().String(),
		Text:        text,
		Sender:      models.SenderSelf,
		Timestamp:   now,
		DisplayName: displayName,
	}
}

// AppendLocal appends a provisional message to the list. The returned slice
// is a copy; the input is never mutated.
func AppendLocal(current []models.Message, msg models.Message) []models.Message {
	out := make([]models.Message, 0, len(current)+1)
	out = append(out, current...)
	return append(out, msg)
}

// Reconcile folds incoming confirmed messages into the current list.
//
// For each incoming message not already present by id: if a provisional entry
// with the same direction, identical text and a timestamp within
// config.ReconcileWindow exists, it is replaced in place (same position) by
// the confirmed copy; otherwise the confirmed message is appended. The result
// is a new slice; neither input is mutated.
func Reconcile(incoming, current []models.Message) []models.Message {
	out := make([]models.Message, len(current))
	copy(out, current)

	for _, in := range incoming {
		if containsID(out, in.ID) {
			continue
		}
		if idx := matchProvisional(out, in); idx >= 0 {
			out[idx] = in
			continue
		}
		out = append(out, in)
	}
	return out
}

func containsID(list []models.Message, id string) bool {
	if id == "" {
		return false
	}
	for _, m := range list {
		if m.ID == id {
			return true
		}
	}
	return false
}

// matchProvisional finds the first provisional entry that plausibly is the
// incoming confirmed message. Direction and exact text equality are the
// strictness guards against merging two different messages.
func matchProvisional(list []models.Message, in models.Message) int {
	for i, m := range list {
		if !m.Provisional() {
			continue
		}
		if m.Sender != in.Sender || m.Text != in.Text {
			continue
		}
		d := in.Timestamp.Sub(m.Timestamp)
		if d < 0 {
			d = -d
		}
		if d <= config.ReconcileWindow {
			return i
		}
	}
	return -1
}
