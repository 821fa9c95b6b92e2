package reconcile_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatgogo/client/internal/models"
	"chatgogo/client/internal/reconcile"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func confirmed(id, text string, sender models.Sender, ts time.Time) models.Message {
	return models.Message{ID: id, Text: text, Sender: sender, Timestamp: ts}
}

// TestAppendLocal verifies the optimistic append path.
func TestAppendLocal(t *testing.T) {
	msg := reconcile.NewProvisional("hi", "me", t0)

	assert.True(t, msg.Provisional(), "client-generated message should carry the provisional prefix")
	assert.True(t, strings.HasPrefix(msg.ID, models.ProvisionalPrefix))
	assert.Equal(t, models.SenderSelf, msg.Sender)

	list := reconcile.AppendLocal(nil, msg)
	assert.Len(t, list, 1)
	assert.Equal(t, msg, list[0])
}

// TestReconcileReplacesProvisionalInPlace covers the happy path: a confirmed
// copy arrives shortly after the optimistic entry and replaces it at the same
// position, carrying the server id.
func TestReconcileReplacesProvisionalInPlace(t *testing.T) {
	prov := reconcile.NewProvisional("hi", "me", t0)
	list := []models.Message{
		confirmed("1", "earlier", models.SenderOther, t0.Add(-time.Minute)),
		prov,
		confirmed("2", "later", models.SenderOther, t0.Add(time.Second)),
	}

	in := confirmed("42", "hi", models.SenderSelf, t0.Add(time.Second))
	out := reconcile.Reconcile([]models.Message{in}, list)

	assert.Len(t, out, 3, "replacement must not grow the list")
	assert.Equal(t, "42", out[1].ID, "confirmed id should land at the provisional position")
	assert.Equal(t, "hi", out[1].Text)
	assert.False(t, out[1].Provisional())
}

// TestReconcileIdempotent verifies reconcile(m, reconcile(m, L)) == reconcile(m, L).
func TestReconcileIdempotent(t *testing.T) {
	list := []models.Message{reconcile.NewProvisional("hi", "me", t0)}
	in := []models.Message{confirmed("42", "hi", models.SenderSelf, t0.Add(time.Second))}

	once := reconcile.Reconcile(in, list)
	twice := reconcile.Reconcile(in, once)

	assert.Equal(t, once, twice)
	assert.Len(t, twice, 1)
}

// TestReconcileAppendsUnmatched ensures messages from the partner and
// unmatched confirmations are appended at the end.
func TestReconcileAppendsUnmatched(t *testing.T) {
	list := []models.Message{confirmed("1", "a", models.SenderOther, t0)}

	out := reconcile.Reconcile([]models.Message{
		confirmed("2", "b", models.SenderOther, t0.Add(time.Second)),
	}, list)

	assert.Len(t, out, 2)
	assert.Equal(t, "2", out[1].ID)
}

// TestReconcileNeverMergesDifferentMessages exercises the strictness guards:
// different text, different direction, or a timestamp outside the tolerance
// window must not collapse into the provisional entry.
func TestReconcileNeverMergesDifferentMessages(t *testing.T) {
	cases := []struct {
		name string
		in   models.Message
	}{
		{"different text", confirmed("42", "hi there", models.SenderSelf, t0.Add(time.Second))},
		{"different direction", confirmed("42", "hi", models.SenderOther, t0.Add(time.Second))},
		{"outside window", confirmed("42", "hi", models.SenderSelf, t0.Add(time.Minute))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list := []models.Message{reconcile.NewProvisional("hi", "me", t0)}
			out := reconcile.Reconcile([]models.Message{tc.in}, list)

			assert.Len(t, out, 2, "must append, not merge")
			assert.True(t, out[0].Provisional(), "provisional entry must survive")
		})
	}
}

// TestProvisionalSurvivesWithoutConfirmation: the degraded path. A
// provisional entry that never matches stays in the list indefinitely.
func TestProvisionalSurvivesWithoutConfirmation(t *testing.T) {
	prov := reconcile.NewProvisional("hi", "me", t0)
	list := []models.Message{prov}

	for i := 0; i < 5; i++ {
		list = reconcile.Reconcile([]models.Message{
			confirmed("1", "unrelated", models.SenderOther, t0),
		}, list)
	}

	assert.Equal(t, prov, list[0])
	assert.Len(t, list, 2)
}

// TestReconcileDoesNotMutateInputs guards the pure-function contract.
func TestReconcileDoesNotMutateInputs(t *testing.T) {
	prov := reconcile.NewProvisional("hi", "me", t0)
	list := []models.Message{prov}

	reconcile.Reconcile([]models.Message{
		confirmed("42", "hi", models.SenderSelf, t0),
	}, list)

	assert.Equal(t, prov, list[0], "caller's slice must be untouched")
}
