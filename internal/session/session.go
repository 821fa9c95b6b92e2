// Package session encodes the minimal resumable chat state into the
// navigable URL and restores it on mount. The URL is treated as a
// serialization target with an explicit encode/decode pair, never parsed ad
// hoc elsewhere.
package session

import "net/url"

// Query parameters owned by this package.
const (
	paramDM      = "dm"
	paramRandom  = "random"
	paramPartner = "partner"
)

// Kind tags the State union.
type Kind int

const (
	// KindDM resumes a direct-message room by id.
	KindDM Kind = iota
	// KindRandom resumes a random pairing by partner id. The original
	// room id is not recoverable from the URL.
	KindRandom
)

// State is the resumable session identity: exactly one of a DM room or a
// random-chat partner.
type State struct {
	Kind      Kind
	DMRoomID  string
	PartnerID string
}

// DM builds a DM state.
func DM(roomID string) *State {
	return &State{Kind: KindDM, DMRoomID: roomID}
}

// Random builds a random-pairing state.
func Random(partnerID string) *State {
	return &State{Kind: KindRandom, PartnerID: partnerID}
}

// Encode applies the state to a copy of the given query. All owned
// parameters are cleared first, so setting one side of the union removes the
// other entirely. A nil state clears everything.
func Encode(s *State, q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	out.Del(paramDM)
	out.Del(paramRandom)
	out.Del(paramPartner)

	if s == nil {
		return out
	}
	switch s.Kind {
	case KindDM:
		out.Set(paramDM, s.DMRoomID)
	case KindRandom:
		out.Set(paramRandom, "1")
		out.Set(paramPartner, s.PartnerID)
	}
	return out
}

// Decode reads the session state from a query, or nil when none is present.
// A dm parameter wins over a stray random/partner pair; Encode never
// produces both.
func Decode(q url.Values) *State {
	if id := q.Get(paramDM); id != "" {
		return DM(id)
	}
	if q.Get(paramRandom) != "" {
		if partner := q.Get(paramPartner); partner != "" {
			return Random(partner)
		}
	}
	return nil
}
