package session

import (
	"net/url"
	"sync"

	"github.com/rs/zerolog"
)

// Navigator abstracts the URL bar of the host shell. Apply replaces the
// current query; it may fail (navigation blocked mid-transition) and the
// store treats that as non-fatal.
type Navigator interface {
	Query() url.Values
	Apply(url.Values) error
}

// Store couples the encode/decode pair to a Navigator. Writes are
// fire-and-forget: a failed navigation write is logged and the in-memory
// state stays authoritative for the current tab.
type Store struct {
	nav Navigator
	log zerolog.Logger
}

func NewStore(nav Navigator, log zerolog.Logger) *Store {
	return &Store{nav: nav, log: log}
}

// Write encodes the state into the URL. Never blocks on the navigator's
// outcome beyond the call itself and never returns an error.
func (s *Store) Write(st *State) {
	if err := s.nav.Apply(Encode(st, s.nav.Query())); err != nil {
		s.log.Debug().Err(err).Msg("session url write failed, in-memory state stays authoritative")
	}
}

// Read decodes the current URL state, or nil.
func (s *Store) Read() *State {
	return Decode(s.nav.Query())
}

// MemoryNavigator is a Navigator backed by an in-process query, used by the
// terminal client and by tests.
type MemoryNavigator struct {
	mu sync.Mutex
	q  url.Values
}

func NewMemoryNavigator() *MemoryNavigator {
	return &MemoryNavigator{q: url.Values{}}
}

func (n *MemoryNavigator) Query() url.Values {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := url.Values{}
	for k, v := range n.q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (n *MemoryNavigator) Apply(q url.Values) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.q = q
	return nil
}
