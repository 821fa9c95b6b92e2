package pairing_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"chatgogo/client/internal/models"
	"chatgogo/client/internal/transport"
)

// MockTransport is a testify double for the transport.Transport interface.
// It records registered handlers so tests can fire push events at the
// service under test.
type MockTransport struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[string][]transport.Handler
}

func newMockTransport() *MockTransport {
	return &MockTransport{handlers: make(map[string][]transport.Handler)}
}

func (m *MockTransport) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransport) Send(event string, payload any) error {
	args := m.Called(event, payload)
	return args.Error(0)
}

func (m *MockTransport) On(event string, h transport.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], h)
}

func (m *MockTransport) OnStateChange(func(models.TransportState)) {}

func (m *MockTransport) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockTransport) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

// Fire delivers a push event to every registered handler, as the read pump
// would.
func (m *MockTransport) Fire(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	handlers := append([]transport.Handler(nil), m.handlers[event]...)
	m.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
}
