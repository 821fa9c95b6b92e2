package engine_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"chatgogo/client/internal/models"
	"chatgogo/client/internal/transport"
)

// MockTransport is a testify double for transport.Transport that lets tests
// fire push events at the engine the way the read pump would.
type MockTransport struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[string][]transport.Handler
}

func newMockTransport() *MockTransport {
	return &MockTransport{handlers: make(map[string][]transport.Handler)}
}

func (m *MockTransport) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTransport) Send(event string, payload any) error {
	return m.Called(event, payload).Error(0)
}

func (m *MockTransport) On(event string, h transport.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], h)
}

func (m *MockTransport) OnStateChange(func(models.TransportState)) {}

func (m *MockTransport) Connected() bool {
	return m.Called().Bool(0)
}

func (m *MockTransport) Disconnect() error {
	return m.Called().Error(0)
}

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

// MockAPI is a testify double for the engine.API interface.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.RoomMessagePayload, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoomMessagePayload), args.Error(1)
}

func (m *MockAPI) SendMessage(ctx context.Context, msg models.RoomMessagePayload) (*models.RoomMessagePayload, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomMessagePayload), args.Error(1)
}

func (m *MockAPI) Room(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockAPI) User(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAPI) CreateDM(ctx context.Context, selfID, otherID string) (*models.ChatRoom, error) {
	args := m.Called(ctx, selfID, otherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}
