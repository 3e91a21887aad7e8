package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockGateway is an in-memory Gateway for development and tests. New
// sessions start unpaid; MarkPaid simulates the customer completing
// checkout.
type MockGateway struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMockGateway() *MockGateway {
	return &MockGateway{sessions: make(map[string]*Session)}
}

func (g *MockGateway) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := "mock_" + uuid.NewString()
	s := &Session{
		ID:          id,
		URL:         fmt.Sprintf("https://checkout.mock.local/%s", id),
		Reference:   req.Reference,
		AmountCents: req.AmountCents,
		Status:      StatusUnpaid,
	}
	g.sessions[id] = s
	copied := *s
	return &copied, nil
}

func (g *MockGateway) GetSession(_ context.Context, id string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

// MarkPaid flips a session to paid, as the provider would after a
// successful charge.
func (g *MockGateway) MarkPaid(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = StatusPaid
	return nil
}
