package mocks

import (
	"context"
	"time"

	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOutboxRepository simula el repo de outbox que usa el dispatcher
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) PollUndelivered(ctx context.Context, limit int) ([]sharedDomain.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]sharedDomain.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockPublisher simula un publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, event interface{}) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}
