package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrOutboxMessageNotFound = errors.New("outbox message not found")

// OutboxMessage representa un mensaje pendiente de entregar a su destino.
// Se escribe en la misma transacción que el cambio de estado que lo produjo.
type OutboxMessage struct {
	ID          uuid.UUID       `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	MessageType string          `json:"message_type"` // ej. "certificate.created"
	Destination string          `json:"destination"`  // topic o dirección de entrega
	Payload     json.RawMessage `json:"payload"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"` // nil mientras no se haya entregado
}

func (m OutboxMessage) Delivered() bool {
	return m.DeliveredAt != nil
}

// NewOutboxMessage serializa el payload y rellena los campos comunes.
func NewOutboxMessage(aggregateID, messageType, destination string, payload interface{}) (OutboxMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		MessageType: messageType,
		Destination: destination,
		Payload:     data,
		EnqueuedAt:  time.Now().UTC(),
	}, nil
}

// OutboxRepository es el contrato que necesita el dispatcher.
// Solo el dispatcher marca mensajes como entregados.
type OutboxRepository interface {
	PollUndelivered(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
}
