package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davicafu/hexacert/internal/shared/domain"
	"github.com/google/uuid"
)

// OutboxRepoPostgres implementa la interfaz domain.OutboxRepository.
type OutboxRepoPostgres struct {
	db *sql.DB
}

func NewOutboxRepoPostgres(db *sql.DB) *OutboxRepoPostgres {
	return &OutboxRepoPostgres{db: db}
}

// PollUndelivered obtiene los mensajes no entregados de la tabla outbox.
func (r *OutboxRepoPostgres) PollUndelivered(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, message_type, destination, payload, enqueued_at
		 FROM outbox WHERE delivered_at IS NULL ORDER BY enqueued_at LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		var payloadBytes []byte // El payload se lee como JSONB

		if err := rows.Scan(&msg.ID, &msg.AggregateID, &msg.MessageType, &msg.Destination, &payloadBytes, &msg.EnqueuedAt); err != nil {
			return nil, err
		}
		msg.Payload = json.RawMessage(payloadBytes)

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// MarkDelivered marca un mensaje como entregado.
func (r *OutboxRepoPostgres) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET delivered_at = COALESCE(delivered_at, $1) WHERE id = $2`, at, id,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOutboxMessageNotFound, id)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ domain.OutboxRepository = (*OutboxRepoPostgres)(nil)
