package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davicafu/hexacert/internal/shared/domain"
	"github.com/google/uuid"
)

// OutboxRepoSQLite implementa la interfaz domain.OutboxRepository.
type OutboxRepoSQLite struct {
	db *sql.DB
}

func NewOutboxRepoSQLite(db *sql.DB) *OutboxRepoSQLite {
	return &OutboxRepoSQLite{db: db}
}

// PollUndelivered obtiene los mensajes no entregados, los más antiguos primero.
// Una fila dañada no hace fallar el lote: el payload se devuelve tal cual y el worker
// lo descarta al validarlo.
func (r *OutboxRepoSQLite) PollUndelivered(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, message_type, destination, payload, enqueued_at
         FROM outbox
         WHERE delivered_at IS NULL
         ORDER BY enqueued_at, rowid
         LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	var unreadable []string
	for rows.Next() {
		var msg domain.OutboxMessage
		var idStr, payloadStr, enqueuedStr string

		if err := rows.Scan(&idStr, &msg.AggregateID, &msg.MessageType, &msg.Destination, &payloadStr, &enqueuedStr); err != nil {
			return nil, err
		}

		// El ID se guarda como TEXT, por lo que lo parseamos de nuevo.
		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			unreadable = append(unreadable, idStr)
			continue
		}
		msg.ID = parsedID
		msg.Payload = json.RawMessage(payloadStr)
		msg.EnqueuedAt, _ = ParseTime(enqueuedStr)

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// Las filas con ID ilegible no llegan al worker: se marcan aquí para que no tapen la cola.
	for _, id := range unreadable {
		if _, err := r.db.ExecContext(ctx, `UPDATE outbox SET delivered_at = ? WHERE id = ?`,
			FormatTime(time.Now()), id); err != nil {
			return nil, fmt.Errorf("failed to discard unreadable outbox row %q: %w", id, err)
		}
	}

	return messages, nil
}

// MarkDelivered marca un mensaje como entregado. Es idempotente: un segundo marcado no cambia la fecha.
func (r *OutboxRepoSQLite) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET delivered_at = COALESCE(delivered_at, ?) WHERE id = ?`,
		FormatTime(at), id.String(),
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
var _ domain.OutboxRepository = (*OutboxRepoSQLite)(nil)
