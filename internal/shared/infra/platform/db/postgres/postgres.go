package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL

	"github.com/davicafu/hexacert/internal/shared/domain"
)

// Open abre un pool database/sql sobre pgx.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not ping postgres: %w", err)
	}
	return db, nil
}

// InitOutbox crea la tabla outbox si no existe.
func InitOutbox(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS outbox (
			id UUID PRIMARY KEY,
			aggregate_id TEXT NOT NULL,
			message_type TEXT NOT NULL,
			destination TEXT NOT NULL,
			payload JSONB NOT NULL,
			enqueued_at TIMESTAMP WITH TIME ZONE NOT NULL,
			delivered_at TIMESTAMP WITH TIME ZONE
		);
		CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (enqueued_at) WHERE delivered_at IS NULL;
	`)
	return err
}

// InsertOutboxTx inserta el mensaje dentro de la transacción del cambio de estado que lo produjo.
func InsertOutboxTx(ctx context.Context, tx *sql.Tx, msg domain.OutboxMessage) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox (id, aggregate_id, message_type, destination, payload, enqueued_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.AggregateID, msg.MessageType, msg.Destination, []byte(msg.Payload), msg.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}
	return nil
}
