package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	"github.com/davicafu/hexacert/internal/shared/domain"
)

// TimeLayout es de ancho fijo para que el orden lexicográfico coincida con el cronológico.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Open abre la base de datos SQLite. Con ":memory:" limita el pool a una conexión,
// porque cada conexión tendría su propia base de datos.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitOutbox crea la tabla outbox si no existe.
func InitOutbox(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS outbox (
            id TEXT PRIMARY KEY,
            aggregate_id TEXT NOT NULL,
            message_type TEXT NOT NULL,
            destination TEXT NOT NULL,
            payload TEXT NOT NULL,
            enqueued_at TEXT NOT NULL,
            delivered_at TEXT
        )
    `)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (delivered_at, enqueued_at)`)
	return err
}

// InsertOutboxTx inserta el mensaje dentro de la transacción del cambio de estado que lo produjo.
func InsertOutboxTx(ctx context.Context, tx *sql.Tx, msg domain.OutboxMessage) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox (id, aggregate_id, message_type, destination, payload, enqueued_at, delivered_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		msg.ID.String(), msg.AggregateID, msg.MessageType, msg.Destination, string(msg.Payload), FormatTime(msg.EnqueuedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}
	return nil
}
