package clickhouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/davicafu/hexacert/internal/issuance/domain"
)

// OutcomeAnalyticsRepo guarda los resultados finales de emisión en ClickHouse.
type OutcomeAnalyticsRepo struct {
	db *sql.DB
}

func NewOutcomeAnalyticsRepo(addr string, dbName string) (*OutcomeAnalyticsRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &OutcomeAnalyticsRepo{db: conn}, nil
}

// InitSchema crea la tabla si no existe. Se particiona por mes y se ordena por resultado.
func (r *OutcomeAnalyticsRepo) InitSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS issuance_outcomes (
			certificate_id UUID,
			kind           LowCardinality(String),
			result         LowCardinality(String),
			reason         String,
			grid_area      LowCardinality(String),
			quantity       Int64,
			occurred_at    DateTime64(3)
		) ENGINE = ReplacingMergeTree()
		PARTITION BY toYYYYMM(occurred_at)
		ORDER BY (result, grid_area, certificate_id);
	`)
	return err
}

// RecordOutcome inserta una fila. ReplacingMergeTree absorbe las redeliveries del mismo certificado.
func (r *OutcomeAnalyticsRepo) RecordOutcome(ctx context.Context, rec domain.OutcomeRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO issuance_outcomes (certificate_id, kind, result, reason, grid_area, quantity, occurred_at)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, rec.CertificateID, rec.Kind, rec.Result, rec.Reason, rec.GridArea, rec.Quantity, rec.OccurredAt); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record outcome for %s: %w", rec.CertificateID, err)
	}
	return tx.Commit()
}

func (r *OutcomeAnalyticsRepo) Close() error {
	return r.db.Close()
}

// Verificación estática de la interfaz.
var _ domain.OutcomeRecorder = (*OutcomeAnalyticsRepo)(nil)
