package postgre

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
)

type ProgressRepoPostgres struct {
	db *sql.DB
}

var _ domain.ProgressRepository = (*ProgressRepoPostgres)(nil)

func NewProgressRepoPostgres(db *sql.DB) *ProgressRepoPostgres {
	return &ProgressRepoPostgres{db: db}
}

func InitPostgres(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS workflow_progress (
			certificate_id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			wallet_endpoint TEXT NOT NULL,
			status TEXT NOT NULL,
			steps JSONB NOT NULL,
			failure_reason TEXT NOT NULL DEFAULT '',
			fault_handled BOOLEAN NOT NULL DEFAULT FALSE,
			finished BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_unfinished ON workflow_progress (created_at) WHERE NOT finished;
	`)
	return err
}

const selectProgress = `SELECT certificate_id, kind, wallet_endpoint, status, steps, failure_reason, fault_handled,
        created_at, updated_at FROM workflow_progress`

func (r *ProgressRepoPostgres) LoadProgress(ctx context.Context, certificateID uuid.UUID) (*domain.WorkflowState, error) {
	st, err := scanProgress(r.db.QueryRowContext(ctx, selectProgress+` WHERE certificate_id = $1`, certificateID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProgressNotFound
	}
	return st, err
}

func (r *ProgressRepoPostgres) SaveProgress(ctx context.Context, st *domain.WorkflowState) error {
	steps, err := json.Marshal(st.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow steps: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO workflow_progress (certificate_id, kind, wallet_endpoint, status, steps, failure_reason,
		   fault_handled, finished, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (certificate_id) DO UPDATE SET
		   status = EXCLUDED.status,
		   steps = EXCLUDED.steps,
		   failure_reason = EXCLUDED.failure_reason,
		   fault_handled = EXCLUDED.fault_handled,
		   finished = EXCLUDED.finished,
		   updated_at = EXCLUDED.updated_at`,
		st.CertificateID, string(st.Kind), st.WalletEndpoint, string(st.Status), steps,
		st.FailureReason, st.FaultHandled, st.Finished(), st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow progress: %w", err)
	}
	return nil
}

func (r *ProgressRepoPostgres) ListUnfinished(ctx context.Context, after domain.ResumeCursor, limit int) ([]*domain.WorkflowState, error) {
	query := selectProgress + ` WHERE NOT finished`
	args := []any{limit}
	if !after.IsZero() {
		query += ` AND (created_at, certificate_id) > ($2, $3)`
		args = append(args, after.CreatedAt, after.CertificateID)
	}
	query += ` ORDER BY created_at, certificate_id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*domain.WorkflowState
	for rows.Next() {
		st, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(s scanner) (*domain.WorkflowState, error) {
	var (
		st           domain.WorkflowState
		kind, status string
		steps        []byte
	)
	if err := s.Scan(&st.CertificateID, &kind, &st.WalletEndpoint, &status, &steps, &st.FailureReason,
		&st.FaultHandled, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(steps, &st.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow steps: %w", err)
	}
	if st.Steps == nil {
		st.Steps = make(map[domain.Step]*domain.StepRecord)
	}
	st.Kind = certDomain.Kind(kind)
	st.Status = domain.Status(status)
	st.CreatedAt, st.UpdatedAt = st.CreatedAt.UTC(), st.UpdatedAt.UTC()
	return &st, nil
}
