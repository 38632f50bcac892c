package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	sharedSQLite "github.com/davicafu/hexacert/internal/shared/infra/platform/db/sqlite"
)

// ProgressRepoSQLite guarda un registro por certificado; los pasos van como JSON.
type ProgressRepoSQLite struct {
	db *sql.DB
}

var _ domain.ProgressRepository = (*ProgressRepoSQLite)(nil)

func NewProgressRepoSQLite(db *sql.DB) *ProgressRepoSQLite {
	return &ProgressRepoSQLite{db: db}
}

func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS workflow_progress (
            certificate_id TEXT PRIMARY KEY,
            kind TEXT NOT NULL,
            wallet_endpoint TEXT NOT NULL,
            status TEXT NOT NULL,
            steps TEXT NOT NULL,
            failure_reason TEXT NOT NULL DEFAULT '',
            fault_handled INTEGER NOT NULL DEFAULT 0,
            finished INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )
    `)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_workflow_unfinished ON workflow_progress (finished, created_at)`)
	return err
}

const selectProgress = `SELECT certificate_id, kind, wallet_endpoint, status, steps, failure_reason, fault_handled,
        created_at, updated_at FROM workflow_progress`

func (r *ProgressRepoSQLite) LoadProgress(ctx context.Context, certificateID uuid.UUID) (*domain.WorkflowState, error) {
	row := r.db.QueryRowContext(ctx, selectProgress+` WHERE certificate_id = ?`, certificateID.String())
	st, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProgressNotFound
	}
	return st, err
}

// SaveProgress hace upsert del registro completo.
func (r *ProgressRepoSQLite) SaveProgress(ctx context.Context, st *domain.WorkflowState) error {
	steps, err := json.Marshal(st.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow steps: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO workflow_progress (certificate_id, kind, wallet_endpoint, status, steps, failure_reason,
		   fault_handled, finished, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(certificate_id) DO UPDATE SET
		   status = excluded.status,
		   steps = excluded.steps,
		   failure_reason = excluded.failure_reason,
		   fault_handled = excluded.fault_handled,
		   finished = excluded.finished,
		   updated_at = excluded.updated_at`,
		st.CertificateID.String(), string(st.Kind), st.WalletEndpoint, string(st.Status), string(steps),
		st.FailureReason, st.FaultHandled, st.Finished(),
		sharedSQLite.FormatTime(st.CreatedAt), sharedSQLite.FormatTime(st.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow progress: %w", err)
	}
	return nil
}

func (r *ProgressRepoSQLite) ListUnfinished(ctx context.Context, after domain.ResumeCursor, limit int) ([]*domain.WorkflowState, error) {
	query := selectProgress + ` WHERE finished = 0`
	var args []any
	if !after.IsZero() {
		// created_at tiene ancho fijo, así que el orden del texto es el del tiempo.
		created := sharedSQLite.FormatTime(after.CreatedAt)
		query += ` AND (created_at > ? OR (created_at = ? AND certificate_id > ?))`
		args = append(args, created, created, after.CertificateID.String())
	}
	query += ` ORDER BY created_at, certificate_id LIMIT ?`
	args = append(args, limit)

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
		st                         domain.WorkflowState
		idStr, kind, status, steps string
		created, updated           string
	)
	if err := s.Scan(&idStr, &kind, &st.WalletEndpoint, &status, &steps, &st.FailureReason, &st.FaultHandled,
		&created, &updated); err != nil {
		return nil, err
	}

	var err error
	if st.CertificateID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid UUID in workflow_progress row: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &st.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow steps: %w", err)
	}
	if st.Steps == nil {
		st.Steps = make(map[domain.Step]*domain.StepRecord)
	}
	st.Kind = certDomain.Kind(kind)
	st.Status = domain.Status(status)
	if st.CreatedAt, err = sharedSQLite.ParseTime(created); err != nil {
		return nil, err
	}
	if st.UpdatedAt, err = sharedSQLite.ParseTime(updated); err != nil {
		return nil, err
	}
	return &st, nil
}
