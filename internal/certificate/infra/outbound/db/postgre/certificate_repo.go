package postgre

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/davicafu/hexacert/internal/certificate/domain"
	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	sharedPostgres "github.com/davicafu/hexacert/internal/shared/infra/platform/db/postgres"
)

type CertificateRepoPostgres struct {
	db *sql.DB
}

var _ domain.CertificateRepository = (*CertificateRepoPostgres)(nil)

func NewCertificateRepoPostgres(db *sql.DB) *CertificateRepoPostgres {
	return &CertificateRepoPostgres{db: db}
}

// InitPostgres crea las tablas de certificados y outbox.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS certificates (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			grid_area TEXT NOT NULL,
			period_from TIMESTAMP WITH TIME ZONE NOT NULL,
			period_to TIMESTAMP WITH TIME ZONE NOT NULL,
			metering_point_owner TEXT NOT NULL,
			gsrn TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			blinding_value BYTEA NOT NULL,
			fuel_code TEXT,
			tech_code TEXT,
			issued_state TEXT NOT NULL,
			rejection_reason TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	return sharedPostgres.InitOutbox(ctx, db)
}

func (r *CertificateRepoPostgres) Create(ctx context.Context, c *domain.Certificate, msg sharedDomain.OutboxMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	snap := c.Snapshot()
	var fuel, tech sql.NullString
	if snap.Technology != nil {
		fuel = sql.NullString{String: snap.Technology.FuelCode, Valid: true}
		tech = sql.NullString{String: snap.Technology.TechCode, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO certificates (id, kind, grid_area, period_from, period_to, metering_point_owner, gsrn, quantity,
		   blinding_value, fuel_code, tech_code, issued_state, rejection_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL, $13, $14)
		 ON CONFLICT (id) DO NOTHING`,
		snap.ID, string(snap.Kind), snap.GridArea, snap.Period.From, snap.Period.To, snap.MeteringPointOwner, snap.GSRN,
		snap.Quantity, snap.BlindingValue, fuel, tech, string(snap.IssuedState), snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert certificate: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrCertificateAlreadyExists
	}

	if err := sharedPostgres.InsertOutboxTx(ctx, tx, msg); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CertificateRepoPostgres) FindByID(ctx context.Context, id uuid.UUID, kind domain.Kind) (*domain.Certificate, error) {
	var (
		s                           domain.Snapshot
		k, state                    string
		fuel, tech, rejectionReason sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, grid_area, period_from, period_to, metering_point_owner, gsrn, quantity, blinding_value,
		        fuel_code, tech_code, issued_state, rejection_reason, created_at, updated_at
		 FROM certificates WHERE id = $1 AND kind = $2`,
		id, string(kind),
	).Scan(&s.ID, &k, &s.GridArea, &s.Period.From, &s.Period.To, &s.MeteringPointOwner, &s.GSRN, &s.Quantity,
		&s.BlindingValue, &fuel, &tech, &state, &rejectionReason, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}

	s.Kind = domain.Kind(k)
	s.IssuedState = domain.IssuedState(state)
	if fuel.Valid || tech.Valid {
		s.Technology = &domain.Technology{FuelCode: fuel.String, TechCode: tech.String}
	}
	if rejectionReason.Valid {
		s.RejectionReason = &rejectionReason.String
	}
	return domain.Restore(s), nil
}

// Save bloquea la fila con FOR UPDATE y solo escribe si sigue en Creating.
func (r *CertificateRepoPostgres) Save(ctx context.Context, c *domain.Certificate, msgs ...sharedDomain.OutboxMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT issued_state FROM certificates WHERE id = $1 AND kind = $2 FOR UPDATE`,
		c.ID(), string(c.Kind()),
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrCertificateNotFound
	}
	if err != nil {
		return err
	}
	if domain.IssuedState(current) != domain.StateCreating {
		return fmt.Errorf("%w: certificate %s is already %s", domain.ErrInvalidStateTransition, c.ID(), current)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE certificates SET issued_state = $1, rejection_reason = $2, updated_at = $3 WHERE id = $4`,
		string(c.IssuedState()), c.RejectionReason(), c.UpdatedAt(), c.ID(),
	); err != nil {
		return fmt.Errorf("failed to update certificate: %w", err)
	}

	for _, msg := range msgs {
		if err := sharedPostgres.InsertOutboxTx(ctx, tx, msg); err != nil {
			return err
		}
	}
	return tx.Commit()
}
