package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/davicafu/hexacert/internal/certificate/domain"
	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	sharedSQLite "github.com/davicafu/hexacert/internal/shared/infra/platform/db/sqlite"
)

type CertificateRepoSQLite struct {
	db *sql.DB
}

var _ domain.CertificateRepository = (*CertificateRepoSQLite)(nil)

func NewCertificateRepoSQLite(db *sql.DB) *CertificateRepoSQLite {
	return &CertificateRepoSQLite{db: db}
}

// InitSQLite crea las tablas de certificados y outbox.
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS certificates (
            id TEXT NOT NULL,
            kind TEXT NOT NULL,
            grid_area TEXT NOT NULL,
            period_from TEXT NOT NULL,
            period_to TEXT NOT NULL,
            metering_point_owner TEXT NOT NULL,
            gsrn TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            blinding_value BLOB NOT NULL,
            fuel_code TEXT,
            tech_code TEXT,
            issued_state TEXT NOT NULL,
            rejection_reason TEXT,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            PRIMARY KEY (id)
        )
    `)
	if err != nil {
		return err
	}
	return sharedSQLite.InitOutbox(db)
}

// ------------------ Métodos ------------------

// Create inserta certificado y mensaje en transacción
func (r *CertificateRepoSQLite) Create(ctx context.Context, c *domain.Certificate, msg sharedDomain.OutboxMessage) error {
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
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,NULL,?,?)
		 ON CONFLICT(id) DO NOTHING`,
		snap.ID.String(), string(snap.Kind), snap.GridArea,
		sharedSQLite.FormatTime(snap.Period.From), sharedSQLite.FormatTime(snap.Period.To),
		snap.MeteringPointOwner, snap.GSRN, snap.Quantity, snap.BlindingValue, fuel, tech,
		string(snap.IssuedState), sharedSQLite.FormatTime(snap.CreatedAt), sharedSQLite.FormatTime(snap.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert certificate: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrCertificateAlreadyExists
	}

	if err := sharedSQLite.InsertOutboxTx(ctx, tx, msg); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CertificateRepoSQLite) FindByID(ctx context.Context, id uuid.UUID, kind domain.Kind) (*domain.Certificate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, kind, grid_area, period_from, period_to, metering_point_owner, gsrn, quantity, blinding_value,
		        fuel_code, tech_code, issued_state, rejection_reason, created_at, updated_at
		 FROM certificates WHERE id = ? AND kind = ?`,
		id.String(), string(kind),
	)
	c, err := scanCertificate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCertificateNotFound
	}
	return c, err
}

// Save guarda la transición de estado y los mensajes en la misma transacción.
// El UPDATE solo afecta a filas en Creating, así un estado terminal nunca se sobrescribe.
func (r *CertificateRepoSQLite) Save(ctx context.Context, c *domain.Certificate, msgs ...sharedDomain.OutboxMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE certificates SET issued_state = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND kind = ? AND issued_state = ?`,
		string(c.IssuedState()), c.RejectionReason(), sharedSQLite.FormatTime(c.UpdatedAt()),
		c.ID().String(), string(c.Kind()), string(domain.StateCreating),
	)
	if err != nil {
		return fmt.Errorf("failed to update certificate: %w", err)
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		var state string
		err := tx.QueryRowContext(ctx, `SELECT issued_state FROM certificates WHERE id = ? AND kind = ?`,
			c.ID().String(), string(c.Kind())).Scan(&state)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCertificateNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: certificate %s is already %s", domain.ErrInvalidStateTransition, c.ID(), state)
	}

	for _, msg := range msgs {
		if err := sharedSQLite.InsertOutboxTx(ctx, tx, msg); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanCertificate(row *sql.Row) (*domain.Certificate, error) {
	var (
		s                           domain.Snapshot
		idStr, kind, state          string
		from, to, created, updated  string
		fuel, tech, rejectionReason sql.NullString
	)
	err := row.Scan(&idStr, &kind, &s.GridArea, &from, &to, &s.MeteringPointOwner, &s.GSRN, &s.Quantity,
		&s.BlindingValue, &fuel, &tech, &state, &rejectionReason, &created, &updated)
	if err != nil {
		return nil, err
	}

	if s.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid UUID in certificates row: %w", err)
	}
	s.Kind = domain.Kind(kind)
	s.IssuedState = domain.IssuedState(state)
	if s.Period.From, err = sharedSQLite.ParseTime(from); err != nil {
		return nil, err
	}
	if s.Period.To, err = sharedSQLite.ParseTime(to); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = sharedSQLite.ParseTime(created); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = sharedSQLite.ParseTime(updated); err != nil {
		return nil, err
	}
	if fuel.Valid || tech.Valid {
		s.Technology = &domain.Technology{FuelCode: fuel.String, TechCode: tech.String}
	}
	if rejectionReason.Valid {
		s.RejectionReason = &rejectionReason.String
	}
	return domain.Restore(s), nil
}
