package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrProgressNotFound = errors.New("workflow progress not found")

type LedgerStatus string

const (
	LedgerCommitted       LedgerStatus = "Committed"
	LedgerFailed          LedgerStatus = "Failed"
	LedgerStillProcessing LedgerStatus = "StillProcessing"
)

type TransactionStatus struct {
	Status LedgerStatus
	Reason string // solo con LedgerFailed
}

// LedgerClient es idempotente: reenviar la misma transacción nunca la aplica dos veces.
type LedgerClient interface {
	Submit(ctx context.Context, tx LedgerTransaction) error
	GetStatus(ctx context.Context, transactionRef string) (TransactionStatus, error)
}

// WalletClient es idempotente respecto al SliceRef.
type WalletClient interface {
	ReceiveSlice(ctx context.Context, endpoint string, req ReceiveRequest) error
}

// ProgressRepository guarda el registro de progreso de cada workflow.
type ProgressRepository interface {
	// LoadProgress debe devolver ErrProgressNotFound si no hay registro.
	LoadProgress(ctx context.Context, certificateID uuid.UUID) (*WorkflowState, error)
	SaveProgress(ctx context.Context, state *WorkflowState) error
	// ListUnfinished devuelve registros con trabajo pendiente posteriores a after,
	// ordenados por (CreatedAt, CertificateID).
	ListUnfinished(ctx context.Context, after ResumeCursor, limit int) ([]*WorkflowState, error)
}

// ResumeCursor es la posición del último registro leído por ListUnfinished.
// El valor cero empieza desde el principio.
type ResumeCursor struct {
	CreatedAt     time.Time
	CertificateID uuid.UUID
}

func (c ResumeCursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.CertificateID == uuid.Nil
}

// CursorAfter devuelve el cursor que continúa justo después de st.
func CursorAfter(st *WorkflowState) ResumeCursor {
	return ResumeCursor{CreatedAt: st.CreatedAt, CertificateID: st.CertificateID}
}

// Precedes indica si el cursor va antes que st en el orden de ListUnfinished.
func (c ResumeCursor) Precedes(st *WorkflowState) bool {
	if c.IsZero() {
		return true
	}
	if !st.CreatedAt.Equal(c.CreatedAt) {
		return st.CreatedAt.After(c.CreatedAt)
	}
	return st.CertificateID.String() > c.CertificateID.String()
}

// OutcomeRecord es una fila analítica con el resultado final de un certificado.
type OutcomeRecord struct {
	CertificateID uuid.UUID
	Kind          string
	Result        string // "issued" | "rejected"
	Reason        string
	GridArea      string
	Quantity      int64
	OccurredAt    time.Time
}

type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, rec OutcomeRecord) error
}
