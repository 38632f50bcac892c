package domain

import (
	"encoding/json"
	"time"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/google/uuid"
)

// LedgerTransaction es la transacción ya construida. Ref identifica el cuerpo:
// la misma transacción siempre produce el mismo Ref.
type LedgerTransaction struct {
	Ref  string          `json:"ref"`
	Body json.RawMessage `json:"body"`
}

// ReceiveRequest es el slice que se entrega al wallet del propietario.
// SliceRef es estable entre reintentos para que el wallet pueda deduplicar.
type ReceiveRequest struct {
	SliceRef      string          `json:"slice_ref"`
	CertificateID uuid.UUID       `json:"certificate_id"`
	Kind          certDomain.Kind `json:"kind"`
	GridArea      string          `json:"grid_area"`
	PeriodFrom    time.Time       `json:"period_from"`
	PeriodTo      time.Time       `json:"period_to"`
	Quantity      int64           `json:"quantity"`
	BlindingValue []byte          `json:"blinding_value"`
}

type IssueArgs struct {
	LedgerTransaction LedgerTransaction
	CertificateID     uuid.UUID
}

type AwaitCommitmentArgs struct {
	TransactionRef string
	CertificateID  uuid.UUID
}

type DeliverArgs struct {
	WalletEndpoint string
	ReceiveRequest ReceiveRequest
}

type MarkIssuedArgs struct {
	CertificateID   uuid.UUID
	CertificateKind certDomain.Kind
}
