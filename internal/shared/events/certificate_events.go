package events

import (
	"time"

	"github.com/google/uuid"
)

// Estos son contratos de integración, NO entidades del dominio.
// Se definen planos para intercambio entre contextos.

// CertificateCreated dispara el workflow de emisión de un certificado.
type CertificateCreated struct {
	CertificateID  uuid.UUID `json:"certificate_id"`
	Kind           string    `json:"kind"`
	WalletEndpoint string    `json:"wallet_endpoint"`
}

type CertificateIssued struct {
	CertificateID uuid.UUID `json:"certificate_id"`
	Kind          string    `json:"kind"`
	GridArea      string    `json:"grid_area"`
	Quantity      int64     `json:"quantity"`
	IssuedAt      time.Time `json:"issued_at"`
}

type CertificateRejected struct {
	CertificateID uuid.UUID `json:"certificate_id"`
	Kind          string    `json:"kind"`
	GridArea      string    `json:"grid_area"`
	Quantity      int64     `json:"quantity"`
	Reason        string    `json:"reason"`
	RejectedAt    time.Time `json:"rejected_at"`
}
