package domain

import (
	"fmt"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/google/uuid"
)

// DefaultLedgerFailure se usa cuando el ledger no informa el motivo.
const DefaultLedgerFailure = "Transaction failed in Registry"

// FaultSignal es lo que recibe el manejador de fallos cuando un workflow acaba mal.
type FaultSignal struct {
	CertificateID uuid.UUID
	Kind          certDomain.Kind
	Reason        string
}

func TerminatedReason(ledgerReason string) string {
	if ledgerReason == "" {
		ledgerReason = DefaultLedgerFailure
	}
	return "Terminated: " + ledgerReason
}

func FaultedReason(kind FailureKind, message string) string {
	return fmt.Sprintf("Faulted: %s - %s", kind, message)
}
