package domain

import (
	"context"
	"errors"
	"fmt"

	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrCertificateNotFound      = errors.New("certificate not found")
	ErrCertificateAlreadyExists = errors.New("certificate already exists")
	ErrInvalidCertificate       = errors.New("invalid certificate")
	ErrInvalidStateTransition   = errors.New("invalid state transition")
)

// ---------- Interfaces (Ports) ----------

// CertificateRepository persiste el agregado junto con sus mensajes de outbox.
type CertificateRepository interface {
	// Create inserta el certificado y el mensaje en la misma transacción.
	// Debe devolver ErrCertificateAlreadyExists si el ID ya existe.
	Create(ctx context.Context, c *Certificate, msg sharedDomain.OutboxMessage) error

	// FindByID debe devolver ErrCertificateNotFound si no existe un certificado con ese ID y tipo.
	FindByID(ctx context.Context, id uuid.UUID, kind Kind) (*Certificate, error)

	// Save guarda la transición de estado y los mensajes en la misma transacción.
	// Solo escribe si la fila sigue en Creating; si no existe devuelve ErrCertificateNotFound
	// y si ya es terminal devuelve ErrInvalidStateTransition.
	Save(ctx context.Context, c *Certificate, msgs ...sharedDomain.OutboxMessage) error
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByID forma una key consistente para cache.
func CacheKeyByID(kind Kind, id uuid.UUID) string {
	return fmt.Sprintf("certificate:%s:%s", kind, id.String())
}
