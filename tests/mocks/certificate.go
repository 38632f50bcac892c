package mocks

import (
	"context"
	"sync"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	"github.com/google/uuid"
)

// InMemoryCertificateRepo simula CertificateRepository con outbox incluido.
// Guarda copias para que los tests no compartan punteros con el "almacenamiento".
type InMemoryCertificateRepo struct {
	Certificates map[uuid.UUID]*certDomain.Certificate
	Outbox       []sharedDomain.OutboxMessage

	// Errores inyectables
	FindErr error
	SaveErr error

	FindCalls int
	SaveCalls int

	mu sync.Mutex
}

var _ certDomain.CertificateRepository = (*InMemoryCertificateRepo)(nil)

func NewInMemoryCertificateRepo() *InMemoryCertificateRepo {
	return &InMemoryCertificateRepo{
		Certificates: make(map[uuid.UUID]*certDomain.Certificate),
	}
}

func clone(c *certDomain.Certificate) *certDomain.Certificate {
	return certDomain.Restore(c.Snapshot())
}

// Put inserta un certificado sin pasar por el outbox.
func (r *InMemoryCertificateRepo) Put(c *certDomain.Certificate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Certificates[c.ID()] = clone(c)
}

func (r *InMemoryCertificateRepo) Create(ctx context.Context, c *certDomain.Certificate, msg sharedDomain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Certificates[c.ID()]; ok {
		return certDomain.ErrCertificateAlreadyExists
	}
	r.Certificates[c.ID()] = clone(c)
	r.Outbox = append(r.Outbox, msg)
	return nil
}

func (r *InMemoryCertificateRepo) FindByID(ctx context.Context, id uuid.UUID, kind certDomain.Kind) (*certDomain.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FindCalls++
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	c, ok := r.Certificates[id]
	if !ok || c.Kind() != kind {
		return nil, certDomain.ErrCertificateNotFound
	}
	return clone(c), nil
}

func (r *InMemoryCertificateRepo) Save(ctx context.Context, c *certDomain.Certificate, msgs ...sharedDomain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SaveCalls++
	if r.SaveErr != nil {
		return r.SaveErr
	}
	stored, ok := r.Certificates[c.ID()]
	if !ok || stored.Kind() != c.Kind() {
		return certDomain.ErrCertificateNotFound
	}
	if stored.IssuedState() != certDomain.StateCreating {
		return certDomain.ErrInvalidStateTransition
	}
	r.Certificates[c.ID()] = clone(c)
	r.Outbox = append(r.Outbox, msgs...)
	return nil
}

// Get devuelve la copia almacenada, o nil.
func (r *InMemoryCertificateRepo) Get(id uuid.UUID) *certDomain.Certificate {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Certificates[id]
	if !ok {
		return nil
	}
	return clone(c)
}

// MessagesOfType filtra el outbox por tipo de mensaje.
func (r *InMemoryCertificateRepo) MessagesOfType(messageType string) []sharedDomain.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sharedDomain.OutboxMessage
	for _, m := range r.Outbox {
		if m.MessageType == messageType {
			out = append(out, m)
		}
	}
	return out
}
