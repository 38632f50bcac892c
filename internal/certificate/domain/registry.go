package domain

import (
	"reflect"
	"time"

	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	sharedEvents "github.com/davicafu/hexacert/internal/shared/events"
)

// Las constantes de los tipos de mensaje se definen aquí, como valores string.
const (
	CertificateCreated  = "certificate.created"
	CertificateIssued   = "certificate.issued"
	CertificateRejected = "certificate.rejected"
)

const (
	// IssuanceTopic lleva los disparadores del workflow de emisión.
	IssuanceTopic = "certificate-issuance"
	// EventsTopic lleva los resultados finales.
	EventsTopic = "certificate-events"
)

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		CertificateCreated: {
			Type:  reflect.TypeOf(sharedEvents.CertificateCreated{}),
			Topic: IssuanceTopic,
		},
		CertificateIssued: {
			Type:  reflect.TypeOf(sharedEvents.CertificateIssued{}),
			Topic: EventsTopic,
		},
		CertificateRejected: {
			Type:  reflect.TypeOf(sharedEvents.CertificateRejected{}),
			Topic: EventsTopic,
		},
	}
}

// NewCreatedMessage construye el mensaje que dispara el workflow de emisión.
func NewCreatedMessage(c *Certificate, walletEndpoint string) (sharedDomain.OutboxMessage, error) {
	return sharedDomain.NewOutboxMessage(c.ID().String(), CertificateCreated, IssuanceTopic, sharedEvents.CertificateCreated{
		CertificateID:  c.ID(),
		Kind:           string(c.Kind()),
		WalletEndpoint: walletEndpoint,
	})
}

// NewIssuedMessage se encola junto con la transición a Issued.
func NewIssuedMessage(c *Certificate) (sharedDomain.OutboxMessage, error) {
	return sharedDomain.NewOutboxMessage(c.ID().String(), CertificateIssued, EventsTopic, sharedEvents.CertificateIssued{
		CertificateID: c.ID(),
		Kind:          string(c.Kind()),
		GridArea:      c.GridArea(),
		Quantity:      c.Quantity(),
		IssuedAt:      c.UpdatedAt(),
	})
}

// NewRejectedMessage se encola junto con la transición a Rejected.
func NewRejectedMessage(c *Certificate) (sharedDomain.OutboxMessage, error) {
	reason := ""
	if r := c.RejectionReason(); r != nil {
		reason = *r
	}
	return sharedDomain.NewOutboxMessage(c.ID().String(), CertificateRejected, EventsTopic, sharedEvents.CertificateRejected{
		CertificateID: c.ID(),
		Kind:          string(c.Kind()),
		GridArea:      c.GridArea(),
		Quantity:      c.Quantity(),
		Reason:        reason,
		RejectedAt:    time.Now().UTC(),
	})
}
