package events

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/application"
	sharedEvents "github.com/davicafu/hexacert/internal/shared/events"
	sharedUtils "github.com/davicafu/hexacert/internal/shared/infra/utils"
)

// WorkflowSubmitter es lo que el consumidor necesita del Runner.
type WorkflowSubmitter interface {
	Submit(ctx context.Context, req application.StartRequest) (bool, error)
}

// IssuanceConsumer arranca un workflow por cada certificate.created recibido.
type IssuanceConsumer struct {
	runner WorkflowSubmitter
	log    *zap.Logger
}

func NewIssuanceConsumer(runner WorkflowSubmitter, logger *zap.Logger) *IssuanceConsumer {
	return &IssuanceConsumer{
		runner: runner,
		log:    logger,
	}
}

// HandleMessage solo devuelve nil cuando el workflow ya tiene su registro de progreso
// guardado, o cuando el mensaje no merece volver a entregarse (payload corrupto o
// certificado inexistente).
func (c *IssuanceConsumer) HandleMessage(ctx context.Context, key string, payload []byte) error {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return nil
	}

	switch base.Type {
	case certDomain.CertificateCreated:
		evt, err := sharedUtils.DecodeEvent[sharedEvents.CertificateCreated](base.Data)
		if err != nil {
			c.log.Warn("Invalid certificate.created payload", zap.String("event_id", base.ID), zap.Error(err))
			return nil
		}
		kind, err := certDomain.ParseKind(evt.Kind)
		if err != nil {
			c.log.Warn("Invalid certificate kind in event", zap.String("event_id", base.ID), zap.Error(err))
			return nil
		}

		started, err := c.runner.Submit(ctx, application.StartRequest{
			CertificateID:  evt.CertificateID,
			Kind:           kind,
			WalletEndpoint: evt.WalletEndpoint,
		})
		if errors.Is(err, certDomain.ErrCertificateNotFound) {
			c.log.Warn("⚠️ Certificado inexistente, evento descartado", zap.String("certificate_id", evt.CertificateID.String()))
			return nil
		}
		if err != nil {
			// Sin registro de progreso guardado: el mensaje tiene que volver a llegar.
			return err
		}
		if started {
			c.log.Info("🚀 Workflow de emisión lanzado", zap.String("certificate_id", evt.CertificateID.String()))
		} else {
			c.log.Info("Evento 'certificate.created' duplicado ignorado", zap.String("certificate_id", evt.CertificateID.String()))
		}
		return nil

	default:
		c.log.Debug("Ignoring event type", zap.String("type", base.Type), zap.String("key", key))
		return nil
	}
}
