package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	sharedEvents "github.com/davicafu/hexacert/internal/shared/events"
	sharedUtils "github.com/davicafu/hexacert/internal/shared/infra/utils"
)

const (
	ResultIssued   = "issued"
	ResultRejected = "rejected"
)

// AnalyticsConsumer proyecta los resultados finales de emisión al almacén analítico.
type AnalyticsConsumer struct {
	recorder domain.OutcomeRecorder
	log      *zap.Logger
}

func NewAnalyticsConsumer(recorder domain.OutcomeRecorder, logger *zap.Logger) *AnalyticsConsumer {
	return &AnalyticsConsumer{
		recorder: recorder,
		log:      logger,
	}
}

func (c *AnalyticsConsumer) HandleMessage(ctx context.Context, key string, payload []byte) error {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return nil
	}

	var rec domain.OutcomeRecord
	switch base.Type {
	case certDomain.CertificateIssued:
		evt, err := sharedUtils.DecodeEvent[sharedEvents.CertificateIssued](base.Data)
		if err != nil {
			c.log.Warn("Invalid certificate.issued payload", zap.String("event_id", base.ID), zap.Error(err))
			return nil
		}
		rec = domain.OutcomeRecord{
			CertificateID: evt.CertificateID,
			Kind:          evt.Kind,
			Result:        ResultIssued,
			GridArea:      evt.GridArea,
			Quantity:      evt.Quantity,
			OccurredAt:    evt.IssuedAt,
		}

	case certDomain.CertificateRejected:
		evt, err := sharedUtils.DecodeEvent[sharedEvents.CertificateRejected](base.Data)
		if err != nil {
			c.log.Warn("Invalid certificate.rejected payload", zap.String("event_id", base.ID), zap.Error(err))
			return nil
		}
		rec = domain.OutcomeRecord{
			CertificateID: evt.CertificateID,
			Kind:          evt.Kind,
			Result:        ResultRejected,
			Reason:        evt.Reason,
			GridArea:      evt.GridArea,
			Quantity:      evt.Quantity,
			OccurredAt:    evt.RejectedAt,
		}

	default:
		return nil
	}

	if err := c.recorder.RecordOutcome(ctx, rec); err != nil {
		c.log.Warn("⚠️ No se pudo registrar el resultado",
			zap.String("certificate_id", rec.CertificateID.String()),
			zap.Error(err),
		)
		return err
	}
	c.log.Info("📊 Resultado registrado",
		zap.String("certificate_id", rec.CertificateID.String()),
		zap.String("result", rec.Result),
	)
	return nil
}
