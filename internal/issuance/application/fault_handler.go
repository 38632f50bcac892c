package application

import (
	"context"
	"errors"
	"fmt"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	sharedCache "github.com/davicafu/hexacert/internal/shared/infra/platform/cache"
	"go.uber.org/zap"
)

// FaultHandler rechaza el certificado de un workflow que terminó en fallo.
type FaultHandler struct {
	certs certDomain.CertificateRepository
	cache sharedCache.Cache
	log   *zap.Logger
}

func NewFaultHandler(certs certDomain.CertificateRepository, cache sharedCache.Cache, log *zap.Logger) *FaultHandler {
	return &FaultHandler{certs: certs, cache: cache, log: log}
}

// Handle solo devuelve error si el almacenamiento falla; en ese caso la señal se reprocesa más tarde.
func (h *FaultHandler) Handle(ctx context.Context, sig domain.FaultSignal) error {
	log := h.log.With(
		zap.String("certificate_id", sig.CertificateID.String()),
		zap.String("kind", string(sig.Kind)),
		zap.String("reason", sig.Reason),
	)

	cert, err := h.certs.FindByID(ctx, sig.CertificateID, sig.Kind)
	if errors.Is(err, certDomain.ErrCertificateNotFound) {
		log.Warn("⚠️ Certificate not found, fault signal dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}

	switch cert.IssuedState() {
	case certDomain.StateRejected:
		log.Debug("Certificate already rejected")
		return nil
	case certDomain.StateIssued:
		log.Error("❌ Fault signal received for an issued certificate, state left unchanged")
		return nil
	}

	if err := cert.Reject(sig.Reason); err != nil {
		return err
	}
	msg, err := certDomain.NewRejectedMessage(cert)
	if err != nil {
		return err
	}

	if err := h.certs.Save(ctx, cert, msg); err != nil {
		switch {
		case errors.Is(err, certDomain.ErrCertificateNotFound):
			log.Warn("⚠️ Certificate removed before it could be rejected")
			return nil
		case errors.Is(err, certDomain.ErrInvalidStateTransition):
			log.Warn("⚠️ Certificate reached a terminal state concurrently, rejection skipped")
			return nil
		}
		return fmt.Errorf("save rejected certificate: %w", err)
	}

	sharedCache.InvalidateCache(ctx, h.cache, certDomain.CacheKeyByID(cert.Kind(), cert.ID()), h.log)
	log.Warn("⛔ Certificate rejected")
	return nil
}
