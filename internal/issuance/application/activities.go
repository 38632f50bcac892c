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

// Activities agrupa los pasos del workflow. Ninguno devuelve error: todo fallo se
// convierte en un Outcome y el orquestador decide si reintenta.
type Activities struct {
	ledger domain.LedgerClient
	wallet domain.WalletClient
	certs  certDomain.CertificateRepository
	cache  sharedCache.Cache
	log    *zap.Logger
}

func NewActivities(
	ledger domain.LedgerClient,
	wallet domain.WalletClient,
	certs certDomain.CertificateRepository,
	cache sharedCache.Cache,
	log *zap.Logger,
) *Activities {
	return &Activities{ledger: ledger, wallet: wallet, certs: certs, cache: cache, log: log}
}

// IssueToLedger envía la transacción. No espera a que se confirme.
func (a *Activities) IssueToLedger(ctx context.Context, args domain.IssueArgs) domain.Outcome {
	if err := a.ledger.Submit(ctx, args.LedgerTransaction); err != nil {
		return domain.Faulted{Kind: domain.Classify(err), Err: fmt.Errorf("submit transaction: %w", err)}
	}
	return domain.Completed{Output: args.LedgerTransaction.Ref}
}

// AwaitCommitment consulta una vez el estado de la transacción.
func (a *Activities) AwaitCommitment(ctx context.Context, args domain.AwaitCommitmentArgs) domain.Outcome {
	if args.TransactionRef == "" {
		return domain.Permanent(errors.New("missing transaction reference"))
	}

	status, err := a.ledger.GetStatus(ctx, args.TransactionRef)
	if err != nil {
		return domain.Faulted{Kind: domain.Classify(err), Err: fmt.Errorf("get transaction status: %w", err)}
	}

	switch status.Status {
	case domain.LedgerCommitted:
		return domain.Completed{}
	case domain.LedgerFailed:
		return domain.Terminated{Reason: status.Reason}
	case domain.LedgerStillProcessing:
		return domain.StillProcessing(args.TransactionRef)
	}
	return domain.Transient(fmt.Errorf("unknown ledger status %q", status.Status))
}

func (a *Activities) DeliverToWallet(ctx context.Context, args domain.DeliverArgs) domain.Outcome {
	if args.WalletEndpoint == "" {
		return domain.Permanent(errors.New("missing wallet endpoint"))
	}
	if err := a.wallet.ReceiveSlice(ctx, args.WalletEndpoint, args.ReceiveRequest); err != nil {
		return domain.Faulted{Kind: domain.Classify(err), Err: fmt.Errorf("deliver slice: %w", err)}
	}
	return domain.Completed{}
}

// MarkIssued es idempotente: un certificado ya emitido, o que ya no existe, completa sin hacer nada.
func (a *Activities) MarkIssued(ctx context.Context, args domain.MarkIssuedArgs) domain.Outcome {
	log := a.log.With(zap.String("certificate_id", args.CertificateID.String()), zap.String("kind", string(args.CertificateKind)))

	cert, err := a.certs.FindByID(ctx, args.CertificateID, args.CertificateKind)
	if errors.Is(err, certDomain.ErrCertificateNotFound) {
		log.Warn("⚠️ Certificate not found, skipping MarkIssued")
		return domain.Completed{}
	}
	if err != nil {
		return domain.Transient(fmt.Errorf("load certificate: %w", err))
	}

	switch cert.IssuedState() {
	case certDomain.StateIssued:
		log.Debug("Certificate already issued")
		return domain.Completed{}
	case certDomain.StateRejected:
		return domain.Permanent(fmt.Errorf("%w: certificate %s is rejected", certDomain.ErrInvalidStateTransition, cert.ID()))
	}

	if err := cert.Issue(); err != nil {
		return domain.Permanent(err)
	}
	msg, err := certDomain.NewIssuedMessage(cert)
	if err != nil {
		return domain.Permanent(err)
	}

	if err := a.certs.Save(ctx, cert, msg); err != nil {
		switch {
		case errors.Is(err, certDomain.ErrCertificateNotFound):
			log.Warn("⚠️ Certificate disappeared before MarkIssued could save it")
			return domain.Completed{}
		case errors.Is(err, certDomain.ErrInvalidStateTransition):
			// Otro escritor lo llevó a un estado terminal; el siguiente intento lo relee.
			return domain.Transient(err)
		}
		return domain.Transient(fmt.Errorf("save certificate: %w", err))
	}

	sharedCache.InvalidateCache(ctx, a.cache, certDomain.CacheKeyByID(cert.Kind(), cert.ID()), a.log)
	log.Info("✅ Certificate issued")
	return domain.Completed{}
}
