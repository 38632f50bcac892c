package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	"github.com/davicafu/hexacert/internal/shared/infra/metrics"
	sharedUtils "github.com/davicafu/hexacert/internal/shared/infra/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// StartRequest es lo que llega con el mensaje certificate.created.
type StartRequest struct {
	CertificateID  uuid.UUID
	Kind           certDomain.Kind
	WalletEndpoint string
}

// Orchestrator ejecuta el workflow de un certificado paso a paso.
// El progreso se guarda antes o después de cada llamada externa, nunca durante.
type Orchestrator struct {
	activities *Activities
	certs      certDomain.CertificateRepository
	progress   domain.ProgressRepository
	faults     *FaultHandler
	policies   domain.Policies
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewOrchestrator(
	activities *Activities,
	certs certDomain.CertificateRepository,
	progress domain.ProgressRepository,
	faults *FaultHandler,
	policies domain.Policies,
	m *metrics.Metrics,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		activities: activities,
		certs:      certs,
		progress:   progress,
		faults:     faults,
		policies:   policies,
		metrics:    m,
		log:        log,
	}
}

// Start prepara el workflow y lo ejecuta hasta el final en la goroutine actual.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (*domain.WorkflowState, error) {
	st, err := o.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.Resume(ctx, st)
}

// Prepare deja guardado el registro de progreso del certificado, o devuelve el existente
// si el mensaje llega repetido. Tras un Prepare sin error el workflow ya no se pierde:
// si nadie lo ejecuta, ResumeUnfinished lo encontrará.
func (o *Orchestrator) Prepare(ctx context.Context, req StartRequest) (*domain.WorkflowState, error) {
	st, err := o.progress.LoadProgress(ctx, req.CertificateID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, domain.ErrProgressNotFound) {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	cert, err := o.certs.FindByID(ctx, req.CertificateID, req.Kind)
	if err != nil {
		return nil, fmt.Errorf("load certificate %s: %w", req.CertificateID, err)
	}

	st = domain.NewWorkflowState(req.CertificateID, req.Kind, req.WalletEndpoint)
	now := time.Now().UTC()
	switch cert.IssuedState() {
	case certDomain.StateIssued:
		st.Finish(now)
	case certDomain.StateRejected:
		reason := ""
		if r := cert.RejectionReason(); r != nil {
			reason = *r
		}
		st.Fail(domain.StatusFaultedPermanently, reason, now)
		st.FaultHandled = true
	}
	if err := o.save(ctx, st); err != nil {
		return nil, err
	}
	if st.Finished() {
		o.log.Info("Certificate already terminal, nothing to run",
			zap.String("certificate_id", req.CertificateID.String()),
			zap.String("state", string(cert.IssuedState())),
		)
		return st, nil
	}

	o.metrics.WorkflowStarted()
	o.log.Info("🚀 Workflow started", zap.String("certificate_id", req.CertificateID.String()), zap.String("kind", string(req.Kind)))
	return st, nil
}

// Resume continúa desde el primer paso sin completar. Solo devuelve error si se cancela
// el contexto o falla el almacenamiento; lo ya guardado sigue siendo válido para otro Resume.
func (o *Orchestrator) Resume(ctx context.Context, st *domain.WorkflowState) (*domain.WorkflowState, error) {
	if st.Finished() {
		return st, nil
	}

	if st.Status.Failed() {
		return st, o.handleFault(ctx, st)
	}

	for {
		step, ok := st.NextStep()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if st.Status != step.Status() {
			st.Enter(step, time.Now().UTC())
			if err := o.save(ctx, st); err != nil {
				return st, err
			}
		}

		outcome, err := o.runStep(ctx, st, step)
		if err != nil {
			return st, err
		}

		switch out := outcome.(type) {
		case domain.Completed:
			st.CompleteStep(step, out.Output, time.Now().UTC())
			if err := o.save(ctx, st); err != nil {
				return st, err
			}
		case domain.Terminated:
			return st, o.fail(ctx, st, step, domain.StatusTerminatedExternally, domain.TerminatedReason(out.Reason))
		case domain.Faulted:
			return st, o.fail(ctx, st, step, domain.StatusFaultedPermanently, domain.FaultedReason(out.Kind, out.Message()))
		default:
			return st, fmt.Errorf("unexpected outcome %T", outcome)
		}
	}

	st.Finish(time.Now().UTC())
	if err := o.save(ctx, st); err != nil {
		return st, err
	}
	o.metrics.WorkflowFinished("done")
	o.log.Info("🏁 Workflow done",
		zap.String("certificate_id", st.CertificateID.String()),
		zap.String("kind", string(st.Kind)),
	)
	return st, nil
}

// runStep repite la actividad mientras la política lo permita. Devuelve error solo si
// se cancela el contexto (el fallo en curso no se cuenta) o no se puede guardar el progreso.
func (o *Orchestrator) runStep(ctx context.Context, st *domain.WorkflowState, step domain.Step) (domain.Outcome, error) {
	policy := o.policies.For(step)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := o.attempt(ctx, st, step)

		faulted, ok := outcome.(domain.Faulted)
		if !ok {
			o.metrics.ActivityAttempt(string(step), outcomeLabel(outcome))
			return outcome, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.metrics.ActivityAttempt(string(step), string(faulted.Kind))

		rule, retryable := policy.RuleFor(faulted.Kind)
		if !retryable {
			return faulted, nil
		}

		failures := st.CountFailure(step, faulted.Kind, faulted.Message(), time.Now().UTC())
		if err := o.save(ctx, st); err != nil {
			return nil, err
		}
		if rule.Exhausted(failures) {
			o.log.Warn("⚠️ Retries exhausted",
				zap.String("certificate_id", st.CertificateID.String()),
				zap.String("step", string(step)),
				zap.String("failure_kind", string(faulted.Kind)),
				zap.Int("attempts", failures),
			)
			return faulted, nil
		}

		delay := rule.Delay(failures)
		o.log.Debug("Retrying activity",
			zap.String("certificate_id", st.CertificateID.String()),
			zap.String("step", string(step)),
			zap.String("failure_kind", string(faulted.Kind)),
			zap.Int("attempt", failures),
			zap.Duration("delay", delay),
		)
		if err := sharedUtils.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt prepara los argumentos del paso y ejecuta la actividad una vez.
func (o *Orchestrator) attempt(ctx context.Context, st *domain.WorkflowState, step domain.Step) domain.Outcome {
	switch step {
	case domain.StepIssueToLedger:
		cert, failed := o.loadCertificate(ctx, st)
		if failed != nil {
			return failed
		}
		tx, err := BuildLedgerTransaction(cert)
		if err != nil {
			return domain.Permanent(err)
		}
		return o.activities.IssueToLedger(ctx, domain.IssueArgs{LedgerTransaction: tx, CertificateID: st.CertificateID})

	case domain.StepAwaitCommitment:
		return o.activities.AwaitCommitment(ctx, domain.AwaitCommitmentArgs{
			TransactionRef: st.Output(domain.StepIssueToLedger),
			CertificateID:  st.CertificateID,
		})

	case domain.StepDeliverToWallet:
		cert, failed := o.loadCertificate(ctx, st)
		if failed != nil {
			return failed
		}
		return o.activities.DeliverToWallet(ctx, domain.DeliverArgs{
			WalletEndpoint: st.WalletEndpoint,
			ReceiveRequest: BuildReceiveRequest(cert, st.Output(domain.StepIssueToLedger)),
		})

	case domain.StepMarkIssued:
		return o.activities.MarkIssued(ctx, domain.MarkIssuedArgs{CertificateID: st.CertificateID, CertificateKind: st.Kind})
	}
	return domain.Permanent(fmt.Errorf("unknown step %q", step))
}

func (o *Orchestrator) loadCertificate(ctx context.Context, st *domain.WorkflowState) (*certDomain.Certificate, domain.Outcome) {
	cert, err := o.certs.FindByID(ctx, st.CertificateID, st.Kind)
	if errors.Is(err, certDomain.ErrCertificateNotFound) {
		return nil, domain.Permanent(err)
	}
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("load certificate: %w", err))
	}
	return cert, nil
}

func (o *Orchestrator) fail(ctx context.Context, st *domain.WorkflowState, step domain.Step, status domain.Status, reason string) error {
	st.Fail(status, reason, time.Now().UTC())
	if err := o.save(ctx, st); err != nil {
		return err
	}
	o.log.Warn("⛔ Workflow failed",
		zap.String("certificate_id", st.CertificateID.String()),
		zap.String("kind", string(st.Kind)),
		zap.String("step", string(step)),
		zap.String("status", string(status)),
		zap.String("reason", reason),
	)
	return o.handleFault(ctx, st)
}

func (o *Orchestrator) handleFault(ctx context.Context, st *domain.WorkflowState) error {
	if err := o.faults.Handle(ctx, st.Signal()); err != nil {
		return fmt.Errorf("handle fault for %s: %w", st.CertificateID, err)
	}
	st.FaultHandled = true
	st.UpdatedAt = time.Now().UTC()
	if err := o.save(ctx, st); err != nil {
		return err
	}
	o.metrics.WorkflowFinished(sharedUtils.Ternary(st.Status == domain.StatusTerminatedExternally, "terminated", "faulted"))
	return nil
}

// save no hereda la cancelación: lo que ya ocurrió fuera debe quedar registrado.
func (o *Orchestrator) save(ctx context.Context, st *domain.WorkflowState) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := o.progress.SaveProgress(saveCtx, st); err != nil {
		return fmt.Errorf("save progress for %s: %w", st.CertificateID, err)
	}
	return nil
}

func outcomeLabel(outcome domain.Outcome) string {
	switch outcome.(type) {
	case domain.Completed:
		return "completed"
	case domain.Terminated:
		return "terminated"
	}
	return "faulted"
}
