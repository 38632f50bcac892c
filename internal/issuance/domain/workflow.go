package domain

import (
	"time"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending              Status = "Pending"
	StatusIssuing              Status = "Issuing"
	StatusAwaitingCommitment   Status = "AwaitingCommitment"
	StatusDelivering           Status = "Delivering"
	StatusMarkingIssued        Status = "MarkingIssued"
	StatusDone                 Status = "Done"
	StatusTerminatedExternally Status = "TerminatedExternally"
	StatusFaultedPermanently   Status = "FaultedPermanently"
)

func (s Status) Terminal() bool {
	return s == StatusDone || s.Failed()
}

func (s Status) Failed() bool {
	return s == StatusTerminatedExternally || s == StatusFaultedPermanently
}

type Step string

const (
	StepIssueToLedger   Step = "IssueToLedger"
	StepAwaitCommitment Step = "AwaitCommitment"
	StepDeliverToWallet Step = "DeliverToWallet"
	StepMarkIssued      Step = "MarkIssued"
)

// Steps en el orden estricto de ejecución.
var Steps = []Step{StepIssueToLedger, StepAwaitCommitment, StepDeliverToWallet, StepMarkIssued}

func (s Step) Status() Status {
	switch s {
	case StepIssueToLedger:
		return StatusIssuing
	case StepAwaitCommitment:
		return StatusAwaitingCommitment
	case StepDeliverToWallet:
		return StatusDelivering
	case StepMarkIssued:
		return StatusMarkingIssued
	}
	return StatusPending
}

// StepRecord es el progreso durable de un paso.
type StepRecord struct {
	Completed   bool                `json:"completed"`
	Output      string              `json:"output,omitempty"`
	Attempts    map[FailureKind]int `json:"attempts,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// WorkflowState es el registro de progreso de un certificado.
type WorkflowState struct {
	CertificateID  uuid.UUID
	Kind           certDomain.Kind
	WalletEndpoint string
	Status         Status
	Steps          map[Step]*StepRecord
	FailureReason  string
	// FaultHandled indica que el manejador de fallos ya procesó la señal.
	FaultHandled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewWorkflowState(certificateID uuid.UUID, kind certDomain.Kind, walletEndpoint string) *WorkflowState {
	now := time.Now().UTC()
	return &WorkflowState{
		CertificateID:  certificateID,
		Kind:           kind,
		WalletEndpoint: walletEndpoint,
		Status:         StatusPending,
		Steps:          make(map[Step]*StepRecord),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Finished indica que no queda nada por hacer: Done, o fallo ya entregado al manejador.
func (w *WorkflowState) Finished() bool {
	return w.Status == StatusDone || (w.Status.Failed() && w.FaultHandled)
}

func (w *WorkflowState) Record(step Step) *StepRecord {
	if w.Steps == nil {
		w.Steps = make(map[Step]*StepRecord)
	}
	rec, ok := w.Steps[step]
	if !ok {
		rec = &StepRecord{}
		w.Steps[step] = rec
	}
	return rec
}

func (w *WorkflowState) StepCompleted(step Step) bool {
	rec, ok := w.Steps[step]
	return ok && rec.Completed
}

func (w *WorkflowState) Output(step Step) string {
	if rec, ok := w.Steps[step]; ok {
		return rec.Output
	}
	return ""
}

// NextStep devuelve el primer paso sin completar.
func (w *WorkflowState) NextStep() (Step, bool) {
	for _, s := range Steps {
		if !w.StepCompleted(s) {
			return s, true
		}
	}
	return "", false
}

// Enter mueve el workflow al estado del paso que va a ejecutarse.
func (w *WorkflowState) Enter(step Step, now time.Time) {
	w.Status = step.Status()
	w.UpdatedAt = now
}

func (w *WorkflowState) CompleteStep(step Step, output string, now time.Time) {
	rec := w.Record(step)
	rec.Completed = true
	rec.Output = output
	rec.LastError = ""
	at := now
	rec.CompletedAt = &at
	w.UpdatedAt = now
}

// CountFailure suma un fallo del tipo indicado y devuelve el total acumulado para ese tipo.
func (w *WorkflowState) CountFailure(step Step, kind FailureKind, message string, now time.Time) int {
	rec := w.Record(step)
	if rec.Attempts == nil {
		rec.Attempts = make(map[FailureKind]int)
	}
	rec.Attempts[kind]++
	rec.LastError = message
	w.UpdatedAt = now
	return rec.Attempts[kind]
}

func (w *WorkflowState) Failures(step Step, kind FailureKind) int {
	if rec, ok := w.Steps[step]; ok {
		return rec.Attempts[kind]
	}
	return 0
}

func (w *WorkflowState) Finish(now time.Time) {
	w.Status = StatusDone
	w.UpdatedAt = now
}

// Fail lleva el workflow a un estado de fallo absorbente con el motivo ya etiquetado.
func (w *WorkflowState) Fail(status Status, reason string, now time.Time) {
	w.Status = status
	w.FailureReason = reason
	w.FaultHandled = false
	w.UpdatedAt = now
}

func (w *WorkflowState) Signal() FaultSignal {
	return FaultSignal{CertificateID: w.CertificateID, Kind: w.Kind, Reason: w.FailureReason}
}
