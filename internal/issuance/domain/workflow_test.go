package domain

import (
	"testing"
	"time"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWorkflowState_StepProgression(t *testing.T) {
	now := time.Now().UTC()
	w := NewWorkflowState(uuid.New(), certDomain.KindProduction, "http://wallet")
	assert.Equal(t, StatusPending, w.Status)

	step, ok := w.NextStep()
	assert.True(t, ok)
	assert.Equal(t, StepIssueToLedger, step)

	w.Enter(step, now)
	assert.Equal(t, StatusIssuing, w.Status)
	w.CompleteStep(step, "ref-1", now)
	assert.Equal(t, "ref-1", w.Output(StepIssueToLedger))

	step, _ = w.NextStep()
	assert.Equal(t, StepAwaitCommitment, step)
	assert.Equal(t, StatusAwaitingCommitment, step.Status())

	for _, s := range Steps[1:] {
		w.CompleteStep(s, "", now)
	}
	_, ok = w.NextStep()
	assert.False(t, ok)

	w.Finish(now)
	assert.True(t, w.Finished())
	assert.True(t, w.Status.Terminal())
}

func TestWorkflowState_CountFailurePerKind(t *testing.T) {
	now := time.Now().UTC()
	w := NewWorkflowState(uuid.New(), certDomain.KindConsumption, "")

	assert.Equal(t, 1, w.CountFailure(StepAwaitCommitment, StillProcessingError, "still", now))
	assert.Equal(t, 2, w.CountFailure(StepAwaitCommitment, StillProcessingError, "still", now))
	assert.Equal(t, 1, w.CountFailure(StepAwaitCommitment, TransientError, "down", now))

	assert.Equal(t, 2, w.Failures(StepAwaitCommitment, StillProcessingError))
	assert.Equal(t, "down", w.Steps[StepAwaitCommitment].LastError)
	assert.Equal(t, 0, w.Failures(StepDeliverToWallet, TransientError))
}

func TestWorkflowState_FailNeedsHandling(t *testing.T) {
	w := NewWorkflowState(uuid.New(), certDomain.KindConsumption, "")
	w.Fail(StatusTerminatedExternally, TerminatedReason("boom"), time.Now())

	assert.True(t, w.Status.Terminal())
	assert.False(t, w.Finished())

	w.FaultHandled = true
	assert.True(t, w.Finished())

	sig := w.Signal()
	assert.Equal(t, w.CertificateID, sig.CertificateID)
	assert.Equal(t, "Terminated: boom", sig.Reason)
}
