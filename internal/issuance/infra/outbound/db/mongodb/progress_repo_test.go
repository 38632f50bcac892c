package mongodb

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
)

func TestMongoProgressMapping(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	st := domain.NewWorkflowState(uuid.New(), certDomain.KindProduction, "http://wallet")
	st.CompleteStep(domain.StepIssueToLedger, "ref", now)
	st.CountFailure(domain.StepAwaitCommitment, domain.TransientError, "down", now)
	st.Fail(domain.StatusFaultedPermanently, "Faulted: x", now)
	st.FaultHandled = true

	mp := toMongoProgress(st)
	assert.True(t, mp.Finished)
	assert.Equal(t, 1, mp.Steps[string(domain.StepAwaitCommitment)].Attempts[string(domain.TransientError)])

	back, err := fromMongoProgress(&mp)
	require.NoError(t, err)
	assert.Equal(t, st.CertificateID, back.CertificateID)
	assert.Equal(t, "ref", back.Output(domain.StepIssueToLedger))
	assert.Equal(t, 1, back.Failures(domain.StepAwaitCommitment, domain.TransientError))
	assert.Equal(t, domain.StatusFaultedPermanently, back.Status)
	assert.True(t, back.Finished())
}

func TestUnfinishedFilter(t *testing.T) {
	assert.Equal(t, bson.M{"finished": false}, unfinishedFilter(domain.ResumeCursor{}))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.New()
	f := unfinishedFilter(domain.ResumeCursor{CreatedAt: at, CertificateID: id})
	assert.Equal(t, false, f["finished"])
	assert.Equal(t, bson.A{
		bson.M{"createdAt": bson.M{"$gt": at}},
		bson.M{"createdAt": at, "_id": bson.M{"$gt": id.String()}},
	}, f["$or"])
}
