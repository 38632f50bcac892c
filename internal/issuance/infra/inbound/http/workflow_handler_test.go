package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	"github.com/davicafu/hexacert/tests/mocks"
)

func TestGetWorkflow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := mocks.NewInMemoryProgressRepo()
	r := gin.New()
	RegisterWorkflowRoutes(r, NewWorkflowHandler(repo))

	st := domain.NewWorkflowState(uuid.New(), certDomain.KindProduction, "http://wallet")
	st.CompleteStep(domain.StepIssueToLedger, "abc123", time.Now().UTC())
	st.Enter(domain.StepAwaitCommitment, time.Now().UTC())
	require.NoError(t, repo.SaveProgress(context.Background(), st))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/"+st.CertificateID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"AwaitingCommitment"`)
	assert.Contains(t, w.Body.String(), "abc123")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
