package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davicafu/hexacert/internal/issuance/domain"
	"github.com/davicafu/hexacert/pkg/utils"
)

// WorkflowHandler expone el registro de progreso de cada workflow de emisión.
type WorkflowHandler struct {
	progress domain.ProgressRepository
}

func NewWorkflowHandler(progress domain.ProgressRepository) *WorkflowHandler {
	return &WorkflowHandler{progress: progress}
}

type workflowResponse struct {
	CertificateID string                             `json:"certificate_id"`
	Kind          string                             `json:"kind"`
	Status        domain.Status                      `json:"status"`
	Finished      bool                               `json:"finished"`
	FailureReason string                             `json:"failure_reason,omitempty"`
	FaultHandled  bool                               `json:"fault_handled"`
	Steps         map[domain.Step]*domain.StepRecord `json:"steps"`
	CreatedAt     time.Time                          `json:"created_at"`
	UpdatedAt     time.Time                          `json:"updated_at"`
}

// GetWorkflow endpoint GET /workflows/:id
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid certificate id")
		return
	}

	st, err := h.progress.LoadProgress(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProgressNotFound) {
			utils.SendNotFound(c, "workflow not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusOK, workflowResponse{
		CertificateID: st.CertificateID.String(),
		Kind:          string(st.Kind),
		Status:        st.Status,
		Finished:      st.Finished(),
		FailureReason: st.FailureReason,
		FaultHandled:  st.FaultHandled,
		Steps:         st.Steps,
		CreatedAt:     st.CreatedAt,
		UpdatedAt:     st.UpdatedAt,
	})
}
