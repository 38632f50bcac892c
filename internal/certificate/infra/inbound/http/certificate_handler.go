package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davicafu/hexacert/internal/certificate/application"
	"github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/pkg/utils"
)

// CertificateService es lo que el handler necesita de la capa de aplicación.
type CertificateService interface {
	CreateCertificate(ctx context.Context, cmd application.CreateCertificateCommand) (*domain.Certificate, error)
	GetCertificate(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.CertificateView, error)
}

// CertificateHandler encapsula los endpoints HTTP de certificados.
type CertificateHandler struct {
	service CertificateService
}

func NewCertificateHandler(service CertificateService) *CertificateHandler {
	return &CertificateHandler{service: service}
}

type createCertificateRequest struct {
	Kind               string             `json:"kind" binding:"required"`
	GridArea           string             `json:"grid_area" binding:"required"`
	PeriodFrom         time.Time          `json:"period_from" binding:"required"`
	PeriodTo           time.Time          `json:"period_to" binding:"required"`
	MeteringPointOwner string             `json:"metering_point_owner" binding:"required"`
	GSRN               string             `json:"gsrn" binding:"required"`
	Quantity           int64              `json:"quantity" binding:"required"`
	BlindingValue      []byte             `json:"blinding_value" binding:"required"` // base64
	Technology         *domain.Technology `json:"technology,omitempty"`
	WalletEndpoint     string             `json:"wallet_endpoint" binding:"required"`
}

// CreateCertificate endpoint POST /certificates
func (h *CertificateHandler) CreateCertificate(c *gin.Context) {
	var req createCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	cert, err := h.service.CreateCertificate(c.Request.Context(), application.CreateCertificateCommand{
		Kind: domain.Kind(req.Kind),
		Facts: domain.Facts{
			GridArea:           req.GridArea,
			Period:             domain.Period{From: req.PeriodFrom, To: req.PeriodTo},
			MeteringPointOwner: req.MeteringPointOwner,
			GSRN:               req.GSRN,
			Quantity:           req.Quantity,
			BlindingValue:      req.BlindingValue,
		},
		Technology:     req.Technology,
		WalletEndpoint: req.WalletEndpoint,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCertificate):
			utils.SendBadRequest(c, err.Error())
		case errors.Is(err, domain.ErrCertificateAlreadyExists):
			utils.SendConflict(c, err.Error())
		default:
			utils.SendInternalServerError(c, err.Error())
		}
		return
	}

	utils.SendSuccess(c, http.StatusCreated, cert.View())
}

// GetCertificate endpoint GET /certificates/:kind/:id
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	kind, err := domain.ParseKind(c.Param("kind"))
	if err != nil {
		utils.SendBadRequest(c, "invalid certificate kind")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid certificate id")
		return
	}

	view, err := h.service.GetCertificate(c.Request.Context(), kind, id)
	if err != nil {
		if errors.Is(err, domain.ErrCertificateNotFound) {
			utils.SendNotFound(c, "certificate not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusOK, view)
}
