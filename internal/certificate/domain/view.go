package domain

import (
	"time"

	"github.com/google/uuid"
)

// CertificateView es la representación plana del agregado para caché y HTTP.
type CertificateView struct {
	ID                 uuid.UUID   `json:"id"`
	Kind               Kind        `json:"kind"`
	GridArea           string      `json:"grid_area"`
	Period             Period      `json:"period"`
	MeteringPointOwner string      `json:"metering_point_owner"`
	GSRN               string      `json:"gsrn"`
	Quantity           int64       `json:"quantity"`
	Technology         *Technology `json:"technology,omitempty"`
	IssuedState        IssuedState `json:"issued_state"`
	RejectionReason    *string     `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// View no incluye el blinding value: es un secreto del propietario.
func (c *Certificate) View() CertificateView {
	return CertificateView{
		ID:                 c.ID(),
		Kind:               c.Kind(),
		GridArea:           c.GridArea(),
		Period:             c.Period(),
		MeteringPointOwner: c.MeteringPointOwner(),
		GSRN:               c.GSRN(),
		Quantity:           c.Quantity(),
		Technology:         c.Technology(),
		IssuedState:        c.issuedState,
		RejectionReason:    c.RejectionReason(),
		CreatedAt:          c.CreatedAt(),
		UpdatedAt:          c.UpdatedAt(),
	}
}
