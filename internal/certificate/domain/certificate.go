package domain

import (
	"fmt"
	"strings"
	"time"

	sharedBus "github.com/davicafu/hexacert/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

type Kind string

const (
	KindProduction  Kind = "production"
	KindConsumption Kind = "consumption"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindProduction:
		return KindProduction, nil
	case KindConsumption:
		return KindConsumption, nil
	}
	return "", fmt.Errorf("%w: unknown certificate kind %q", ErrInvalidCertificate, s)
}

type IssuedState string

const (
	StateCreating IssuedState = "creating"
	StateIssued   IssuedState = "issued"
	StateRejected IssuedState = "rejected"
)

func (s IssuedState) Terminal() bool {
	return s == StateIssued || s == StateRejected
}

// Period es el intervalo de medición [From, To).
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Technology solo aplica a certificados de producción.
type Technology struct {
	FuelCode string `json:"fuel_code"`
	TechCode string `json:"tech_code"`
}

// Facts son los datos inmutables con los que nace un certificado.
type Facts struct {
	GridArea           string
	Period             Period
	MeteringPointOwner string
	GSRN               string
	Quantity           int64 // Wh
	BlindingValue      []byte
}

// Certificate es el agregado. Los hechos no cambian tras la creación y el estado
// solo avanza Creating → Issued | Rejected; una vez terminal queda congelado.
// Nada fuera del paquete puede modificar los campos: los getters devuelven copias.
type Certificate struct {
	id         uuid.UUID
	kind       Kind
	facts      Facts
	technology *Technology
	createdAt  time.Time
	updatedAt  time.Time

	issuedState     IssuedState
	rejectionReason *string
}

// Snapshot es la forma plana del certificado que leen y escriben los repositorios.
type Snapshot struct {
	ID   uuid.UUID
	Kind Kind
	Facts
	Technology      *Technology
	IssuedState     IssuedState
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewProductionCertificate crea un certificado de producción en estado Creating.
func NewProductionCertificate(f Facts, tech Technology) (*Certificate, error) {
	if tech.FuelCode == "" || tech.TechCode == "" {
		return nil, fmt.Errorf("%w: production certificates need fuel and tech codes", ErrInvalidCertificate)
	}
	return newCertificate(KindProduction, f, &tech)
}

// NewConsumptionCertificate crea un certificado de consumo en estado Creating.
func NewConsumptionCertificate(f Facts) (*Certificate, error) {
	return newCertificate(KindConsumption, f, nil)
}

func newCertificate(kind Kind, f Facts, tech *Technology) (*Certificate, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Certificate{
		id:          uuid.New(),
		kind:        kind,
		facts:       f.clone(),
		technology:  cloneTechnology(tech),
		createdAt:   now,
		updatedAt:   now,
		issuedState: StateCreating,
	}, nil
}

func (f Facts) clone() Facts {
	f.Period = Period{From: f.Period.From.UTC(), To: f.Period.To.UTC()}
	f.BlindingValue = append([]byte(nil), f.BlindingValue...)
	return f
}

func cloneTechnology(t *Technology) *Technology {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func (f Facts) validate() error {
	switch {
	case strings.TrimSpace(f.GridArea) == "":
		return fmt.Errorf("%w: grid area is required", ErrInvalidCertificate)
	case strings.TrimSpace(f.MeteringPointOwner) == "":
		return fmt.Errorf("%w: metering point owner is required", ErrInvalidCertificate)
	case strings.TrimSpace(f.GSRN) == "":
		return fmt.Errorf("%w: gsrn is required", ErrInvalidCertificate)
	case f.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidCertificate)
	case !f.Period.From.Before(f.Period.To):
		return fmt.Errorf("%w: period start must be before its end", ErrInvalidCertificate)
	case len(f.BlindingValue) == 0:
		return fmt.Errorf("%w: blinding value is required", ErrInvalidCertificate)
	}
	return nil
}

// Restore reconstruye un certificado leído del almacenamiento.
func Restore(s Snapshot) *Certificate {
	c := &Certificate{
		id:          s.ID,
		kind:        s.Kind,
		facts:       s.Facts.clone(),
		technology:  cloneTechnology(s.Technology),
		createdAt:   s.CreatedAt.UTC(),
		updatedAt:   s.UpdatedAt.UTC(),
		issuedState: s.IssuedState,
	}
	if s.IssuedState == StateRejected && s.RejectionReason != nil {
		reason := *s.RejectionReason
		c.rejectionReason = &reason
	}
	return c
}

// Snapshot devuelve una copia de todo el estado del certificado.
func (c *Certificate) Snapshot() Snapshot {
	return Snapshot{
		ID:              c.id,
		Kind:            c.kind,
		Facts:           c.facts.clone(),
		Technology:      cloneTechnology(c.technology),
		IssuedState:     c.issuedState,
		RejectionReason: c.RejectionReason(),
		CreatedAt:       c.createdAt,
		UpdatedAt:       c.updatedAt,
	}
}

func (c *Certificate) ID() uuid.UUID        { return c.id }
func (c *Certificate) Kind() Kind           { return c.kind }
func (c *Certificate) Facts() Facts         { return c.facts.clone() }
func (c *Certificate) GridArea() string     { return c.facts.GridArea }
func (c *Certificate) Period() Period       { return c.facts.Period }
func (c *Certificate) GSRN() string         { return c.facts.GSRN }
func (c *Certificate) Quantity() int64      { return c.facts.Quantity }
func (c *Certificate) CreatedAt() time.Time { return c.createdAt }
func (c *Certificate) UpdatedAt() time.Time { return c.updatedAt }

func (c *Certificate) MeteringPointOwner() string {
	return c.facts.MeteringPointOwner
}

// BlindingValue devuelve una copia; modificarla no afecta al certificado.
func (c *Certificate) BlindingValue() []byte {
	return append([]byte(nil), c.facts.BlindingValue...)
}

// Technology es nil en los certificados de consumo.
func (c *Certificate) Technology() *Technology {
	return cloneTechnology(c.technology)
}

func (c *Certificate) IssuedState() IssuedState {
	return c.issuedState
}

// RejectionReason solo tiene valor si el certificado está rechazado.
func (c *Certificate) RejectionReason() *string {
	if c.rejectionReason == nil {
		return nil
	}
	reason := *c.rejectionReason
	return &reason
}

func (c *Certificate) IsTerminal() bool {
	return c.issuedState.Terminal()
}

func (c *Certificate) PartitionKey() string {
	return c.id.String()
}

// --- Métodos de dominio ---

// Issue pasa el certificado de Creating a Issued.
func (c *Certificate) Issue() error {
	if c.issuedState != StateCreating {
		return fmt.Errorf("%w: cannot issue certificate %s in state %s", ErrInvalidStateTransition, c.id, c.issuedState)
	}
	c.issuedState = StateIssued
	c.updatedAt = time.Now().UTC()
	return nil
}

// Reject pasa el certificado de Creating a Rejected y guarda el motivo.
func (c *Certificate) Reject(reason string) error {
	if c.issuedState != StateCreating {
		return fmt.Errorf("%w: cannot reject certificate %s in state %s", ErrInvalidStateTransition, c.id, c.issuedState)
	}
	c.issuedState = StateRejected
	c.rejectionReason = &reason
	c.updatedAt = time.Now().UTC()
	return nil
}

// Verificación estática para asegurar que Certificate implementa la interfaz
var _ sharedBus.Keyer = (*Certificate)(nil)
