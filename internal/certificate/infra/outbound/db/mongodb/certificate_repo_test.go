package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/hexacert/internal/certificate/domain"
)

func TestMongoCertificateMapping(t *testing.T) {
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cert, err := domain.NewProductionCertificate(domain.Facts{
		GridArea:           "DK1",
		Period:             domain.Period{From: from, To: from.Add(time.Hour)},
		MeteringPointOwner: "owner",
		GSRN:               "571313180000000001",
		Quantity:           10,
		BlindingValue:      []byte("blind"),
	}, domain.Technology{FuelCode: "F1", TechCode: "T1"})
	require.NoError(t, err)
	require.NoError(t, cert.Reject("Terminated: bad"))

	mc := toMongoCertificate(cert)
	assert.Equal(t, cert.ID().String(), mc.ID)
	assert.Equal(t, string(domain.StateRejected), mc.IssuedState)

	back, err := fromMongoCertificate(&mc)
	require.NoError(t, err)
	assert.Equal(t, cert.ID(), back.ID())
	assert.Equal(t, domain.StateRejected, back.IssuedState())
	require.NotNil(t, back.RejectionReason())
	assert.Equal(t, "Terminated: bad", *back.RejectionReason())
	require.NotNil(t, back.Technology())
	assert.Equal(t, "F1", back.Technology().FuelCode)
	assert.Equal(t, []byte("blind"), back.BlindingValue())
}
