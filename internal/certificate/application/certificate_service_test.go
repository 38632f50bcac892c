package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/hexacert/internal/certificate/domain"
	sharedEvents "github.com/davicafu/hexacert/internal/shared/events"
	sharedUtils "github.com/davicafu/hexacert/internal/shared/infra/utils"
	"github.com/davicafu/hexacert/tests/mocks"
)

func validFacts() domain.Facts {
	from := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	return domain.Facts{
		GridArea:           "DK1",
		Period:             domain.Period{From: from, To: from.Add(time.Hour)},
		MeteringPointOwner: "owner-1",
		GSRN:               "571313180000000001",
		Quantity:           1500,
		BlindingValue:      []byte("0123456789abcdef"),
	}
}

func newService() (*CertificateService, *mocks.InMemoryCertificateRepo, *mocks.DummyCache) {
	repo := mocks.NewInMemoryCertificateRepo()
	cache := mocks.NewDummyCache()
	return NewCertificateService(repo, cache, time.Minute, zap.NewNop()), repo, cache
}

func TestCreateCertificate_EnqueuesTrigger(t *testing.T) {
	svc, repo, _ := newService()

	cert, err := svc.CreateCertificate(context.Background(), CreateCertificateCommand{
		Kind:           domain.KindProduction,
		Facts:          validFacts(),
		Technology:     &domain.Technology{FuelCode: "F01040100", TechCode: "T010000"},
		WalletEndpoint: "http://wallet/slices",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreating, cert.IssuedState())

	// ✅ Verificar que se creó el mensaje en el outbox
	require.Len(t, repo.Outbox, 1)
	msg := repo.Outbox[0]
	assert.Equal(t, domain.CertificateCreated, msg.MessageType)
	assert.Equal(t, domain.IssuanceTopic, msg.Destination)
	assert.Equal(t, cert.ID().String(), msg.AggregateID)
	assert.Contains(t, string(msg.Payload), "http://wallet/slices")
}

func TestCreateCertificate_Consumption(t *testing.T) {
	svc, repo, _ := newService()

	cert, err := svc.CreateCertificate(context.Background(), CreateCertificateCommand{
		Kind:           domain.KindConsumption,
		Facts:          validFacts(),
		WalletEndpoint: "http://wallet/slices",
	})
	require.NoError(t, err)
	assert.Nil(t, cert.Technology())
	assert.Len(t, repo.Outbox, 1)
}

func TestCreateCertificate_Validation(t *testing.T) {
	bad := validFacts()
	bad.Quantity = 0

	tests := []struct {
		name string
		cmd  CreateCertificateCommand
	}{
		{"missing wallet", CreateCertificateCommand{Kind: domain.KindConsumption, Facts: validFacts()}},
		{"production without technology", CreateCertificateCommand{Kind: domain.KindProduction, Facts: validFacts(), WalletEndpoint: "w"}},
		{"unknown kind", CreateCertificateCommand{Kind: "solar", Facts: validFacts(), WalletEndpoint: "w"}},
		{"invalid facts", CreateCertificateCommand{Kind: domain.KindConsumption, Facts: bad, WalletEndpoint: "w"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newService()
			_, err := svc.CreateCertificate(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, domain.ErrInvalidCertificate)
			assert.Empty(t, repo.Outbox)
		})
	}
}

func TestGetCertificate_CacheHit(t *testing.T) {
	svc, repo, cache := newService()
	id := uuid.New()
	view := domain.CertificateView{ID: id, Kind: domain.KindConsumption, GridArea: "DK2"}
	require.NoError(t, cache.Set(context.Background(), domain.CacheKeyByID(domain.KindConsumption, id), view, time.Minute))

	got, err := svc.GetCertificate(context.Background(), domain.KindConsumption, id)
	require.NoError(t, err)
	assert.Equal(t, "DK2", got.GridArea)
	assert.Zero(t, repo.FindCalls)
}

func TestGetCertificate_CacheMissFillsCache(t *testing.T) {
	svc, repo, cache := newService()
	cert, err := domain.NewConsumptionCertificate(validFacts())
	require.NoError(t, err)
	repo.Put(cert)

	got, err := svc.GetCertificate(context.Background(), domain.KindConsumption, cert.ID())
	require.NoError(t, err)
	assert.Equal(t, cert.ID(), got.ID)
	assert.Equal(t, domain.StateCreating, got.IssuedState)

	assert.Eventually(t, func() bool {
		return cache.Has(domain.CacheKeyByID(domain.KindConsumption, cert.ID()))
	}, time.Second, 10*time.Millisecond)
}

func TestGetCertificate_NotFoundIsNotRetried(t *testing.T) {
	svc, repo, _ := newService()

	_, err := svc.GetCertificate(context.Background(), domain.KindProduction, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCertificateNotFound)
	assert.Equal(t, 1, repo.FindCalls)
}

func TestGetCertificate_StoreErrorIsRetried(t *testing.T) {
	svc, repo, _ := newService()
	repo.FindErr = errors.New("db down")

	_, err := svc.GetCertificate(context.Background(), domain.KindProduction, uuid.New())
	assert.Error(t, err)
	assert.Equal(t, readAttempts, repo.FindCalls)
}

func TestCreatedMessagePayloadShape(t *testing.T) {
	svc, repo, _ := newService()
	cert, err := svc.CreateCertificate(context.Background(), CreateCertificateCommand{
		Kind:           domain.KindConsumption,
		Facts:          validFacts(),
		WalletEndpoint: "http://wallet/x",
	})
	require.NoError(t, err)

	evt, err := decodeCreated(repo.Outbox[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, sharedEvents.CertificateCreated{
		CertificateID:  cert.ID(),
		Kind:           "consumption",
		WalletEndpoint: "http://wallet/x",
	}, evt)
}

func decodeCreated(payload []byte) (sharedEvents.CertificateCreated, error) {
	return sharedUtils.DecodeEvent[sharedEvents.CertificateCreated](payload)
}
