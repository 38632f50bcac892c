package application

import (
	"context"
	"testing"
	"time"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	"github.com/davicafu/hexacert/tests/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const walletEndpoint = "http://wallet.local/v1/slices"

func fastPolicies() domain.Policies {
	transient := func(attempts int) domain.RetryPolicy {
		return domain.RetryPolicy{
			Kind:        domain.Incremental,
			Interval:    time.Millisecond,
			Increment:   time.Millisecond,
			MaxInterval: 5 * time.Millisecond,
			MaxAttempts: attempts,
			Retryable:   []domain.FailureKind{domain.TransientError},
		}
	}
	return domain.Policies{
		IssueToLedger: domain.ActivityPolicy{Rules: []domain.RetryPolicy{{
			Kind:        domain.Fixed,
			Interval:    time.Millisecond,
			MaxAttempts: 3,
			Retryable:   []domain.FailureKind{domain.TransientError},
		}}},
		AwaitCommitment: domain.ActivityPolicy{Rules: []domain.RetryPolicy{
			{
				Kind:        domain.Fixed,
				Interval:    time.Millisecond,
				MaxAttempts: 20,
				Retryable:   []domain.FailureKind{domain.StillProcessingError},
			},
			transient(3),
		}},
		DeliverToWallet: domain.ActivityPolicy{Rules: []domain.RetryPolicy{transient(3)}},
		MarkIssued:      domain.ActivityPolicy{Rules: []domain.RetryPolicy{transient(3)}},
	}
}

type fixture struct {
	certs    *mocks.InMemoryCertificateRepo
	progress *mocks.InMemoryProgressRepo
	ledger   *mocks.ScriptedLedger
	wallet   *mocks.ScriptedWallet
	cache    *mocks.DummyCache
	faults   *FaultHandler
	acts     *Activities
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPolicies(t, fastPolicies())
}

func newFixtureWithPolicies(t *testing.T, policies domain.Policies) *fixture {
	t.Helper()
	f := &fixture{
		certs:    mocks.NewInMemoryCertificateRepo(),
		progress: mocks.NewInMemoryProgressRepo(),
		ledger:   &mocks.ScriptedLedger{},
		wallet:   &mocks.ScriptedWallet{},
		cache:    mocks.NewDummyCache(),
	}
	log := zap.NewNop()
	f.acts = NewActivities(f.ledger, f.wallet, f.certs, f.cache, log)
	f.faults = NewFaultHandler(f.certs, f.cache, log)
	f.orch = NewOrchestrator(f.acts, f.certs, f.progress, f.faults, policies, nil, log)
	return f
}

func (f *fixture) newCertificate(t *testing.T) *certDomain.Certificate {
	t.Helper()
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c, err := certDomain.NewConsumptionCertificate(certDomain.Facts{
		GridArea:           "DK1",
		Period:             certDomain.Period{From: from, To: from.Add(time.Hour)},
		MeteringPointOwner: "owner-1",
		GSRN:               "571313000000000042",
		Quantity:           4200,
		BlindingValue:      []byte("blinding-value"),
	})
	require.NoError(t, err)
	f.certs.Put(c)
	return c
}

func (f *fixture) start(t *testing.T, c *certDomain.Certificate) *domain.WorkflowState {
	t.Helper()
	st, err := f.orch.Start(context.Background(), StartRequest{
		CertificateID:  c.ID(),
		Kind:           c.Kind(),
		WalletEndpoint: walletEndpoint,
	})
	require.NoError(t, err)
	return st
}

func still() mocks.StatusResult {
	return mocks.StatusResult{Status: domain.TransactionStatus{Status: domain.LedgerStillProcessing}}
}

func committed() mocks.StatusResult {
	return mocks.StatusResult{Status: domain.TransactionStatus{Status: domain.LedgerCommitted}}
}

func failed(reason string) mocks.StatusResult {
	return mocks.StatusResult{Status: domain.TransactionStatus{Status: domain.LedgerFailed, Reason: reason}}
}
