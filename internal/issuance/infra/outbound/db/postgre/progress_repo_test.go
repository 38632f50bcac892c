package postgre

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	sharedPostgres "github.com/davicafu/hexacert/internal/shared/infra/platform/db/postgres"
)

func TestProgressRepoPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping Postgres tests")
	}
	ctx := context.Background()
	db, err := sharedPostgres.Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, InitPostgres(ctx, db))

	repo := NewProgressRepoPostgres(db)
	st := domain.NewWorkflowState(uuid.New(), certDomain.KindConsumption, "http://wallet")
	st.CompleteStep(domain.StepIssueToLedger, "ref", time.Now().UTC())
	require.NoError(t, repo.SaveProgress(ctx, st))

	loaded, err := repo.LoadProgress(ctx, st.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, "ref", loaded.Output(domain.StepIssueToLedger))

	st.Finish(time.Now().UTC())
	require.NoError(t, repo.SaveProgress(ctx, st))
	list, err := repo.ListUnfinished(ctx, domain.ResumeCursor{}, 1000)
	require.NoError(t, err)
	for _, s := range list {
		assert.NotEqual(t, st.CertificateID, s.CertificateID)
	}
}
