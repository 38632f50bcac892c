package postgre

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/hexacert/internal/certificate/domain"
	sharedPostgres "github.com/davicafu/hexacert/internal/shared/infra/platform/db/postgres"
)

func setupPostgres(t *testing.T) *sql.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping Postgres tests")
	}
	ctx := context.Background()
	db, err := sharedPostgres.Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, InitPostgres(ctx, db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCertificateRepoPostgres_Lifecycle(t *testing.T) {
	db := setupPostgres(t)
	repo := NewCertificateRepoPostgres(db)
	ctx := context.Background()

	from := time.Now().UTC().Truncate(time.Hour)
	c, err := domain.NewConsumptionCertificate(domain.Facts{
		GridArea:           "DK1",
		Period:             domain.Period{From: from, To: from.Add(time.Hour)},
		MeteringPointOwner: "owner",
		GSRN:               "571313000000000011",
		Quantity:           100,
		BlindingValue:      []byte{1},
	})
	require.NoError(t, err)

	msg, err := domain.NewCreatedMessage(c, "http://wallet")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, c, msg))
	assert.ErrorIs(t, repo.Create(ctx, c, msg), domain.ErrCertificateAlreadyExists)

	require.NoError(t, c.Issue())
	issued, err := domain.NewIssuedMessage(c)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c, issued))

	found, err := repo.FindByID(ctx, c.ID(), c.Kind())
	require.NoError(t, err)
	assert.Equal(t, domain.StateIssued, found.IssuedState())
	assert.Nil(t, found.Technology())

	assert.ErrorIs(t, repo.Save(ctx, c), domain.ErrInvalidStateTransition)
}
