package clickhouse

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/hexacert/internal/issuance/domain"
)

func TestOutcomeAnalyticsRepo_RecordOutcome(t *testing.T) {
	addr := os.Getenv("CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("CLICKHOUSE_ADDR not set, skipping ClickHouse test")
	}

	repo, err := NewOutcomeAnalyticsRepo(addr, "default")
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.InitSchema())

	id := uuid.New()
	err = repo.RecordOutcome(context.Background(), domain.OutcomeRecord{
		CertificateID: id,
		Kind:          "production",
		Result:        "issued",
		GridArea:      "DK1",
		Quantity:      100,
		OccurredAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, repo.db.QueryRow("SELECT count() FROM issuance_outcomes WHERE certificate_id = ?", id).Scan(&n))
	require.Equal(t, 1, n)
}
