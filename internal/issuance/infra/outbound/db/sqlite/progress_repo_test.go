package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	sharedSQLite "github.com/davicafu/hexacert/internal/shared/infra/platform/db/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sharedSQLite.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, InitSQLite(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProgressRepoSQLite_SaveAndLoad(t *testing.T) {
	repo := NewProgressRepoSQLite(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	st := domain.NewWorkflowState(uuid.New(), certDomain.KindProduction, "http://wallet")
	st.Enter(domain.StepIssueToLedger, now)
	st.CompleteStep(domain.StepIssueToLedger, "ref-1", now)
	st.Enter(domain.StepAwaitCommitment, now)
	st.CountFailure(domain.StepAwaitCommitment, domain.StillProcessingError, "still", now)
	st.CountFailure(domain.StepAwaitCommitment, domain.StillProcessingError, "still", now)
	require.NoError(t, repo.SaveProgress(ctx, st))

	loaded, err := repo.LoadProgress(ctx, st.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingCommitment, loaded.Status)
	assert.Equal(t, "ref-1", loaded.Output(domain.StepIssueToLedger))
	assert.True(t, loaded.StepCompleted(domain.StepIssueToLedger))
	assert.Equal(t, 2, loaded.Failures(domain.StepAwaitCommitment, domain.StillProcessingError))
	assert.Equal(t, "http://wallet", loaded.WalletEndpoint)
	assert.WithinDuration(t, st.CreatedAt, loaded.CreatedAt, time.Microsecond)

	// Upsert
	loaded.Fail(domain.StatusTerminatedExternally, "Terminated: x", now)
	require.NoError(t, repo.SaveProgress(ctx, loaded))
	again, err := repo.LoadProgress(ctx, st.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminatedExternally, again.Status)
	assert.Equal(t, "Terminated: x", again.FailureReason)
	assert.False(t, again.FaultHandled)
}

func TestProgressRepoSQLite_LoadMissing(t *testing.T) {
	repo := NewProgressRepoSQLite(setupTestDB(t))
	_, err := repo.LoadProgress(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrProgressNotFound)
}

func TestProgressRepoSQLite_ListUnfinished(t *testing.T) {
	repo := NewProgressRepoSQLite(setupTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC()

	running := domain.NewWorkflowState(uuid.New(), certDomain.KindConsumption, "")
	running.CreatedAt = base
	done := domain.NewWorkflowState(uuid.New(), certDomain.KindConsumption, "")
	done.CreatedAt = base.Add(time.Second)
	done.Finish(base)
	unhandled := domain.NewWorkflowState(uuid.New(), certDomain.KindConsumption, "")
	unhandled.CreatedAt = base.Add(2 * time.Second)
	unhandled.Fail(domain.StatusFaultedPermanently, "Faulted: x", base)
	handled := domain.NewWorkflowState(uuid.New(), certDomain.KindConsumption, "")
	handled.CreatedAt = base.Add(3 * time.Second)
	handled.Fail(domain.StatusTerminatedExternally, "Terminated: y", base)
	handled.FaultHandled = true

	for _, st := range []*domain.WorkflowState{handled, unhandled, done, running} {
		require.NoError(t, repo.SaveProgress(ctx, st))
	}

	list, err := repo.ListUnfinished(ctx, domain.ResumeCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, running.CertificateID, list[0].CertificateID)
	assert.Equal(t, unhandled.CertificateID, list[1].CertificateID)

	list, err = repo.ListUnfinished(ctx, domain.ResumeCursor{}, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProgressRepoSQLite_ListUnfinishedPagesWithCursor(t *testing.T) {
	repo := NewProgressRepoSQLite(setupTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	want := make(map[uuid.UUID]bool)
	for i := 0; i < 5; i++ {
		st := domain.NewWorkflowState(uuid.New(), certDomain.KindProduction, "")
		// Tres registros empatan en created_at
		st.CreatedAt = base.Add(time.Duration(i/3) * time.Second)
		require.NoError(t, repo.SaveProgress(ctx, st))
		want[st.CertificateID] = true
	}

	seen := make(map[uuid.UUID]bool)
	var after domain.ResumeCursor
	pages := 0
	for {
		page, err := repo.ListUnfinished(ctx, after, 2)
		require.NoError(t, err)
		pages++
		for _, st := range page {
			assert.False(t, seen[st.CertificateID], "registro repetido entre páginas")
			seen[st.CertificateID] = true
		}
		if len(page) < 2 {
			break
		}
		after = domain.CursorAfter(page[len(page)-1])
	}

	assert.Equal(t, want, seen)
	assert.Equal(t, 3, pages)
}
