package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
	"github.com/paperflowhq/paperflow/internal/pkg/timeutil"
	"github.com/paperflowhq/paperflow/internal/repo"
	"github.com/paperflowhq/paperflow/test/testutil"
)

func TestSyncJobRepoLifecycle(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	jobs := repo.NewSyncJobRepo(db)
	ctx := context.Background()
	tenant := uniq("tenant")
	accountID := uniq("acc")
	jobID := uniq("job")
	job := &model.ConnectorSyncJob{
		ID:        jobID,
		AccountID: accountID,
		TenantID:  tenant,
		Provider:  "graph",
		Status:    model.SyncJobStatusRunning,
		StartedAt: timeutil.NowUnix(),
	}
	require.NoError(t, jobs.Create(ctx, job))

	job.Status = model.SyncJobStatusCompleted
	job.Scanned = 3
	job.Imported = 2
	job.Skipped = 1
	job.FinishedAt = timeutil.NowUnix()
	require.NoError(t, jobs.Finish(ctx, job))

	fetched, err := jobs.Get(ctx, tenant, jobID)
	require.NoError(t, err)
	require.Equal(t, model.SyncJobStatusCompleted, fetched.Status)
	require.Equal(t, 3, fetched.Scanned)
	require.Equal(t, 2, fetched.Imported)

	listed, err := jobs.ListByAccount(ctx, tenant, accountID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestSyncItemRepoDedupKey(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	items := repo.NewSyncItemRepo(db)
	ctx := context.Background()
	tenant := uniq("tenant")
	accountID := uniq("acc")
	jobID := uniq("job")
	fp := uniq("fp")

	processed := &model.ConnectorSyncItem{
		ID:           uniq("item"),
		JobID:        jobID,
		AccountID:    accountID,
		TenantID:     tenant,
		RemoteItemID: "remote-1",
		RemotePath:   "/inbox/a.pdf",
		Fingerprint:  fp,
		DocumentID:   uniq("doc"),
		Status:       model.SyncItemStatusProcessed,
		Ctime:        timeutil.NowUnix(),
	}
	require.NoError(t, items.Insert(ctx, processed))

	seen, err := items.SeenKey(ctx, accountID, "remote-1", fp)
	require.NoError(t, err)
	require.True(t, seen)

	// a changed fingerprint under the same remote id is a fresh key
	seen, err = items.SeenKey(ctx, accountID, "remote-1", uniq("fp2"))
	require.NoError(t, err)
	require.False(t, seen)

	// the same processed key cannot land twice
	dup := *processed
	dup.ID = uniq("item")
	require.ErrorIs(t, items.Insert(ctx, &dup), appErr.ErrDuplicate)

	// skipped rows for the same key are fine, a resync writes one per pass
	skipped := *processed
	skipped.ID = uniq("item")
	skipped.JobID = uniq("job")
	skipped.DocumentID = ""
	skipped.Status = model.SyncItemStatusSkipped
	require.NoError(t, items.Insert(ctx, &skipped))

	listed, err := items.ListByJob(ctx, tenant, jobID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}
