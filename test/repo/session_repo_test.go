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

func TestSessionRepoLifecycle(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	sessions := repo.NewSessionRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()
	tenant := uniq("tenant")
	sessionID := uniq("session")
	session := &model.ProcessingSession{
		ID:          sessionID,
		TenantID:    tenant,
		Status:      model.SessionStatusActive,
		DocumentIDs: []string{"d1", "d2"},
		ModelConfig: `{"model":"fast"}`,
		Ctime:       now,
		Mtime:       now,
	}
	require.NoError(t, sessions.Create(ctx, session))

	fetched, err := sessions.Get(ctx, tenant, sessionID)
	require.NoError(t, err)
	require.Equal(t, []string{"d1", "d2"}, fetched.DocumentIDs)
	require.Equal(t, model.SessionStatusActive, fetched.Status)

	_, err = sessions.Get(ctx, "other-tenant", sessionID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	active, err := sessions.GetActive(ctx, tenant)
	require.NoError(t, err)
	require.Equal(t, sessionID, active.ID)

	require.NoError(t, sessions.UpdateProgress(ctx, tenant, sessionID, 1, 1, timeutil.NowUnix()))
	fetched, err = sessions.Get(ctx, tenant, sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, fetched.Processed)
	require.Equal(t, 1, fetched.Failed)

	ok, err := sessions.UpdateStatusIf(ctx, tenant, sessionID, model.SessionStatusActive, model.SessionStatusCompleted, timeutil.NowUnix())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = sessions.UpdateStatusIf(ctx, tenant, sessionID, model.SessionStatusActive, model.SessionStatusCancelled, timeutil.NowUnix())
	require.NoError(t, err)
	require.False(t, ok)

	_, err = sessions.GetActive(ctx, tenant)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
