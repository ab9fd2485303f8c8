package repo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
	"github.com/paperflowhq/paperflow/internal/pkg/timeutil"
	"github.com/paperflowhq/paperflow/internal/repo"
	"github.com/paperflowhq/paperflow/test/testutil"
)

func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestDocumentRepoCRUDAndIsolation(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()
	tenant := uniq("tenant")
	docID := uniq("doc")
	fp := uniq("fp")
	doc := &model.Document{
		ID:          docID,
		TenantID:    tenant,
		Filename:    "invoice.pdf",
		Status:      model.DocumentStatusUploaded,
		Fingerprint: fp,
		SourceKind:  model.SourceKindUpload,
		StorageKey:  tenant + "/" + fp + "/invoice.pdf",
		Ctime:       now,
		Mtime:       now,
	}
	require.NoError(t, docs.Create(ctx, doc))

	fetched, err := docs.GetByID(ctx, tenant, docID)
	require.NoError(t, err)
	require.Equal(t, "invoice.pdf", fetched.Filename)

	_, err = docs.GetByID(ctx, "other-tenant", docID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	matched, err := docs.FindByFingerprint(ctx, tenant, fp)
	require.NoError(t, err)
	require.Equal(t, docID, matched.ID)

	_, err = docs.FindByFingerprint(ctx, "other-tenant", fp)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDocumentRepoFingerprintUniqueUntilArchived(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()
	tenant := uniq("tenant")
	fp := uniq("fp")
	first := &model.Document{
		ID:          uniq("doc"),
		TenantID:    tenant,
		Filename:    "a.pdf",
		Status:      model.DocumentStatusUploaded,
		Fingerprint: fp,
		Ctime:       now,
		Mtime:       now,
	}
	require.NoError(t, docs.Create(ctx, first))

	dup := &model.Document{
		ID:          uniq("doc"),
		TenantID:    tenant,
		Filename:    "b.pdf",
		Status:      model.DocumentStatusUploaded,
		Fingerprint: fp,
		Ctime:       now,
		Mtime:       now,
	}
	require.ErrorIs(t, docs.Create(ctx, dup), appErr.ErrDuplicate)

	// archiving the blocker releases the fingerprint for re-ingestion
	require.NoError(t, docs.SetArchived(ctx, tenant, first.ID, true, timeutil.NowUnix()))
	require.NoError(t, docs.Create(ctx, dup))
}

func TestDocumentRepoSetStatusIf(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()
	tenant := uniq("tenant")
	docID := uniq("doc")
	doc := &model.Document{
		ID:       docID,
		TenantID: tenant,
		Filename: "c.pdf",
		Status:   model.DocumentStatusUploaded,
		Ctime:    now,
		Mtime:    now,
	}
	require.NoError(t, docs.Create(ctx, doc))

	ok, err := docs.SetStatusIf(ctx, tenant, docID, model.DocumentStatusUploaded, model.DocumentStatusProcessing, timeutil.NowUnix())
	require.NoError(t, err)
	require.True(t, ok)

	// second claim must lose
	ok, err = docs.SetStatusIf(ctx, tenant, docID, model.DocumentStatusUploaded, model.DocumentStatusProcessing, timeutil.NowUnix())
	require.NoError(t, err)
	require.False(t, ok)

	fetched, err := docs.GetByID(ctx, tenant, docID)
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusProcessing, fetched.Status)
}

func TestDocumentRepoListFilters(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()
	tenant := uniq("tenant")
	for i, status := range []string{model.DocumentStatusUploaded, model.DocumentStatusApproved} {
		require.NoError(t, docs.Create(ctx, &model.Document{
			ID:       uniq(fmt.Sprintf("doc%d", i)),
			TenantID: tenant,
			Filename: fmt.Sprintf("f%d.pdf", i),
			Status:   status,
			Ctime:    now,
			Mtime:    now,
		}))
	}

	all, err := docs.List(ctx, tenant, "", nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	approved, err := docs.List(ctx, tenant, model.DocumentStatusApproved, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, model.DocumentStatusApproved, approved[0].Status)
}
