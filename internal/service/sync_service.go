package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/paperflowhq/paperflow/internal/connector"
	"github.com/paperflowhq/paperflow/internal/fingerprint"
	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
	"github.com/paperflowhq/paperflow/internal/pkg/timeutil"
)

type syncAccounts interface {
	Get(ctx context.Context, tenantID, accountID string) (*model.ConnectorAccount, error)
	List(ctx context.Context, tenantID string) ([]model.ConnectorAccount, error)
	StampLastSync(ctx context.Context, tenantID, accountID string, syncedAt int64) error
}

type syncJobs interface {
	Create(ctx context.Context, job *model.ConnectorSyncJob) error
	Finish(ctx context.Context, job *model.ConnectorSyncJob) error
	Get(ctx context.Context, tenantID, jobID string) (*model.ConnectorSyncJob, error)
	ListByAccount(ctx context.Context, tenantID, accountID string, limit int) ([]model.ConnectorSyncJob, error)
}

type syncItems interface {
	Insert(ctx context.Context, item *model.ConnectorSyncItem) error
	SeenKey(ctx context.Context, accountID, remoteItemID, fp string) (bool, error)
	ListByJob(ctx context.Context, tenantID, jobID string) ([]model.ConnectorSyncItem, error)
}

type ingestGate interface {
	Ingest(ctx context.Context, in IngestInput) (*IngestOutcome, error)
}

type providerFactory func(name string, args connector.ProviderArgs) (connector.Provider, error)

type SyncStats struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Scanned  int    `json:"scanned"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// SyncService pulls files from a remote file store into the pipeline exactly
// once per content version. The dedup key (account, remote item, fingerprint)
// makes re-invocation idempotent: retrying a sync means calling Sync again.
type SyncService struct {
	accounts    syncAccounts
	jobs        syncJobs
	items       syncItems
	ingest      ingestGate
	newProvider providerFactory
}

func NewSyncService(accounts syncAccounts, jobs syncJobs, items syncItems, ingest ingestGate) *SyncService {
	return &SyncService{
		accounts:    accounts,
		jobs:        jobs,
		items:       items,
		ingest:      ingest,
		newProvider: connector.NewProvider,
	}
}

// Sync runs one full scan of the account's remote tree. suppliedToken, when
// non-empty, is used instead of exchanging the stored long-lived credentials.
func (s *SyncService) Sync(ctx context.Context, tenantID, accountID, suppliedToken string) (*SyncStats, error) {
	account, err := s.accounts.Get(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	creds, err := connector.ParseCredentials(account.Credentials)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	if suppliedToken != "" {
		creds.AccessToken = suppliedToken
	}

	job := &model.ConnectorSyncJob{
		ID:        newID(),
		AccountID: account.ID,
		TenantID:  tenantID,
		Provider:  account.Provider,
		Status:    model.SyncJobStatusRunning,
		StartedAt: timeutil.NowUnix(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("tenant_id", tenantID),
		zap.String("account_id", account.ID),
		zap.String("job_id", job.ID),
	)

	provider, err := s.newProvider(account.Provider, connector.ProviderArgs{
		Credentials: creds,
		RootFolder:  account.RootFolder,
	})
	if err != nil {
		return s.failJob(ctx, job, err)
	}
	// token acquisition failure is fatal before any item is touched
	if err := provider.EnsureAuth(ctx); err != nil {
		logger.Error("provider auth failed", zap.Error(err))
		return s.failJob(ctx, job, err)
	}

	stats, err := s.walk(ctx, logger, provider, account, job)
	if err != nil {
		return s.failJob(ctx, job, err)
	}

	job.Scanned = stats.Scanned
	job.Imported = stats.Imported
	job.Skipped = stats.Skipped
	job.Failed = stats.Failed
	job.Status = model.ClassifyJobStatus(stats.Imported, stats.Failed)
	job.FinishedAt = timeutil.NowUnix()
	if err := s.jobs.Finish(ctx, job); err != nil {
		return nil, err
	}
	if err := s.accounts.StampLastSync(ctx, tenantID, account.ID, job.FinishedAt); err != nil {
		return nil, err
	}
	stats.JobID = job.ID
	stats.Status = job.Status
	logger.Info("sync finished",
		zap.String("status", job.Status),
		zap.Int("scanned", stats.Scanned),
		zap.Int("imported", stats.Imported),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// walk lists the remote tree breadth-first, downloading each file as it is
// discovered. Folder listing failures abort the job; anything that goes wrong
// for a single file is recorded on its item row and the loop continues.
func (s *SyncService) walk(ctx context.Context, logger *zap.Logger, provider connector.Provider, account *model.ConnectorAccount, job *model.ConnectorSyncJob) (*SyncStats, error) {
	stats := &SyncStats{}
	queue := []string{account.RootFolder}
	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]
		entries, err := provider.ListChildren(ctx, folder)
		if err != nil {
			return nil, fmt.Errorf("list folder %q: %w", folder, err)
		}
		for _, entry := range entries {
			if entry.IsFolder {
				queue = append(queue, entry.ID)
				continue
			}
			stats.Scanned += 1
			if err := s.processEntry(ctx, provider, account, job, entry, stats); err != nil {
				stats.Failed += 1
				s.recordItem(ctx, account, job, entry, "", "", model.SyncItemStatusFailed, err.Error())
				logger.Warn("sync item failed",
					zap.String("remote_item_id", entry.ID),
					zap.Error(err),
				)
			}
		}
	}
	return stats, nil
}

func (s *SyncService) processEntry(ctx context.Context, provider connector.Provider, account *model.ConnectorAccount, job *model.ConnectorSyncJob, entry connector.Entry, stats *SyncStats) error {
	content, err := provider.DownloadContent(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	fp := fingerprint.Compute(content.Data)

	seen, err := s.items.SeenKey(ctx, account.ID, entry.ID, fp)
	if err != nil {
		return fmt.Errorf("dedup probe: %w", err)
	}
	if seen {
		// unchanged content under the same remote id is a no-op; a changed
		// fingerprint would have missed and been re-ingested as a new version
		stats.Skipped += 1
		s.recordItem(ctx, account, job, entry, fp, "", model.SyncItemStatusSkipped, "")
		return nil
	}

	outcome, err := s.ingest.Ingest(ctx, IngestInput{
		TenantID:    account.TenantID,
		Filename:    entry.Name,
		Data:        content.Data,
		ContentType: content.ContentType,
		SourceKind:  model.SourceKindConnector,
		SourceRef:   entry.Path,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if outcome.Duplicate != nil {
		stats.Skipped += 1
		matchedID := ""
		if outcome.Duplicate.Matched != nil {
			matchedID = outcome.Duplicate.Matched.ID
		}
		s.recordItem(ctx, account, job, entry, fp, matchedID, model.SyncItemStatusSkipped, "")
		return nil
	}
	stats.Imported += 1
	s.recordItem(ctx, account, job, entry, fp, outcome.Document.ID, model.SyncItemStatusProcessed, "")
	return nil
}

func (s *SyncService) recordItem(ctx context.Context, account *model.ConnectorAccount, job *model.ConnectorSyncJob, entry connector.Entry, fp, documentID, status, errorText string) {
	item := &model.ConnectorSyncItem{
		ID:           newID(),
		JobID:        job.ID,
		AccountID:    account.ID,
		TenantID:     account.TenantID,
		RemoteItemID: entry.ID,
		RemotePath:   entry.Path,
		Fingerprint:  fp,
		DocumentID:   documentID,
		Status:       status,
		ErrorText:    errorText,
		Ctime:        timeutil.NowUnix(),
	}
	if err := s.items.Insert(ctx, item); err != nil && !errors.Is(err, appErr.ErrDuplicate) {
		// the audit row is best effort, its loss never aborts the item
		logutil.GetLogger(ctx).Warn("record sync item failed",
			zap.String("job_id", job.ID),
			zap.String("remote_item_id", entry.ID),
			zap.Error(err),
		)
	}
}

func (s *SyncService) failJob(ctx context.Context, job *model.ConnectorSyncJob, cause error) (*SyncStats, error) {
	job.Status = model.SyncJobStatusFailed
	job.ErrorText = cause.Error()
	job.FinishedAt = timeutil.NowUnix()
	if err := s.jobs.Finish(ctx, job); err != nil {
		logutil.GetLogger(ctx).Error("finalize failed job", zap.String("job_id", job.ID), zap.Error(err))
	}
	return nil, cause
}

// SyncAll re-invokes Sync for every stored account; used by the scheduler.
// One account's failure does not stop the others.
func (s *SyncService) SyncAll(ctx context.Context) error {
	accounts, err := s.accounts.List(ctx, "")
	if err != nil {
		return err
	}
	var firstErr error
	for _, account := range accounts {
		if _, err := s.Sync(ctx, account.TenantID, account.ID, ""); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logutil.GetLogger(ctx).Error("scheduled sync failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}
	return firstErr
}

func (s *SyncService) GetJob(ctx context.Context, tenantID, jobID string) (*model.ConnectorSyncJob, error) {
	return s.jobs.Get(ctx, tenantID, jobID)
}

func (s *SyncService) ListJobs(ctx context.Context, tenantID, accountID string, limit int) ([]model.ConnectorSyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.jobs.ListByAccount(ctx, tenantID, accountID, limit)
}

func (s *SyncService) ListJobItems(ctx context.Context, tenantID, jobID string) ([]model.ConnectorSyncItem, error) {
	return s.items.ListByJob(ctx, tenantID, jobID)
}
