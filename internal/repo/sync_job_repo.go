package repo

import (
	"context"
	"database/sql"

	"github.com/paperflowhq/paperflow/internal/model"
	"github.com/paperflowhq/paperflow/internal/pkg/dbutil"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
)

type SyncJobRepo struct {
	db *sql.DB
}

func NewSyncJobRepo(db *sql.DB) *SyncJobRepo {
	return &SyncJobRepo{db: db}
}

func (r *SyncJobRepo) Create(ctx context.Context, job *model.ConnectorSyncJob) error {
	const query = `
		INSERT INTO connector_sync_jobs (id, account_id, tenant_id, provider, status, scanned, imported, skipped, failed, error_text, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.AccountID, job.TenantID, job.Provider, job.Status,
		job.Scanned, job.Imported, job.Skipped, job.Failed, job.ErrorText,
		job.StartedAt, job.FinishedAt,
	)
	return err
}

func (r *SyncJobRepo) Get(ctx context.Context, tenantID, jobID string) (*model.ConnectorSyncJob, error) {
	const query = `
		SELECT id, account_id, tenant_id, provider, status, scanned, imported, skipped, failed, error_text, started_at, finished_at
		FROM connector_sync_jobs
		WHERE id = $1 AND tenant_id = $2
	`
	row := r.db.QueryRowContext(ctx, query, jobID, tenantID)
	var job model.ConnectorSyncJob
	if err := row.Scan(
		&job.ID, &job.AccountID, &job.TenantID, &job.Provider, &job.Status,
		&job.Scanned, &job.Imported, &job.Skipped, &job.Failed, &job.ErrorText,
		&job.StartedAt, &job.FinishedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *SyncJobRepo) ListByAccount(ctx context.Context, tenantID, accountID string, limit int) ([]model.ConnectorSyncJob, error) {
	const query = `
		SELECT id, account_id, tenant_id, provider, status, scanned, imported, skipped, failed, error_text, started_at, finished_at
		FROM connector_sync_jobs
		WHERE account_id = $1 AND tenant_id = $2
		ORDER BY started_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	jobs := make([]model.ConnectorSyncJob, 0)
	for rows.Next() {
		var job model.ConnectorSyncJob
		if err := rows.Scan(
			&job.ID, &job.AccountID, &job.TenantID, &job.Provider, &job.Status,
			&job.Scanned, &job.Imported, &job.Skipped, &job.Failed, &job.ErrorText,
			&job.StartedAt, &job.FinishedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Finish writes the terminal status and final stats in one shot.
func (r *SyncJobRepo) Finish(ctx context.Context, job *model.ConnectorSyncJob) error {
	const query = `
		UPDATE connector_sync_jobs
		SET status = $1,
			scanned = $2,
			imported = $3,
			skipped = $4,
			failed = $5,
			error_text = $6,
			finished_at = $7
		WHERE id = $8 AND tenant_id = $9
	`
	res, err := r.db.ExecContext(ctx, query,
		job.Status, job.Scanned, job.Imported, job.Skipped, job.Failed,
		job.ErrorText, job.FinishedAt, job.ID, job.TenantID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

type SyncItemRepo struct {
	db *sql.DB
}

func NewSyncItemRepo(db *sql.DB) *SyncItemRepo {
	return &SyncItemRepo{db: db}
}

// Insert records one candidate item. The partial unique index on
// (account_id, remote_item_id, fingerprint) maps concurrent re-ingestion of
// the same content version to ErrDuplicate.
func (r *SyncItemRepo) Insert(ctx context.Context, item *model.ConnectorSyncItem) error {
	const query = `
		INSERT INTO connector_sync_items (id, job_id, account_id, tenant_id, remote_item_id, remote_path, fingerprint, document_id, status, error_text, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.JobID, item.AccountID, item.TenantID, item.RemoteItemID,
		item.RemotePath, item.Fingerprint, item.DocumentID, item.Status,
		item.ErrorText, item.Ctime,
	)
	if err != nil && dbutil.IsConflict(err) {
		return appErr.ErrDuplicate
	}
	return err
}

// SeenKey reports whether this exact content version of a remote item was
// already ingested or skipped by a previous job.
func (r *SyncItemRepo) SeenKey(ctx context.Context, accountID, remoteItemID, fp string) (bool, error) {
	const query = `
		SELECT COUNT(1)
		FROM connector_sync_items
		WHERE account_id = $1 AND remote_item_id = $2 AND fingerprint = $3 AND status = $4
	`
	row := r.db.QueryRowContext(ctx, query, accountID, remoteItemID, fp, model.SyncItemStatusProcessed)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SyncItemRepo) ListByJob(ctx context.Context, tenantID, jobID string) ([]model.ConnectorSyncItem, error) {
	const query = `
		SELECT id, job_id, account_id, tenant_id, remote_item_id, remote_path, fingerprint, document_id, status, error_text, ctime
		FROM connector_sync_items
		WHERE job_id = $1 AND tenant_id = $2
		ORDER BY ctime
	`
	rows, err := r.db.QueryContext(ctx, query, jobID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.ConnectorSyncItem, 0)
	for rows.Next() {
		var item model.ConnectorSyncItem
		if err := rows.Scan(
			&item.ID, &item.JobID, &item.AccountID, &item.TenantID, &item.RemoteItemID,
			&item.RemotePath, &item.Fingerprint, &item.DocumentID, &item.Status,
			&item.ErrorText, &item.Ctime,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
