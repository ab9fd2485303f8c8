package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *model.ProcessingSession) error {
	idsJSON, err := json.Marshal(session.DocumentIDs)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO processing_sessions (id, tenant_id, status, document_ids, processed, failed, model_config, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.TenantID,
		session.Status,
		string(idsJSON),
		session.Processed,
		session.Failed,
		session.ModelConfig,
		session.Ctime,
		session.Mtime,
	)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, tenantID, sessionID string) (*model.ProcessingSession, error) {
	const query = `
		SELECT id, tenant_id, status, document_ids, processed, failed, model_config, ctime, mtime
		FROM processing_sessions
		WHERE id = $1 AND tenant_id = $2
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, sessionID, tenantID))
}

// GetActive returns the most recently started active session for a tenant.
// One active session per tenant is a convention, not a constraint, so "the
// active session" means the newest one.
func (r *SessionRepo) GetActive(ctx context.Context, tenantID string) (*model.ProcessingSession, error) {
	const query = `
		SELECT id, tenant_id, status, document_ids, processed, failed, model_config, ctime, mtime
		FROM processing_sessions
		WHERE tenant_id = $1 AND status = $2
		ORDER BY ctime DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID, model.SessionStatusActive))
}

func (r *SessionRepo) scanOne(row *sql.Row) (*model.ProcessingSession, error) {
	var session model.ProcessingSession
	var idsJSON string
	if err := row.Scan(
		&session.ID,
		&session.TenantID,
		&session.Status,
		&idsJSON,
		&session.Processed,
		&session.Failed,
		&session.ModelConfig,
		&session.Ctime,
		&session.Mtime,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if idsJSON != "" {
		_ = json.Unmarshal([]byte(idsJSON), &session.DocumentIDs)
	}
	return &session, nil
}

func (r *SessionRepo) UpdateProgress(ctx context.Context, tenantID, sessionID string, processed, failed int, mtime int64) error {
	const query = `
		UPDATE processing_sessions
		SET processed = $1, failed = $2, mtime = $3
		WHERE id = $4 AND tenant_id = $5
	`
	res, err := r.db.ExecContext(ctx, query, processed, failed, mtime, sessionID, tenantID)
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

// UpdateStatusIf flips a session to toStatus only while it is still in
// fromStatus, so terminal states stay terminal.
func (r *SessionRepo) UpdateStatusIf(ctx context.Context, tenantID, sessionID, fromStatus, toStatus string, mtime int64) (bool, error) {
	const query = `
		UPDATE processing_sessions
		SET status = $1, mtime = $2
		WHERE id = $3 AND tenant_id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, toStatus, mtime, sessionID, tenantID, fromStatus)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
