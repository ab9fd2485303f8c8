package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/paperflowhq/paperflow/internal/model"
	"github.com/paperflowhq/paperflow/internal/pkg/dbutil"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
)

var documentColumns = []string{
	"id", "tenant_id", "filename", "status", "archived", "fingerprint",
	"source_kind", "source_ref", "storage_key", "extracted_json", "error_text",
	"ctime", "mtime",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var doc model.Document
	if err := rows.Scan(
		&doc.ID, &doc.TenantID, &doc.Filename, &doc.Status, &doc.Archived,
		&doc.Fingerprint, &doc.SourceKind, &doc.SourceRef, &doc.StorageKey,
		&doc.ExtractedJSON, &doc.ErrorText, &doc.Ctime, &doc.Mtime,
	); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a new document. A unique-violation on the tenant fingerprint
// index comes back as ErrDuplicate so racing ingestion paths collapse into the
// normal duplicate outcome.
func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":             doc.ID,
		"tenant_id":      doc.TenantID,
		"filename":       doc.Filename,
		"status":         doc.Status,
		"archived":       doc.Archived,
		"fingerprint":    doc.Fingerprint,
		"source_kind":    doc.SourceKind,
		"source_ref":     doc.SourceRef,
		"storage_key":    doc.StorageKey,
		"extracted_json": doc.ExtractedJSON,
		"error_text":     doc.ErrorText,
		"ctime":          doc.Ctime,
		"mtime":          doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id":        docID,
		"tenant_id": tenantID,
	}
	return r.queryOne(ctx, where)
}

func (r *DocumentRepo) FindByFingerprint(ctx context.Context, tenantID, fp string) (*model.Document, error) {
	where := map[string]interface{}{
		"tenant_id":   tenantID,
		"fingerprint": fp,
		"archived":    false,
	}
	return r.queryOne(ctx, where)
}

func (r *DocumentRepo) queryOne(ctx context.Context, where map[string]interface{}) (*model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanDocument(rows)
}

// ListRecent returns the newest non-archived documents for a tenant, the
// bounded window the fuzzy dedup tiers scan.
func (r *DocumentRepo) ListRecent(ctx context.Context, tenantID string, limit int) ([]model.Document, error) {
	where := map[string]interface{}{
		"tenant_id": tenantID,
		"archived":  false,
		"_orderby":  "ctime desc",
		"_limit":    []uint{0, uint(limit)},
	}
	return r.queryMany(ctx, where)
}

func (r *DocumentRepo) List(ctx context.Context, tenantID, status string, archived *bool, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"tenant_id": tenantID,
		"_orderby":  "ctime desc",
	}
	if status != "" {
		where["status"] = status
	}
	if archived != nil {
		where["archived"] = *archived
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	return r.queryMany(ctx, where)
}

func (r *DocumentRepo) ListByIDs(ctx context.Context, tenantID string, docIDs []string) ([]model.Document, error) {
	if len(docIDs) == 0 {
		return []model.Document{}, nil
	}
	ids := make([]interface{}, 0, len(docIDs))
	for _, id := range docIDs {
		ids = append(ids, id)
	}
	where := map[string]interface{}{
		"tenant_id": tenantID,
		"id in":     ids,
		"_orderby":  "ctime desc",
	}
	return r.queryMany(ctx, where)
}

func (r *DocumentRepo) queryMany(ctx context.Context, where map[string]interface{}) ([]model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) SetStatus(ctx context.Context, tenantID, docID, status string, mtime int64) error {
	return r.update(ctx, tenantID, docID, map[string]interface{}{
		"status": status,
		"mtime":  mtime,
	})
}

// SetStatusIf moves a document from one status to another only when it is
// still in the expected status. Returns false when nothing matched.
func (r *DocumentRepo) SetStatusIf(ctx context.Context, tenantID, docID, fromStatus, toStatus string, mtime int64) (bool, error) {
	const query = `
		UPDATE documents
		SET status = $1, mtime = $2
		WHERE id = $3 AND tenant_id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, toStatus, mtime, docID, tenantID, fromStatus)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *DocumentRepo) SetExtracted(ctx context.Context, tenantID, docID, status, extractedJSON string, mtime int64) error {
	return r.update(ctx, tenantID, docID, map[string]interface{}{
		"status":         status,
		"extracted_json": extractedJSON,
		"error_text":     "",
		"mtime":          mtime,
	})
}

func (r *DocumentRepo) SetError(ctx context.Context, tenantID, docID, errorText string, mtime int64) error {
	return r.update(ctx, tenantID, docID, map[string]interface{}{
		"status":     model.DocumentStatusError,
		"error_text": errorText,
		"mtime":      mtime,
	})
}

func (r *DocumentRepo) SetArchived(ctx context.Context, tenantID, docID string, archived bool, mtime int64) error {
	return r.update(ctx, tenantID, docID, map[string]interface{}{
		"archived": archived,
		"mtime":    mtime,
	})
}

func (r *DocumentRepo) update(ctx context.Context, tenantID, docID string, update map[string]interface{}) error {
	where := map[string]interface{}{
		"id":        docID,
		"tenant_id": tenantID,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
