package service

import (
	"context"

	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
	"github.com/paperflowhq/paperflow/internal/pkg/timeutil"
)

type documentStore interface {
	GetByID(ctx context.Context, tenantID, docID string) (*model.Document, error)
	List(ctx context.Context, tenantID, status string, archived *bool, limit, offset uint) ([]model.Document, error)
	SetArchived(ctx context.Context, tenantID, docID string, archived bool, mtime int64) error
	SetStatus(ctx context.Context, tenantID, docID, status string, mtime int64) error
}

// DocumentService is the read/report surface over the ledger plus the two
// manual mutations (archive, reject) that do not belong to any runner.
type DocumentService struct {
	docs documentStore
}

func NewDocumentService(docs documentStore) *DocumentService {
	return &DocumentService{docs: docs}
}

func (s *DocumentService) Get(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, tenantID, docID)
}

func (s *DocumentService) List(ctx context.Context, tenantID, status string, archived *bool, limit, offset uint) ([]model.Document, error) {
	if limit == 0 || limit > 500 {
		limit = 100
	}
	return s.docs.List(ctx, tenantID, status, archived, limit, offset)
}

// Archive moves a document into the retention view. Archived documents no
// longer block re-ingestion of the same fingerprint.
func (s *DocumentService) Archive(ctx context.Context, tenantID, docID string, archived bool) error {
	return s.docs.SetArchived(ctx, tenantID, docID, archived, timeutil.NowUnix())
}

// Reject is the manual terminal verdict an operator gives a document.
func (s *DocumentService) Reject(ctx context.Context, tenantID, docID string) error {
	doc, err := s.docs.GetByID(ctx, tenantID, docID)
	if err != nil {
		return err
	}
	if doc.Status == model.DocumentStatusProcessing {
		return appErr.ErrConflict
	}
	return s.docs.SetStatus(ctx, tenantID, docID, model.DocumentStatusRejected, timeutil.NowUnix())
}
