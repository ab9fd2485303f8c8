package service

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/paperflowhq/paperflow/internal/extract"
	"github.com/paperflowhq/paperflow/internal/filestore"
	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
	"github.com/paperflowhq/paperflow/internal/pkg/timeutil"
)

type batchDocuments interface {
	GetByID(ctx context.Context, tenantID, docID string) (*model.Document, error)
	SetStatusIf(ctx context.Context, tenantID, docID, fromStatus, toStatus string, mtime int64) (bool, error)
	SetExtracted(ctx context.Context, tenantID, docID, status, extractedJSON string, mtime int64) error
	SetError(ctx context.Context, tenantID, docID, errorText string, mtime int64) error
}

type sessionTracker interface {
	Get(ctx context.Context, tenantID, sessionID string) (*model.ProcessingSession, error)
	UpdateProgress(ctx context.Context, tenantID, sessionID string, processed, failed int) error
	Complete(ctx context.Context, tenantID, sessionID string) error
}

// BatchService drives a session's documents through extraction, one at a
// time. Between documents it re-reads the session so a cancel lands at the
// next iteration instead of after the whole batch.
type BatchService struct {
	sessions  sessionTracker
	docs      batchDocuments
	store     filestore.Store
	extractor extract.Extractor
	// confidence at or above this approves the document outright
	reviewThreshold float64
}

func NewBatchService(sessions sessionTracker, docs batchDocuments, store filestore.Store, extractor extract.Extractor) *BatchService {
	return &BatchService{
		sessions:        sessions,
		docs:            docs,
		store:           store,
		extractor:       extractor,
		reviewThreshold: 0.85,
	}
}

// RunAsync starts Run on a background context and returns immediately, for
// the HTTP trigger. Progress is polled through the session.
func (s *BatchService) RunAsync(tenantID, sessionID string) {
	go func() {
		if err := s.Run(context.Background(), tenantID, sessionID); err != nil {
			logutil.GetLogger(context.Background()).Error("batch run failed",
				zap.String("tenant_id", tenantID),
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}()
}

func (s *BatchService) Run(ctx context.Context, tenantID, sessionID string) error {
	session, err := s.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}
	if session.Finished() {
		return appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("tenant_id", tenantID),
		zap.String("session_id", sessionID),
	)

	processed := session.Processed
	failed := session.Failed
	for _, docID := range session.DocumentIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// cooperative cancellation: a cancel issued while the previous
		// document was in flight stops the batch here
		current, err := s.sessions.Get(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if current.Finished() {
			logger.Info("session no longer active, stopping batch", zap.String("status", current.Status))
			return nil
		}

		claimed, err := s.docs.SetStatusIf(ctx, tenantID, docID, model.DocumentStatusUploaded, model.DocumentStatusProcessing, timeutil.NowUnix())
		if err != nil {
			return err
		}
		if !claimed {
			// already resolved or picked up elsewhere
			continue
		}
		if s.runDocument(ctx, logger, tenantID, docID, session.ModelConfig) {
			processed += 1
		} else {
			failed += 1
		}
		if err := s.sessions.UpdateProgress(ctx, tenantID, sessionID, processed, failed); err != nil {
			return err
		}
	}
	return s.sessions.Complete(ctx, tenantID, sessionID)
}

func (s *BatchService) runDocument(ctx context.Context, logger *zap.Logger, tenantID, docID, modelConfig string) bool {
	now := timeutil.NowUnix()
	doc, err := s.docs.GetByID(ctx, tenantID, docID)
	if err != nil {
		s.writeError(ctx, logger, tenantID, docID, err)
		return false
	}
	data, err := s.store.Download(ctx, doc.StorageKey)
	if err != nil {
		s.writeError(ctx, logger, tenantID, docID, err)
		return false
	}
	result, err := s.extractor.Extract(ctx, &extract.Request{
		Data:         data,
		Filename:     doc.Filename,
		TenantConfig: modelConfig,
	})
	if err != nil {
		s.writeError(ctx, logger, tenantID, docID, err)
		return false
	}
	status := model.DocumentStatusNeedsReview
	if result.Confidence >= s.reviewThreshold {
		status = model.DocumentStatusApproved
	}
	if err := s.docs.SetExtracted(ctx, tenantID, docID, status, result.FieldsJSON, now); err != nil {
		logger.Error("write extraction result", zap.String("document_id", docID), zap.Error(err))
		return false
	}
	return true
}

func (s *BatchService) writeError(ctx context.Context, logger *zap.Logger, tenantID, docID string, cause error) {
	logger.Warn("document extraction failed", zap.String("document_id", docID), zap.Error(cause))
	if err := s.docs.SetError(ctx, tenantID, docID, cause.Error(), timeutil.NowUnix()); err != nil && !errors.Is(err, appErr.ErrNotFound) {
		logger.Error("persist document error", zap.String("document_id", docID), zap.Error(err))
	}
}
