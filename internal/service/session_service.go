package service

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
	"github.com/paperflowhq/paperflow/internal/pkg/timeutil"
)

type sessionStore interface {
	Create(ctx context.Context, session *model.ProcessingSession) error
	Get(ctx context.Context, tenantID, sessionID string) (*model.ProcessingSession, error)
	GetActive(ctx context.Context, tenantID string) (*model.ProcessingSession, error)
	UpdateProgress(ctx context.Context, tenantID, sessionID string, processed, failed int, mtime int64) error
	UpdateStatusIf(ctx context.Context, tenantID, sessionID, fromStatus, toStatus string, mtime int64) (bool, error)
}

type sessionDocuments interface {
	ListByIDs(ctx context.Context, tenantID string, docIDs []string) ([]model.Document, error)
	SetStatusIf(ctx context.Context, tenantID, docID, fromStatus, toStatus string, mtime int64) (bool, error)
}

// SessionService owns the processing-session lifecycle. Sessions are a fixed
// batch of document ids captured at creation; only counters and status change
// afterwards.
type SessionService struct {
	sessions sessionStore
	docs     sessionDocuments
}

func NewSessionService(sessions sessionStore, docs sessionDocuments) *SessionService {
	return &SessionService{sessions: sessions, docs: docs}
}

func (s *SessionService) Create(ctx context.Context, tenantID string, documentIDs []string, modelConfig string) (*model.ProcessingSession, error) {
	if len(documentIDs) == 0 {
		return nil, appErr.ErrInvalid
	}
	docs, err := s.docs.ListByIDs(ctx, tenantID, documentIDs)
	if err != nil {
		return nil, err
	}
	if len(docs) != len(documentIDs) {
		return nil, appErr.ErrNotFound
	}
	now := timeutil.NowUnix()
	session := &model.ProcessingSession{
		ID:          newID(),
		TenantID:    tenantID,
		Status:      model.SessionStatusActive,
		DocumentIDs: documentIDs,
		ModelConfig: modelConfig,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("processing session created",
		zap.String("tenant_id", tenantID),
		zap.String("session_id", session.ID),
		zap.Int("documents", len(documentIDs)),
	)
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, tenantID, sessionID string) (*model.ProcessingSession, error) {
	return s.sessions.Get(ctx, tenantID, sessionID)
}

// GetActive returns the newest active session for a tenant, or nil when
// there is none.
func (s *SessionService) GetActive(ctx context.Context, tenantID string) (*model.ProcessingSession, error) {
	session, err := s.sessions.GetActive(ctx, tenantID)
	if errors.Is(err, appErr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) UpdateProgress(ctx context.Context, tenantID, sessionID string, processed, failed int) error {
	return s.sessions.UpdateProgress(ctx, tenantID, sessionID, processed, failed, timeutil.NowUnix())
}

// Complete marks a session finished. Completing an already-terminal session
// is a no-op.
func (s *SessionService) Complete(ctx context.Context, tenantID, sessionID string) error {
	updated, err := s.sessions.UpdateStatusIf(ctx, tenantID, sessionID, model.SessionStatusActive, model.SessionStatusCompleted, timeutil.NowUnix())
	if err != nil {
		return err
	}
	if !updated {
		if _, err := s.sessions.Get(ctx, tenantID, sessionID); err != nil {
			return err
		}
	}
	return nil
}

type CancelResult struct {
	Status          string `json:"status"`
	RevertedCount   int    `json:"reverted_count"`
	AlreadyFinished bool   `json:"already_finished"`
}

// Cancel flips an active session to cancelled and reverts every document of
// the session that is still stuck in processing back to uploaded. Resolved
// documents keep their outcome. Cancellation is observational: in-flight
// extraction inside a runner is not interrupted, the runner notices the
// status on its next poll.
func (s *SessionService) Cancel(ctx context.Context, tenantID, sessionID string) (*CancelResult, error) {
	session, err := s.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	flipped, err := s.sessions.UpdateStatusIf(ctx, tenantID, sessionID, model.SessionStatusActive, model.SessionStatusCancelled, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		// already terminal; report the current status, not an error
		current, err := s.sessions.Get(ctx, tenantID, sessionID)
		if err != nil {
			return nil, err
		}
		return &CancelResult{Status: current.Status, AlreadyFinished: true}, nil
	}
	reverted := 0
	for _, docID := range session.DocumentIDs {
		ok, err := s.docs.SetStatusIf(ctx, tenantID, docID, model.DocumentStatusProcessing, model.DocumentStatusUploaded, now)
		if err != nil {
			return nil, err
		}
		if ok {
			reverted += 1
		}
	}
	logutil.GetLogger(ctx).Info("processing session cancelled",
		zap.String("tenant_id", tenantID),
		zap.String("session_id", sessionID),
		zap.Int("reverted", reverted),
	)
	return &CancelResult{Status: model.SessionStatusCancelled, RevertedCount: reverted}, nil
}
