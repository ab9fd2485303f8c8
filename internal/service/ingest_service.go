package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/paperflowhq/paperflow/internal/dedup"
	"github.com/paperflowhq/paperflow/internal/filestore"
	"github.com/paperflowhq/paperflow/internal/fingerprint"
	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
	"github.com/paperflowhq/paperflow/internal/pkg/timeutil"
)

type ingestLedger interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByFingerprint(ctx context.Context, tenantID, fp string) (*model.Document, error)
}

type duplicateChecker interface {
	Check(ctx context.Context, tenantID, fp string, fields *model.ExtractedFields, filename string) (*dedup.Result, error)
}

type IngestInput struct {
	TenantID    string
	Filename    string
	Data        []byte
	ContentType string
	SourceKind  string
	SourceRef   string
	// AllowDuplicate bypasses the dedup gate for an explicit operator override.
	AllowDuplicate bool
}

// IngestOutcome is either a created document or a detected duplicate.
// A duplicate is a normal negative result, not an error.
type IngestOutcome struct {
	Document  *model.Document `json:"document,omitempty"`
	Duplicate *dedup.Result   `json:"duplicate,omitempty"`
}

// IngestService is the shared gate every arrival path goes through:
// fingerprint the bytes, consult the duplicate detector, write the bytes to
// the object store, insert the ledger row.
type IngestService struct {
	docs    ingestLedger
	checker duplicateChecker
	store   filestore.Store
}

func NewIngestService(docs ingestLedger, checker duplicateChecker, store filestore.Store) *IngestService {
	return &IngestService{docs: docs, checker: checker, store: store}
}

func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*IngestOutcome, error) {
	if in.TenantID == "" || in.Filename == "" || len(in.Data) == 0 {
		return nil, appErr.ErrInvalid
	}
	fp := fingerprint.Compute(in.Data)
	if !in.AllowDuplicate {
		// connector arrivals carry their own (remote id, fingerprint) dedup
		// key; a changed remote file legitimately reuses its filename, so only
		// the exact tier applies to them
		checkFilename := in.Filename
		if in.SourceKind == model.SourceKindConnector {
			checkFilename = ""
		}
		result, err := s.checker.Check(ctx, in.TenantID, fp, nil, checkFilename)
		if err != nil {
			return nil, fmt.Errorf("dedup check: %w", err)
		}
		if result.IsDuplicate {
			logutil.GetLogger(ctx).Info("duplicate detected, skipping ingest",
				zap.String("tenant_id", in.TenantID),
				zap.String("filename", in.Filename),
				zap.String("tier", string(result.Tier)),
			)
			return &IngestOutcome{Duplicate: result}, nil
		}
	}

	// content-addressed key: re-uploads of identical bytes land on the same
	// object, so overwrite is safe
	storageKey := fmt.Sprintf("%s/%s/%s", in.TenantID, fp[:16], in.Filename)
	if err := s.store.Upload(ctx, storageKey, in.Data, in.ContentType, true); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	now := timeutil.NowUnix()
	doc := &model.Document{
		ID:          newID(),
		TenantID:    in.TenantID,
		Filename:    in.Filename,
		Status:      model.DocumentStatusUploaded,
		Fingerprint: fp,
		SourceKind:  in.SourceKind,
		SourceRef:   in.SourceRef,
		StorageKey:  storageKey,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		// a racing path inserted the same fingerprint between our check and
		// the insert; the constraint turns the race into a duplicate verdict
		if errors.Is(err, appErr.ErrDuplicate) && !in.AllowDuplicate {
			matched, lookupErr := s.docs.FindByFingerprint(ctx, in.TenantID, fp)
			if lookupErr != nil && !errors.Is(lookupErr, appErr.ErrNotFound) {
				return nil, lookupErr
			}
			return &IngestOutcome{Duplicate: &dedup.Result{
				IsDuplicate: true,
				Tier:        dedup.TierExact,
				Matched:     matched,
				Reason:      "identical content fingerprint",
			}}, nil
		}
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document ingested",
		zap.String("tenant_id", in.TenantID),
		zap.String("document_id", doc.ID),
		zap.String("source_kind", in.SourceKind),
	)
	return &IngestOutcome{Document: doc}, nil
}
