// Package dedup decides whether an incoming document already exists in the
// ledger. It is read-only: callers act on the verdict, the detector never
// writes anything.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
)

type Tier string

const (
	TierExact  Tier = "exact"
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierNone   Tier = "none"
)

const (
	DefaultRecentWindow = 200

	quantityTolerance = 0.05
	amountTolerance   = 0.01
)

type Result struct {
	IsDuplicate bool            `json:"is_duplicate"`
	Tier        Tier            `json:"tier"`
	Matched     *model.Document `json:"matched,omitempty"`
	Reason      string          `json:"reason"`
}

// Ledger is the read surface the detector needs. Both methods only see
// non-archived documents; archived rows never block re-ingestion.
type Ledger interface {
	FindByFingerprint(ctx context.Context, tenantID, fingerprint string) (*model.Document, error)
	ListRecent(ctx context.Context, tenantID string, limit int) ([]model.Document, error)
}

type Detector struct {
	ledger Ledger
	window int
}

// NewDetector builds a detector whose fuzzy tiers scan at most window recent
// documents. Duplicates older than the window go undetected, which callers
// accept as the cost of a bounded check.
func NewDetector(ledger Ledger, window int) *Detector {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	return &Detector{ledger: ledger, window: window}
}

// Check evaluates tiers in strict priority order and returns the first hit.
func (d *Detector) Check(ctx context.Context, tenantID, fp string, fields *model.ExtractedFields, filename string) (*Result, error) {
	if fp != "" {
		doc, err := d.ledger.FindByFingerprint(ctx, tenantID, fp)
		if err != nil && !errors.Is(err, appErr.ErrNotFound) {
			return nil, err
		}
		if doc != nil {
			return &Result{
				IsDuplicate: true,
				Tier:        TierExact,
				Matched:     doc,
				Reason:      "identical content fingerprint",
			}, nil
		}
	}
	if fields == nil && filename == "" {
		return &Result{Tier: TierNone, Reason: "no match"}, nil
	}

	recent, err := d.ledger.ListRecent(ctx, tenantID, d.window)
	if err != nil {
		return nil, err
	}

	for i := range recent {
		doc := &recent[i]
		if doc.Fingerprint != "" && doc.Fingerprint == fp {
			continue // already ruled out above, same row would be exact
		}
		if reason, ok := matchHigh(fields, doc); ok {
			return &Result{IsDuplicate: true, Tier: TierHigh, Matched: doc, Reason: reason}, nil
		}
	}
	for i := range recent {
		doc := &recent[i]
		if reason, ok := matchMedium(fields, filename, doc); ok {
			return &Result{IsDuplicate: true, Tier: TierMedium, Matched: doc, Reason: reason}, nil
		}
	}
	return &Result{Tier: TierNone, Reason: "no match"}, nil
}

func matchHigh(fields *model.ExtractedFields, doc *model.Document) (string, bool) {
	if fields == nil {
		return "", false
	}
	existing, ok := model.ParseExtractedFields(doc.ExtractedJSON)
	if !ok {
		return "", false
	}
	if fields.InvoiceNumber != "" && fields.Supplier != "" &&
		equalFold(fields.InvoiceNumber, existing.InvoiceNumber) &&
		equalFold(fields.Supplier, existing.Supplier) {
		return fmt.Sprintf("invoice %s from %s already ingested", fields.InvoiceNumber, fields.Supplier), true
	}
	if fields.DocumentDate != "" && fields.Supplier != "" && fields.Quantity > 0 &&
		fields.DocumentDate == existing.DocumentDate &&
		equalFold(fields.Supplier, existing.Supplier) &&
		math.Abs(fields.Quantity-existing.Quantity) <= quantityTolerance {
		return fmt.Sprintf("measurement on %s from %s with matching quantity", fields.DocumentDate, fields.Supplier), true
	}
	return "", false
}

func matchMedium(fields *model.ExtractedFields, filename string, doc *model.Document) (string, bool) {
	if fields != nil && fields.Supplier != "" && fields.TotalAmount > 0 {
		existing, ok := model.ParseExtractedFields(doc.ExtractedJSON)
		if ok && equalFold(fields.Supplier, existing.Supplier) &&
			math.Abs(fields.TotalAmount-existing.TotalAmount) <= amountTolerance {
			return fmt.Sprintf("same supplier %s and total amount", fields.Supplier), true
		}
	}
	if filename != "" && doc.Filename == filename {
		return fmt.Sprintf("filename %s already ingested", filename), true
	}
	return "", false
}

func equalFold(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
