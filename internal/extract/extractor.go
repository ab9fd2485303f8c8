// Package extract is the boundary to the external extraction service that
// turns document bytes into structured fields. Everything behind the
// interface is someone else's problem; failures come back as per-document
// errors.
package extract

import "context"

type Request struct {
	Data         []byte
	Filename     string
	TenantConfig string
}

type Result struct {
	FieldsJSON string
	// Confidence is the service's overall confidence in [0,1]; documents
	// below the review threshold land in needs_review instead of approved.
	Confidence float64
}

type Extractor interface {
	Extract(ctx context.Context, req *Request) (*Result, error)
}
