package model

import "encoding/json"

const (
	DocumentStatusUploaded    = "uploaded"
	DocumentStatusProcessing  = "processing"
	DocumentStatusNeedsReview = "needs_review"
	DocumentStatusApproved    = "approved"
	DocumentStatusError       = "error"
	DocumentStatusExported    = "exported"
	DocumentStatusRejected    = "rejected"
)

const (
	SourceKindUpload    = "upload"
	SourceKindEmail     = "email"
	SourceKindScan      = "scan"
	SourceKindConnector = "connector"
)

type Document struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	Filename      string `json:"filename"`
	Status        string `json:"status"`
	Archived      bool   `json:"archived"`
	Fingerprint   string `json:"fingerprint"`
	SourceKind    string `json:"source_kind"`
	SourceRef     string `json:"source_ref"`
	StorageKey    string `json:"storage_key"`
	ExtractedJSON string `json:"extracted_json"`
	ErrorText     string `json:"error_text"`
	Ctime         int64  `json:"ctime"`
	Mtime         int64  `json:"mtime"`
}

// ExtractedFields is the subset of the extraction payload the dedup
// detector correlates on. Unknown keys are preserved in Document.ExtractedJSON.
type ExtractedFields struct {
	InvoiceNumber string  `json:"invoice_number,omitempty"`
	Supplier      string  `json:"supplier,omitempty"`
	DocumentDate  string  `json:"document_date,omitempty"`
	Quantity      float64 `json:"quantity,omitempty"`
	TotalAmount   float64 `json:"total_amount,omitempty"`
}

func ParseExtractedFields(raw string) (*ExtractedFields, bool) {
	if raw == "" {
		return nil, false
	}
	var fields ExtractedFields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, false
	}
	return &fields, true
}
