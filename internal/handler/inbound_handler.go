package handler

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"

	"github.com/paperflowhq/paperflow/internal/model"
	"github.com/paperflowhq/paperflow/internal/pkg/errcode"
	"github.com/paperflowhq/paperflow/internal/pkg/response"
	"github.com/paperflowhq/paperflow/internal/service"
)

// InboundHandler accepts documents arriving by email. Each attachment goes
// through the same ingest gate as a manual upload.
type InboundHandler struct {
	ingest *service.IngestService
}

func NewInboundHandler(ingest *service.IngestService) *InboundHandler {
	return &InboundHandler{ingest: ingest}
}

type inboundAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type inboundEmailRequest struct {
	From        string              `json:"from"`
	Subject     string              `json:"subject"`
	MessageID   string              `json:"message_id"`
	Attachments []inboundAttachment `json:"attachments"`
}

type inboundResult struct {
	Filename string                 `json:"filename"`
	Outcome  *service.IngestOutcome `json:"outcome,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func (h *InboundHandler) Email(c *gin.Context) {
	var req inboundEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if len(req.Attachments) == 0 {
		response.Error(c, errcode.ErrInvalid, "no attachments")
		return
	}
	tenantID := getTenantID(c)
	results := make([]inboundResult, 0, len(req.Attachments))
	for _, attachment := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(attachment.Data)
		if err != nil {
			results = append(results, inboundResult{Filename: attachment.Filename, Error: "invalid base64 payload"})
			continue
		}
		outcome, err := h.ingest.Ingest(c.Request.Context(), service.IngestInput{
			TenantID:    tenantID,
			Filename:    attachment.Filename,
			Data:        data,
			ContentType: attachment.ContentType,
			SourceKind:  model.SourceKindEmail,
			SourceRef:   req.MessageID,
		})
		if err != nil {
			results = append(results, inboundResult{Filename: attachment.Filename, Error: err.Error()})
			continue
		}
		results = append(results, inboundResult{Filename: attachment.Filename, Outcome: outcome})
	}
	response.Success(c, gin.H{"results": results})
}
