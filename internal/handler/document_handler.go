package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/paperflowhq/paperflow/internal/model"
	"github.com/paperflowhq/paperflow/internal/pkg/errcode"
	"github.com/paperflowhq/paperflow/internal/pkg/response"
	"github.com/paperflowhq/paperflow/internal/service"
)

// 25 MiB, matches the extraction service's own input cap
const maxUploadSize = 25 << 20

type DocumentHandler struct {
	documents *service.DocumentService
	ingest    *service.IngestService
}

func NewDocumentHandler(documents *service.DocumentService, ingest *service.IngestService) *DocumentHandler {
	return &DocumentHandler{documents: documents, ingest: ingest}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file required")
		return
	}
	if fileHeader.Size > maxUploadSize {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "unreadable file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "read upload")
		return
	}
	if len(data) > maxUploadSize {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}

	allowDuplicate := c.PostForm("allow_duplicate") == "true"
	outcome, err := h.ingest.Ingest(c.Request.Context(), service.IngestInput{
		TenantID:       getTenantID(c),
		Filename:       fileHeader.Filename,
		Data:           data,
		ContentType:    fileHeader.Header.Get("Content-Type"),
		SourceKind:     model.SourceKindUpload,
		AllowDuplicate: allowDuplicate,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, outcome)
}

func (h *DocumentHandler) List(c *gin.Context) {
	status := c.Query("status")
	var archived *bool
	if value := c.Query("archived"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid archived filter")
			return
		}
		archived = &parsed
	}
	limit := uint(0)
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = uint(parsed)
		}
	}
	offset := uint(0)
	if value := c.Query("offset"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			offset = uint(parsed)
		}
	}
	docs, err := h.documents.List(c.Request.Context(), getTenantID(c), status, archived, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

func (h *DocumentHandler) Archive(c *gin.Context) {
	req := archiveRequest{}
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	archived := true
	if req.Archived != nil {
		archived = *req.Archived
	}
	if err := h.documents.Archive(c.Request.Context(), getTenantID(c), c.Param("id"), archived); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *DocumentHandler) Reject(c *gin.Context) {
	if err := h.documents.Reject(c.Request.Context(), getTenantID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
