package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/paperflowhq/paperflow/internal/connector"
	"github.com/paperflowhq/paperflow/internal/pkg/errcode"
	"github.com/paperflowhq/paperflow/internal/pkg/response"
	"github.com/paperflowhq/paperflow/internal/service"
)

type ConnectorHandler struct {
	connectors *service.ConnectorService
	sync       *service.SyncService
}

func NewConnectorHandler(connectors *service.ConnectorService, sync *service.SyncService) *ConnectorHandler {
	return &ConnectorHandler{connectors: connectors, sync: sync}
}

type connectorCreateRequest struct {
	Provider    string                `json:"provider"`
	RootFolder  string                `json:"root_folder"`
	Credentials connector.Credentials `json:"credentials"`
}

func (h *ConnectorHandler) Create(c *gin.Context) {
	var req connectorCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	account, err := h.connectors.Create(c.Request.Context(), getTenantID(c), service.ConnectorCreateInput{
		Provider:    req.Provider,
		RootFolder:  req.RootFolder,
		Credentials: req.Credentials,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	// never echo stored credentials
	account.Credentials = ""
	response.Success(c, account)
}

func (h *ConnectorHandler) Get(c *gin.Context) {
	account, err := h.connectors.Get(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	account.Credentials = ""
	response.Success(c, account)
}

func (h *ConnectorHandler) List(c *gin.Context) {
	accounts, err := h.connectors.List(c.Request.Context(), getTenantID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	for i := range accounts {
		accounts[i].Credentials = ""
	}
	response.Success(c, gin.H{"connectors": accounts})
}

func (h *ConnectorHandler) Delete(c *gin.Context) {
	if err := h.connectors.Delete(c.Request.Context(), getTenantID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type syncRequest struct {
	AccessToken string `json:"access_token"`
}

func (h *ConnectorHandler) Sync(c *gin.Context) {
	req := syncRequest{}
	// the body is optional; a bare POST syncs with stored credentials
	_ = c.ShouldBindJSON(&req)
	stats, err := h.sync.Sync(c.Request.Context(), getTenantID(c), c.Param("id"), req.AccessToken)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *ConnectorHandler) ListJobs(c *gin.Context) {
	limit := 0
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	jobs, err := h.sync.ListJobs(c.Request.Context(), getTenantID(c), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"jobs": jobs})
}

func (h *ConnectorHandler) GetJob(c *gin.Context) {
	tenantID := getTenantID(c)
	job, err := h.sync.GetJob(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	items, err := h.sync.ListJobItems(c.Request.Context(), tenantID, job.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"job": job, "items": items})
}
