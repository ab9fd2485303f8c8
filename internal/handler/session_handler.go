package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/paperflowhq/paperflow/internal/pkg/errcode"
	"github.com/paperflowhq/paperflow/internal/pkg/response"
	"github.com/paperflowhq/paperflow/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
	batch    *service.BatchService
}

func NewSessionHandler(sessions *service.SessionService, batch *service.BatchService) *SessionHandler {
	return &SessionHandler{sessions: sessions, batch: batch}
}

type sessionCreateRequest struct {
	DocumentIDs []string `json:"document_ids"`
	ModelConfig string   `json:"model_config"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req sessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), getTenantID(c), req.DocumentIDs, req.ModelConfig)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *SessionHandler) GetActive(c *gin.Context) {
	session, err := h.sessions.GetActive(c.Request.Context(), getTenantID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"session": session})
}

func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session)
}

// Run kicks the batch off in the background; callers poll the session for
// progress.
func (h *SessionHandler) Run(c *gin.Context) {
	tenantID := getTenantID(c)
	session, err := h.sessions.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if session.Finished() {
		response.Error(c, errcode.ErrConflict, "session already finished")
		return
	}
	h.batch.RunAsync(tenantID, session.ID)
	response.Success(c, gin.H{"started": true, "session_id": session.ID})
}

func (h *SessionHandler) Cancel(c *gin.Context) {
	result, err := h.sessions.Cancel(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
