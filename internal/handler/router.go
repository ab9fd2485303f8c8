package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paperflowhq/paperflow/internal/middleware"
	"github.com/paperflowhq/paperflow/internal/pkg/response"
)

type RouterDeps struct {
	Documents  *DocumentHandler
	Sessions   *SessionHandler
	Connectors *ConnectorHandler
	Inbound    *InboundHandler
	JWTSecret  []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/documents/upload", deps.Documents.Upload)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.POST("/documents/:id/archive", deps.Documents.Archive)
	authGroup.POST("/documents/:id/reject", deps.Documents.Reject)

	authGroup.POST("/sessions", deps.Sessions.Create)
	authGroup.GET("/sessions/active", deps.Sessions.GetActive)
	authGroup.GET("/sessions/:id", deps.Sessions.Get)
	authGroup.POST("/sessions/:id/run", deps.Sessions.Run)
	authGroup.POST("/sessions/:id/cancel", deps.Sessions.Cancel)

	authGroup.POST("/connectors", deps.Connectors.Create)
	authGroup.GET("/connectors", deps.Connectors.List)
	authGroup.GET("/connectors/:id", deps.Connectors.Get)
	authGroup.DELETE("/connectors/:id", deps.Connectors.Delete)
	authGroup.POST("/connectors/:id/sync", deps.Connectors.Sync)
	authGroup.GET("/connectors/:id/jobs", deps.Connectors.ListJobs)
	authGroup.GET("/sync-jobs/:id", deps.Connectors.GetJob)

	inboundGroup := authGroup.Group("")
	inboundGroup.Use(middleware.RateLimit(time.Second))
	inboundGroup.POST("/inbound/email", deps.Inbound.Email)
}
