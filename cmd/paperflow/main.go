package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/paperflowhq/paperflow/internal/config"
	"github.com/paperflowhq/paperflow/internal/db"
	"github.com/paperflowhq/paperflow/internal/dedup"
	"github.com/paperflowhq/paperflow/internal/extract"
	"github.com/paperflowhq/paperflow/internal/filestore"
	"github.com/paperflowhq/paperflow/internal/handler"
	"github.com/paperflowhq/paperflow/internal/job"
	"github.com/paperflowhq/paperflow/internal/middleware"
	"github.com/paperflowhq/paperflow/internal/repo"
	"github.com/paperflowhq/paperflow/internal/schedule"
	"github.com/paperflowhq/paperflow/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "paperflow",
		Short: "paperflow document intake server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run paperflow server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	docRepo := repo.NewDocumentRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	accountRepo := repo.NewConnectorAccountRepo(conn)
	jobRepo := repo.NewSyncJobRepo(conn)
	itemRepo := repo.NewSyncItemRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	detector := dedup.NewDetector(docRepo, cfg.Dedup.RecentWindow)
	extractor := extract.NewHTTPExtractor(
		cfg.Extractor.Endpoint,
		cfg.Extractor.APIKey,
		time.Duration(cfg.Extractor.TimeoutSeconds)*time.Second,
	)

	ingestService := service.NewIngestService(docRepo, detector, store)
	documentService := service.NewDocumentService(docRepo)
	sessionService := service.NewSessionService(sessionRepo, docRepo)
	batchService := service.NewBatchService(sessionService, docRepo, store, extractor)
	connectorService := service.NewConnectorService(accountRepo)
	syncService := service.NewSyncService(accountRepo, jobRepo, itemRepo, ingestService)

	deps := handler.RouterDeps{
		Documents:  handler.NewDocumentHandler(documentService, ingestService),
		Sessions:   handler.NewSessionHandler(sessionService, batchService),
		Connectors: handler.NewConnectorHandler(connectorService, syncService),
		Inbound:    handler.NewInboundHandler(ingestService),
		JWTSecret:  []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule.EnableConnectorSync {
		scheduler := schedule.NewCronScheduler()
		if err := scheduler.AddJob(job.NewConnectorSyncJob(syncService), cfg.Schedule.ConnectorSyncSpec); err != nil {
			return fmt.Errorf("schedule connector sync: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
