package job

import (
	"context"

	"github.com/paperflowhq/paperflow/internal/service"
)

// ConnectorSyncJob re-runs the same idempotent sync entry point the HTTP
// trigger uses, for every stored account.
type ConnectorSyncJob struct {
	sync *service.SyncService
}

func NewConnectorSyncJob(sync *service.SyncService) *ConnectorSyncJob {
	return &ConnectorSyncJob{sync: sync}
}

func (j *ConnectorSyncJob) Name() string {
	return "connector_sync"
}

func (j *ConnectorSyncJob) Run(ctx context.Context) error {
	if j.sync == nil {
		return nil
	}
	return j.sync.SyncAll(ctx)
}
