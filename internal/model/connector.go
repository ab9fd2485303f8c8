package model

const (
	SyncJobStatusRunning   = "running"
	SyncJobStatusCompleted = "completed"
	SyncJobStatusFailed    = "failed"
)

const (
	SyncItemStatusProcessed = "processed"
	SyncItemStatusSkipped   = "skipped"
	SyncItemStatusFailed    = "failed"
)

type ConnectorAccount struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Provider    string `json:"provider"`
	RootFolder  string `json:"root_folder"`
	Credentials string `json:"-"`
	LastSyncAt  int64  `json:"last_sync_at"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}

type ConnectorSyncJob struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	TenantID   string `json:"tenant_id"`
	Provider   string `json:"provider"`
	Status     string `json:"status"`
	Scanned    int    `json:"scanned"`
	Imported   int    `json:"imported"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	ErrorText  string `json:"error_text,omitempty"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`
}

// ClassifyJobStatus applies the finalization rule: a job only counts as
// failed when every outcome that was not a skip went wrong.
func ClassifyJobStatus(imported, failed int) string {
	if failed >= 1 && imported == 0 {
		return SyncJobStatusFailed
	}
	return SyncJobStatusCompleted
}

type ConnectorSyncItem struct {
	ID           string `json:"id"`
	JobID        string `json:"job_id"`
	AccountID    string `json:"account_id"`
	TenantID     string `json:"tenant_id"`
	RemoteItemID string `json:"remote_item_id"`
	RemotePath   string `json:"remote_path"`
	Fingerprint  string `json:"fingerprint"`
	DocumentID   string `json:"document_id,omitempty"`
	Status       string `json:"status"`
	ErrorText    string `json:"error_text,omitempty"`
	Ctime        int64  `json:"ctime"`
}
