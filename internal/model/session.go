package model

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

type ProcessingSession struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenant_id"`
	Status      string   `json:"status"`
	DocumentIDs []string `json:"document_ids"`
	Processed   int      `json:"processed"`
	Failed      int      `json:"failed"`
	ModelConfig string   `json:"model_config,omitempty"`
	Ctime       int64    `json:"ctime"`
	Mtime       int64    `json:"mtime"`
}

func (s *ProcessingSession) Finished() bool {
	return s.Status != SessionStatusActive
}
