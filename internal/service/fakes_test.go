package service

import (
	"context"
	"sync"

	"github.com/paperflowhq/paperflow/internal/connector"
	"github.com/paperflowhq/paperflow/internal/dedup"
	"github.com/paperflowhq/paperflow/internal/extract"
	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
)

// memDocs is an in-memory document ledger enforcing the same uniqueness the
// postgres partial index does.
type memDocs struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newMemDocs() *memDocs {
	return &memDocs{docs: map[string]*model.Document{}}
}

func (m *memDocs) Create(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.Fingerprint != "" {
		for _, existing := range m.docs {
			if existing.TenantID == doc.TenantID && !existing.Archived && existing.Fingerprint == doc.Fingerprint {
				return appErr.ErrDuplicate
			}
		}
	}
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *memDocs) GetByID(_ context.Context, tenantID, docID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok || doc.TenantID != tenantID {
		return nil, appErr.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *memDocs) FindByFingerprint(_ context.Context, tenantID, fp string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if doc.TenantID == tenantID && !doc.Archived && doc.Fingerprint == fp {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memDocs) ListRecent(_ context.Context, tenantID string, limit int) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Document, 0)
	for _, doc := range m.docs {
		if doc.TenantID == tenantID && !doc.Archived {
			out = append(out, *doc)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memDocs) ListByIDs(_ context.Context, tenantID string, docIDs []string) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Document, 0)
	for _, id := range docIDs {
		if doc, ok := m.docs[id]; ok && doc.TenantID == tenantID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (m *memDocs) List(_ context.Context, tenantID, status string, archived *bool, _, _ uint) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Document, 0)
	for _, doc := range m.docs {
		if doc.TenantID != tenantID {
			continue
		}
		if status != "" && doc.Status != status {
			continue
		}
		if archived != nil && doc.Archived != *archived {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (m *memDocs) SetStatus(_ context.Context, tenantID, docID, status string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok || doc.TenantID != tenantID {
		return appErr.ErrNotFound
	}
	doc.Status = status
	doc.Mtime = mtime
	return nil
}

func (m *memDocs) SetStatusIf(_ context.Context, tenantID, docID, fromStatus, toStatus string, mtime int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok || doc.TenantID != tenantID || doc.Status != fromStatus {
		return false, nil
	}
	doc.Status = toStatus
	doc.Mtime = mtime
	return true, nil
}

func (m *memDocs) SetExtracted(_ context.Context, tenantID, docID, status, extractedJSON string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok || doc.TenantID != tenantID {
		return appErr.ErrNotFound
	}
	doc.Status = status
	doc.ExtractedJSON = extractedJSON
	doc.ErrorText = ""
	doc.Mtime = mtime
	return nil
}

func (m *memDocs) SetError(_ context.Context, tenantID, docID, errorText string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok || doc.TenantID != tenantID {
		return appErr.ErrNotFound
	}
	doc.Status = model.DocumentStatusError
	doc.ErrorText = errorText
	doc.Mtime = mtime
	return nil
}

func (m *memDocs) SetArchived(_ context.Context, tenantID, docID string, archived bool, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok || doc.TenantID != tenantID {
		return appErr.ErrNotFound
	}
	doc.Archived = archived
	doc.Mtime = mtime
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*model.ProcessingSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*model.ProcessingSession{}}
}

func (m *memSessions) Create(_ context.Context, session *model.ProcessingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memSessions) Get(_ context.Context, tenantID, sessionID string) (*model.ProcessingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		return nil, appErr.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *memSessions) GetActive(_ context.Context, tenantID string) (*model.ProcessingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *model.ProcessingSession
	for _, session := range m.sessions {
		if session.TenantID != tenantID || session.Status != model.SessionStatusActive {
			continue
		}
		if newest == nil || session.Ctime > newest.Ctime {
			newest = session
		}
	}
	if newest == nil {
		return nil, appErr.ErrNotFound
	}
	copied := *newest
	return &copied, nil
}

func (m *memSessions) UpdateProgress(_ context.Context, tenantID, sessionID string, processed, failed int, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		return appErr.ErrNotFound
	}
	session.Processed = processed
	session.Failed = failed
	session.Mtime = mtime
	return nil
}

func (m *memSessions) UpdateStatusIf(_ context.Context, tenantID, sessionID, fromStatus, toStatus string, mtime int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok || session.TenantID != tenantID || session.Status != fromStatus {
		return false, nil
	}
	session.Status = toStatus
	session.Mtime = mtime
	return true, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Upload(_ context.Context, key string, data []byte, _ string, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok && !overwrite {
		return appErr.ErrConflict
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*model.ConnectorAccount
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: map[string]*model.ConnectorAccount{}}
}

func (m *memAccounts) Create(_ context.Context, account *model.ConnectorAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *memAccounts) Get(_ context.Context, tenantID, accountID string) (*model.ConnectorAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok || account.TenantID != tenantID {
		return nil, appErr.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *memAccounts) List(_ context.Context, tenantID string) ([]model.ConnectorAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ConnectorAccount, 0)
	for _, account := range m.accounts {
		if tenantID == "" || account.TenantID == tenantID {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (m *memAccounts) StampLastSync(_ context.Context, tenantID, accountID string, syncedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok || account.TenantID != tenantID {
		return appErr.ErrNotFound
	}
	account.LastSyncAt = syncedAt
	return nil
}

func (m *memAccounts) Delete(_ context.Context, tenantID, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account, ok := m.accounts[accountID]; ok && account.TenantID == tenantID {
		delete(m.accounts, accountID)
	}
	return nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*model.ConnectorSyncJob
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*model.ConnectorSyncJob{}}
}

func (m *memJobs) Create(_ context.Context, job *model.ConnectorSyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobs) Finish(_ context.Context, job *model.ConnectorSyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.jobs[job.ID]
	if !ok {
		return appErr.ErrNotFound
	}
	*stored = *job
	return nil
}

func (m *memJobs) Get(_ context.Context, tenantID, jobID string) (*model.ConnectorSyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return nil, appErr.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memJobs) ListByAccount(_ context.Context, tenantID, accountID string, _ int) ([]model.ConnectorSyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ConnectorSyncJob, 0)
	for _, job := range m.jobs {
		if job.TenantID == tenantID && job.AccountID == accountID {
			out = append(out, *job)
		}
	}
	return out, nil
}

type memItems struct {
	mu    sync.Mutex
	items []model.ConnectorSyncItem
}

func newMemItems() *memItems {
	return &memItems{}
}

func (m *memItems) Insert(_ context.Context, item *model.ConnectorSyncItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.Status == model.SyncItemStatusProcessed {
		for _, existing := range m.items {
			if existing.Status == model.SyncItemStatusProcessed &&
				existing.AccountID == item.AccountID &&
				existing.RemoteItemID == item.RemoteItemID &&
				existing.Fingerprint == item.Fingerprint {
				return appErr.ErrDuplicate
			}
		}
	}
	m.items = append(m.items, *item)
	return nil
}

func (m *memItems) SeenKey(_ context.Context, accountID, remoteItemID, fp string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.Status == model.SyncItemStatusProcessed &&
			item.AccountID == accountID &&
			item.RemoteItemID == remoteItemID &&
			item.Fingerprint == fp {
			return true, nil
		}
	}
	return false, nil
}

func (m *memItems) ListByJob(_ context.Context, tenantID, jobID string) ([]model.ConnectorSyncItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ConnectorSyncItem, 0)
	for _, item := range m.items {
		if item.TenantID == tenantID && item.JobID == jobID {
			out = append(out, item)
		}
	}
	return out, nil
}

// fakeProvider serves a two-level remote tree from maps.
type fakeProvider struct {
	mu       sync.Mutex
	folders  map[string][]connector.Entry
	contents map[string][]byte
	authErr  error
	// downloadErr fails a single item by id
	downloadErr map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		folders:     map[string][]connector.Entry{},
		contents:    map[string][]byte{},
		downloadErr: map[string]error{},
	}
}

func (f *fakeProvider) addFile(folder, id, name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders[folder] = append(f.folders[folder], connector.Entry{
		ID:   id,
		Name: name,
		Path: "/" + folder + "/" + name,
	})
	f.contents[id] = data
}

func (f *fakeProvider) addFolder(parent, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders[parent] = append(f.folders[parent], connector.Entry{
		ID:       id,
		Name:     id,
		Path:     "/" + id,
		IsFolder: true,
	})
}

func (f *fakeProvider) setContent(id string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents[id] = data
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) EnsureAuth(context.Context) error {
	return f.authErr
}

func (f *fakeProvider) ListChildren(_ context.Context, folderID string) ([]connector.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]connector.Entry(nil), f.folders[folderID]...), nil
}

func (f *fakeProvider) DownloadContent(_ context.Context, itemID string) (*connector.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.downloadErr[itemID]; err != nil {
		return nil, err
	}
	data, ok := f.contents[itemID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &connector.Content{Data: data, ContentType: "application/pdf"}, nil
}

type fakeExtractor struct {
	fn func(req *extract.Request) (*extract.Result, error)
}

func (f *fakeExtractor) Extract(_ context.Context, req *extract.Request) (*extract.Result, error) {
	if f.fn == nil {
		return &extract.Result{FieldsJSON: "{}", Confidence: 1}, nil
	}
	return f.fn(req)
}

// passChecker reports no duplicates, for tests exercising the insert-time
// constraint path.
type passChecker struct{}

func (passChecker) Check(context.Context, string, string, *model.ExtractedFields, string) (*dedup.Result, error) {
	return &dedup.Result{}, nil
}
