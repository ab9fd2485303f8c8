package service

import (
	"context"
	"encoding/json"

	"github.com/paperflowhq/paperflow/internal/connector"
	"github.com/paperflowhq/paperflow/internal/model"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
	"github.com/paperflowhq/paperflow/internal/pkg/timeutil"
)

type connectorAccounts interface {
	Create(ctx context.Context, account *model.ConnectorAccount) error
	Get(ctx context.Context, tenantID, accountID string) (*model.ConnectorAccount, error)
	List(ctx context.Context, tenantID string) ([]model.ConnectorAccount, error)
	Delete(ctx context.Context, tenantID, accountID string) error
}

type ConnectorService struct {
	accounts connectorAccounts
}

func NewConnectorService(accounts connectorAccounts) *ConnectorService {
	return &ConnectorService{accounts: accounts}
}

type ConnectorCreateInput struct {
	Provider    string
	RootFolder  string
	Credentials connector.Credentials
}

func (s *ConnectorService) Create(ctx context.Context, tenantID string, in ConnectorCreateInput) (*model.ConnectorAccount, error) {
	if in.Provider == "" {
		return nil, appErr.ErrInvalid
	}
	credsJSON, err := json.Marshal(in.Credentials)
	if err != nil {
		return nil, err
	}
	// a provider that cannot even be constructed from these credentials
	// should fail at creation, not at the first scheduled sync
	if _, err := connector.NewProvider(in.Provider, connector.ProviderArgs{
		Credentials: &in.Credentials,
		RootFolder:  in.RootFolder,
	}); err != nil {
		return nil, appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	account := &model.ConnectorAccount{
		ID:          newID(),
		TenantID:    tenantID,
		Provider:    in.Provider,
		RootFolder:  in.RootFolder,
		Credentials: string(credsJSON),
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *ConnectorService) Get(ctx context.Context, tenantID, accountID string) (*model.ConnectorAccount, error) {
	return s.accounts.Get(ctx, tenantID, accountID)
}

func (s *ConnectorService) List(ctx context.Context, tenantID string) ([]model.ConnectorAccount, error) {
	return s.accounts.List(ctx, tenantID)
}

func (s *ConnectorService) Delete(ctx context.Context, tenantID, accountID string) error {
	if _, err := s.accounts.Get(ctx, tenantID, accountID); err != nil {
		return err
	}
	return s.accounts.Delete(ctx, tenantID, accountID)
}
