package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/paperflowhq/paperflow/internal/model"
	"github.com/paperflowhq/paperflow/internal/pkg/dbutil"
	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
)

var connectorAccountColumns = []string{
	"id", "tenant_id", "provider", "root_folder", "credentials", "last_sync_at", "ctime", "mtime",
}

type ConnectorAccountRepo struct {
	db *sql.DB
}

func NewConnectorAccountRepo(db *sql.DB) *ConnectorAccountRepo {
	return &ConnectorAccountRepo{db: db}
}

func (r *ConnectorAccountRepo) Create(ctx context.Context, account *model.ConnectorAccount) error {
	data := map[string]interface{}{
		"id":           account.ID,
		"tenant_id":    account.TenantID,
		"provider":     account.Provider,
		"root_folder":  account.RootFolder,
		"credentials":  account.Credentials,
		"last_sync_at": account.LastSyncAt,
		"ctime":        account.Ctime,
		"mtime":        account.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("connector_accounts", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ConnectorAccountRepo) Get(ctx context.Context, tenantID, accountID string) (*model.ConnectorAccount, error) {
	where := map[string]interface{}{
		"id":        accountID,
		"tenant_id": tenantID,
	}
	sqlStr, args, err := builder.BuildSelect("connector_accounts", where, connectorAccountColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanConnectorAccount(rows)
}

func (r *ConnectorAccountRepo) List(ctx context.Context, tenantID string) ([]model.ConnectorAccount, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	if tenantID != "" {
		where["tenant_id"] = tenantID
	}
	sqlStr, args, err := builder.BuildSelect("connector_accounts", where, connectorAccountColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := make([]model.ConnectorAccount, 0)
	for rows.Next() {
		account, err := scanConnectorAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func scanConnectorAccount(rows *sql.Rows) (*model.ConnectorAccount, error) {
	var account model.ConnectorAccount
	if err := rows.Scan(
		&account.ID, &account.TenantID, &account.Provider, &account.RootFolder,
		&account.Credentials, &account.LastSyncAt, &account.Ctime, &account.Mtime,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *ConnectorAccountRepo) StampLastSync(ctx context.Context, tenantID, accountID string, syncedAt int64) error {
	const query = `
		UPDATE connector_accounts
		SET last_sync_at = $1, mtime = $2
		WHERE id = $3 AND tenant_id = $4
	`
	res, err := r.db.ExecContext(ctx, query, syncedAt, syncedAt, accountID, tenantID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ConnectorAccountRepo) Delete(ctx context.Context, tenantID, accountID string) error {
	const query = `DELETE FROM connector_accounts WHERE id = $1 AND tenant_id = $2`
	_, err := r.db.ExecContext(ctx, query, accountID, tenantID)
	return err
}
