package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/momo-server/internal/apperror"
	"github.com/sakif/momo-server/internal/model"
)

const oauthColumns = `SELECT id, user_id, provider, external_id, credentials, user_info FROM oauth_accounts`

// FindOAuthAccount returns the link for (provider, externalID), or (nil, nil).
func (s *Store) FindOAuthAccount(ctx context.Context, provider model.OAuthProvider, externalID string) (*model.OAuthAccount, error) {
	var a model.OAuthAccount
	err := s.db.GetContext(ctx, &a,
		s.db.Rebind(oauthColumns+` WHERE provider = ? AND external_id = ?`),
		provider, externalID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: finding oauth account %s/%s: %w", provider, externalID, err)
	}
	return &a, nil
}

// UpdateOAuthAccount overwrites the stored credentials and profile of a link.
func (s *Store) UpdateOAuthAccount(ctx context.Context, acct *model.OAuthAccount) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE oauth_accounts SET credentials = ?, user_info = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		acct.Credentials, acct.UserInfo, acct.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating oauth account %d: %w", acct.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.NotFound("oauth account", fmt.Sprint(acct.ID))
	}
	return nil
}

// ListOAuthAccounts returns every link of one account, oldest first.
func (s *Store) ListOAuthAccounts(ctx context.Context, internalUserID int64) ([]model.OAuthAccount, error) {
	accts := []model.OAuthAccount{}
	err := s.db.SelectContext(ctx, &accts,
		s.db.Rebind(oauthColumns+` WHERE user_id = ? ORDER BY id`),
		internalUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing oauth accounts of user %d: %w", internalUserID, err)
	}
	return accts, nil
}

func insertOAuthAccount(ctx context.Context, q sqlx.ExtContext, acct *model.OAuthAccount) error {
	err := sqlx.GetContext(ctx, q, &acct.ID,
		q.Rebind(`INSERT INTO oauth_accounts (user_id, provider, external_id, credentials, user_info)
			VALUES (?, ?, ?, ?, ?) RETURNING id`),
		acct.UserID, acct.Provider, acct.ExternalID, acct.Credentials, acct.UserInfo,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sqlstore: inserting oauth account: %w",
				apperror.Conflict("oauth account", string(acct.Provider)+"/"+acct.ExternalID))
		}
		return fmt.Errorf("sqlstore: inserting oauth account %s/%s: %w", acct.Provider, acct.ExternalID, err)
	}
	return nil
}
