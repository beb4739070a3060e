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

const userColumns = `SELECT internal_user_id, user_id, email_id, password_hash, internal_meta FROM user_accounts`

// FindUser returns the account matching sel, or (nil, nil) if none does.
func (s *Store) FindUser(ctx context.Context, sel model.UserSelector) (*model.UserAccount, error) {
	var (
		where string
		arg   any
	)
	switch sel.Kind() {
	case model.SelectByUserID:
		where, arg = "user_id = ?", sel.UserID()
	case model.SelectByEmailID:
		where, arg = "email_id = ?", sel.EmailID()
	case model.SelectByInternalUserID:
		where, arg = "internal_user_id = ?", sel.InternalUserID()
	default:
		return nil, fmt.Errorf("sqlstore: unsupported selector %s", sel)
	}

	var u model.UserAccount
	err := s.db.GetContext(ctx, &u, s.db.Rebind(userColumns+" WHERE "+where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: finding user (%s): %w", sel, err)
	}
	return &u, nil
}

// CreateUser inserts user and sets its InternalUserID. A taken email or
// userId returns an apperror.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *model.UserAccount) error {
	return insertUser(ctx, s.db, user)
}

// UpdateMeta replaces the stored internal meta of one account.
func (s *Store) UpdateMeta(ctx context.Context, internalUserID int64, meta model.Meta) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE user_accounts SET internal_meta = ?, updated_at = CURRENT_TIMESTAMP WHERE internal_user_id = ?`),
		meta, internalUserID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating meta of user %d: %w", internalUserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: updating meta of user %d: %w", internalUserID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", fmt.Sprint(internalUserID))
	}
	return nil
}

// CreateUserWithOAuth inserts the account and its first provider link in one
// transaction. acct.UserID is set from the new account.
func (s *Store) CreateUserWithOAuth(ctx context.Context, user *model.UserAccount, acct *model.OAuthAccount) error {
	return s.withinTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		acct.UserID = user.InternalUserID
		return insertOAuthAccount(ctx, tx, acct)
	})
}

func insertUser(ctx context.Context, q sqlx.ExtContext, user *model.UserAccount) error {
	meta := user.InternalMeta
	if meta == nil {
		meta = model.Meta{}
	}

	err := sqlx.GetContext(ctx, q, &user.InternalUserID,
		q.Rebind(`INSERT INTO user_accounts (user_id, email_id, password_hash, internal_meta)
			VALUES (?, ?, ?, ?) RETURNING internal_user_id`),
		user.UserID, user.EmailID, user.PasswordHash, meta,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sqlstore: inserting user: %w", apperror.Conflict("user", user.EmailID))
		}
		return fmt.Errorf("sqlstore: inserting user %s: %w", user.EmailID, err)
	}
	user.InternalMeta = meta
	return nil
}
