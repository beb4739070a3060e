// Package repository declares the storage contracts the services depend on.
// The sqlstore subpackage implements all of them over SQLite and PostgreSQL.
package repository

import (
	"context"

	"github.com/sakif/momo-server/internal/model"
)

// UserRepository stores accounts.
//
// Lookups report absence as (nil, nil). Inserts that collide with a unique
// column return an error wrapping apperror.ErrConflict; uniqueness is never
// pre-checked.
type UserRepository interface {
	FindUser(ctx context.Context, sel model.UserSelector) (*model.UserAccount, error)
	CreateUser(ctx context.Context, user *model.UserAccount) error
	UpdateMeta(ctx context.Context, internalUserID int64, meta model.Meta) error

	// CreateUserWithOAuth inserts both rows in one transaction. On failure
	// neither row exists.
	CreateUserWithOAuth(ctx context.Context, user *model.UserAccount, acct *model.OAuthAccount) error
}

// OAuthAccountRepository stores provider links. (provider, externalId) is
// unique.
type OAuthAccountRepository interface {
	FindOAuthAccount(ctx context.Context, provider model.OAuthProvider, externalID string) (*model.OAuthAccount, error)
	UpdateOAuthAccount(ctx context.Context, acct *model.OAuthAccount) error
	ListOAuthAccounts(ctx context.Context, internalUserID int64) ([]model.OAuthAccount, error)
}

// CollectionRepository stores per-user item states. (userId, itemId) is
// unique.
type CollectionRepository interface {
	ListCollection(ctx context.Context, userID string) ([]model.CollectionEntry, error)

	// UpsertCollection writes all entries in one atomic statement and returns
	// the stored rows in no particular order. Entries must have distinct
	// item ids.
	UpsertCollection(ctx context.Context, userID string, entries []model.CollectionEntry) ([]model.CollectionEntry, error)
}
