package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sakif/momo-server/internal/auth"
	"github.com/sakif/momo-server/internal/metrics"
	"github.com/sakif/momo-server/internal/model"
	"github.com/sakif/momo-server/internal/repository"
	"github.com/sakif/momo-server/internal/repository/sqlstore"
)

// =========================================================================
// FIXTURES
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("service-test-secret-32-chars!!!!", 0)
	require.NoError(t, err)
	return ts
}

type identityDeps struct {
	users     repository.UserRepository
	links     repository.OAuthAccountRepository
	passwords PasswordHasher
}

// newTestIdentity wires an IdentityService over a fresh in-memory store.
// Either repository can be swapped for a fake through deps.
func newTestIdentity(t *testing.T, store *sqlstore.Store, deps identityDeps) *IdentityService {
	t.Helper()
	if deps.users == nil {
		deps.users = store
	}
	if deps.links == nil {
		deps.links = store
	}
	if deps.passwords == nil {
		deps.passwords = auth.NewPasswordServiceWithCost(4)
	}
	return NewIdentityService(
		deps.users,
		deps.links,
		newTestTokens(t),
		deps.passwords,
		metrics.NewCollector(prometheus.NewRegistry()),
		discardLogger(),
	)
}

// =========================================================================
// FAKES
// =========================================================================

// countingUserRepo forwards to a real repository and counts every call.
type countingUserRepo struct {
	repository.UserRepository
	calls int
}

func (r *countingUserRepo) FindUser(ctx context.Context, sel model.UserSelector) (*model.UserAccount, error) {
	r.calls++
	return r.UserRepository.FindUser(ctx, sel)
}

func (r *countingUserRepo) CreateUser(ctx context.Context, u *model.UserAccount) error {
	r.calls++
	return r.UserRepository.CreateUser(ctx, u)
}

// danglingLinkRepo reports a link whose account does not exist.
type danglingLinkRepo struct {
	repository.OAuthAccountRepository
}

func (danglingLinkRepo) FindOAuthAccount(context.Context, model.OAuthProvider, string) (*model.OAuthAccount, error) {
	return &model.OAuthAccount{ID: 7, UserID: 4040, Provider: model.ProviderGoogle, ExternalID: "g-ghost"}, nil
}

// failingRereadLinkRepo forwards the first lookup and fails every later one.
type failingRereadLinkRepo struct {
	repository.OAuthAccountRepository
	lookups int
}

func (r *failingRereadLinkRepo) FindOAuthAccount(ctx context.Context, p model.OAuthProvider, externalID string) (*model.OAuthAccount, error) {
	r.lookups++
	if r.lookups > 1 {
		return nil, errors.New("connection reset")
	}
	return r.OAuthAccountRepository.FindOAuthAccount(ctx, p, externalID)
}

// fixedLinksRepo lists a fixed set of links for every account.
type fixedLinksRepo struct {
	repository.OAuthAccountRepository
	links []model.OAuthAccount
}

func (r fixedLinksRepo) ListOAuthAccounts(context.Context, int64) ([]model.OAuthAccount, error) {
	return r.links, nil
}

// countingHasher forwards to a real PasswordService and counts bcrypt
// comparisons, dummy ones included.
type countingHasher struct {
	*auth.PasswordService
	compares int
}

func (h *countingHasher) Compare(hash, plaintext string) error {
	h.compares++
	return h.PasswordService.Compare(hash, plaintext)
}

func (h *countingHasher) CompareDummy(plaintext string) {
	h.compares++
	h.PasswordService.CompareDummy(plaintext)
}

// countingCollectionRepo forwards to a real repository and counts upserts.
type countingCollectionRepo struct {
	repository.CollectionRepository
	upserts int
}

func (r *countingCollectionRepo) UpsertCollection(ctx context.Context, userID string, entries []model.CollectionEntry) ([]model.CollectionEntry, error) {
	r.upserts++
	return r.CollectionRepository.UpsertCollection(ctx, userID, entries)
}

// shortCollectionRepo drops one returned row to simulate a broken store.
type shortCollectionRepo struct {
	repository.CollectionRepository
}

func (r shortCollectionRepo) UpsertCollection(ctx context.Context, userID string, entries []model.CollectionEntry) ([]model.CollectionEntry, error) {
	out, err := r.CollectionRepository.UpsertCollection(ctx, userID, entries)
	if err != nil || len(out) == 0 {
		return out, err
	}
	return out[1:], nil
}

func googlePayload(externalID, email string, verified bool) *model.OAuthPayload {
	return &model.OAuthPayload{
		Provider:    model.ProviderGoogle,
		ExternalID:  externalID,
		Credentials: model.OAuthCredentials{AccessToken: "at-1"},
		UserInfo: model.OAuthUserInfo{
			ID:            externalID,
			Email:         email,
			VerifiedEmail: verified,
			Picture:       "https://img.example.com/" + externalID + ".png",
		},
	}
}
