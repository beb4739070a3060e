// Package service holds the business rules. Handlers call services;
// services call repositories and the auth utilities:
//
//	Handler (HTTP) → IdentityService   → UserRepository / OAuthAccountRepository
//	               ↘ CollectionService → CollectionRepository
//
// Services never read HTTP requests or write responses. Every expected
// failure comes back as an *apperror.AppError carrying a stable code.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/momo-server/internal/apperror"
	"github.com/sakif/momo-server/internal/auth"
	"github.com/sakif/momo-server/internal/metrics"
	"github.com/sakif/momo-server/internal/model"
	"github.com/sakif/momo-server/internal/repository"
	"github.com/sakif/momo-server/internal/sanitize"
)

// PasswordHasher is the password work IdentityService needs.
// *auth.PasswordService satisfies it.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	HashRandom() (string, error)
	Compare(hash, plaintext string) error
	CompareDummy(plaintext string)
}

// IdentityService resolves who a caller is: by selector, by session token,
// by email and password, or by an OAuth identity.
type IdentityService struct {
	users     repository.UserRepository
	links     repository.OAuthAccountRepository
	tokens    *auth.TokenService
	passwords PasswordHasher
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewIdentityService wires an IdentityService.
func NewIdentityService(
	users repository.UserRepository,
	links repository.OAuthAccountRepository,
	tokens *auth.TokenService,
	passwords PasswordHasher,
	rec metrics.Recorder,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		users:     users,
		links:     links,
		tokens:    tokens,
		passwords: passwords,
		metrics:   rec,
		logger:    logger,
	}
}

// FindUser looks an account up by exactly one identifier. A missing account
// is (nil, nil).
func (s *IdentityService) FindUser(ctx context.Context, sel model.UserSelector) (*model.UserAccount, error) {
	switch sel.Kind() {
	case model.SelectByUserID, model.SelectByEmailID, model.SelectByInternalUserID:
	default:
		return nil, apperror.ValidationFailed("selector", "exactly one user identifier is required")
	}

	u, err := s.users.FindUser(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("service/identity: finding user (%s): %w", sel, err)
	}
	return u, nil
}

// FindUserByToken verifies token at now and loads the account it names.
//
// A token that verifies but names no account means storage lost a row the
// server once issued a token for. That is reported as an inconsistency, not
// as an authentication failure.
func (s *IdentityService) FindUserByToken(ctx context.Context, token string, now time.Time) (*model.UserAccount, error) {
	userID, err := s.tokens.Verify(token, now)
	if err != nil {
		return nil, tokenFailure(err)
	}

	u, err := s.FindUser(ctx, model.ByUserID(userID))
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.logger.Error("verified token names a missing account", slog.String("userID", userID))
		return nil, apperror.Inconsistency("no account for token subject %s", userID)
	}
	return u, nil
}

// IssueToken signs a session token for user.
func (s *IdentityService) IssueToken(user *model.UserAccount) (string, error) {
	token, err := s.tokens.Issue(user.UserID)
	if err != nil {
		return "", fmt.Errorf("service/identity: issuing token for %s: %w", user.UserID, err)
	}
	return token, nil
}

// SignUp registers an email/password account.
//
// Input is validated before storage is touched. Email uniqueness is left to
// the storage constraint: a check-then-insert would race.
func (s *IdentityService) SignUp(ctx context.Context, email, password string) (*model.UserAccount, error) {
	email, err := sanitize.Email(email)
	if err != nil {
		s.metrics.RecordSignUp(metrics.OutcomeRejected)
		return nil, err
	}
	password, err = sanitize.NewPassword(password)
	if err != nil {
		s.metrics.RecordSignUp(metrics.OutcomeRejected)
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		s.metrics.RecordSignUp(metrics.OutcomeError)
		return nil, fmt.Errorf("service/identity: hashing password: %w", err)
	}

	u := &model.UserAccount{
		UserID:       uuid.NewString(),
		EmailID:      email,
		PasswordHash: hash,
		InternalMeta: model.Meta{},
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.metrics.RecordSignUp(metrics.OutcomeRejected)
			return nil, apperror.New(apperror.ErrConflict, apperror.CodeUserExisted, "email is already registered")
		}
		s.metrics.RecordSignUp(metrics.OutcomeError)
		return nil, fmt.Errorf("service/identity: creating user: %w", err)
	}

	s.metrics.RecordSignUp(metrics.OutcomeSuccess)
	s.logger.Info("user signed up", slog.String("userID", u.UserID))
	return u, nil
}

// SignIn checks an email/password pair.
//
// An unknown email still pays for one bcrypt comparison, so response time
// does not reveal which emails are registered.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*model.UserAccount, error) {
	email, err := sanitize.Email(email)
	if err != nil {
		s.metrics.RecordSignIn(metrics.OutcomeRejected)
		return nil, err
	}
	password, err = sanitize.Password(password)
	if err != nil {
		s.metrics.RecordSignIn(metrics.OutcomeRejected)
		return nil, err
	}

	u, err := s.FindUser(ctx, model.ByEmailID(email))
	if err != nil {
		s.metrics.RecordSignIn(metrics.OutcomeError)
		return nil, err
	}
	if u == nil {
		s.passwords.CompareDummy(password)
		s.metrics.RecordSignIn(metrics.OutcomeRejected)
		return nil, apperror.New(apperror.ErrNotFound, apperror.CodeUserNotFound, "no account for this email")
	}

	if err := s.passwords.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.metrics.RecordSignIn(metrics.OutcomeRejected)
			return nil, apperror.Unauthorized(apperror.CodePasswordUnmatch, "password does not match")
		}
		s.metrics.RecordSignIn(metrics.OutcomeError)
		return nil, fmt.Errorf("service/identity: comparing password of %s: %w", u.UserID, err)
	}

	s.metrics.RecordSignIn(metrics.OutcomeSuccess)
	return u, nil
}

// ResolveOrLinkOAuth maps a provider identity to an account.
//
//   - Known (provider, externalId): refresh the stored credentials and
//     profile, return the linked account.
//   - Unknown: create the account and the link in one transaction.
//
// The provider must vouch for the email. Two first logins racing on the same
// identity both end up on the account the winner created.
func (s *IdentityService) ResolveOrLinkOAuth(ctx context.Context, payload *model.OAuthPayload) (*model.UserAccount, error) {
	if payload == nil || payload.ExternalID == "" || payload.Provider == "" {
		return nil, apperror.ValidationFailed("oauth", "provider identity is required")
	}
	if payload.UserInfo.Email == "" || !payload.UserInfo.VerifiedEmail {
		return nil, apperror.Invalid(apperror.CodeEmailUnverified, "email", "provider did not supply a verified email")
	}
	email, err := sanitize.Email(payload.UserInfo.Email)
	if err != nil {
		return nil, err
	}

	link, err := s.links.FindOAuthAccount(ctx, payload.Provider, payload.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("service/identity: finding oauth link: %w", err)
	}
	if link != nil {
		return s.refreshLink(ctx, link, payload)
	}

	hash, err := s.passwords.HashRandom()
	if err != nil {
		return nil, fmt.Errorf("service/identity: hashing placeholder password: %w", err)
	}

	u := &model.UserAccount{
		UserID:       uuid.NewString(),
		EmailID:      email,
		PasswordHash: hash,
		InternalMeta: model.Meta{},
	}
	link = &model.OAuthAccount{
		Provider:    payload.Provider,
		ExternalID:  payload.ExternalID,
		Credentials: payload.Credentials,
		UserInfo:    payload.UserInfo,
	}

	err = s.users.CreateUserWithOAuth(ctx, u, link)
	if errors.Is(err, apperror.ErrConflict) {
		// Either another request linked this identity first, or the email
		// belongs to an account created another way.
		winner, ferr := s.links.FindOAuthAccount(ctx, payload.Provider, payload.ExternalID)
		if ferr != nil {
			return nil, fmt.Errorf("service/identity: re-reading oauth link after conflict: %w", ferr)
		}
		if winner != nil {
			return s.refreshLink(ctx, winner, payload)
		}
		return nil, apperror.New(apperror.ErrConflict, apperror.CodeUserExisted, "email is already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("service/identity: creating oauth account: %w", err)
	}

	s.metrics.RecordOAuthLink(metrics.OutcomeCreated)
	s.logger.Info("user created via oauth",
		slog.String("userID", u.UserID),
		slog.String("provider", string(payload.Provider)),
	)
	return u, nil
}

func (s *IdentityService) refreshLink(ctx context.Context, link *model.OAuthAccount, payload *model.OAuthPayload) (*model.UserAccount, error) {
	u, err := s.FindUser(ctx, model.ByInternalUserID(link.UserID))
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.logger.Error("oauth link points at a missing account",
			slog.Int64("linkID", link.ID),
			slog.Int64("internalUserID", link.UserID),
		)
		return nil, apperror.Inconsistency("oauth link %d has no account", link.ID)
	}

	link.Credentials = payload.Credentials
	link.UserInfo = payload.UserInfo
	if err := s.links.UpdateOAuthAccount(ctx, link); err != nil {
		return nil, fmt.Errorf("service/identity: refreshing oauth link %d: %w", link.ID, err)
	}

	s.metrics.RecordOAuthLink(metrics.OutcomeLinked)
	return u, nil
}

// ResolveProfile builds the public view of account. The avatar is the
// picture of the first linked Google identity that has one.
func (s *IdentityService) ResolveProfile(ctx context.Context, account *model.UserAccount) (*model.PublicProfile, error) {
	links, err := s.links.ListOAuthAccounts(ctx, account.InternalUserID)
	if err != nil {
		return nil, fmt.Errorf("service/identity: listing links of %s: %w", account.UserID, err)
	}

	profile := &model.PublicProfile{UserID: account.UserID, Email: account.EmailID}
	for _, l := range links {
		if l.Provider == model.ProviderGoogle && l.UserInfo.Picture != "" {
			profile.AvatarURL = l.UserInfo.Picture
			break
		}
	}
	return profile, nil
}

// PublicProfile resolves the profile of the account with the given public
// userId.
func (s *IdentityService) PublicProfile(ctx context.Context, rawUserID string) (*model.PublicProfile, error) {
	userID, err := sanitize.UserID(rawUserID)
	if err != nil {
		return nil, err
	}

	u, err := s.FindUser(ctx, model.ByUserID(userID))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.New(apperror.ErrNotFound, apperror.CodeUserNotFound, "user not found")
	}
	return s.ResolveProfile(ctx, u)
}

// UpdateMeta shallow-merges patch into the account's internal meta and
// returns the stored result. The caller must have established that the
// account exists; a missing one is an inconsistency.
func (s *IdentityService) UpdateMeta(ctx context.Context, sel model.UserSelector, patch model.Meta) (model.Meta, error) {
	u, err := s.FindUser(ctx, sel)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.Inconsistency("update meta: no account for %s", sel)
	}

	merged := u.InternalMeta.Merge(patch)
	if err := s.users.UpdateMeta(ctx, u.InternalUserID, merged); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Inconsistency("update meta: account %s vanished", u.UserID)
		}
		return nil, fmt.Errorf("service/identity: updating meta of %s: %w", u.UserID, err)
	}
	return merged, nil
}

func tokenFailure(err error) error {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return apperror.Unauthorized(apperror.CodeTokenExpired, "token expired")
	case errors.Is(err, auth.ErrTokenMalformed):
		return apperror.Unauthorized(apperror.CodeTokenMalformed, "token malformed")
	default:
		return apperror.Unauthorized(apperror.CodeTokenInvalidSignature, "token signature invalid")
	}
}
