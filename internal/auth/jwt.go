// Package auth provides session tokens, password hashing, the Google OAuth
// client and the bearer-token middleware.
//
// SESSION TOKENS:
// A session token is a stateless HS256 JWT. Nothing is stored server side;
// the signature proves the server issued it and "exp" bounds its life.
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:  {"alg":"HS256","typ":"JWT"}
//	- Payload: {"userId":"<uuid>","iss":"momo-server","iat":...,"exp":...}
//
// Verification never touches storage. Resolving the userId to an account is
// the identity service's job.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

const issuer = "momo-server"

// tokenPrecision is the resolution of iat and exp. Issue times are truncated
// to it, and decoded claims are rounded back to it, so the float encoding of
// NumericDate cannot move a deadline.
const tokenPrecision = time.Millisecond

func init() {
	// Encode iat/exp with sub-second digits instead of whole seconds, which
	// would pull every deadline up to a second early.
	jwt.TimePrecision = time.Microsecond
}

// Verification failure kinds. Every error returned by Verify wraps exactly
// one of these.
var (
	ErrTokenMalformed        = errors.New("auth: token malformed")
	ErrTokenInvalidSignature = errors.New("auth: token signature invalid")
	ErrTokenExpired          = errors.New("auth: token expired")
)

// TokenService signs and verifies session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. A ttl of zero or less selects
// DefaultTokenTTL.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// claims is the JWT payload. The user id travels in a private "userId"
// claim next to the registered iss/iat/exp.
type claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TTL reports the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for userID, valid from now for the service TTL.
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueAt(userID, s.now())
}

// IssueAt signs a token as if issued at the given instant, truncated to the
// millisecond. The token expires once TTL has passed since that instant.
func (s *TokenService) IssueAt(userID string, at time.Time) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue token for empty user id")
	}
	at = at.Truncate(tokenPrecision)

	c := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify checks token against the secret and the supplied instant and returns
// the userId it carries.
//
// A token is accepted until now passes exp; at exactly exp it is still valid.
// Signature problems are reported before expiry, so an expired token signed
// with another key is InvalidSignature.
//
// ALGORITHM CONFUSION:
// WithValidMethods pins HS256. A token claiming "none" or an RSA algorithm is
// rejected before the key is ever used.
//
// The library's time checks use now >= exp, so claims are validated here
// instead.
func (s *TokenService) Verify(tokenStr string, now time.Time) (string, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", classify(err)
	}

	if err := validateClaims(c, now); err != nil {
		return "", err
	}
	return c.UserID, nil
}

func validateClaims(c *claims, now time.Time) error {
	if c.Issuer != issuer {
		return fmt.Errorf("%w: unexpected issuer %q", ErrTokenInvalidSignature, c.Issuer)
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("%w: missing exp claim", ErrTokenInvalidSignature)
	}
	if c.IssuedAt != nil && c.IssuedAt.Time.Round(tokenPrecision).After(now) {
		return fmt.Errorf("%w: token used before issued", ErrTokenInvalidSignature)
	}
	if now.After(c.ExpiresAt.Time.Round(tokenPrecision)) {
		return fmt.Errorf("%w: expired at %s", ErrTokenExpired, c.ExpiresAt.Time.Round(tokenPrecision).Format(time.RFC3339Nano))
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: missing userId claim", ErrTokenMalformed)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrTokenInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenInvalidSignature, err)
	}
}
