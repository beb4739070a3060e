package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/momo-server/internal/apperror"
	"github.com/sakif/momo-server/internal/model"
)

// contextKey is unexported so only this package can set or read the
// authenticated account in a request context.
type contextKey string

const userKey contextKey = "user"

// TokenResolver turns a bearer token into the account it was issued for.
type TokenResolver interface {
	FindUserByToken(ctx context.Context, token string, now time.Time) (*model.UserAccount, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads "Authorization: Bearer <jwt>", resolves the account, and stores it
// in the request context. A missing or rejected token stops the chain with
// 401 and the failure code. A resolver fault is a 500.
func RequireAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeAuthError(w, apperror.Unauthorized(apperror.CodeNotAuthenticated, "bearer token required"))
				return
			}

			user, err := resolver.FindUserByToken(r.Context(), token, time.Now())
			if err != nil {
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithUser returns a copy of ctx carrying the authenticated account.
func WithUser(ctx context.Context, user *model.UserAccount) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the account stored by RequireAuth.
//
// Usage in handlers:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // route is not behind RequireAuth
//	}
func UserFromContext(ctx context.Context) (*model.UserAccount, bool) {
	u, ok := ctx.Value(userKey).(*model.UserAccount)
	return u, ok && u != nil
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	code := apperror.CodeOf(err)
	message := err.Error()
	if !errors.Is(err, apperror.ErrUnauthorized) {
		status = http.StatusInternalServerError
		code = apperror.CodeInternal
		message = "an unexpected error occurred"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": message,
	})
}
