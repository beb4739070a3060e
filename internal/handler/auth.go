package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/momo-server/internal/apperror"
	"github.com/sakif/momo-server/internal/auth"
	"github.com/sakif/momo-server/internal/model"
	"github.com/sakif/momo-server/internal/service"
)

const stateCookie = "oauth_state"

// OAuthExchanger completes a provider's authorization-code flow.
// *auth.GoogleProvider satisfies it.
type OAuthExchanger interface {
	AuthURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (*model.OAuthPayload, error)
}

// AuthHandler serves the /auth endpoints. Every expected failure is a 400
// whose body carries the failure code.
//
//   - HandleSignUp / HandleSignIn  → email + password, returns a token
//   - HandleGoogleToken            → app clients post a code they obtained
//   - HandleGoogleLogin / Callback → browser redirect flow
//   - HandleValidate               → resolves a bearer token to a profile
type AuthHandler struct {
	identity    *service.IdentityService
	google      OAuthExchanger // nil when Google sign-in is not configured
	redirectURL string
	logger      *slog.Logger
}

func NewAuthHandler(identity *service.IdentityService, google OAuthExchanger, redirectURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		identity:    identity,
		google:      google,
		redirectURL: redirectURL,
		logger:      logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleTokenRequest struct {
	Code        string `json:"code"`
	RedirectURL string `json:"redirectUrl"`
}

// TokenResponse is the body of every successful sign-in.
type TokenResponse struct {
	JWTToken string `json:"jwtToken"`
}

// HandleSignUp creates an email account.
//
// HTTP: POST /auth/email/signup
// REQUEST BODY: {"email": "a@b.com", "password": "..."}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAuthError(w, r, h.logger, err)
		return
	}

	u, err := h.identity.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, h.logger, err)
		return
	}
	h.writeToken(w, r, u)
}

// HandleSignIn checks an email account's password.
//
// HTTP: POST /auth/email/signin
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAuthError(w, r, h.logger, err)
		return
	}

	u, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, h.logger, err)
		return
	}
	h.writeToken(w, r, u)
}

// HandleGoogleToken exchanges an authorization code obtained by the client.
//
// HTTP: POST /auth/oauth/google
// REQUEST BODY: {"code": "...", "redirectUrl": "..."}
//
// redirectUrl must be the one the client used to obtain the code; it
// defaults to the server's own callback.
func (h *AuthHandler) HandleGoogleToken(w http.ResponseWriter, r *http.Request) {
	var req googleTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAuthError(w, r, h.logger, err)
		return
	}
	if req.Code == "" {
		writeAuthError(w, r, h.logger, apperror.ValidationFailed("code", "code is required"))
		return
	}
	if req.RedirectURL == "" {
		req.RedirectURL = h.redirectURL
	}

	h.completeGoogle(w, r, req.Code, req.RedirectURL)
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /auth/oauth/google/login
//
// A random state is stored in a short-lived HttpOnly cookie and checked on
// callback, so only flows started here can complete.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/oauth/google",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state, h.redirectURL), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback finishes the browser flow.
//
// HTTP: GET /auth/oauth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		writeAuthError(w, r, h.logger, apperror.Invalid(apperror.CodeOAuthFailed, "state", "invalid oauth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/auth/oauth/google",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		writeAuthError(w, r, h.logger, apperror.Invalid(apperror.CodeOAuthFailed, "code", "authorization denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeAuthError(w, r, h.logger, apperror.ValidationFailed("code", "code is required"))
		return
	}

	h.completeGoogle(w, r, code, h.redirectURL)
}

func (h *AuthHandler) completeGoogle(w http.ResponseWriter, r *http.Request, code, redirectURL string) {
	payload, err := h.google.Exchange(r.Context(), code, redirectURL)
	if err != nil {
		if errors.Is(err, auth.ErrOAuthExchange) {
			h.logger.Warn("oauth exchange failed", slog.String("error", err.Error()))
			writeAuthError(w, r, h.logger, apperror.New(apperror.ErrUpstream, apperror.CodeOAuthFailed, "google sign-in failed"))
			return
		}
		writeAuthError(w, r, h.logger, err)
		return
	}

	u, err := h.identity.ResolveOrLinkOAuth(r.Context(), payload)
	if err != nil {
		writeAuthError(w, r, h.logger, err)
		return
	}
	h.writeToken(w, r, u)
}

// HandleValidate resolves the bearer token to the caller's public profile.
//
// HTTP: GET /auth/jwt/validate
//
// Unlike the protected routes, a missing or rejected token is a 400 here.
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		writeAuthError(w, r, h.logger, apperror.Unauthorized(apperror.CodeNotAuthenticated, "bearer token required"))
		return
	}

	u, err := h.identity.FindUserByToken(r.Context(), token, time.Now())
	if err != nil {
		writeAuthError(w, r, h.logger, err)
		return
	}

	profile, err := h.identity.ResolveProfile(r.Context(), u)
	if err != nil {
		writeAuthError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, u *model.UserAccount) {
	token, err := h.identity.IssueToken(u)
	if err != nil {
		writeFault(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{JWTToken: token})
}
