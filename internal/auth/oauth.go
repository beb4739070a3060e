package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sakif/momo-server/internal/model"
)

// ErrOAuthExchange wraps every failure of the code exchange or the profile
// fetch. Callers report it as one generic error; the cause is only logged.
var ErrOAuthExchange = errors.New("auth: oauth exchange failed")

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider runs the server side of Google's Authorization Code flow.
//
// AUTHORIZATION CODE FLOW:
//  1. The client sends the user to Google (AuthURL) with a redirect URL.
//  2. Google redirects back to that URL with a short-lived "code".
//  3. The client posts {code, redirectUrl} to us.
//  4. We trade the code for tokens (server to server, using the secret).
//  5. We call the userinfo endpoint with the access token.
//
// The redirect URL must match the one used in step 1 exactly, so it is
// supplied per call rather than fixed in the config.
type GoogleProvider struct {
	config      oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider against Google's real endpoints.
func NewGoogleProvider(clientID, clientSecret string) *GoogleProvider {
	return NewGoogleProviderWithEndpoint(clientID, clientSecret, google.Endpoint, googleUserInfoURL)
}

// NewGoogleProviderWithEndpoint points the provider at custom token and
// userinfo endpoints. Tests use it with an httptest server.
func NewGoogleProviderWithEndpoint(clientID, clientSecret string, endpoint oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	return &GoogleProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// withRedirect returns a copy of the config bound to redirectURL.
// The shared config is never mutated, so concurrent requests are safe.
func (p *GoogleProvider) withRedirect(redirectURL string) *oauth2.Config {
	cfg := p.config
	cfg.RedirectURL = redirectURL
	return &cfg
}

// AuthURL returns the consent-screen URL. state is echoed back by Google and
// must be checked against the caller's cookie.
func (p *GoogleProvider) AuthURL(state, redirectURL string) string {
	return p.withRedirect(redirectURL).AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's Google identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code, redirectURL string) (*model.OAuthPayload, error) {
	cfg := p.withRedirect(redirectURL)

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchanging code: %w", ErrOAuthExchange, err)
	}

	info, err := p.fetchUserInfo(ctx, cfg.Client(ctx, tok))
	if err != nil {
		return nil, err
	}

	idToken, _ := tok.Extra("id_token").(string)

	return &model.OAuthPayload{
		Provider:   model.ProviderGoogle,
		ExternalID: info.ID,
		Credentials: model.OAuthCredentials{
			AccessToken:  tok.AccessToken,
			TokenType:    tok.TokenType,
			RefreshToken: tok.RefreshToken,
			IDToken:      idToken,
			Expiry:       tok.Expiry,
		},
		UserInfo: *info,
	}, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, client *http.Client) (*model.OAuthUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building userinfo request: %w", ErrOAuthExchange, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling userinfo: %w", ErrOAuthExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: userinfo returned status %d: %s", ErrOAuthExchange, resp.StatusCode, body)
	}

	var info model.OAuthUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decoding userinfo: %w", ErrOAuthExchange, err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("%w: userinfo has no id", ErrOAuthExchange)
	}
	return &info, nil
}
