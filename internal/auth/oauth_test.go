package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/sakif/momo-server/internal/model"
)

// fakeGoogle serves a token endpoint and a userinfo endpoint.
type fakeGoogle struct {
	srv         *httptest.Server
	gotRedirect string
	gotCode     string
	userInfo    map[string]any
	tokenStatus int
	userStatus  int
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		userStatus:  http.StatusOK,
		userInfo: map[string]any{
			"id":             "g-123",
			"email":          "alice@example.com",
			"verified_email": true,
			"name":           "Alice",
			"picture":        "https://img.example.com/alice.png",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.gotCode = r.PostForm.Get("code")
		f.gotRedirect = r.PostForm.Get("redirect_uri")
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-abc",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     "id-token-xyz",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.userStatus != http.StatusOK {
			w.WriteHeader(f.userStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.userInfo)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) provider() *GoogleProvider {
	return NewGoogleProviderWithEndpoint("client-id", "client-secret",
		oauth2.Endpoint{
			AuthURL:   f.srv.URL + "/auth",
			TokenURL:  f.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		f.srv.URL+"/userinfo",
	)
}

func TestGoogleExchange_Success(t *testing.T) {
	fg := newFakeGoogle(t)

	payload, err := fg.provider().Exchange(context.Background(), "code-1", "https://app.example.com/cb")
	require.NoError(t, err)

	assert.Equal(t, "code-1", fg.gotCode)
	assert.Equal(t, "https://app.example.com/cb", fg.gotRedirect)

	assert.Equal(t, model.ProviderGoogle, payload.Provider)
	assert.Equal(t, "g-123", payload.ExternalID)
	assert.Equal(t, "access-abc", payload.Credentials.AccessToken)
	assert.Equal(t, "id-token-xyz", payload.Credentials.IDToken)
	assert.Equal(t, "alice@example.com", payload.UserInfo.Email)
	assert.True(t, payload.UserInfo.VerifiedEmail)
	assert.Equal(t, "https://img.example.com/alice.png", payload.UserInfo.Picture)
}

func TestGoogleExchange_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeGoogle)
	}{
		{"token endpoint rejects code", func(f *fakeGoogle) { f.tokenStatus = http.StatusBadRequest }},
		{"userinfo fails", func(f *fakeGoogle) { f.userStatus = http.StatusInternalServerError }},
		{"userinfo without id", func(f *fakeGoogle) { delete(f.userInfo, "id") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := newFakeGoogle(t)
			tt.setup(fg)

			_, err := fg.provider().Exchange(context.Background(), "code", "https://app/cb")
			assert.ErrorIs(t, err, ErrOAuthExchange)
		})
	}
}

func TestGoogleAuthURL(t *testing.T) {
	fg := newFakeGoogle(t)

	raw := fg.provider().AuthURL("state-1", "https://app.example.com/cb")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "https://app.example.com/cb", q.Get("redirect_uri"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "email")
}
