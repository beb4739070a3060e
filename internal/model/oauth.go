package model

import (
	"database/sql/driver"
	"time"
)

// OAuthProvider names an external identity provider.
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "googleOAuth2"
)

// OAuthAccount links a UserAccount to one identity at an external provider.
// (Provider, ExternalID) is unique in storage.
type OAuthAccount struct {
	ID          int64            `db:"id"`
	UserID      int64            `db:"user_id"` // UserAccount.InternalUserID
	Provider    OAuthProvider    `db:"provider"`
	ExternalID  string           `db:"external_id"`
	Credentials OAuthCredentials `db:"credentials"`
	UserInfo    OAuthUserInfo    `db:"user_info"`
}

// OAuthCredentials is the token set returned by the provider's code exchange.
type OAuthCredentials struct {
	AccessToken  string    `json:"accessToken"`
	TokenType    string    `json:"tokenType,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	IDToken      string    `json:"idToken,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

func (c OAuthCredentials) Value() (driver.Value, error) { return marshalJSON(c) }

func (c *OAuthCredentials) Scan(src any) error {
	*c = OAuthCredentials{}
	return scanJSON(src, c)
}

// OAuthUserInfo is the provider's profile payload. Field names follow
// Google's userinfo v2 response.
type OAuthUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name,omitempty"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	Locale        string `json:"locale,omitempty"`
}

func (u OAuthUserInfo) Value() (driver.Value, error) { return marshalJSON(u) }

func (u *OAuthUserInfo) Scan(src any) error {
	*u = OAuthUserInfo{}
	return scanJSON(src, u)
}

// OAuthPayload is what a provider hands back after a successful exchange.
type OAuthPayload struct {
	Provider    OAuthProvider
	ExternalID  string
	Credentials OAuthCredentials
	UserInfo    OAuthUserInfo
}
