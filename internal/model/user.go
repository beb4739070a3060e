// Package model defines the data structures used throughout the application.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// UserAccount is a registered user.
//
// Two identifiers exist on purpose:
//   - InternalUserID is the storage primary key. It never leaves the server.
//   - UserID is a random UUIDv4 handed to clients and embedded in session
//     tokens. It is generated once at creation and never changes.
//
// PasswordHash is never empty. Accounts created through OAuth get the hash of
// a random secret nobody knows, so password sign-in is impossible for them
// until a reset flow exists.
type UserAccount struct {
	InternalUserID int64  `json:"-"       db:"internal_user_id"`
	UserID         string `json:"userId"  db:"user_id"`
	EmailID        string `json:"emailId" db:"email_id"`
	PasswordHash   string `json:"-"       db:"password_hash"`
	InternalMeta   Meta   `json:"-"       db:"internal_meta"`
}

// PublicProfile is the client-facing view of an account.
// AvatarURL is empty when no linked provider supplies a picture.
type PublicProfile struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Meta is the free-form JSON object attached to an account.
// It is stored as TEXT on SQLite and JSONB on PostgreSQL.
type Meta map[string]any

// Merge returns a new Meta with patch applied over m. Top-level keys in patch
// replace the ones in m; nested objects are not merged. Neither input is
// modified.
func (m Meta) Merge(patch Meta) Meta {
	out := make(Meta, len(m)+len(patch))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return marshalJSON(m)
}

func (m *Meta) Scan(src any) error {
	*m = Meta{}
	return scanJSON(src, m)
}

// marshalJSON encodes v as a string so both drivers accept it for TEXT and
// JSONB columns.
func marshalJSON(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("model: encoding json column: %w", err)
	}
	return string(b), nil
}

func scanJSON(src, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("model: cannot scan %T into json column", src)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("model: decoding json column: %w", err)
	}
	return nil
}
