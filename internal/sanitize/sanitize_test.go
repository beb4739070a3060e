package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/momo-server/internal/apperror"
	"github.com/sakif/momo-server/internal/model"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "alice@example.com", want: "alice@example.com"},
		{raw: "  Alice@Example.COM ", want: "alice@example.com"},
		{raw: "", wantErr: true},
		{raw: "not-an-email", wantErr: true},
		{raw: "a@", wantErr: true},
		{raw: strings.Repeat("a", 250) + "@x.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Email(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				assert.Equal(t, apperror.CodeMalformedEmail, apperror.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "simple", raw: "hunter2"},
		{name: "spaces kept", raw: " pass word "},
		{name: "72 bytes", raw: strings.Repeat("a", 72)},
		{name: "empty", raw: "", wantErr: true},
		{name: "73 bytes", raw: strings.Repeat("a", 73), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Password(tt.raw)
			if tt.wantErr {
				assert.Equal(t, apperror.CodeMalformedPassword, apperror.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, got)
		})
	}
}

func TestNewPassword(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "letters and digits", raw: "correct1horse"},
		{name: "too short", raw: "abc123", wantErr: true},
		{name: "no digit", raw: "onlyletters", wantErr: true},
		{name: "no letter", raw: "1234567890", wantErr: true},
		{name: "too long", raw: strings.Repeat("a1", 37), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPassword(tt.raw)
			if tt.wantErr {
				assert.Equal(t, apperror.CodeMalformedPassword, apperror.CodeOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUserID(t *testing.T) {
	got, err := UserID(" 6F9619FF-8B86-4D11-B42D-00C04FC964FF ")
	require.NoError(t, err)
	assert.Equal(t, "6f9619ff-8b86-4d11-b42d-00c04fc964ff", got)

	for _, bad := range []string{"", "42", "not-a-uuid", "6f9619ff-8b86-4d11-b42d"} {
		_, err := UserID(bad)
		assert.Equal(t, apperror.CodeMalformedUserID, apperror.CodeOf(err), "input %q", bad)
	}
}

func TestCollectionEntry(t *testing.T) {
	e, err := CollectionEntry(" card-001 ", model.StateOwned)
	require.NoError(t, err)
	assert.Equal(t, model.CollectionEntry{ItemID: "card-001", State: model.StateOwned}, e)

	tests := []struct {
		name   string
		itemID string
		state  model.CollectionState
	}{
		{"empty item", "", model.StateOwned},
		{"non-ascii item", "カード", model.StateOwned},
		{"long item", strings.Repeat("x", 129), model.StateOwned},
		{"unknown state", "card-1", "lost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CollectionEntry(tt.itemID, tt.state)
			assert.Equal(t, apperror.CodeMalformedItem, apperror.CodeOf(err))
		})
	}
}
