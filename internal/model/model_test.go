package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaMerge_ShallowAndPure(t *testing.T) {
	base := Meta{"theme": "dark", "prefs": map[string]any{"a": 1.0}}
	patch := Meta{"prefs": map[string]any{"b": 2.0}, "lang": "ja"}

	got := base.Merge(patch)

	assert.Equal(t, Meta{
		"theme": "dark",
		"prefs": map[string]any{"b": 2.0},
		"lang":  "ja",
	}, got)
	assert.Equal(t, Meta{"theme": "dark", "prefs": map[string]any{"a": 1.0}}, base, "base must not change")
}

func TestMetaMerge_NilReceiver(t *testing.T) {
	var m Meta
	assert.Equal(t, Meta{"k": "v"}, m.Merge(Meta{"k": "v"}))
}

func TestMeta_ValueAndScan(t *testing.T) {
	v, err := Meta{"k": "v"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, v)

	v, err = Meta(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	var m Meta
	require.NoError(t, m.Scan([]byte(`{"n":1}`)))
	assert.Equal(t, Meta{"n": 1.0}, m)

	require.NoError(t, m.Scan(nil))
	assert.Equal(t, Meta{}, m)

	assert.Error(t, m.Scan(42))
}

func TestOAuthUserInfo_Scan(t *testing.T) {
	var u OAuthUserInfo
	require.NoError(t, u.Scan(`{"id":"g-1","email":"a@x.com","verified_email":true,"picture":"https://p"}`))
	assert.Equal(t, OAuthUserInfo{ID: "g-1", Email: "a@x.com", VerifiedEmail: true, Picture: "https://p"}, u)
}

func TestUserSelector(t *testing.T) {
	tests := []struct {
		sel      UserSelector
		wantKind SelectorKind
		wantStr  string
	}{
		{ByUserID("u-1"), SelectByUserID, "userId=u-1"},
		{ByEmailID("a@x.com"), SelectByEmailID, "emailId=a@x.com"},
		{ByInternalUserID(7), SelectByInternalUserID, "internalUserId=7"},
		{UserSelector{}, 0, "empty selector"},
	}
	for _, tt := range tests {
		t.Run(tt.wantStr, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, tt.sel.Kind())
			assert.Equal(t, tt.wantStr, tt.sel.String())
		})
	}
}

func TestCollectionState_Valid(t *testing.T) {
	assert.True(t, StateOwned.Valid())
	assert.True(t, StateWanted.Valid())
	assert.True(t, StateCompleted.Valid())
	assert.False(t, CollectionState("lost").Valid())
	assert.False(t, CollectionState("").Valid())
}
