package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(path)

	token := &oauth2.Token{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	require.NoError(t, store.SaveToken(token))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "token file must be owner-only")

	loaded, err := store.LoadToken()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, token.AccessToken, loaded.AccessToken)
	assert.Equal(t, token.RefreshToken, loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))
}

func TestFileTokenStoreMissingFile(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "nope.json"))

	token, err := store.LoadToken()
	assert.NoError(t, err, "a missing token file means first run, not an error")
	assert.Nil(t, token)
}

func TestFileTokenStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := NewFileTokenStore(path).LoadToken()
	assert.Error(t, err)
}

// staticTokenSource hands out a fixed token.
type staticTokenSource struct {
	token *oauth2.Token
}

func (s *staticTokenSource) Token() (*oauth2.Token, error) {
	return s.token, nil
}

func TestAutoSaveTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(path)

	refreshed := &oauth2.Token{AccessToken: "new-access", RefreshToken: "refresh"}
	source := &autoSaveTokenSource{
		source:     &staticTokenSource{token: refreshed},
		tokenStore: store,
		lastToken:  &oauth2.Token{AccessToken: "old-access"},
	}

	got, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)

	// A changed access token must have been persisted.
	saved, err := store.LoadToken()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "new-access", saved.AccessToken)
}
