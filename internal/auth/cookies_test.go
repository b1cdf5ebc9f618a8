package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewSessionStore(path)

	exp := time.Now().Add(48 * time.Hour)
	cookies := []*network.Cookie{
		{Name: "auth_token", Value: "tok", Domain: ".x.com", Path: "/", Expires: float64(exp.Unix())},
		{Name: "ct0", Value: "csrf", Domain: ".x.com", Path: "/", Expires: float64(exp.Unix())},
	}
	require.NoError(t, store.Save(cookies))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	st, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, st.Cookies, 2)
	assert.Equal(t, exp.Unix(), st.ExpiresAt.Unix())
	assert.NoError(t, store.Check(time.Now()))
	assert.Error(t, store.Check(exp.Add(time.Hour)))
}

func TestSessionStoreCheckMissingCookie(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save([]*network.Cookie{{Name: "guest_id", Value: "g", Domain: ".x.com"}}))

	err := store.Check(time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing auth_token")
}

func TestSessionStoreClear(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	assert.NoError(t, store.Clear())

	require.NoError(t, store.Save([]*network.Cookie{{Name: "ct0", Value: "x"}}))
	require.NoError(t, store.Clear())
	_, err := store.Load()
	assert.True(t, os.IsNotExist(err))
}

func TestIsHomeURL(t *testing.T) {
	assert.True(t, isHomeURL("https://x.com/home"))
	assert.True(t, isHomeURL("https://x.com/home?lang=en"))
	assert.True(t, isHomeURL("https://twitter.com/home/"))
	assert.False(t, isHomeURL("https://x.com/i/flow/login"))
}
