package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerFallbackChain(t *testing.T) {
	failing := NewMockStore()
	failing.FailStore = errors.New("store unavailable")
	working := NewMockStore()

	m := &Manager{stores: []Store{failing, working}}

	creds := &Credentials{
		Username:  "alice",
		SessionID: "sess-1",
		CSRFToken: "csrf-1",
	}
	require.NoError(t, m.Store(creds))

	assert.False(t, failing.Exists("alice"))
	assert.True(t, working.Exists("alice"))

	got, err := m.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.False(t, got.LastModified.IsZero())
}

func TestManagerValidatesInput(t *testing.T) {
	m := &Manager{stores: []Store{NewMockStore()}}

	assert.Error(t, m.Store(&Credentials{SessionID: "s", CSRFToken: "c"}))
	assert.Error(t, m.Store(&Credentials{Username: "u", CSRFToken: "c"}))
	assert.Error(t, m.Store(&Credentials{Username: "u", SessionID: "s"}))
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	require.NoError(t, older.Store(&Credentials{Username: "alice", SessionID: "old", CSRFToken: "c", LastModified: time.Now().Add(-time.Hour)}))
	require.NoError(t, newer.Store(&Credentials{Username: "alice", SessionID: "new", CSRFToken: "c", LastModified: time.Now()}))

	m := &Manager{stores: []Store{older, newer}}
	all, err := m.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].SessionID)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IGCRAWLER_SESSION_ID", "env-sess")
	t.Setenv("IGCRAWLER_CSRF_TOKEN", "env-csrf")
	t.Setenv("IGCRAWLER_USERNAME", "envuser")

	store := NewEnvironmentStore()
	creds, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "envuser", creds.Username)
	assert.Equal(t, "env-sess", creds.SessionID)

	assert.Error(t, store.Store(creds))
	assert.Error(t, store.Delete("envuser"))
}

func TestEnvironmentStoreMissing(t *testing.T) {
	t.Setenv("IGCRAWLER_SESSION_ID", "")
	t.Setenv("IGCRAWLER_CSRF_TOKEN", "")

	store := NewEnvironmentStore()
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.False(t, store.Exists(""))
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("IGCRAWLER_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	creds := &Credentials{
		Username:  "bob",
		SessionID: "secret-session",
		CSRFToken: "secret-csrf",
	}
	require.NoError(t, store.Store(creds))

	// A fresh store with the same passphrase can decrypt.
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Retrieve("bob")
	require.NoError(t, err)
	assert.Equal(t, "secret-session", got.SessionID)

	assert.True(t, reopened.Exists("bob"))
	require.NoError(t, reopened.Delete("bob"))
	assert.False(t, reopened.Exists("bob"))
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("IGCRAWLER_PASSPHRASE", "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credentials{Username: "bob", SessionID: "s", CSRFToken: "c"}))

	t.Setenv("IGCRAWLER_PASSPHRASE", "wrong")
	bad, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = bad.Retrieve("bob")
	assert.Error(t, err)
}

func TestMasked(t *testing.T) {
	creds := &Credentials{
		Username:  "alice",
		SessionID: "1234567890abcdef",
		CSRFToken: "short",
	}

	masked := creds.Masked()
	assert.Equal(t, "alice", masked.Username)
	assert.Equal(t, "1234...cdef", masked.SessionID)
	assert.Equal(t, "********", masked.CSRFToken)
	// The original is untouched.
	assert.Equal(t, "1234567890abcdef", creds.SessionID)
}
