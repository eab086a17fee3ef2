package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"socialcrawler/pkg/config"
)

func testAccount(username string) *Account {
	return &Account{
		Username:     username,
		ClientID:     "client-" + username,
		ClientSecret: "secret_value_" + username,
		Password:     "password_value_" + username,
		UserAgent:    "socialcrawler/test",
	}
}

func clearRedditEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_USERNAME", "REDDIT_PASSWORD", "REDDIT_USER_AGENT"} {
		t.Setenv(k, "")
	}
}

func TestManagerLifecycle(t *testing.T) {
	manager, mockStore := NewMockManager()

	require.NoError(t, manager.Store(testAccount("bot")))
	assert.Equal(t, 1, mockStore.Count())

	retrieved, err := manager.Retrieve("bot")
	require.NoError(t, err)
	assert.Equal(t, "client-bot", retrieved.ClientID)
	assert.False(t, retrieved.LastModified.IsZero())

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("bot"))
	_, err = manager.Retrieve("bot")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Equal(t, 0, mockStore.Count())

	err = manager.Delete("bot")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerStoreValidates(t *testing.T) {
	manager, _ := NewMockManager()

	err := manager.Store(&Account{Username: "bot"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "client ID is required")
	assert.Contains(t, err.Error(), "password is required")

	assert.ErrorIs(t, manager.Store(nil), ErrInvalidCredentials)
}

func TestManagerStoreFallsThrough(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	require.NoError(t, manager.Store(testAccount("bot")))
	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, working.Count())

	working.StoreError = errors.New("full")
	err := manager.Store(testAccount("other"))
	assert.ErrorContains(t, err, "full")
}

func TestManagerListMergesNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	a := testAccount("bot")
	a.LastModified = time.Now().Add(-time.Hour)
	require.NoError(t, older.Store(a))

	b := testAccount("bot")
	b.ClientID = "rotated"
	b.LastModified = time.Now()
	require.NoError(t, newer.Store(b))
	require.NoError(t, newer.Store(testAccount("alpha")))

	accounts, err := NewManagerWithStores(older, newer).List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alpha", accounts[0].Username)
	assert.Equal(t, "rotated", accounts[1].ClientID)
}

func TestRetrieveDefault(t *testing.T) {
	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("REDDIT_CLIENT_ID", "env-id")
		t.Setenv("REDDIT_CLIENT_SECRET", "env-secret")
		t.Setenv("REDDIT_USERNAME", "envbot")
		t.Setenv("REDDIT_PASSWORD", "env-pw")

		mock := NewMockStore()
		require.NoError(t, mock.Store(testAccount("stored")))

		account, err := NewManagerWithStores(mock, NewEnvironmentStore()).RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "envbot", account.Username)
	})

	t.Run("newest stored account", func(t *testing.T) {
		clearRedditEnv(t)
		mock := NewMockStore()
		old := testAccount("old")
		old.LastModified = time.Now().Add(-time.Hour)
		recent := testAccount("recent")
		recent.LastModified = time.Now()
		require.NoError(t, mock.Store(old))
		require.NoError(t, mock.Store(recent))

		account, err := NewManagerWithStores(mock, NewEnvironmentStore()).RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "recent", account.Username)
	})

	t.Run("nothing stored", func(t *testing.T) {
		clearRedditEnv(t)
		_, err := NewManagerWithStores(NewMockStore(), NewEnvironmentStore()).RetrieveDefault()
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})
}

func TestResolve(t *testing.T) {
	clearRedditEnv(t)
	manager, _ := NewMockManager()
	stored := testAccount("bot")
	stored.UserAgent = ""
	require.NoError(t, manager.Store(stored))

	t.Run("config credentials win", func(t *testing.T) {
		cfg := config.RedditConfig{ClientID: "c", ClientSecret: "s", Username: "u", Password: "p", UserAgent: "ua/1"}
		creds, err := manager.Resolve(cfg, "bot")
		require.NoError(t, err)
		assert.Equal(t, "u", creds.Username)
		assert.Equal(t, "ua/1", creds.UserAgent)
	})

	t.Run("stored account with config user agent", func(t *testing.T) {
		creds, err := manager.Resolve(config.RedditConfig{UserAgent: "socialcrawler/1.0"}, "bot")
		require.NoError(t, err)
		assert.Equal(t, "client-bot", creds.ClientID)
		assert.Equal(t, "password_value_bot", creds.Password)
		assert.Equal(t, "socialcrawler/1.0", creds.UserAgent)
	})

	t.Run("default account", func(t *testing.T) {
		creds, err := manager.Resolve(config.RedditConfig{}, "")
		require.NoError(t, err)
		assert.Equal(t, "bot", creds.Username)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := manager.Resolve(config.RedditConfig{}, "ghost")
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("bot")
	sanitized := SanitizeAccount(account)

	assert.Equal(t, "bot", sanitized.Username)
	assert.Equal(t, account.ClientID, sanitized.ClientID)
	assert.Equal(t, "secr..._bot", sanitized.ClientSecret)
	assert.NotEqual(t, account.Password, sanitized.Password)
	assert.Equal(t, "********", maskString("short"))
	assert.Nil(t, SanitizeAccount(nil))
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")
	store, err := NewEncryptedFileStoreWithPassphrase(path, "test_passphrase_123")
	require.NoError(t, err)

	account := testAccount("encrypted_user")
	require.NoError(t, store.Store(account))
	require.NoError(t, store.Store(testAccount("second")))

	retrieved, err := store.Retrieve("encrypted_user")
	require.NoError(t, err)
	assert.Equal(t, account.Password, retrieved.Password)
	assert.True(t, store.Exists("second"))

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), account.ClientSecret)
	assert.NotContains(t, string(content), account.Password)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a different passphrase cannot read it
	other, err := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	require.NoError(t, err)
	_, err = other.Retrieve("encrypted_user")
	assert.ErrorContains(t, err, "failed to decrypt")

	require.NoError(t, store.Delete("encrypted_user"))
	require.NoError(t, store.Delete("second"))
	assert.NoFileExists(t, path)
	assert.ErrorIs(t, store.Delete("second"), ErrCredentialsNotFound)
}

func TestEncryptedFileStorePassphraseFromEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(passphraseEnv, "from_env")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("bot")))

	again, err := NewEncryptedFileStoreWithPassphrase(path, "from_env")
	require.NoError(t, err)
	assert.True(t, again.Exists("bot"))

	_, err = NewEncryptedFileStoreWithPassphrase(path, "")
	assert.Error(t, err)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("REDDIT_CLIENT_ID", "env-id")
	t.Setenv("REDDIT_CLIENT_SECRET", "env-secret")
	t.Setenv("REDDIT_USERNAME", "envbot")
	t.Setenv("REDDIT_PASSWORD", "env-pw")
	t.Setenv("REDDIT_USER_AGENT", "env-agent/1.0")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env-id", account.ClientID)
	assert.Equal(t, "env-agent/1.0", account.Credentials().UserAgent)

	_, err = store.Retrieve("someone-else")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.True(t, store.Exists("envbot"))

	assert.ErrorIs(t, store.Store(testAccount("x")), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("envbot"), ErrStoreUnavailable)

	t.Setenv("REDDIT_PASSWORD", "")
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(testAccount("bravo")))
	require.NoError(t, store.Store(testAccount("alpha")))
	require.NoError(t, store.Store(testAccount("alpha")))

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alpha", accounts[0].Username)

	retrieved, err := store.Retrieve("bravo")
	require.NoError(t, err)
	assert.Equal(t, "client-bravo", retrieved.ClientID)

	require.NoError(t, store.Delete("bravo"))
	assert.False(t, store.Exists("bravo"))
	assert.ErrorIs(t, store.Delete("bravo"), ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMockStoreErrorInjection(t *testing.T) {
	store := NewMockStore()
	store.ListError = errors.New("injected error")

	_, err := store.List()
	assert.EqualError(t, err, "injected error")

	// the manager skips stores that fail to list
	accounts, err := NewManagerWithStores(store).List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestShowAppSetupGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowAppSetupGuide(&buf)
	assert.Contains(t, buf.String(), "https://www.reddit.com/prefs/apps")
	assert.Contains(t, buf.String(), "REDDIT_CLIENT_ID")
}
