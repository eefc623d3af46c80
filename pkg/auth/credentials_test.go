package auth

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	igerrors "igbot/pkg/errors"
	"igbot/pkg/logger"
)

// memStore is an in-memory CredentialStore
type memStore struct {
	accounts map[string]Account
	storeErr error
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[string]Account)}
}

func (s *memStore) Store(account *Account) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}
	s.accounts[account.Username] = *account
	return nil
}

func (s *memStore) Retrieve(username string) (*Account, error) {
	account, ok := s.accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (s *memStore) List() ([]*Account, error) {
	var result []*Account
	for name := range s.accounts {
		account := s.accounts[name]
		result = append(result, &account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (s *memStore) Delete(username string) error {
	if _, ok := s.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(s.accounts, username)
	return nil
}

func (s *memStore) Exists(username string) bool {
	_, ok := s.accounts[username]
	return ok
}

func newTestManager(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores, log: logger.NewNopLogger()}
}

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestFileStoreLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Account
		wantErr error
	}{
		{
			name:    "username and password",
			content: "username:alice\npassword:s3cret\n",
			want:    &Account{Username: "alice", Password: "s3cret"},
		},
		{
			name:    "value keeps later colons",
			content: "username:alice\npassword:a:b\nproxy:http://10.0.0.1:8080\n",
			want:    &Account{Username: "alice", Password: "a:b", Proxy: "http://10.0.0.1:8080"},
		},
		{
			name:    "blank lines and spaces ignored",
			content: "\n  username : alice \n\npassword:pw\r\n",
			want:    &Account{Username: "alice", Password: "pw"},
		},
		{
			name:    "unknown names ignored",
			content: "username:alice\nnote:hello\n",
			want:    &Account{Username: "alice"},
		},
		{
			name:    "line without colon",
			content: "username alice\n",
			wantErr: igerrors.ErrMalformedCredentials,
		},
		{
			name:    "empty name",
			content: ":alice\n",
			wantErr: igerrors.ErrMalformedCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewFileStore(writeSecret(t, tt.content)).Load()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileStoreMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "secret.txt"))
	_, err := store.Load()
	assert.ErrorIs(t, err, igerrors.ErrNoCredentials)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.False(t, store.Exists("alice"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "secret.txt"))
	require.NoError(t, store.Store(&Account{Username: "alice", Password: "pw", Proxy: "socks5://h:1"}))

	got, err := store.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "socks5://h:1", got.Proxy)

	_, err = store.Retrieve("bob")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Delete("alice"), ErrStoreUnavailable)
}

func TestResolve(t *testing.T) {
	t.Run("complete flags skip the file", func(t *testing.T) {
		m := newTestManager(NewFileStore(filepath.Join(t.TempDir(), "absent.txt")))
		got, err := m.Resolve(Account{Username: "alice", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("file fills defaults", func(t *testing.T) {
		m := newTestManager(NewFileStore(writeSecret(t, "username:alice\npassword:pw\nproxy:h:1\n")))
		got, err := m.Resolve(Account{})
		require.NoError(t, err)
		assert.Equal(t, &Account{Username: "alice", Password: "pw", Proxy: "h:1"}, got)
	})

	t.Run("flag username overrides file", func(t *testing.T) {
		m := newTestManager(NewFileStore(writeSecret(t, "username:alice\npassword:pw\n")))
		_, err := m.Resolve(Account{Username: "bob"})
		assert.ErrorIs(t, err, igerrors.ErrMalformedCredentials, "alice's password must not be used for bob")
	})

	t.Run("missing file", func(t *testing.T) {
		m := newTestManager(NewFileStore(filepath.Join(t.TempDir(), "absent.txt")))
		_, err := m.Resolve(Account{})
		assert.ErrorIs(t, err, igerrors.ErrNoCredentials)
	})

	t.Run("malformed file", func(t *testing.T) {
		m := newTestManager(NewFileStore(writeSecret(t, "garbage\n")))
		_, err := m.Resolve(Account{Username: "alice"})
		assert.ErrorIs(t, err, igerrors.ErrMalformedCredentials)
	})

	t.Run("falls back to stored account", func(t *testing.T) {
		stored := newMemStore()
		require.NoError(t, stored.Store(&Account{Username: "alice", Password: "stored"}))
		m := newTestManager(NewFileStore(filepath.Join(t.TempDir(), "absent.txt")), stored)

		got, err := m.Resolve(Account{Username: "alice"})
		require.NoError(t, err)
		assert.Equal(t, "stored", got.Password)
	})
}

func TestResolveCompleteLoginWarnsAboutUnusedFile(t *testing.T) {
	tests := []struct {
		name     string
		secret   func(t *testing.T) string
		wantWarn bool
	}{
		{
			name:     "malformed file",
			secret:   func(t *testing.T) string { return writeSecret(t, "username alice\n") },
			wantWarn: true,
		},
		{
			name:   "valid file",
			secret: func(t *testing.T) string { return writeSecret(t, "username:carol\npassword:pw\n") },
		},
		{
			name:   "missing file",
			secret: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.txt") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := logger.NewTestLogger()
			m := &Manager{stores: []CredentialStore{NewFileStore(tt.secret(t))}, log: tl}

			got, err := m.Resolve(Account{Username: "alice", Password: "pw"})
			require.NoError(t, err)
			assert.Equal(t, "alice", got.Username)
			assert.Equal(t, "pw", got.Password)

			if tt.wantWarn {
				assert.True(t, tl.HasMessage("Ignoring malformed credential file"))
				assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
			} else {
				assert.Empty(t, tl.GetMessagesByLevel("WARN"))
			}
		})
	}
}

func TestNewManagerToleratesUnusableConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("config dir comes from APPDATA")
	}
	keyring.MockInit()
	t.Setenv("IGBOT_PASSPHRASE", "")
	t.Setenv("IGBOT_USERNAME", "")
	t.Setenv("IGBOT_PASSWORD", "")

	notDir := filepath.Join(t.TempDir(), "home")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0600))

	tests := []struct {
		name     string
		home     string
		xdg      string
		wantWarn bool
	}{
		{name: "home is a file", home: notDir},
		{name: "xdg dir is a file", home: notDir, xdg: notDir},
		{name: "no home", wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", tt.home)
			t.Setenv("XDG_CONFIG_HOME", tt.xdg)
			tl := logger.NewTestLogger()

			m := NewManager(writeSecret(t, "username:alice\npassword:pw\n"), tl)
			got, err := m.Resolve(Account{})
			require.NoError(t, err)
			assert.Equal(t, "alice", got.Username)
			assert.Equal(t, "pw", got.Password)

			accounts, err := m.List()
			require.NoError(t, err)
			assert.Len(t, accounts, 1)

			assert.Equal(t, tt.wantWarn, tl.HasMessage("Encrypted credential store disabled"))
			content, err := os.ReadFile(notDir)
			require.NoError(t, err)
			assert.Equal(t, "x", string(content))
		})
	}
}

func TestCredentialManager(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	account := &Account{Username: "testuser", Password: "test_password_12345"}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero())

	retrieved, err := manager.Retrieve("testuser")
	require.NoError(t, err)
	assert.Equal(t, account.Password, retrieved.Password)
	assert.Equal(t, "testuser", retrieved.Credential().Username)

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	sanitized := SanitizeAccount(account)
	assert.Equal(t, "test...2345", sanitized.Password)
	assert.Equal(t, account.Username, sanitized.Username)

	require.NoError(t, manager.Delete("testuser"))
	_, err = manager.Retrieve("testuser")
	assert.Error(t, err)
	assert.Empty(t, store.accounts)
}

func TestManagerStoreValidation(t *testing.T) {
	manager := newTestManager(newMemStore())
	assert.Error(t, manager.Store(&Account{Password: "pw"}))
	assert.Error(t, manager.Store(&Account{Username: "alice"}))

	failing := newMemStore()
	failing.storeErr = errors.New("disk full")
	m := newTestManager(failing)
	assert.ErrorContains(t, m.Store(&Account{Username: "a", Password: "b"}), "disk full")
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv("IGBOT_PASSPHRASE", "test_passphrase_123")
	tempFile := filepath.Join(t.TempDir(), "creds.enc")
	store := NewEncryptedFileStore(tempFile)

	account := &Account{Username: "encrypted_user", Password: "encrypted_password"}
	require.NoError(t, store.Store(account))
	require.NoError(t, store.Store(&Account{Username: "another", Password: "pw"}))

	retrieved, err := store.Retrieve("encrypted_user")
	require.NoError(t, err)
	assert.Equal(t, account.Password, retrieved.Password)

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "another", accounts[0].Username)

	content, err := os.ReadFile(tempFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "encrypted_password")

	t.Setenv("IGBOT_PASSPHRASE", "wrong")
	_, err = store.Retrieve("encrypted_user")
	assert.Error(t, err)
	t.Setenv("IGBOT_PASSPHRASE", "test_passphrase_123")

	require.NoError(t, store.Delete("encrypted_user"))
	assert.False(t, store.Exists("encrypted_user"))
	require.NoError(t, store.Delete("another"))
	_, err = os.Stat(tempFile)
	assert.True(t, os.IsNotExist(err))
}

func TestEncryptedFileStoreCreatesPassphraseOnFirstStore(t *testing.T) {
	t.Setenv("IGBOT_PASSPHRASE", "")
	dir := filepath.Join(t.TempDir(), "igbot")
	store := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))

	_, err := store.Retrieve("alice")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "reading must not create the directory")

	require.NoError(t, store.Store(&Account{Username: "alice", Password: "pw"}))
	pass, err := os.ReadFile(filepath.Join(dir, passphraseName))
	require.NoError(t, err)
	assert.NotEmpty(t, pass)

	reopened := NewEncryptedFileStore(store.Path())
	got, err := reopened.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "pw", got.Password)

	require.NoError(t, os.Remove(filepath.Join(dir, passphraseName)))
	_, err = reopened.Retrieve("alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IGBOT_USERNAME", "")
	t.Setenv("IGBOT_PASSWORD", "")
	store := NewEnvironmentStore()
	assert.False(t, store.Exists(""))

	t.Setenv("IGBOT_USERNAME", "envuser")
	t.Setenv("IGBOT_PASSWORD", "envpass")
	t.Setenv("IGBOT_PROXY", "10.0.0.1:3128")

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, &Account{Username: "envuser", Password: "envpass", Proxy: "10.0.0.1:3128", LastModified: account.LastModified}, account)

	_, err = store.Retrieve("other")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Store(account), ErrStoreUnavailable)
}
