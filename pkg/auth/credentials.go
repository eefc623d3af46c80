package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	igerrors "igbot/pkg/errors"
	"igbot/pkg/logger"
	"igbot/pkg/social"
)

// Account represents an Instagram account's credentials
type Account struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	Proxy        string    `json:"proxy,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Credential converts the account into what the social client logs in with
func (a *Account) Credential() social.Credential {
	return social.Credential{Username: a.Username, Password: a.Password, Proxy: a.Proxy}
}

// Complete reports whether both username and password are set
func (a *Account) Complete() bool {
	return a != nil && a.Username != "" && a.Password != ""
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a specific username
	Retrieve(username string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a specific username
	Delete(username string) error

	// Exists checks if credentials exist for a username
	Exists(username string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
	log    logger.Logger
}

// NewManager creates a credential manager. secretFile is the plain
// name:value credential file; it is consulted before the other stores when
// resolving the login. Stores that cannot be set up on this machine are left
// out and logged.
func NewManager(secretFile string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}

	var stores []CredentialStore
	if secretFile != "" {
		stores = append(stores, NewFileStore(secretFile))
	}

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	} else {
		log.WithError(err).Debug("System keychain unavailable")
	}

	if dir, err := configDir(); err == nil {
		stores = append(stores, NewEncryptedFileStore(filepath.Join(dir, "credentials.enc")))
	} else {
		log.WithError(err).Warn("Encrypted credential store disabled")
	}

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores, log: log}
}

func (m *Manager) logger() logger.Logger {
	if m.log == nil {
		return logger.NewNopLogger()
	}
	return m.log
}

// Store saves credentials using the first writable store, skipping the
// plain credential file
func (m *Manager) Store(account *Account) error {
	if account.Username == "" {
		return errors.New("username is required")
	}
	if account.Password == "" {
		return errors.New("password is required")
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if _, ok := store.(*FileStore); ok {
			continue
		}
		if err := store.Store(account); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("credentials not found for user: %s", username)
}

// Resolve fills in the login from the stores. Fields already set on given
// (flags, environment, config) win. The credential file is read first; a
// malformed file is an error even when other stores could answer. When
// nothing yields a complete login the error is ErrNoCredentials if the
// credential file was missing and ErrMalformedCredentials otherwise.
func (m *Manager) Resolve(given Account) (*Account, error) {
	account := given
	if account.Complete() {
		m.warnUnusedFiles()
		return &account, nil
	}

	fileMissing := true
	for _, store := range m.stores {
		fs, ok := store.(*FileStore)
		if !ok {
			continue
		}
		fromFile, err := fs.Load()
		switch {
		case errors.Is(err, igerrors.ErrNoCredentials):
		case err != nil:
			return nil, err
		default:
			fileMissing = false
			merge(&account, fromFile)
		}
	}

	if !account.Complete() {
		for _, store := range m.stores {
			if _, ok := store.(*FileStore); ok {
				continue
			}
			var found *Account
			if account.Username != "" {
				found, _ = store.Retrieve(account.Username)
			} else if list, err := store.List(); err == nil && len(list) > 0 {
				found = list[0]
			}
			if found != nil {
				merge(&account, found)
			}
			if account.Complete() {
				break
			}
		}
	}

	if !account.Complete() {
		if fileMissing {
			return nil, igerrors.ErrNoCredentials
		}
		return nil, fmt.Errorf("%w: username and password are required", igerrors.ErrMalformedCredentials)
	}
	return &account, nil
}

// warnUnusedFiles logs credential files that exist but do not parse. They are
// not needed when the login was given elsewhere, so they are not an error.
func (m *Manager) warnUnusedFiles() {
	for _, store := range m.stores {
		fs, ok := store.(*FileStore)
		if !ok {
			continue
		}
		if _, err := fs.Load(); err != nil && !errors.Is(err, igerrors.ErrNoCredentials) {
			m.logger().WithError(err).WithField("path", fs.Path()).Warn("Ignoring malformed credential file")
		}
	}
}

// merge copies the fields of src that dst lacks
func merge(dst, src *Account) {
	if dst.Username == "" {
		dst.Username = src.Username
	}
	if dst.Password == "" && (src.Username == "" || src.Username == dst.Username) {
		dst.Password = src.Password
	}
	if dst.Proxy == "" {
		dst.Proxy = src.Proxy
	}
}

// List returns all stored accounts from all stores
func (m *Manager) List() ([]*Account, error) {
	accountMap := make(map[string]*Account)
	var order []string

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			existing, ok := accountMap[account.Username]
			if !ok {
				order = append(order, account.Username)
			}
			// Use the most recently modified version
			if !ok || account.LastModified.After(existing.LastModified) {
				accountMap[account.Username] = account
			}
		}
	}

	result := make([]*Account, 0, len(order))
	for _, name := range order {
		result = append(result, accountMap[name])
	}

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if _, ok := store.(*FileStore); ok {
			continue
		}
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found for user: %s", username)
	}

	return nil
}

// configDir returns the per-user directory for the encrypted store. It is
// not created here.
func configDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "igbot"), nil
	case "windows":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "igbot"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "igbot"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "igbot"), nil
	}
}

// SanitizeAccount creates a copy of the account with sensitive data masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Username:     account.Username,
		Password:     maskString(account.Password),
		Proxy:        account.Proxy,
		LastModified: account.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
