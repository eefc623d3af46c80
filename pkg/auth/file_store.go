package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	igerrors "igbot/pkg/errors"
)

// FileStore reads the plain credential file: one name:value pair per line,
// split at the first colon so proxy URLs survive. Recognised names are
// username, password and proxy; others are ignored.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store over the credential file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credential file location
func (f *FileStore) Path() string {
	return f.path
}

// Load parses the credential file. A missing file yields ErrNoCredentials and
// a line without a name:value pair yields ErrMalformedCredentials.
func (f *FileStore) Load() (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", igerrors.ErrNoCredentials, f.path)
		}
		return nil, fmt.Errorf("failed to open credential file: %w", err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: line %d", igerrors.ErrMalformedCredentials, lineNo)
		}
		values[strings.ToLower(name)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	return &Account{
		Username: values["username"],
		Password: values["password"],
		Proxy:    values["proxy"],
	}, nil
}

// Store writes the account as a credential file
func (f *FileStore) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "username:%s\n", account.Username)
	fmt.Fprintf(&b, "password:%s\n", account.Password)
	if account.Proxy != "" {
		fmt.Fprintf(&b, "proxy:%s\n", account.Proxy)
	}
	return os.WriteFile(f.path, []byte(b.String()), 0600)
}

// Retrieve returns the file's account if it matches username
func (f *FileStore) Retrieve(username string) (*Account, error) {
	account, err := f.Load()
	if err != nil {
		return nil, err
	}
	if username != "" && account.Username != username {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

// List returns the file's account, if any
func (f *FileStore) List() ([]*Account, error) {
	account, err := f.Load()
	if err != nil || account.Username == "" {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for the credential file
func (f *FileStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if the file holds credentials for username
func (f *FileStore) Exists(username string) bool {
	_, err := f.Retrieve(username)
	return err == nil
}
