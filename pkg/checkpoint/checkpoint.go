package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"igbot/pkg/logger"
)

const journalVersion = 1

// Entry is a repost that was started but not yet recorded in the ledger
type Entry struct {
	MediaID   string    `json:"media_id"`
	StartedAt time.Time `json:"started_at"`
}

// Journal is the on-disk state of in-flight reposts
type Journal struct {
	Account   string    `json:"account"`
	Pending   []Entry   `json:"pending"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Manager handles journal operations for one account
type Manager struct {
	journalPath string
	account     string
	logger      logger.Logger
	mu          sync.Mutex
}

// NewManager creates a journal manager. An empty dir selects the platform
// data directory.
func NewManager(dir, account string) (*Manager, error) {
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "journal")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	name := account
	if name == "" {
		name = "default"
	}

	return &Manager{
		journalPath: filepath.Join(dir, fmt.Sprintf("%s.journal.json", name)),
		account:     account,
		logger:      logger.GetLogger(),
	}, nil
}

// SetLogger replaces the logger used by the manager
func (m *Manager) SetLogger(l logger.Logger) {
	m.logger = l
}

// Path returns the journal file location
func (m *Manager) Path() string {
	return m.journalPath
}

// Load reads the journal, returning an empty one if none exists
func (m *Manager) Load() (*Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() (*Journal, error) {
	file, err := os.Open(m.journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Journal{Account: m.account, Version: journalVersion}, nil
		}
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	var journal Journal
	if err := json.NewDecoder(file).Decode(&journal); err != nil {
		return nil, fmt.Errorf("failed to decode journal: %w", err)
	}
	return &journal, nil
}

// save writes the journal to disk atomically
func (m *Manager) save(journal *Journal) error {
	journal.UpdatedAt = time.Now()
	journal.Version = journalVersion

	tempPath := m.journalPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary journal file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(journal); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode journal: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync journal file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close journal file: %w", err)
	}

	if err := os.Rename(tempPath, m.journalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace journal file: %w", err)
	}
	return nil
}

// Begin records that an upload of mediaID is about to start
func (m *Manager) Begin(mediaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	journal, err := m.load()
	if err != nil {
		return err
	}
	for _, e := range journal.Pending {
		if e.MediaID == mediaID {
			return nil
		}
	}
	journal.Pending = append(journal.Pending, Entry{MediaID: mediaID, StartedAt: time.Now().UTC()})

	if err := m.save(journal); err != nil {
		return err
	}
	m.logger.DebugWithFields("Journal entry added", map[string]interface{}{
		"media_id": mediaID,
	})
	return nil
}

// Confirm clears the entry for mediaID once the ledger holds it, or once the
// upload is known to have failed
func (m *Manager) Confirm(mediaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	journal, err := m.load()
	if err != nil {
		return err
	}

	kept := journal.Pending[:0]
	for _, e := range journal.Pending {
		if e.MediaID != mediaID {
			kept = append(kept, e)
		}
	}
	journal.Pending = kept
	return m.save(journal)
}

// Pending returns the entries left behind by an interrupted run
func (m *Manager) Pending() ([]Entry, error) {
	journal, err := m.Load()
	if err != nil {
		return nil, err
	}
	return journal.Pending, nil
}

// Delete removes the journal file
func (m *Manager) Delete() error {
	if err := os.Remove(m.journalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	return nil
}

// Exists checks if a journal file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.journalPath)
	return err == nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igbot")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igbot")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igbot")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igbot")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
