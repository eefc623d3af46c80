package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager stores downloaded photos and their caption sidecars
type Manager struct {
	outputDir  string
	downloaded map[string]string // base name -> photo path
	mu         sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir:  outputDir,
		downloaded: make(map[string]string),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles indexes photos already in the output directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jpg" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".jpg")
		m.downloaded[name] = filepath.Join(m.outputDir, entry.Name())
	}

	return nil
}

// PhotoPath returns where the photo with the given base name is stored
func (m *Manager) PhotoPath(name string) string {
	return filepath.Join(m.outputDir, name+".jpg")
}

// CaptionPath returns where the caption for the given base name is stored
func (m *Manager) CaptionPath(name string) string {
	return filepath.Join(m.outputDir, name+".txt")
}

// IsDownloaded checks if a photo with the given base name is on disk
func (m *Manager) IsDownloaded(name string) bool {
	m.mu.RLock()
	_, ok := m.downloaded[name]
	m.mu.RUnlock()
	if ok {
		return true
	}

	if _, err := os.Stat(m.PhotoPath(name)); err == nil {
		m.mu.Lock()
		m.downloaded[name] = m.PhotoPath(name)
		m.mu.Unlock()
		return true
	}
	return false
}

// SavePhoto writes the photo atomically and returns its path
func (m *Manager) SavePhoto(r io.Reader, name string) (string, error) {
	path := m.PhotoPath(name)
	if err := writeAtomic(path, r); err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}

	m.mu.Lock()
	m.downloaded[name] = path
	m.mu.Unlock()

	return path, nil
}

// SaveCaption writes the caption sidecar for the given base name
func (m *Manager) SaveCaption(name, caption string) (string, error) {
	path := m.CaptionPath(name)
	if err := writeAtomic(path, strings.NewReader(caption)); err != nil {
		return "", fmt.Errorf("failed to save caption: %w", err)
	}
	return path, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetDownloadedCount returns the number of downloaded photos
func (m *Manager) GetDownloadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.downloaded)
}

// writeAtomic writes r to path via a temporary file and rename
func writeAtomic(path string, r io.Reader) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
