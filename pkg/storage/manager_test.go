package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	require.NoError(t, err)
	assert.Equal(t, 0, manager.GetDownloadedCount())
	assert.False(t, manager.IsDownloaded("123_alice"))

	path, err := manager.SavePhoto(bytes.NewReader([]byte("jpeg bytes")), "123_alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "123_alice.jpg"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(content))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")

	assert.True(t, manager.IsDownloaded("123_alice"))
	assert.Equal(t, 1, manager.GetDownloadedCount())

	captionPath, err := manager.SaveCaption("123_alice", "sunset #nofilter")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "123_alice.txt"), captionPath)
	caption, err := os.ReadFile(captionPath)
	require.NoError(t, err)
	assert.Equal(t, "sunset #nofilter", string(caption))
}

func TestManagerScansExistingFiles(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "a.jpg"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "a.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, "sub.jpg"), 0755))

	manager, err := NewManager(tempDir)
	require.NoError(t, err)
	assert.Equal(t, 1, manager.GetDownloadedCount())
	assert.True(t, manager.IsDownloaded("a"))
}

func TestIsDownloadedPicksUpExternalWrites(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(manager.PhotoPath("late"), []byte("x"), 0644))
	assert.True(t, manager.IsDownloaded("late"))
	assert.Equal(t, 1, manager.GetDownloadedCount())
}

func TestLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "pool.txt")

	require.NoError(t, WriteLines(path, []string{"alice", "bob"}))
	require.NoError(t, AppendLine(path, "carol"))
	require.NoError(t, os.WriteFile(path+".extra", nil, 0644))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, lines)
}

func TestAppendLineTerminatesLastLine(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		want    string
	}{
		{"empty file", "", "new\n"},
		{"terminated", "old1\n", "old1\nnew\n"},
		{"unterminated", "old1", "old1\nnew\n"},
		{"unterminated after blank", "old1\n\nold2", "old1\n\nold2\nnew\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "posted.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.initial), 0644))

			require.NoError(t, AppendLine(path, "new"))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestReadLinesSkipsBlankAndTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.txt")
	require.NoError(t, os.WriteFile(path, []byte("  alice \n\n\tbob\r\n   \n"), 0644))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, lines)
}

func TestReadLinesMissingFile(t *testing.T) {
	_, err := ReadLines(filepath.Join(t.TempDir(), "absent.txt"))
	assert.True(t, os.IsNotExist(err))
}
