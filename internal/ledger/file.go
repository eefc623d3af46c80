package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"igbot/pkg/social"
	"igbot/pkg/storage"
)

// File keeps one identifier per line in a flat text file. The file is read
// once when opened and only ever appended to afterwards. There is no file
// locking, so two processes sharing one file may repost the same media.
type File struct {
	path string
	mem  *Memory
}

// OpenFile loads the ledger file at path; a missing file is an empty ledger
func OpenFile(path string) (*File, error) {
	lines, err := storage.ReadLines(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	ids := make([]social.MediaID, len(lines))
	for i, line := range lines {
		ids[i] = social.MediaID(line)
	}
	return &File{path: filepath.Clean(path), mem: NewMemory(ids...)}, nil
}

// Path returns the ledger file location
func (f *File) Path() string {
	return f.path
}

func (f *File) Contains(ctx context.Context, id social.MediaID) (bool, error) {
	return f.mem.Contains(ctx, id)
}

// Insert appends id to the file unless it is already recorded. The append is
// synced before Insert returns.
func (f *File) Insert(ctx context.Context, id social.MediaID) error {
	if ok, _ := f.mem.Contains(ctx, id); ok {
		return nil
	}
	if err := storage.AppendLine(f.path, string(id)); err != nil {
		return fmt.Errorf("failed to record %s: %w", id, err)
	}
	return f.mem.Insert(ctx, id)
}

func (f *File) Load(ctx context.Context) ([]social.MediaID, error) {
	return f.mem.Load(ctx)
}

// Flush is a no-op; each Insert is synced as it happens
func (f *File) Flush(context.Context) error { return nil }

func (f *File) Close() error { return nil }
