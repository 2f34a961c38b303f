package secretstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the secret in a single owner-only file.
type FileStore struct {
	path string
}

// Compile-time check to ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore at path. The parent directory is created
// with 0700 permissions when missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating secret directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) location() string {
	return "file " + f.path
}

// Read returns the secret. A missing file yields a *NotFoundError; a file
// that group or others can access is refused.
func (f *FileStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &NotFoundError{Location: f.location(), Err: err}
	}
	if err != nil {
		return "", err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return "", fmt.Errorf("%s is accessible by others (%04o), expected 0600", f.location(), perm)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", err
	}
	return normalize(string(data), f.location())
}

// Write replaces the secret. The new content is written to an owner-only
// temp file in the same directory and renamed over the old one.
func (f *FileStore) Write(ctx context.Context, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	secret, err := normalize(secret, "input")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".secret-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	// CreateTemp already uses 0600; the chmod guards against unusual umasks.
	err = errors.Join(
		tmp.Chmod(0600),
		writeAndSync(tmp, secret+"\n"),
		tmp.Close(),
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", f.location(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}

func writeAndSync(f *os.File, content string) error {
	if _, err := f.WriteString(content); err != nil {
		return err
	}
	return f.Sync()
}
