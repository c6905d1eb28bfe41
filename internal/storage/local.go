package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/vstore/internal/common"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// LocalBackend stores objects as plain files under a root directory.
// Keys map to {root}/{key}; URLs are root-relative ("/{key}").
type LocalBackend struct {
	root string
}

// NewLocalBackend creates a LocalBackend rooted at root.
func NewLocalBackend(root string) *LocalBackend {
	return &LocalBackend{root: root}
}

// Root returns the directory the backend serves from.
func (b *LocalBackend) Root() string {
	return b.root
}

func (b *LocalBackend) Tier() Tier {
	return TierLocal
}

// Path returns the filesystem path for key.
func (b *LocalBackend) Path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(strings.TrimPrefix(key, "/")))
}

// Save streams src into a temporary file next to the target and renames it
// into place, so readers never observe a half-written object.
func (b *LocalBackend) Save(_ context.Context, key string, src io.ReadSeeker) error {
	path := b.Path(key)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", common.ErrWrite, dir, err)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind source: %w", common.ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", common.ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	buf := make([]byte, common.ChunkSize)
	if _, err := io.CopyBuffer(tmp, src, buf); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", common.ErrWrite, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", common.ErrWrite, key, err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", common.ErrWrite, key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", common.ErrWrite, key, err)
	}

	return nil
}

// Remove deletes the file for key and then tries to delete its parent
// directory. The directory is usually shared with sibling objects, so a
// failure there is ignored.
func (b *LocalBackend) Remove(_ context.Context, key string) error {
	path := b.Path(key)

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}

	_ = os.Remove(filepath.Dir(path))

	return nil
}

func (b *LocalBackend) Exists(_ context.Context, key string) (bool, error) {
	info, err := os.Stat(b.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

func (b *LocalBackend) URL(key string, _ ...URLOption) string {
	return "/" + strings.TrimPrefix(key, "/")
}

func (b *LocalBackend) Read(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(b.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}
