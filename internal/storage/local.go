package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidRunID is returned when a run directory name would escape the root.
var ErrInvalidRunID = errors.New("storage: invalid run id")

// Compile-time check that LocalStorage implements Workspace.
var _ Workspace = (*LocalStorage)(nil)

// LocalStorage is a Workspace rooted at a directory on local disk.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates the directory if needed. An empty dir means
// <os temp dir>/autoshorts.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "autoshorts")
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{dir: dir}, nil
}

// Dir returns the workspace directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Path joins name onto the workspace directory.
func (s *LocalStorage) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Sub creates a child workspace for a single run.
func (s *LocalStorage) Sub(runID string) (*LocalStorage, error) {
	if runID == "" || runID != filepath.Base(runID) || strings.HasPrefix(runID, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return NewLocalStorage(filepath.Join(s.dir, runID))
}

// SaveTemp writes data to <dir>/<stem>_<random><ext>.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(filepath.Base(name), ext)

	f, err := os.CreateTemp(s.dir, stem+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// LoadTemp opens path for reading.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}

	return f, nil
}

// CleanupTemp removes each path (file or directory). Missing paths are not
// errors. A failure on one path does not stop the others; all failures are
// joined into the returned error.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return errors.Join(append(errs, fmt.Errorf("context cancelled: %w", ctx.Err()))...)
		default:
		}

		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("remove temp path %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Remove deletes the workspace directory and everything left in it.
func (s *LocalStorage) Remove() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", s.dir, err)
	}
	return nil
}
