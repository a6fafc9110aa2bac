// Package storage provides the per-run working directory used by the
// pipeline and an optional object-store archive for finished videos.
package storage

import (
	"context"
	"io"
)

// Workspace holds the intermediate files of one run.
type Workspace interface {
	// Dir returns the directory the workspace writes into.
	Dir() string

	// Path returns the location of name inside the workspace without creating it.
	Path(name string) string

	// SaveTemp copies data into a uniquely named file and returns its path.
	// The extension of name is preserved.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp opens a file previously saved. The caller closes it.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes every path independently and reports all failures.
	CleanupTemp(ctx context.Context, paths []string) error
}

// Archiver keeps a copy of a finished artifact and returns where it lives.
type Archiver interface {
	Archive(ctx context.Context, key string, data io.Reader) (url string, err error)
}
