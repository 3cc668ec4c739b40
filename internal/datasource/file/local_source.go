// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"csvclean/internal/datasource"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - A context that is already done short-circuits with ctx.Err() before the
//     filesystem is touched.
//   - The returned reader yields UTF-8. A leading UTF-8 BOM is removed, and
//     UTF-16 input that starts with a BOM is transcoded.
//   - Filesystem errors are wrapped with the path and remain matchable with
//     errors.Is (e.g. os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)

	return datasource.DecodeUTF8(f), nil
}

var _ datasource.Source = (*Local)(nil)
