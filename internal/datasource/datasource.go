// Package datasource defines where input bytes come from. Implementations
// live in subpackages (file, httpds).
package datasource

import (
	"context"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Source opens the raw input stream of a run.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// DecodeUTF8 wraps rc so reads yield UTF-8: a leading UTF-8 BOM is removed
// and UTF-16 input that starts with a BOM is transcoded. Closing the result
// closes rc.
func DecodeUTF8(rc io.ReadCloser) io.ReadCloser {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return &decoded{Reader: transform.NewReader(rc, dec), c: rc}
}

type decoded struct {
	io.Reader
	c io.Closer
}

func (d *decoded) Close() error { return d.c.Close() }
