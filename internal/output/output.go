// Package output writes the artifacts of a run into an output directory:
// cleaned records, statistics, the text report, and a manifest with content
// digests of the three.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"csvclean/internal/pipeline"
)

// File names inside the output directory.
const (
	RecordsFile  = "cleaned_records.json"
	StatsFile    = "stats.json"
	ReportFile   = "report.txt"
	ManifestFile = "manifest.json"
)

// newRunID is a test seam.
var newRunID = func() string { return uuid.NewString() }

// Manifest lists what a run wrote.
type Manifest struct {
	RunID string      `json:"run_id"`
	Files []FileEntry `json:"files"`
}

// FileEntry describes one written artifact. Digest is the xxh3-64 of the
// file bytes in hex; identical inputs give identical digests.
type FileEntry struct {
	Name   string `json:"name"`
	Bytes  int    `json:"bytes"`
	Digest string `json:"xxh3"`
}

// Write creates dir if needed and writes records, stats and report, then the
// manifest. Returned Manifest entries follow the order above.
func Write(ctx context.Context, dir string, res pipeline.Result, report string) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("output: create dir %s: %w", dir, err)
	}

	recs, err := EncodeJSON(res.Records)
	if err != nil {
		return Manifest{}, fmt.Errorf("output: encode records: %w", err)
	}
	st, err := EncodeJSON(res.Stats)
	if err != nil {
		return Manifest{}, fmt.Errorf("output: encode stats: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{RecordsFile, recs},
		{StatsFile, st},
		{ReportFile, []byte(report)},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := filepath.Join(dir, f.name)
			if err := os.WriteFile(p, f.data, 0o644); err != nil {
				return fmt.Errorf("output: write %s: %w", p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Manifest{}, err
	}

	m := Manifest{RunID: newRunID(), Files: make([]FileEntry, 0, len(files))}
	for _, f := range files {
		m.Files = append(m.Files, FileEntry{Name: f.name, Bytes: len(f.data), Digest: Digest(f.data)})
	}
	mb, err := EncodeJSON(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("output: encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), mb, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("output: write manifest: %w", err)
	}
	return m, nil
}

// EncodeJSON renders v with two-space indentation, literal non-ASCII text,
// no HTML escaping and no trailing newline.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Digest returns the 16-hex-digit xxh3-64 of b.
func Digest(b []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(b))
}
