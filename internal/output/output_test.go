package output

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"csvclean/internal/pipeline"
	"csvclean/internal/report"
	"csvclean/internal/schema"
)

func run(t *testing.T) pipeline.Result {
	t.Helper()
	res, err := pipeline.Run(
		[]string{"name", "age", "city"},
		[]schema.RawRow{
			{"name": " Ana ", "age": "30", "city": "Izmir"},
			{"name": "Bora", "age": "x", "city": "Ankara"},
			{"name": "Cem", "age": "25", "city": "İzmir & Co"},
		},
		pipeline.Config{},
	)
	if err != nil {
		t.Fatalf("pipeline.Run: %v", err)
	}
	return res
}

func readFile(t *testing.T, p string) []byte {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return b
}

func TestWrite_Files(t *testing.T) {
	orig := newRunID
	t.Cleanup(func() { newRunID = orig })
	newRunID = func() string { return "run-1" }

	dir := filepath.Join(t.TempDir(), "nested", "out")
	res := run(t)
	m, err := Write(context.Background(), dir, res, report.Render(res.Stats))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	wantRecords := `[
  {
    "name": "Ana",
    "age": 30,
    "city": "Izmir"
  },
  {
    "name": "Cem",
    "age": 25,
    "city": "İzmir & Co"
  }
]`
	if got := string(readFile(t, filepath.Join(dir, RecordsFile))); got != wantRecords {
		t.Fatalf("records =\n%s\nwant\n%s", got, wantRecords)
	}

	wantStats := `{
  "valid_record_count": 2,
  "average_age": 27.5,
  "count_by_city": {
    "Izmir": 1,
    "İzmir & Co": 1
  }
}`
	if got := string(readFile(t, filepath.Join(dir, StatsFile))); got != wantStats {
		t.Fatalf("stats =\n%s\nwant\n%s", got, wantStats)
	}

	wantReport := "RAPOR\n------\nGeçerli kayıt sayısı: 2\nOrtalama yaş: 27.5\nŞehirlere göre dağılım:\n  - Izmir: 1\n  - İzmir & Co: 1"
	if got := string(readFile(t, filepath.Join(dir, ReportFile))); got != wantReport {
		t.Fatalf("report = %q, want %q", got, wantReport)
	}

	if m.RunID != "run-1" || len(m.Files) != 3 {
		t.Fatalf("manifest = %+v", m)
	}
	for _, f := range m.Files {
		b := readFile(t, filepath.Join(dir, f.Name))
		if f.Bytes != len(b) || f.Digest != Digest(b) {
			t.Fatalf("manifest entry %+v does not match file (%d bytes, %s)", f, len(b), Digest(b))
		}
	}

	var onDisk Manifest
	if err := json.Unmarshal(readFile(t, filepath.Join(dir, ManifestFile)), &onDisk); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if onDisk.RunID != m.RunID || len(onDisk.Files) != len(m.Files) {
		t.Fatalf("manifest on disk = %+v, want %+v", onDisk, m)
	}
}

func TestWrite_EmptyResult(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := pipeline.Run([]string{"name", "age", "city"}, nil, pipeline.Config{})
	if err != nil {
		t.Fatalf("pipeline.Run: %v", err)
	}
	if _, err := Write(context.Background(), dir, res, report.Render(res.Stats)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := string(readFile(t, filepath.Join(dir, RecordsFile))); got != "[]" {
		t.Fatalf("records = %q, want []", got)
	}
	want := "{\n  \"valid_record_count\": 0,\n  \"average_age\": 0.0,\n  \"count_by_city\": {}\n}"
	if got := string(readFile(t, filepath.Join(dir, StatsFile))); got != want {
		t.Fatalf("stats = %q, want %q", got, want)
	}
}

func TestWrite_Idempotent(t *testing.T) {
	t.Parallel()

	a, b := t.TempDir(), t.TempDir()
	for _, dir := range []string{a, b} {
		res := run(t)
		if _, err := Write(context.Background(), dir, res, report.Render(res.Stats)); err != nil {
			t.Fatalf("Write(%s): %v", dir, err)
		}
	}
	for _, name := range []string{RecordsFile, StatsFile, ReportFile} {
		if !bytes.Equal(readFile(t, filepath.Join(a, name)), readFile(t, filepath.Join(b, name))) {
			t.Fatalf("%s differs between identical runs", name)
		}
	}
}

func TestWrite_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := run(t)
	if _, err := Write(ctx, t.TempDir(), res, ""); err == nil {
		t.Fatalf("Write() with canceled context error = nil")
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	d := Digest([]byte("abc"))
	if len(d) != 16 {
		t.Fatalf("Digest len = %d, want 16", len(d))
	}
	if d != Digest([]byte("abc")) || d == Digest([]byte("abd")) {
		t.Fatalf("Digest not deterministic or not content-sensitive")
	}
}
