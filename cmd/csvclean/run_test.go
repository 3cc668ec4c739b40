package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"csvclean/internal/config"
	"csvclean/internal/datasource"
	"csvclean/internal/logger"
	"csvclean/internal/metrics"
	"csvclean/internal/metrics/datadog"
	"csvclean/internal/output"
	"csvclean/internal/schema"
	"csvclean/internal/storage"
)

const peopleCSV = "../../testdata/people.csv"

// fakeMetrics records counters by name and label set.
type fakeMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	flushed  int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{counters: map[string]float64{}} }

func (f *fakeMetrics) IncCounter(name string, delta float64, l metrics.Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[name+"|"+l["kind"]+l["step"]+"|"+l["status"]] += delta
	if r := l[metrics.LabelReason]; r != "" {
		f.counters[name+"|"+l["kind"]+"|reason="+r] += delta
	}
}
func (f *fakeMetrics) ObserveHistogram(string, float64, metrics.Labels) {}
func (f *fakeMetrics) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
	return nil
}
func (f *fakeMetrics) get(key string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[key]
}

func testPipeline(t *testing.T, input string) config.Pipeline {
	t.Helper()
	p := config.Default()
	p.Job = "test"
	p.Source.File.Path = input
	p.Output.Dir = filepath.Join(t.TempDir(), "out")
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestRun_WritesOutputs(t *testing.T) {
	p := testPipeline(t, peopleCSV)

	sum, err := run(context.Background(), p, logger.Nop())
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if sum.Read != 7 || sum.Valid != 3 || sum.Dropped != 4 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Reasons["non_digit_age"] != 3 || sum.Reasons["empty_age"] != 1 {
		t.Fatalf("reasons = %v", sum.Reasons)
	}

	wantStats := `{
  "valid_record_count": 3,
  "average_age": 20.67,
  "count_by_city": {
    "Izmir": 2,
    "Ankara": 1
  }
}`
	if got := readFile(t, filepath.Join(p.Output.Dir, output.StatsFile)); got != wantStats {
		t.Fatalf("stats.json =\n%s\nwant\n%s", got, wantStats)
	}

	wantReport := "RAPOR\n------\nGeçerli kayıt sayısı: 3\nOrtalama yaş: 20.67\nŞehirlere göre dağılım:\n  - Izmir: 2\n  - Ankara: 1"
	if got := readFile(t, filepath.Join(p.Output.Dir, output.ReportFile)); got != wantReport {
		t.Fatalf("report.txt =\n%s\nwant\n%s", got, wantReport)
	}

	recs := readFile(t, filepath.Join(p.Output.Dir, output.RecordsFile))
	for _, want := range []string{`"name": "Ana"`, `"age": 7`, `"city": "Ankara"`} {
		if !strings.Contains(recs, want) {
			t.Fatalf("cleaned_records.json missing %s:\n%s", want, recs)
		}
	}
	if strings.Contains(recs, "Gül") || strings.Contains(recs, "Bora") {
		t.Fatalf("dropped rows leaked into output:\n%s", recs)
	}
	if len(sum.Manifest.Files) != 3 || sum.Manifest.RunID == "" {
		t.Fatalf("manifest = %+v", sum.Manifest)
	}
}

func TestRun_SchemaError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(in, []byte("name,city\nAna,Izmir\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := testPipeline(t, in)

	_, err := run(context.Background(), p, logger.Nop())
	var se *schema.Error
	if !errors.As(err, &se) {
		t.Fatalf("run() error = %v, want *schema.Error", err)
	}
	if got := se.Error(); got != "Zorunlu sütun(lar) eksik: age" {
		t.Fatalf("schema error = %q", got)
	}
	if _, statErr := os.Stat(p.Output.Dir); !os.IsNotExist(statErr) {
		t.Fatalf("output dir created despite schema error: %v", statErr)
	}
}

func TestRun_SchemaErrorLeavesNoRejectsFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(in, []byte("name,city\nAna,Izmir\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := testPipeline(t, in)
	p.RejectsPath = filepath.Join(dir, "rejects", "rejects.csv")

	_, err := run(context.Background(), p, logger.Nop())
	var se *schema.Error
	if !errors.As(err, &se) {
		t.Fatalf("run() error = %v, want *schema.Error", err)
	}
	if _, statErr := os.Stat(p.RejectsPath); !os.IsNotExist(statErr) {
		t.Fatalf("rejects file created despite schema error: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Dir(p.RejectsPath)); !os.IsNotExist(statErr) {
		t.Fatalf("rejects dir created despite schema error: %v", statErr)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	in := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(in, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := run(context.Background(), testPipeline(t, in), logger.Nop())
	var se *schema.Error
	if !errors.As(err, &se) {
		t.Fatalf("run() error = %v, want *schema.Error", err)
	}
	if se.HeadersUnavailable || se.Error() != "Zorunlu sütun(lar) eksik: name, age, city" {
		t.Fatalf("schema error = %q (headers unavailable %v)", se.Error(), se.HeadersUnavailable)
	}
}

func TestRun_RejectsFileAndSQLite(t *testing.T) {
	p := testPipeline(t, peopleCSV)
	dir := t.TempDir()
	p.RejectsPath = filepath.Join(dir, "rejects.csv")
	p.Storage = config.Storage{
		Kind: "sqlite",
		DB: config.DBConfig{
			DSN:             filepath.Join(dir, "people.db"),
			Table:           "people",
			AutoCreateTable: true,
			BatchSize:       2,
		},
	}

	sum, err := run(context.Background(), p, logger.Nop())
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if sum.Stored != 3 || sum.Batches != 2 {
		t.Fatalf("stored=%d batches=%d, want 3 and 2", sum.Stored, sum.Batches)
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, p.RejectsPath)), "\n")
	if len(lines) != 5 {
		t.Fatalf("rejects file has %d lines, want header + 4:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[0] != "reason,row,age_field,raw" {
		t.Fatalf("rejects header = %q", lines[0])
	}
}

type fakeRepo struct {
	copied int
	closed bool
}

func (f *fakeRepo) CopyFrom(ctx context.Context, cols []string, rows [][]any) (int64, error) {
	f.copied += len(rows)
	return 0, errors.New("copy refused")
}
func (f *fakeRepo) Exec(context.Context, string) error { return nil }
func (f *fakeRepo) Close()                             { f.closed = true }

func TestRun_StorageFailure(t *testing.T) {
	repo := &fakeRepo{}
	orig := newRepositoryFn
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) { return repo, nil }
	t.Cleanup(func() { newRepositoryFn = orig })

	p := testPipeline(t, peopleCSV)
	p.Storage = config.Storage{Kind: "fake", DB: config.DBConfig{DSN: "x", Table: "people", BatchSize: 10}}

	_, err := run(context.Background(), p, logger.Nop())
	if err == nil || !strings.Contains(err.Error(), "copy refused") {
		t.Fatalf("run() error = %v, want copy failure", err)
	}
	if !repo.closed {
		t.Fatalf("repository not closed")
	}
	if _, statErr := os.Stat(filepath.Join(p.Output.Dir, output.StatsFile)); statErr != nil {
		t.Fatalf("outputs should be written before storage: %v", statErr)
	}
}

type errSource struct{}

func (errSource) Open(context.Context) (io.ReadCloser, error) { return nil, errors.New("no disk") }

func TestRun_SourceFailure(t *testing.T) {
	orig := newSourceFn
	newSourceFn = func(config.Source) datasource.Source { return errSource{} }
	t.Cleanup(func() { newSourceFn = orig })

	if _, err := run(context.Background(), testPipeline(t, "ignored.csv"), logger.Nop()); err == nil || err.Error() != "no disk" {
		t.Fatalf("run() error = %v", err)
	}
}

func TestRun_Metrics(t *testing.T) {
	fm := newFakeMetrics()
	orig := newPromBackendFn
	newPromBackendFn = func(job, url string) (metrics.Backend, error) {
		if job != "test" || url != "http://gw:9091" {
			t.Errorf("prom backend args = %q %q", job, url)
		}
		return fm, nil
	}
	t.Cleanup(func() { newPromBackendFn = orig })

	p := testPipeline(t, peopleCSV)
	p.Metrics = config.Metrics{Backend: "pushgateway", PushgatewayURL: "http://gw:9091"}

	flush := setupMetrics(p, logger.Nop())
	if _, err := run(context.Background(), p, logger.Nop()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	flush()

	checks := map[string]float64{
		metrics.RecordsTotal + "|read|":                        7,
		metrics.RecordsTotal + "|valid|":                       3,
		metrics.RecordsTotal + "|dropped|":                     4,
		metrics.RecordsTotal + "|dropped|reason=non_digit_age": 3,
		metrics.RecordsTotal + "|dropped|reason=empty_age":     1,
		metrics.StepTotal + "|read|success":                    1,
		metrics.StepTotal + "|validate|success":                1,
		metrics.StepTotal + "|clean|success":                   1,
		metrics.StepTotal + "|aggregate|success":               1,
		metrics.StepTotal + "|write|success":                   1,
	}
	for key, want := range checks {
		if got := fm.get(key); got != want {
			t.Errorf("counter %s = %v, want %v", key, got, want)
		}
	}
	if fm.flushed != 1 {
		t.Fatalf("flushed = %d, want 1", fm.flushed)
	}
}

func TestSetupMetrics_Fallbacks(t *testing.T) {
	origDD := newDatadogBackendFn
	var gotAddr string
	newDatadogBackendFn = func(cfg datadog.Config) (metrics.Backend, error) {
		gotAddr = cfg.Addr
		return nil, errors.New("no agent")
	}
	t.Cleanup(func() { newDatadogBackendFn = origDD })

	p := config.Default()
	p.Metrics.Backend = "datadog"
	setupMetrics(p, logger.Nop())()
	if gotAddr != config.DefaultDatadogAddr {
		t.Fatalf("datadog addr = %q, want default", gotAddr)
	}

	p.Metrics.Backend = "graphite"
	setupMetrics(p, logger.Nop())()
}

func TestRun_HTTPSource(t *testing.T) {
	body, err := os.ReadFile(peopleCSV)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	p := testPipeline(t, "")
	config.SetInput(&p.Source, srv.URL+"/people.csv")

	sum, err := run(context.Background(), p, logger.Nop())
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if sum.Read != 7 || sum.Valid != 3 {
		t.Fatalf("summary = %+v", sum)
	}
}
