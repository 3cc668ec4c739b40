// Package main wires the cleaning run end to end. The CLI layer depends on
// storage-agnostic interfaces and never imports database drivers directly.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"csvclean/internal/config"
	"csvclean/internal/datasource"
	"csvclean/internal/datasource/file"
	"csvclean/internal/datasource/httpds"
	"csvclean/internal/logger"
	"csvclean/internal/metrics"
	"csvclean/internal/metrics/datadog"
	"csvclean/internal/metrics/prompush"
	"csvclean/internal/output"
	csvparser "csvclean/internal/parser/csv"
	"csvclean/internal/pipeline"
	"csvclean/internal/report"
	"csvclean/internal/schema"
	"csvclean/internal/skiplog"
	"csvclean/internal/storage"
)

// Step names recorded around I/O; the pipeline reports its own stages.
const (
	stepRead  = "read"
	stepWrite = "write"
	stepStore = "store"
)

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newSourceFn = func(src config.Source) datasource.Source {
		if src.Kind == "http" {
			return httpds.New(httpds.Config{
				URL:        src.HTTP.URL,
				MaxRetries: src.HTTP.MaxRetries,
				Timeout:    time.Duration(src.HTTP.TimeoutSeconds) * time.Second,
			})
		}
		return file.NewLocal(src.File.Path)
	}

	newRepositoryFn = storage.New

	newPromBackendFn = func(job, url string) (metrics.Backend, error) {
		return prompush.NewBackend(job, url)
	}

	newDatadogBackendFn = func(cfg datadog.Config) (metrics.Backend, error) {
		return datadog.NewBackend(cfg)
	}
)

// summary reports what one run did.
type summary struct {
	Read     int
	Valid    int
	Dropped  int
	Reasons  map[string]int
	Stored   int64
	Batches  int64
	Manifest output.Manifest
}

// run executes one cleaning run for p. A schema failure is returned as a
// *schema.Error before anything is written.
func run(ctx context.Context, p config.Pipeline, log *logger.Logger) (summary, error) {
	var sum summary
	job := p.Job

	start := time.Now()
	headers, rows, err := readInput(ctx, p)
	metrics.RecordStep(job, stepRead, err, time.Since(start))
	if err != nil {
		return sum, err
	}
	sum.Read = len(rows)
	metrics.RecordRow(job, metrics.KindRead, int64(len(rows)))
	log.Info("reader: input parsed", "source", p.Source.Location(), "columns", len(headers), "rows", len(rows))

	// The schema gate runs before the rejects file is created so a failed run
	// leaves nothing on disk.
	start = time.Now()
	if err := schema.Validate(headers, schema.RequiredColumns()); err != nil {
		metrics.RecordStep(job, pipeline.StepValidate, err, time.Since(start))
		log.Error("pipeline: schema check failed", "headers", headers, "err", err)
		return sum, err
	}

	rejects, err := openRejects(p.RejectsPath)
	if err != nil {
		return sum, err
	}
	res, err := pipeline.Run(headers, rows, pipeline.Config{
		Reject: rejects.Add,
		Step: func(name string, err error, d time.Duration) {
			metrics.RecordStep(job, name, err, d)
		},
	})
	closeErr := rejects.Close()
	if err != nil {
		return sum, err
	}
	if closeErr != nil {
		return sum, closeErr
	}

	sum.Valid = res.Stats.ValidRecordCount
	sum.Dropped = rejects.Total()
	sum.Reasons = rejects.Counts()
	metrics.RecordRow(job, metrics.KindValid, int64(sum.Valid))
	metrics.RecordDropped(job, sum.Reasons)
	if sum.Dropped > 0 {
		log.Warn("cleaner: rows dropped", "dropped", sum.Dropped, "reasons", rejects.Summary())
	}
	log.Debug("stats: aggregated",
		"valid", res.Stats.ValidRecordCount,
		"average_age", res.Stats.AverageAge.String(),
		"cities", len(res.Stats.CountByCity),
	)

	start = time.Now()
	man, err := output.Write(ctx, p.Output.Dir, res, report.Render(res.Stats))
	metrics.RecordStep(job, stepWrite, err, time.Since(start))
	if err != nil {
		return sum, err
	}
	sum.Manifest = man
	log.Info("output: files written", "dir", p.Output.Dir, "run_id", man.RunID, "files", len(man.Files))

	if p.Storage.Kind == "" {
		return sum, nil
	}

	start = time.Now()
	st, err := store(ctx, p, res.Records, log)
	metrics.RecordStep(job, stepStore, err, time.Since(start))
	sum.Stored, sum.Batches = st.Inserted, st.Batches
	metrics.RecordRow(job, metrics.KindStored, st.Inserted)
	metrics.RecordBatches(job, st.Batches)
	if err != nil {
		return sum, err
	}
	return sum, nil
}

// readInput opens the configured source and parses it as CSV.
func readInput(ctx context.Context, p config.Pipeline) ([]string, []schema.RawRow, error) {
	rc, err := newSourceFn(p.Source).Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	opts := p.Parser.Options
	parser := csvparser.NewParser(csvparser.Options{
		Comma:       opts.Rune("comma", ','),
		TrimHeaders: opts.Bool("trim_headers", false),
		HeaderMap:   opts.StringMap("header_map"),
	})
	headers, rows, err := parser.Parse(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", p.Source.Location(), err)
	}
	return headers, rows, nil
}

func openRejects(path string) (*skiplog.Log, error) {
	if path == "" {
		return skiplog.New(), nil
	}
	return skiplog.Create(path)
}

// store loads recs into the configured table in batches.
func store(ctx context.Context, p config.Pipeline, recs []schema.Record, log *logger.Logger) (storage.BatchStats, error) {
	db := p.Storage.DB
	repo, err := newRepositoryFn(ctx, storage.Config{Kind: p.Storage.Kind, DSN: db.DSN, Table: db.Table})
	if err != nil {
		return storage.BatchStats{}, fmt.Errorf("storage: %w", err)
	}
	defer repo.Close()

	if db.AutoCreateTable {
		if err := storage.EnsureTable(ctx, p.Storage.Kind, repo, db.Table); err != nil {
			return storage.BatchStats{}, fmt.Errorf("storage: ensure table %s: %w", db.Table, err)
		}
	}

	batchSize := db.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	st, err := storage.LoadBatches(ctx, log, storage.RecordColumns, storage.RecordRows(recs), batchSize, repo.CopyFrom)
	if err != nil {
		return st, fmt.Errorf("storage: load %s: %w", db.Table, err)
	}
	log.Info("storage: records stored", "kind", p.Storage.Kind, "table", db.Table, "inserted", st.Inserted, "batches", st.Batches)
	return st, nil
}

// setupMetrics installs the configured metrics backend and returns a flush
// function to call once the run is over. Backend failures only disable
// metrics.
func setupMetrics(p config.Pipeline, log *logger.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	name := strings.ToLower(p.Metrics.Backend)
	switch name {
	case "pushgateway", "prom", "prometheus":
		b, err = newPromBackendFn(p.Job, p.Metrics.PushgatewayURL)
	case "datadog", "dd":
		addr := p.Metrics.DatadogAddr
		if addr == "" {
			addr = config.DefaultDatadogAddr
		}
		b, err = newDatadogBackendFn(datadog.Config{Addr: addr, Namespace: "csvclean."})
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", p.Metrics.Backend)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: backend init failed; using nop", "backend", name, "err", err)
		return func() {}
	}

	metrics.SetBackend(b)
	log.Info("metrics: enabled", "backend", name, "job", p.Job)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", "backend", name, "err", err)
		}
	}
}
