package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvInput          = "CSVCLEAN_INPUT"
	EnvOut            = "CSVCLEAN_OUT"
	EnvJob            = "CSVCLEAN_JOB"
	EnvRejects        = "CSVCLEAN_REJECTS"
	EnvStorageKind    = "CSVCLEAN_STORAGE_KIND"
	EnvStorageDSN     = "CSVCLEAN_STORAGE_DSN"
	EnvStorageTable   = "CSVCLEAN_STORAGE_TABLE"
	EnvBatchSize      = "CSVCLEAN_BATCH_SIZE"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDatadogAddr    = "DD_AGENT_ADDR"
)

// LoadEnv loads variables from the given .env files without overriding
// variables already set in the process. With no files it loads ".env" and
// ignores its absence; a named file that does not exist is an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// SetInput points src at in: http(s) URLs select the "http" kind, anything
// else is a local file path.
func SetInput(src *Source, in string) {
	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		src.Kind = "http"
		src.HTTP.URL = in
		return
	}
	src.Kind = "file"
	src.File.Path = in
}

// ApplyEnv overlays non-empty environment variables onto p. lookup is
// usually os.LookupEnv.
func ApplyEnv(p *Pipeline, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvInput); ok {
		SetInput(&p.Source, v)
	}
	if v, ok := get(EnvOut); ok {
		p.Output.Dir = v
	}
	if v, ok := get(EnvJob); ok {
		p.Job = v
	}
	if v, ok := get(EnvRejects); ok {
		p.RejectsPath = v
	}
	if v, ok := get(EnvStorageKind); ok {
		p.Storage.Kind = v
	}
	if v, ok := get(EnvStorageDSN); ok {
		p.Storage.DB.DSN = v
	}
	if v, ok := get(EnvStorageTable); ok {
		p.Storage.DB.Table = v
	}
	if v, ok := get(EnvBatchSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBatchSize, err)
		}
		p.Storage.DB.BatchSize = n
	}
	if v, ok := get(EnvMetricsBackend); ok {
		p.Metrics.Backend = v
	}
	if v, ok := get(EnvPushgatewayURL); ok {
		p.Metrics.PushgatewayURL = v
	}
	if v, ok := get(EnvDatadogAddr); ok {
		p.Metrics.DatadogAddr = v
	}
	return nil
}
