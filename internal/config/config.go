// Package config defines the run configuration for csvclean. A Pipeline can be
// decoded from a JSON or YAML file, overlaid with environment variables and
// finally with command-line flags.
//
// Example (YAML):
//
//	job: people
//	source: { kind: file, file: { path: data/people.csv } }
//	parser: { kind: csv, options: { comma: ",", trim_headers: false } }
//	output: { dir: out }
//	storage:
//	  kind: sqlite
//	  db: { dsn: out/people.db, table: people, auto_create_table: true, batch_size: 500 }
//	metrics: { backend: none }
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultJob labels runs and metrics when no job name is configured.
const DefaultJob = "csvclean"

// DefaultBatchSize is the storage batch size used when none is configured.
const DefaultBatchSize = 500

// DefaultDatadogAddr is the DogStatsD agent address used when none is set.
const DefaultDatadogAddr = "127.0.0.1:8125"

// Pipeline is the top-level configuration object.
type Pipeline struct {
	// Job names the run for logs and metrics.
	Job string `json:"job" yaml:"job"`

	Source  Source  `json:"source" yaml:"source"`
	Parser  Parser  `json:"parser" yaml:"parser"`
	Output  Output  `json:"output" yaml:"output"`
	Storage Storage `json:"storage" yaml:"storage"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`

	// RejectsPath, when set, receives one CSV line per dropped row.
	RejectsPath string `json:"rejects_path" yaml:"rejects_path"`
}

// Source identifies the input. Kinds: "file" and "http".
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http"`
}

// Location returns the path or URL of the configured source kind.
func (s Source) Location() string {
	if s.Kind == "http" {
		return s.HTTP.URL
	}
	return s.File.Path
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL            string `json:"url" yaml:"url"`
	MaxRetries     int    `json:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Parser selects how the input is split into rows. Current kind: "csv".
//
// CSV options: comma (string), trim_headers (bool), header_map (object).
type Parser struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Output is where the JSON files and the report are written.
type Output struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Storage optionally persists cleaned records. An empty Kind disables it.
type Storage struct {
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`

	// AutoCreateTable creates the destination table when missing.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`

	// BatchSize is the number of rows per CopyFrom call.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Metrics selects the metrics backend: "none", "pushgateway" or "datadog".
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
}

// Default returns the configuration used when no file is given.
func Default() Pipeline {
	return Pipeline{
		Job:     DefaultJob,
		Source:  Source{Kind: "file"},
		Parser:  Parser{Kind: "csv", Options: Options{}},
		Storage: Storage{DB: DBConfig{BatchSize: DefaultBatchSize}},
		Metrics: Metrics{Backend: "none"},
	}
}

// Load reads a pipeline file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. Keys absent from the file keep the values
// from Default.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(b, filepath.Ext(path))
}

// Decode decodes b using the format implied by ext (".json", ".yaml", ".yml").
func Decode(b []byte, ext string) (Pipeline, error) {
	p := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("parse json config: %w", err)
		}
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}
