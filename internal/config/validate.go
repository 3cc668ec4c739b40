package config

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the config
// such as "storage.db.dsn".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static checks over p without mutating it.
// storageKinds lists the registered storage kinds; an empty list skips the
// kind check.
func ValidatePipeline(p Pipeline, storageKinds []string) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{SeverityError, "job", "job must not be empty; it labels logs and metrics"})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	if strings.TrimSpace(p.Output.Dir) == "" {
		issues = append(issues, Issue{SeverityError, "output.dir", "output.dir must not be empty"})
	}
	issues = append(issues, validateStorage(p.Storage, storageKinds)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{SeverityError, "source.file.path", "file source requires a non-empty path"})
		}
	case "http":
		u, err := url.Parse(s.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "source.http.url", fmt.Sprintf("http source requires an http(s) URL, got %q", s.HTTP.URL)})
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{SeverityError, "source.http.max_retries", "max_retries must not be negative"})
		}
	case "":
		issues = append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, "source.kind", fmt.Sprintf("unsupported source kind %q", s.Kind)})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	if p.Kind != "csv" {
		issues = append(issues, Issue{SeverityError, "parser.kind", fmt.Sprintf("unsupported parser kind %q; only csv is available", p.Kind)})
		return issues
	}
	if v, ok := p.Options["comma"]; ok {
		s, isStr := v.(string)
		if !isStr || utf8.RuneCountInString(s) != 1 {
			issues = append(issues, Issue{SeverityError, "parser.options.comma", "comma must be a single character"})
		} else if s == "\"" || s == "\r" || s == "\n" {
			issues = append(issues, Issue{SeverityError, "parser.options.comma", fmt.Sprintf("%q cannot be used as a delimiter", s)})
		}
	}
	if v, ok := p.Options["header_map"]; ok {
		if _, isMap := v.(map[string]any); !isMap {
			issues = append(issues, Issue{SeverityError, "parser.options.header_map", "header_map must be an object of strings"})
		}
	}
	return issues
}

func validateStorage(s Storage, kinds []string) []Issue {
	var issues []Issue
	if s.Kind == "" {
		return nil
	}
	if len(kinds) > 0 && !contains(kinds, s.Kind) {
		issues = append(issues, Issue{SeverityError, "storage.kind",
			fmt.Sprintf("unknown storage kind %q; available: %s", s.Kind, strings.Join(kinds, ", "))})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.dsn", "dsn must not be empty when storage is enabled"})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.table", "table must not be empty when storage is enabled"})
	}
	switch {
	case s.DB.BatchSize < 0:
		issues = append(issues, Issue{SeverityError, "storage.db.batch_size", "batch_size must not be negative"})
	case s.DB.BatchSize == 0:
		issues = append(issues, Issue{SeverityWarning, "storage.db.batch_size",
			fmt.Sprintf("batch_size is 0; %d will be used", DefaultBatchSize)})
	}
	if !s.DB.AutoCreateTable {
		issues = append(issues, Issue{SeverityWarning, "storage.db.auto_create_table",
			"auto_create_table is false; the table must already exist"})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(m.Backend) {
	case "", "none":
	case "pushgateway", "prom", "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL"})
		} else if u, err := url.Parse(m.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", fmt.Sprintf("invalid URL %q", m.PushgatewayURL)})
		}
	case "datadog", "dd":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{SeverityWarning, "metrics.datadog_addr", "datadog_addr is empty; " + DefaultDatadogAddr + " will be used"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend", fmt.Sprintf("unknown metrics backend %q", m.Backend)})
	}
	return issues
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
