// Package skiplog records rows the cleaner dropped: a CSV file with one line
// per rejected row plus in-memory per-reason counts.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"csvclean/internal/schema"
	"csvclean/internal/transformer/builtin"
)

// Header is the first line of the rejects file. "row" is the 1-based index
// of the data row; the header line is not counted.
var Header = []string{"reason", "row", "age_field", "raw"}

// Log collects rejected rows. A Log with no writer only counts.
type Log struct {
	reasons map[string]int
	total   int
	w       *csv.Writer
	closer  io.Closer
}

// New returns a counting-only Log.
func New() *Log {
	return &Log{reasons: make(map[string]int)}
}

// Create opens path (creating parent directories) and returns a Log that
// writes every rejected row to it. Call Close to flush.
func Create(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("skiplog: create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("skiplog: open %s: %w", path, err)
	}
	l := New()
	l.w = csv.NewWriter(f)
	l.closer = f
	if err := l.w.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("skiplog: write header: %w", err)
	}
	return l, nil
}

// Add records one rejected row. Its signature matches builtin.Cleaner.Reject.
func (l *Log) Add(r builtin.RejectedRow) {
	l.reasons[r.Reason]++
	l.total++
	if l.w != nil {
		_ = l.w.Write([]string{r.Reason, strconv.Itoa(r.Row), r.Age, rawLine(r.Raw)})
	}
}

// Total is the number of rows added.
func (l *Log) Total() int { return l.total }

// Counts returns a copy of the per-reason counts.
func (l *Log) Counts() map[string]int {
	out := make(map[string]int, len(l.reasons))
	for k, v := range l.reasons {
		out[k] = v
	}
	return out
}

// Summary renders counts as "reason=n" pairs sorted by reason.
func (l *Log) Summary() string {
	keys := make([]string, 0, len(l.reasons))
	for k := range l.reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Itoa(l.reasons[k])
	}
	return strings.Join(parts, " ")
}

// Close flushes and closes the file, if any.
func (l *Log) Close() error {
	if l.w == nil {
		return nil
	}
	l.w.Flush()
	err := l.w.Error()
	if cerr := l.closer.Close(); err == nil {
		err = cerr
	}
	return err
}

// rawLine renders the fixed columns of r as name|age|city.
func rawLine(r schema.RawRow) string {
	return r.Get(schema.ColumnName) + "|" + r.Get(schema.ColumnAge) + "|" + r.Get(schema.ColumnCity)
}
