// Package builtin contains the row-level transformers used by the pipeline.
package builtin

import (
	"strconv"
	"strings"

	"csvclean/internal/schema"
)

// Reject reasons reported through Cleaner.Reject.
const (
	ReasonEmptyAge    = "empty_age"
	ReasonNonDigitAge = "non_digit_age"
	ReasonAgeRange    = "age_out_of_range"
)

// RejectedRow describes a row the cleaner dropped.
type RejectedRow struct {
	Row    int // 1-based position among data rows
	Raw    schema.RawRow
	Age    string // trimmed age value that failed
	Reason string
}

// Cleaner turns raw rows into typed records. Rows whose age is empty or not
// made purely of ASCII digits are dropped without error.
type Cleaner struct {
	// Reject, when set, is called for every dropped row. It observes only;
	// the output is the same with or without it.
	Reject func(RejectedRow)
}

// Clean applies the per-row rules in order and returns the kept rows as
// records, preserving input order. The result is never nil.
func (c Cleaner) Clean(rows []schema.RawRow) []schema.Record {
	out := make([]schema.Record, 0, len(rows))
	for i, r := range rows {
		rec, reason := cleanRow(r)
		if reason != "" {
			if c.Reject != nil {
				c.Reject(RejectedRow{
					Row:    i + 1,
					Raw:    r,
					Age:    strings.TrimSpace(r.Get(schema.ColumnAge)),
					Reason: reason,
				})
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}

// cleanRow returns the record for r, or a non-empty reject reason.
func cleanRow(r schema.RawRow) (schema.Record, string) {
	name := strings.TrimSpace(r.Get(schema.ColumnName))
	ageRaw := strings.TrimSpace(r.Get(schema.ColumnAge))
	city := strings.TrimSpace(r.Get(schema.ColumnCity))

	if ageRaw == "" {
		return schema.Record{}, ReasonEmptyAge
	}
	if !IsDigits(ageRaw) {
		return schema.Record{}, ReasonNonDigitAge
	}
	age, err := strconv.Atoi(ageRaw)
	if err != nil {
		// only reachable on overflow: IsDigits already holds
		return schema.Record{}, ReasonAgeRange
	}
	return schema.Record{Name: name, Age: age, City: city}, ""
}

// IsDigits reports whether s is non-empty and made only of ASCII '0'..'9'.
// Signs, decimal points, inner spaces and non-ASCII digits all fail.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
