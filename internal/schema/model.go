// Package schema defines the row and record types that flow through the
// cleaning pipeline, together with the required-column gate that guards it.
package schema

// RawRow is one parsed input line keyed by header name. Keys may be absent
// when the source line was shorter than the header.
type RawRow map[string]string

// Get returns the raw value for column, or "" when the key is absent.
func (r RawRow) Get(column string) string {
	return r[column]
}

// Record is a row that passed cleaning. Age is always a valid non-negative
// integer; a Record is never partially populated.
type Record struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
	City string `json:"city"`
}

// Column names of the fixed input schema.
const (
	ColumnName = "name"
	ColumnAge  = "age"
	ColumnCity = "city"
)

// Columns is an ordered set of column names. Order matters only for error
// reporting: missing columns are listed in the order they appear here.
type Columns []string

// RequiredColumns returns the columns every input file must carry. A fresh
// slice is returned on each call so callers may not mutate a shared value.
func RequiredColumns() Columns {
	return Columns{ColumnName, ColumnAge, ColumnCity}
}
