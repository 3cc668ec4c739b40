// Package csv reads a delimited file into a header row and header-keyed raw
// rows. Header names are kept as written so the schema gate sees exactly
// what the file declares.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"csvclean/internal/schema"
)

// Options configures the parser. The zero value reads comma-separated input
// and keeps header cells verbatim.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimHeaders trims surrounding whitespace from header cells.
	TrimHeaders bool

	// HeaderMap renames header cells (after trimming) to canonical keys.
	HeaderMap map[string]string
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Parse reads the header line and every data line from r.
//
// Rows may be ragged: cells past the header width are ignored and a short
// row simply lacks the trailing keys. When a header name repeats, the last
// cell wins. Input without any line returns an empty, non-nil header list and
// no error, so the schema gate reports every required column as missing.
func (p *Parser) Parse(r io.Reader) ([]string, []schema.RawRow, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := normalizeHeaders(h, p.opt)

	var rows []schema.RawRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}

		row := make(schema.RawRow, len(headers))
		for i, val := range rec {
			if i >= len(headers) {
				break
			}
			row[headers[i]] = val
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

// normalizeHeaders copies h, strips a UTF-8 BOM from the first cell and
// applies TrimHeaders and HeaderMap.
func normalizeHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	for i, col := range h {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		if opt.TrimHeaders {
			col = strings.TrimSpace(col)
		}
		if m, ok := opt.HeaderMap[col]; ok {
			col = m
		}
		res[i] = col
	}
	return res
}
