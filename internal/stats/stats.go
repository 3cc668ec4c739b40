// Package stats computes aggregate statistics over cleaned records.
package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"csvclean/internal/schema"
)

// Stats is the summary of one run.
type Stats struct {
	ValidRecordCount int        `json:"valid_record_count"`
	AverageAge       Average    `json:"average_age"`
	CountByCity      CityCounts `json:"count_by_city"`
}

// Aggregate folds recs into Stats. It is pure and handles an empty slice.
func Aggregate(recs []schema.Record) Stats {
	s := Stats{
		ValidRecordCount: len(recs),
		CountByCity:      CityCounts{},
	}
	if len(recs) == 0 {
		return s
	}

	sum := 0
	idx := make(map[string]int, 8)
	for _, r := range recs {
		sum += r.Age
		if i, ok := idx[r.City]; ok {
			s.CountByCity[i].Count++
			continue
		}
		idx[r.City] = len(s.CountByCity)
		s.CountByCity = append(s.CountByCity, CityCount{City: r.City, Count: 1})
	}
	s.AverageAge = Round2(float64(sum) / float64(len(recs)))
	return s
}

// Round2 rounds x to two decimal places, halves away from zero.
func Round2(x float64) Average {
	return Average(math.Round(x*100) / 100)
}

// Average is a mean age. It renders as the shortest decimal that round-trips,
// with ".0" kept for integral values: 27.5, 20.33, 30.0, 0.0.
type Average float64

func (a Average) String() string {
	f := float64(a)
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
		s += ".0"
	}
	return s
}

// MarshalJSON writes the same text as String so stats.json and the report
// agree.
func (a Average) MarshalJSON() ([]byte, error) {
	f := float64(a)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, &json.UnsupportedValueError{Str: strconv.FormatFloat(f, 'g', -1, 64)}
	}
	return []byte(a.String()), nil
}

// CityCount is a single city tally.
type CityCount struct {
	City  string
	Count int
}

// CityCounts keeps city tallies in first-seen order.
type CityCounts []CityCount

// Total sums all tallies.
func (c CityCounts) Total() int {
	n := 0
	for _, cc := range c {
		n += cc.Count
	}
	return n
}

// Get returns the tally for city and whether it was seen.
func (c CityCounts) Get(city string) (int, bool) {
	for _, cc := range c {
		if cc.City == city {
			return cc.Count, true
		}
	}
	return 0, false
}

// MarshalJSON writes an object whose keys follow slice order.
func (c CityCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cc := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, cc.City); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(cc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back, keeping key order.
func (c *CityCounts) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("stats: count_by_city must be a JSON object")
	}
	out := CityCounts{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return err
		}
		out = append(out, CityCount{City: kt.(string), Count: n})
	}
	*c = out
	return nil
}

// writeKey encodes s as a JSON string without HTML escaping.
func writeKey(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends '\n'
	return nil
}
