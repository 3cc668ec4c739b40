package schema

import (
	"errors"
	"strings"
)

// ErrHeadersUnavailable reports that no header information was supplied at
// all, as opposed to a header line that lacks some required columns.
var ErrHeadersUnavailable = errors.New("Şema kontrolü için başlıklar (headers) sağlanmadı.")

// Error is returned by Validate when the observed headers do not satisfy the
// required schema. It is fatal for a run.
type Error struct {
	// Missing lists every absent required column in required order.
	Missing []string
	// HeadersUnavailable is set when headers were nil.
	HeadersUnavailable bool
}

func (e *Error) Error() string {
	if e.HeadersUnavailable {
		return ErrHeadersUnavailable.Error()
	}
	return "Zorunlu sütun(lar) eksik: " + strings.Join(e.Missing, ", ")
}

// Is lets errors.Is(err, ErrHeadersUnavailable) match.
func (e *Error) Is(target error) bool {
	return target == ErrHeadersUnavailable && e.HeadersUnavailable
}

// Validate checks that every required column appears in headers. Only
// membership matters; duplicates and extra columns are ignored.
//
// A nil headers slice means the caller had no header information and yields
// an Error with HeadersUnavailable set. An empty, non-nil slice is a header
// line without names and reports all required columns as missing.
func Validate(headers []string, required Columns) error {
	if headers == nil {
		return &Error{HeadersUnavailable: true}
	}

	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		seen[h] = struct{}{}
	}

	var missing []string
	for _, c := range required {
		if _, ok := seen[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &Error{Missing: missing}
	}
	return nil
}
