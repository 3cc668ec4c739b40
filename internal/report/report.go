// Package report renders the plain-text run summary.
package report

import (
	"strconv"
	"strings"

	"csvclean/internal/stats"
)

// Labels of the report. They are part of the output contract.
const (
	title        = "RAPOR"
	rule         = "------"
	labelCount   = "Geçerli kayıt sayısı: "
	labelAverage = "Ortalama yaş: "
	labelCities  = "Şehirlere göre dağılım:"
)

// Render formats s as the report text. Lines are joined with "\n" and there
// is no trailing newline.
func Render(s stats.Stats) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	b.WriteString(rule)
	b.WriteByte('\n')
	b.WriteString(labelCount)
	b.WriteString(strconv.Itoa(s.ValidRecordCount))
	b.WriteByte('\n')
	b.WriteString(labelAverage)
	b.WriteString(s.AverageAge.String())
	b.WriteByte('\n')
	b.WriteString(labelCities)
	for _, cc := range s.CountByCity {
		b.WriteString("\n  - ")
		b.WriteString(cc.City)
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(cc.Count))
	}
	return b.String()
}
