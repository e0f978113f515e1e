package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Render formats a result for terminal output: scalars as a bare number,
// tables as aligned columns with an explicit truncation marker.
func (r *Result) Render() string {
	if r == nil {
		return ""
	}
	if r.Kind == KindScalar {
		return formatNumber(r.Value)
	}

	widths := make([]int, len(r.Columns))
	for i, c := range r.Columns {
		widths[i] = len(c)
	}
	for _, row := range r.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
			}
		}
		b.WriteString("\n")
	}

	writeRow(r.Columns)
	sep := make([]string, len(r.Columns))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)
	for _, row := range r.Rows {
		writeRow(row)
	}
	if r.Truncated > 0 {
		fmt.Fprintf(&b, "… %d more rows\n", r.Truncated)
	}
	return b.String()
}

// formatNumber renders a float without trailing decimal noise: integers as
// integers, everything else with up to two decimals.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
