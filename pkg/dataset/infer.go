package dataset

import (
	"strconv"
	"strings"
)

// inferSampleSize bounds how many rows type inference inspects per column.
const inferSampleSize = 200

// inferTypes classifies each column from a bounded sample of its values.
// A column is numeric or boolean only when every non-empty sampled value
// parses as such; columns with no non-empty values are tagged empty.
func inferTypes(d *Dataset) {
	limit := len(d.rows)
	if limit > inferSampleSize {
		limit = inferSampleSize
	}

	for c := range d.cols {
		numeric, boolean, nonEmpty := 0, 0, 0
		for r := 0; r < limit; r++ {
			v := strings.TrimSpace(d.rows[r][c])
			if v == "" {
				continue
			}
			nonEmpty++
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				numeric++
			}
			if isBool(v) {
				boolean++
			}
		}

		switch {
		case nonEmpty == 0:
			d.cols[c].Type = TypeEmpty
		case numeric == nonEmpty:
			d.cols[c].Type = TypeNumber
		case boolean == nonEmpty:
			d.cols[c].Type = TypeBoolean
		default:
			d.cols[c].Type = TypeString
		}
	}
}

func isBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}
