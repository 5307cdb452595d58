package core

import (
	"sort"
	"strconv"
	"strings"
)

// SortRecords returns a sorted copy of the records by the given column.
// Numeric values sort numerically and come before strings; string
// comparison is case-insensitive. The sort is stable so equal keys keep
// their upload order.
func SortRecords(records []Record, spec SortSpec) []Record {
	if spec.Column == "" {
		return records
	}

	out := make([]Record, len(records))
	copy(out, records)

	desc := strings.EqualFold(spec.Dir, "desc")

	sort.SliceStable(out, func(i, j int) bool {
		less := compareValues(out[i].Values[spec.Column], out[j].Values[spec.Column]) < 0
		if desc {
			return compareValues(out[j].Values[spec.Column], out[i].Values[spec.Column]) < 0
		}
		return less
	})

	return out
}

// compareValues orders two cell values: numbers first (numeric order), then
// strings (case-insensitive), with missing values last.
func compareValues(a, b any) int {
	na, aNum := asNumber(a)
	nb, bNum := asNumber(b)

	switch {
	case aNum && bNum:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}

	sa, sb := coerceString(a), coerceString(b)
	if sa == "" && sb != "" {
		return 1
	}
	if sb == "" && sa != "" {
		return -1
	}
	return strings.Compare(strings.ToLower(sa), strings.ToLower(sb))
}

// asNumber reports whether the value is numeric, either natively or as a
// numeric-looking string.
func asNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
