package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter computes the set of record identifiers matching a free-text query
// case-insensitively against the identifier value and every other column
// value. Matching short-circuits at the first hit per record. An empty
// query returns nil: the filter is inactive and callers must show
// everything, not zero matches.
func Filter(records []Record, query string, idKey string) FilterResult {
	if query == "" {
		return nil
	}

	needle := strings.ToLower(query)
	result := make(FilterResult)

	for _, rec := range records {
		id := IDString(rec.Values[idKey])
		if strings.Contains(strings.ToLower(id), needle) {
			result[id] = struct{}{}
			continue
		}

		for key, v := range rec.Values {
			if key == idKey {
				continue
			}
			if strings.Contains(strings.ToLower(coerceString(v)), needle) {
				result[id] = struct{}{}
				break
			}
		}
	}

	return result
}

// ApplyFilter returns the records whose identifier is in the result set,
// preserving order. A nil result passes everything through unchanged.
func ApplyFilter(records []Record, result FilterResult, idKey string) []Record {
	if result == nil {
		return records
	}

	out := make([]Record, 0, len(result))
	for _, rec := range records {
		if result.Contains(IDString(rec.Values[idKey])) {
			out = append(out, rec)
		}
	}
	return out
}

// coerceString renders a cell value for comparison and serialization.
// Missing values become the empty string, never the literal "undefined" or
// "<nil>", so searches can't accidentally match absent cells.
func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
