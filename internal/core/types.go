// Package core provides the business logic for the monopile dashboard:
// tabular file parsing, GeoJSON handling, record linking, search, sorting,
// and export. This package has no UI dependencies and can be used by any
// frontend.
package core

import (
	"sort"
	"strconv"
)

// Column is a (key, display label) pair. Keys are derived from the source
// file's header or property names and are stable identifiers into Record.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Record is one monopile row: a mapping from column key to scalar value,
// plus optional coordinates assigned by linking or manual placement.
type Record struct {
	Values map[string]any `json:"values"`
	Lat    *float64       `json:"lat,omitempty"`
	Lng    *float64       `json:"lng,omitempty"`
}

// HasPosition reports whether the record carries both coordinates.
func (r Record) HasPosition() bool {
	return r.Lat != nil && r.Lng != nil
}

// Clone returns a deep copy of the record. Downstream consumers may hold
// references to the old row, so mutations always go through a copy.
func (r Record) Clone() Record {
	values := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	out := Record{Values: values}
	if r.Lat != nil {
		lat := *r.Lat
		out.Lat = &lat
	}
	if r.Lng != nil {
		lng := *r.Lng
		out.Lng = &lng
	}
	return out
}

// TableData is the parsed data set: ordered columns, ordered records, and
// the selected identifier column (empty until chosen).
type TableData struct {
	Columns     []Column `json:"columns"`
	Records     []Record `json:"records"`
	IDColumnKey string   `json:"idColumnKey,omitempty"`
}

// HasColumn reports whether key names one of the table's columns.
func (t *TableData) HasColumn(key string) bool {
	for _, c := range t.Columns {
		if c.Key == key {
			return true
		}
	}
	return false
}

// OverlayStyle is the presentation state for the polygon/line overlay.
type OverlayStyle struct {
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
	Opacity   float64 `json:"opacity"`
}

// PointStyle is the presentation state for the monopile point layer.
type PointStyle struct {
	Color       string  `json:"color"`
	Size        float64 `json:"size"`
	BorderColor string  `json:"borderColor"`
	BorderWidth float64 `json:"borderWidth"`
}

// DefaultOverlayStyle returns the overlay style used before the user
// changes anything.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{Color: "#3388ff", LineWidth: 2, Opacity: 0.5}
}

// DefaultPointStyle returns the point style used before the user changes
// anything.
func DefaultPointStyle() PointStyle {
	return PointStyle{Color: "#e63946", Size: 6, BorderColor: "#ffffff", BorderWidth: 1.5}
}

// Validate checks the style's value ranges.
func (s OverlayStyle) Validate() error {
	if s.LineWidth < 0 {
		return &StyleRangeError{Field: "lineWidth", Value: s.LineWidth}
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		return &StyleRangeError{Field: "opacity", Value: s.Opacity}
	}
	return nil
}

// Validate checks the style's value ranges.
func (s PointStyle) Validate() error {
	if s.Size < 0 {
		return &StyleRangeError{Field: "size", Value: s.Size}
	}
	if s.BorderWidth < 0 {
		return &StyleRangeError{Field: "borderWidth", Value: s.BorderWidth}
	}
	return nil
}

// FilterResult is the set of identifier values currently matching a search.
// A nil result means "no active filter" (show everything); this is distinct
// from an empty non-nil set, which never occurs for an empty query.
type FilterResult map[string]struct{}

// Contains reports whether the identifier is in the result set.
func (f FilterResult) Contains(id string) bool {
	_, ok := f[id]
	return ok
}

// IDs returns the identifiers in the result, sorted for determinism.
func (f FilterResult) IDs() []string {
	if f == nil {
		return nil
	}
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortSpec is a single sort column and direction ("asc" or "desc").
type SortSpec struct {
	Column string `json:"column"`
	Dir    string `json:"dir"`
}

// LinkedPoint is one Point feature joined to an identifier value, ready to
// merge into the table.
type LinkedPoint struct {
	ID         string
	Properties map[string]any
	Lat        float64
	Lng        float64
}

// Mode is the dashboard's linking state.
type Mode string

const (
	ModeNoData               Mode = "no_data"
	ModeTableLoaded          Mode = "table_loaded"
	ModeLinkedViaGeoJSON     Mode = "linked_via_geojson"
	ModeManualPlacementReady Mode = "manual_placement_ready"
)

// IDString normalizes an identifier value to its string form. Both sides of
// a link comparison go through this, so numeric 5 and string "5" match.
func IDString(v any) string {
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
		return coerceString(val)
	}
}
