package core

import (
	"encoding/json"
	"sort"
)

// FeatureCollection is a parsed GeoJSON document. It is immutable once
// parsed and never written back to disk.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON feature with geometry and properties.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// Geometry holds the geometry type and its raw coordinates. Coordinate
// nesting depth varies per type, so they stay raw until a consumer decodes
// them for its own purpose (point linking, bounding boxes).
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// PointCoords decodes the coordinates of a Point geometry. EPSG:4326
// lon/lat order: index 0 is longitude, index 1 latitude.
func (g Geometry) PointCoords() ([]float64, error) {
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, err
	}
	return coords, nil
}

// CoordinateTree decodes the coordinates into their nested form, whatever
// the nesting depth. Used for bounding-box computation.
func (g Geometry) CoordinateTree() (any, error) {
	var tree any
	if err := json.Unmarshal(g.Coordinates, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// ParseGeoJSON parses a single FeatureCollection document. Anything that
// fails to decode, or decodes without a features array, is rejected with
// MalformedGeoJSONError. Beyond that the GeoJSON grammar is not validated.
func ParseGeoJSON(data []byte) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, &MalformedGeoJSONError{Reason: "parse failure", Err: err}
	}
	if fc.Features == nil {
		return nil, &MalformedGeoJSONError{Reason: "missing features array"}
	}
	return &fc, nil
}

// CandidateColumns extracts identifier column candidates from the property
// keys of the first feature only, sorted for deterministic ordering. When
// features have heterogeneous property schemas, only the first feature's
// keys are offered; HasUniformSchema lets callers surface that.
func (fc *FeatureCollection) CandidateColumns() []Column {
	if len(fc.Features) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fc.Features[0].Properties))
	for k := range fc.Features[0].Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := make([]Column, len(keys))
	for i, k := range keys {
		columns[i] = Column{Key: k, Label: k}
	}
	return columns
}

// HasUniformSchema reports whether every feature carries exactly the first
// feature's property keys. A false result is a warning condition, not an
// error: candidate extraction stays best-effort on the first feature.
func (fc *FeatureCollection) HasUniformSchema() bool {
	if len(fc.Features) < 2 {
		return true
	}

	first := fc.Features[0].Properties
	for _, f := range fc.Features[1:] {
		if len(f.Properties) != len(first) {
			return false
		}
		for k := range first {
			if _, ok := f.Properties[k]; !ok {
				return false
			}
		}
	}
	return true
}

// PointCount returns the number of Point-geometry features, the only kind
// that carries identifier-linkable data.
func (fc *FeatureCollection) PointCount() int {
	n := 0
	for _, f := range fc.Features {
		if f.Geometry.Type == "Point" {
			n++
		}
	}
	return n
}
