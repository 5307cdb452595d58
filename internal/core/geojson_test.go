package core

import (
	"errors"
	"testing"
)

const sampleCollection = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"pid": "A1", "zone": "north"},
			"geometry": {"type": "Point", "coordinates": [4.9, 52.3]}
		},
		{
			"type": "Feature",
			"properties": {"pid": "A2", "zone": "south"},
			"geometry": {"type": "Polygon", "coordinates": [[[4.0, 52.0], [5.0, 52.0], [5.0, 53.0], [4.0, 52.0]]]}
		}
	]
}`

// ----------------------------------------------------------------------------
// ParseGeoJSON Tests
// ----------------------------------------------------------------------------

func TestParseGeoJSON(t *testing.T) {
	fc, err := ParseGeoJSON([]byte(sampleCollection))
	if err != nil {
		t.Fatalf("ParseGeoJSON error: %v", err)
	}

	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}
	if fc.Features[0].Geometry.Type != "Point" {
		t.Errorf("feature 0 geometry = %q, want Point", fc.Features[0].Geometry.Type)
	}
	if fc.Features[0].Properties["pid"] != "A1" {
		t.Errorf("feature 0 pid = %v, want A1", fc.Features[0].Properties["pid"])
	}
}

func TestParseGeoJSON_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "<gml></gml>"},
		{name: "truncated", data: `{"type": "FeatureCollection", "features": [`},
		{name: "missing features", data: `{"type": "FeatureCollection"}`},
		{name: "json but wrong shape", data: `{"rows": [1, 2, 3]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGeoJSON([]byte(tt.data))
			var geoErr *MalformedGeoJSONError
			if !errors.As(err, &geoErr) {
				t.Fatalf("error = %v, want MalformedGeoJSONError", err)
			}
		})
	}
}

func TestParseGeoJSON_EmptyFeatures(t *testing.T) {
	fc, err := ParseGeoJSON([]byte(`{"type": "FeatureCollection", "features": []}`))
	if err != nil {
		t.Fatalf("empty features array should parse, got %v", err)
	}
	if len(fc.Features) != 0 {
		t.Errorf("features = %d, want 0", len(fc.Features))
	}
}

// ----------------------------------------------------------------------------
// Candidate / Schema Tests
// ----------------------------------------------------------------------------

func TestCandidateColumns(t *testing.T) {
	fc, err := ParseGeoJSON([]byte(sampleCollection))
	if err != nil {
		t.Fatalf("ParseGeoJSON error: %v", err)
	}

	cols := fc.CandidateColumns()
	if len(cols) != 2 {
		t.Fatalf("candidates = %d, want 2", len(cols))
	}
	// Sorted order for determinism.
	if cols[0].Key != "pid" || cols[1].Key != "zone" {
		t.Errorf("candidates = [%s %s], want [pid zone]", cols[0].Key, cols[1].Key)
	}
}

func TestCandidateColumns_FirstFeatureOnly(t *testing.T) {
	data := `{"type": "FeatureCollection", "features": [
		{"type": "Feature", "properties": {"pid": "A1"}, "geometry": {"type": "Point", "coordinates": [1, 2]}},
		{"type": "Feature", "properties": {"pid": "A2", "extra": true}, "geometry": {"type": "Point", "coordinates": [3, 4]}}
	]}`
	fc, err := ParseGeoJSON([]byte(data))
	if err != nil {
		t.Fatalf("ParseGeoJSON error: %v", err)
	}

	cols := fc.CandidateColumns()
	if len(cols) != 1 || cols[0].Key != "pid" {
		t.Errorf("candidates = %v, want first feature's keys only", cols)
	}
	if fc.HasUniformSchema() {
		t.Error("HasUniformSchema = true, want false for differing property sets")
	}
}

func TestCandidateColumns_Empty(t *testing.T) {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	if cols := fc.CandidateColumns(); cols != nil {
		t.Errorf("candidates = %v, want nil for empty collection", cols)
	}
}

func TestHasUniformSchema(t *testing.T) {
	fc, err := ParseGeoJSON([]byte(sampleCollection))
	if err != nil {
		t.Fatalf("ParseGeoJSON error: %v", err)
	}
	if !fc.HasUniformSchema() {
		t.Error("HasUniformSchema = false, want true for matching property sets")
	}
}

// ----------------------------------------------------------------------------
// Geometry Tests
// ----------------------------------------------------------------------------

func TestPointCount(t *testing.T) {
	fc, err := ParseGeoJSON([]byte(sampleCollection))
	if err != nil {
		t.Fatalf("ParseGeoJSON error: %v", err)
	}
	if n := fc.PointCount(); n != 1 {
		t.Errorf("PointCount = %d, want 1", n)
	}
}

func TestPointCoords(t *testing.T) {
	fc, err := ParseGeoJSON([]byte(sampleCollection))
	if err != nil {
		t.Fatalf("ParseGeoJSON error: %v", err)
	}

	coords, err := fc.Features[0].Geometry.PointCoords()
	if err != nil {
		t.Fatalf("PointCoords error: %v", err)
	}
	// EPSG:4326 lon/lat order.
	if coords[0] != 4.9 || coords[1] != 52.3 {
		t.Errorf("coords = %v, want [4.9 52.3]", coords)
	}
}
