// Package mapsync keeps the map widget's layers consistent with the
// current data, style settings, and active filter. It owns three logical
// groups on one map surface: the base tile layer, the GeoJSON overlay
// (fill/line/circle sub-layers), and the linked monopile point layer.
//
// The package depends only on the Provider contract, never on a specific
// rendering engine; the browser widget consumes the provider's declarative
// state.
package mapsync

// Camera is the map's view state.
type Camera struct {
	Lng  float64 `json:"lng"`
	Lat  float64 `json:"lat"`
	Zoom float64 `json:"zoom"`
}

// Bounds is a geographic bounding box in EPSG:4326.
type Bounds struct {
	MinLng float64 `json:"minLng"`
	MinLat float64 `json:"minLat"`
	MaxLng float64 `json:"maxLng"`
	MaxLat float64 `json:"maxLat"`

	valid bool
}

// Extend grows the box to include the position.
func (b *Bounds) Extend(lng, lat float64) {
	if !b.valid {
		b.MinLng, b.MaxLng = lng, lng
		b.MinLat, b.MaxLat = lat, lat
		b.valid = true
		return
	}
	if lng < b.MinLng {
		b.MinLng = lng
	}
	if lng > b.MaxLng {
		b.MaxLng = lng
	}
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
}

// Valid reports whether the box has been extended at least once.
func (b Bounds) Valid() bool { return b.valid }

// Center returns the box midpoint.
func (b Bounds) Center() (lng, lat float64) {
	return (b.MinLng + b.MaxLng) / 2, (b.MinLat + b.MaxLat) / 2
}

// LayerSpec describes one named layer bound to a named source.
type LayerSpec struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"` // fill | line | circle | raster
	Source string         `json:"source"`
	Filter []any          `json:"filter,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
}

// Provider is the map widget contract: named sources and layers, a
// declarative filter expression per layer, paint properties per layer, a
// bounding-box fit, and a readiness signal. The controller only ever talks
// to the widget through this interface, so tests can substitute a fake.
type Provider interface {
	// Loaded reports whether the widget finished initial style loading.
	// Mutations issued before that point must not reach the widget.
	Loaded() bool

	AddSource(id string, data any) error
	RemoveSource(id string) error
	AddLayer(layer LayerSpec) error
	RemoveLayer(id string) error

	// SetFilter applies a declarative filter expression; nil clears it.
	SetFilter(layerID string, filter []any) error

	// SetPaint updates a single paint property in place.
	SetPaint(layerID, prop string, value any) error

	// FitBounds recenters the camera to the box.
	FitBounds(b Bounds) error

	Camera() Camera
}
