package mapsync

import (
	"github.com/pilemap/pilemap/internal/core"
)

// extendable geometry types for bounding-box purposes. GeometryCollection
// and anything unrecognized is skipped, not an error.
var extendableGeometry = map[string]bool{
	"Point":           true,
	"MultiPoint":      true,
	"LineString":      true,
	"MultiLineString": true,
	"Polygon":         true,
	"MultiPolygon":    true,
}

// CollectionBounds computes the bounding box over all coordinates found in
// the collection's supported geometry types. The returned box is invalid
// when no coordinates were found.
func CollectionBounds(fc *core.FeatureCollection) Bounds {
	var b Bounds
	for _, f := range fc.Features {
		if !extendableGeometry[f.Geometry.Type] {
			continue
		}
		tree, err := f.Geometry.CoordinateTree()
		if err != nil {
			continue
		}
		extendFromTree(&b, tree)
	}
	return b
}

// extendFromTree walks a decoded coordinate tree of arbitrary nesting
// depth. A slice whose first element is a number is a position
// [lng, lat, ...]; anything else nests further.
func extendFromTree(b *Bounds, node any) {
	arr, ok := node.([]any)
	if !ok || len(arr) == 0 {
		return
	}

	if lng, ok := arr[0].(float64); ok {
		if len(arr) < 2 {
			return
		}
		lat, ok := arr[1].(float64)
		if !ok {
			return
		}
		b.Extend(lng, lat)
		return
	}

	for _, child := range arr {
		extendFromTree(b, child)
	}
}

// RecordBounds computes the bounding box over records that carry both
// coordinates.
func RecordBounds(records []core.Record) Bounds {
	var b Bounds
	for _, rec := range records {
		if rec.HasPosition() {
			b.Extend(*rec.Lng, *rec.Lat)
		}
	}
	return b
}
