package core

// LinkPoints produces one linked point per Point-geometry feature, joined
// to the identifier found at the chosen property key. Features whose
// identifier property is missing get the id "unknown". Non-Point features
// are skipped; a Point with fewer than two coordinate components fails the
// whole link with InvalidGeometryError.
func LinkPoints(fc *FeatureCollection, idKey string) ([]LinkedPoint, error) {
	var points []LinkedPoint

	for i, f := range fc.Features {
		if f.Geometry.Type != "Point" {
			continue
		}

		coords, err := f.Geometry.PointCoords()
		if err != nil || len(coords) < 2 {
			return nil, &InvalidGeometryError{FeatureIndex: i, Components: len(coords)}
		}

		id := "unknown"
		if v, ok := f.Properties[idKey]; ok && v != nil {
			id = IDString(v)
		}

		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}

		points = append(points, LinkedPoint{
			ID:         id,
			Properties: props,
			Lat:        coords[1],
			Lng:        coords[0],
		})
	}

	return points, nil
}

// MergeCoordinates copies lat/lng from linked points onto every table
// record whose identifier value matches a point's identifier. Matched rows
// become new Record objects so existing references keep observing a
// consistent snapshot; unmatched rows keep their values (and any existing
// coordinates) untouched. Row order is preserved. Identifier values are
// normalized to string on both sides before comparison; when several
// points share an identifier, the last one wins.
func MergeCoordinates(table *TableData, points []LinkedPoint) *TableData {
	byID := make(map[string]LinkedPoint, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}

	merged := &TableData{
		Columns:     table.Columns,
		Records:     make([]Record, len(table.Records)),
		IDColumnKey: table.IDColumnKey,
	}

	for i, rec := range table.Records {
		id := IDString(rec.Values[table.IDColumnKey])
		p, ok := byID[id]
		if !ok {
			merged.Records[i] = rec
			continue
		}

		linked := rec.Clone()
		lat, lng := p.Lat, p.Lng
		linked.Lat = &lat
		linked.Lng = &lng
		merged.Records[i] = linked
	}

	return merged
}

// PlaceManually assigns coordinates to the single record matching the
// identifier (first match when duplicates exist), leaving every other
// record untouched. Like MergeCoordinates, the input table is never
// mutated; the result is a fresh table sharing unchanged records.
func PlaceManually(table *TableData, id string, lat, lng float64) (*TableData, error) {
	if table.IDColumnKey == "" {
		return nil, ErrNoIDColumn
	}

	for i, rec := range table.Records {
		if IDString(rec.Values[table.IDColumnKey]) != id {
			continue
		}

		placed := rec.Clone()
		placed.Lat = &lat
		placed.Lng = &lng

		next := &TableData{
			Columns:     table.Columns,
			Records:     make([]Record, len(table.Records)),
			IDColumnKey: table.IDColumnKey,
		}
		copy(next.Records, table.Records)
		next.Records[i] = placed
		return next, nil
	}

	return nil, &RecordNotFoundError{ID: id}
}
