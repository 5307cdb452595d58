package mapsync

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/pilemap/pilemap/internal/core"
)

// Source and layer names on the map surface.
const (
	baseSource    = "base"
	baseLayer     = "base-tiles"
	overlaySource = "overlay"
	overlayFill   = "overlay-fill"
	overlayLine   = "overlay-line"
	overlayCircle = "overlay-circle"
	pointSource   = "monopiles"
	pointLayer    = "monopile-points"
)

// Geometry-type base filters for the overlay sub-layers. These never change
// after layer creation; identifier filters are layered on top with "all".
var (
	fillGeomFilter   = []any{"==", "$type", "Polygon"}
	lineGeomFilter   = []any{"any", []any{"==", "$type", "Polygon"}, []any{"==", "$type", "LineString"}}
	circleGeomFilter = []any{"==", "$type", "Point"}
)

// ErrNoValidGeometry signals that an overlay load found nothing to fit the
// camera to. Non-fatal: the overlay is installed, the camera stays put.
var ErrNoValidGeometry = errors.New("no valid geometry for camera fit")

// ErrNotReady signals that a mutation arrived before the widget reported
// readiness. Non-fatal: the operation is buffered and replayed on ready.
var ErrNotReady = errors.New("map widget not ready")

// Placement is a manual coordinate assignment emitted by a map click.
type Placement struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Controller owns all mutation of the map widget. Camera policy: only
// LoadOverlay and LoadPoints ever re-fit the camera; base style swaps,
// restyles, and identifier filters never do.
type Controller struct {
	mu sync.Mutex

	provider  Provider
	baseStyle string

	hasOverlay bool
	hasPoints  bool
	targetID   string

	overlayStyle core.OverlayStyle
	pointStyle   core.PointStyle

	pending []func() error
}

// NewController creates a controller over the provider and queues the
// initial base style. Unknown style ids fall back to the first catalog
// entry.
func NewController(provider Provider, baseStyleID string) *Controller {
	c := &Controller{
		provider:     provider,
		overlayStyle: core.DefaultOverlayStyle(),
		pointStyle:   core.DefaultPointStyle(),
	}
	if _, ok := LookupBaseStyle(baseStyleID); !ok {
		baseStyleID = baseCatalog[0].ID
	}
	if err := c.SetBaseStyle(baseStyleID); err != nil && !errors.Is(err, ErrNotReady) {
		slog.Warn("initial base style", "error", err)
	}
	return c
}

// run executes the mutation now, or buffers it until NotifyReady when the
// widget has not finished loading. Buffered operations report ErrNotReady
// so callers can surface the non-fatal condition.
func (c *Controller) run(op func() error) error {
	if !c.provider.Loaded() {
		c.pending = append(c.pending, op)
		return ErrNotReady
	}
	return op()
}

// NotifyReady replays operations buffered before the widget was ready, in
// arrival order. Each operation fails independently: one bad restyle must
// not block a later filter.
func (c *Controller) NotifyReady() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, op := range pending {
		c.mu.Lock()
		if err := op(); err != nil {
			slog.Warn("buffered map operation failed", "error", err)
		}
		c.mu.Unlock()
	}
}

// SetBaseStyle swaps the base tile source and layer. Overlay layers and
// the camera are untouched. Unknown style ids are a no-op.
func (c *Controller) SetBaseStyle(styleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := LookupBaseStyle(styleID)
	if !ok {
		slog.Debug("ignoring unknown base style", "style", styleID)
		return nil
	}

	// Record the selection up front so state queries reflect intent even
	// while the mutation is buffered.
	c.baseStyle = styleID

	return c.run(func() error {
		if err := c.provider.RemoveLayer(baseLayer); err != nil {
			return fmt.Errorf("remove base layer: %w", err)
		}
		if err := c.provider.RemoveSource(baseSource); err != nil {
			return fmt.Errorf("remove base source: %w", err)
		}
		if err := c.provider.AddSource(baseSource, ts); err != nil {
			return fmt.Errorf("add base source: %w", err)
		}
		if err := c.provider.AddLayer(LayerSpec{ID: baseLayer, Type: "raster", Source: baseSource}); err != nil {
			return fmt.Errorf("add base layer: %w", err)
		}
		return nil
	})
}

// LoadOverlay replaces the GeoJSON overlay atomically (remove-then-add)
// and fits the camera to the bounding box of all supported geometry. When
// nothing extends the box, the camera stays put and ErrNoValidGeometry is
// returned as a warning; the overlay itself is still installed. Loading an
// overlay leaves manual placement mode.
func (c *Controller) LoadOverlay(fc *core.FeatureCollection, style core.OverlayStyle) error {
	if err := style.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run(func() error {
		c.removeOverlayLocked()

		if err := c.provider.AddSource(overlaySource, fc); err != nil {
			return fmt.Errorf("add overlay source: %w", err)
		}

		layers := []LayerSpec{
			{ID: overlayFill, Type: "fill", Source: overlaySource, Filter: fillGeomFilter,
				Paint: map[string]any{
					"fill-color":   style.Color,
					"fill-opacity": style.Opacity,
				}},
			{ID: overlayLine, Type: "line", Source: overlaySource, Filter: lineGeomFilter,
				Paint: map[string]any{
					"line-color":   style.Color,
					"line-width":   style.LineWidth,
					"line-opacity": style.Opacity,
				}},
			{ID: overlayCircle, Type: "circle", Source: overlaySource, Filter: circleGeomFilter,
				Paint: map[string]any{
					"circle-color":   style.Color,
					"circle-radius":  4.0,
					"circle-opacity": style.Opacity,
				}},
		}
		for _, layer := range layers {
			if err := c.provider.AddLayer(layer); err != nil {
				return fmt.Errorf("add layer %s: %w", layer.ID, err)
			}
		}

		c.hasOverlay = true
		c.targetID = ""
		c.overlayStyle = style

		bounds := CollectionBounds(fc)
		if !bounds.Valid() {
			return ErrNoValidGeometry
		}
		if err := c.provider.FitBounds(bounds); err != nil {
			return fmt.Errorf("fit overlay bounds: %w", err)
		}
		return nil
	})
}

// UnloadOverlay removes the GeoJSON overlay. The camera stays put.
func (c *Controller) UnloadOverlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run(func() error {
		c.removeOverlayLocked()
		return nil
	})
}

func (c *Controller) removeOverlayLocked() {
	// Remove is tolerated on absent layers so a fresh load works too.
	_ = c.provider.RemoveLayer(overlayFill)
	_ = c.provider.RemoveLayer(overlayLine)
	_ = c.provider.RemoveLayer(overlayCircle)
	_ = c.provider.RemoveSource(overlaySource)
	c.hasOverlay = false
}

// RestyleOverlay updates the overlay's paint properties in place. Source
// data, geometry filters, and camera are untouched.
func (c *Controller) RestyleOverlay(style core.OverlayStyle) error {
	if err := style.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run(func() error {
		if !c.hasOverlay {
			return nil
		}
		paints := []struct {
			layer, prop string
			value       any
		}{
			{overlayFill, "fill-color", style.Color},
			{overlayFill, "fill-opacity", style.Opacity},
			{overlayLine, "line-color", style.Color},
			{overlayLine, "line-width", style.LineWidth},
			{overlayLine, "line-opacity", style.Opacity},
			{overlayCircle, "circle-color", style.Color},
			{overlayCircle, "circle-opacity", style.Opacity},
		}
		for _, p := range paints {
			if err := c.provider.SetPaint(p.layer, p.prop, p.value); err != nil {
				return fmt.Errorf("set %s on %s: %w", p.prop, p.layer, err)
			}
		}
		c.overlayStyle = style
		return nil
	})
}

// LoadPoints replaces the monopile point layer atomically from records
// carrying a present, numeric position, then fits the camera to their
// bounding box. Only this call re-centers the point layer; restyles and
// filters never do.
func (c *Controller) LoadPoints(records []core.Record, idColumnKey string, style core.PointStyle) error {
	if err := style.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run(func() error {
		_ = c.provider.RemoveLayer(pointLayer)
		_ = c.provider.RemoveSource(pointSource)
		c.hasPoints = false

		features := make([]map[string]any, 0, len(records))
		var bounds Bounds
		for _, rec := range records {
			if !rec.HasPosition() {
				continue
			}
			lat, lng := *rec.Lat, *rec.Lng
			if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
				continue
			}

			props := make(map[string]any, len(rec.Values)+1)
			for k, v := range rec.Values {
				props[k] = v
			}
			props[idColumnKey] = core.IDString(rec.Values[idColumnKey])

			features = append(features, map[string]any{
				"type":       "Feature",
				"properties": props,
				"geometry": map[string]any{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
			})
			bounds.Extend(lng, lat)
		}

		collection := map[string]any{"type": "FeatureCollection", "features": features}
		if err := c.provider.AddSource(pointSource, collection); err != nil {
			return fmt.Errorf("add point source: %w", err)
		}
		if err := c.provider.AddLayer(LayerSpec{
			ID: pointLayer, Type: "circle", Source: pointSource,
			Paint: map[string]any{
				"circle-color":        style.Color,
				"circle-radius":       style.Size,
				"circle-stroke-color": style.BorderColor,
				"circle-stroke-width": style.BorderWidth,
			},
		}); err != nil {
			return fmt.Errorf("add point layer: %w", err)
		}

		c.hasPoints = true
		c.pointStyle = style

		if bounds.Valid() {
			if err := c.provider.FitBounds(bounds); err != nil {
				return fmt.Errorf("fit point bounds: %w", err)
			}
		}
		return nil
	})
}

// RestylePoints updates the point layer's paint properties in place.
func (c *Controller) RestylePoints(style core.PointStyle) error {
	if err := style.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run(func() error {
		if !c.hasPoints {
			return nil
		}
		paints := []struct {
			prop  string
			value any
		}{
			{"circle-color", style.Color},
			{"circle-radius", style.Size},
			{"circle-stroke-color", style.BorderColor},
			{"circle-stroke-width", style.BorderWidth},
		}
		for _, p := range paints {
			if err := c.provider.SetPaint(pointLayer, p.prop, p.value); err != nil {
				return fmt.Errorf("set %s: %w", p.prop, err)
			}
		}
		c.pointStyle = style
		return nil
	})
}

// FilterOverlayByIDs restricts overlay visibility to the identifier set.
// A nil set means no active filter and restores the geometry-type base
// filters; a non-nil empty set hides every feature. This never touches
// the camera.
func (c *Controller) FilterOverlayByIDs(idColumnKey string, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run(func() error {
		if !c.hasOverlay {
			return nil
		}

		filters := map[string][]any{
			overlayFill:   fillGeomFilter,
			overlayLine:   lineGeomFilter,
			overlayCircle: circleGeomFilter,
		}
		for layer, geomFilter := range filters {
			filter := geomFilter
			if ids != nil {
				filter = []any{"all", geomFilter, idFilter(idColumnKey, ids)}
			}
			if err := c.provider.SetFilter(layer, filter); err != nil {
				return fmt.Errorf("filter %s: %w", layer, err)
			}
		}
		return nil
	})
}

// FilterPointsByIDs restricts monopile point visibility to the identifier
// set. A nil set clears the filter; a non-nil empty set hides every point.
// This never touches the camera.
func (c *Controller) FilterPointsByIDs(idColumnKey string, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run(func() error {
		if !c.hasPoints {
			return nil
		}
		if ids == nil {
			return c.provider.SetFilter(pointLayer, nil)
		}
		return c.provider.SetFilter(pointLayer, idFilter(idColumnKey, ids))
	})
}

// idFilter builds the legacy "in" filter expression over identifiers.
// Overlay properties keep their raw GeoJSON types, so an identifier that
// parses as a number is listed in both string and numeric form; filters
// match a feature whose property is 5 as well as one whose property is
// "5", mirroring core.IDString normalization.
func idFilter(key string, ids []string) []any {
	expr := make([]any, 0, len(ids)+2)
	expr = append(expr, "in", key)
	for _, id := range ids {
		expr = append(expr, id)
		if n, err := strconv.ParseFloat(id, 64); err == nil {
			expr = append(expr, n)
		}
	}
	return expr
}

// SetTarget marks the identifier awaiting manual placement. Clicks only
// produce placements while a target is set and no overlay is loaded.
func (c *Controller) SetTarget(id string) {
	c.mu.Lock()
	c.targetID = id
	c.mu.Unlock()
}

// ClearTarget leaves manual placement mode.
func (c *Controller) ClearTarget() {
	c.mu.Lock()
	c.targetID = ""
	c.mu.Unlock()
}

// HandleClick turns a map click into a placement for the current target.
// In any other state the click is ignored and ok is false.
func (c *Controller) HandleClick(lat, lng float64) (Placement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasOverlay || c.targetID == "" {
		return Placement{}, false
	}
	return Placement{ID: c.targetID, Lat: lat, Lng: lng}, true
}

// BaseStyle returns the current base style id.
func (c *Controller) BaseStyle() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseStyle
}

// OverlayStyle returns the current overlay style.
func (c *Controller) OverlayStyle() core.OverlayStyle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlayStyle
}

// PointStyle returns the current point style.
func (c *Controller) PointStyle() core.PointStyle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pointStyle
}

// HasOverlay reports whether a GeoJSON overlay is loaded.
func (c *Controller) HasOverlay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasOverlay
}

// PendingOps returns how many operations are buffered awaiting readiness.
func (c *Controller) PendingOps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
