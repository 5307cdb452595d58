package mapsync

import (
	"errors"
	"testing"

	"github.com/pilemap/pilemap/internal/core"
)

func readyController(t *testing.T) (*Controller, *MemoryProvider) {
	t.Helper()
	provider := NewMemoryProvider(Camera{Lng: 3.5, Lat: 54.5, Zoom: 5})
	provider.SetLoaded(true)
	return NewController(provider, "osm"), provider
}

func overlayFixture(t *testing.T) *core.FeatureCollection {
	t.Helper()
	fc, err := core.ParseGeoJSON([]byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {"pid": "A1"},
			 "geometry": {"type": "Point", "coordinates": [4.0, 52.0]}},
			{"type": "Feature", "properties": {"pid": "A2"},
			 "geometry": {"type": "Polygon", "coordinates": [[[5.0, 53.0], [6.0, 53.0], [6.0, 54.0], [5.0, 53.0]]]}}
		]
	}`))
	if err != nil {
		t.Fatalf("fixture parse error: %v", err)
	}
	return fc
}

func positionedRecords() []core.Record {
	lat1, lng1 := 52.0, 4.0
	lat2, lng2 := 54.0, 6.0
	return []core.Record{
		{Values: map[string]any{"pid": "A1"}, Lat: &lat1, Lng: &lng1},
		{Values: map[string]any{"pid": "A2"}, Lat: &lat2, Lng: &lng2},
		{Values: map[string]any{"pid": "A3"}},
	}
}

// ----------------------------------------------------------------------------
// Readiness / Buffering Tests
// ----------------------------------------------------------------------------

func TestController_BuffersUntilReady(t *testing.T) {
	provider := NewMemoryProvider(Camera{Zoom: 5})
	ctl := NewController(provider, "osm")

	// The initial base style is queued, not applied.
	if _, ok := provider.Layer(baseLayer); ok {
		t.Fatal("base layer applied before widget readiness")
	}
	if ctl.PendingOps() != 1 {
		t.Fatalf("pending = %d, want the queued base style", ctl.PendingOps())
	}

	if err := ctl.LoadOverlay(overlayFixture(t), core.DefaultOverlayStyle()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("LoadOverlay error = %v, want ErrNotReady", err)
	}
	if ctl.PendingOps() != 2 {
		t.Fatalf("pending = %d, want 2", ctl.PendingOps())
	}

	provider.SetLoaded(true)
	ctl.NotifyReady()

	if ctl.PendingOps() != 0 {
		t.Errorf("pending = %d after flush, want 0", ctl.PendingOps())
	}
	if _, ok := provider.Layer(baseLayer); !ok {
		t.Error("base layer missing after flush")
	}
	if _, ok := provider.Layer(overlayFill); !ok {
		t.Error("overlay layers missing after flush")
	}
}

func TestController_FlushIsolatesFailures(t *testing.T) {
	provider := NewMemoryProvider(Camera{})
	ctl := NewController(provider, "osm")

	// A filter on a layer that does not exist yet fails during flush; the
	// operations queued after it must still run.
	ctl.hasPoints = true
	if err := ctl.FilterPointsByIDs("pid", []string{"A1"}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("filter error = %v, want ErrNotReady", err)
	}
	if err := ctl.LoadPoints(positionedRecords(), "pid", core.DefaultPointStyle()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("load error = %v, want ErrNotReady", err)
	}

	provider.SetLoaded(true)
	ctl.NotifyReady()

	if _, ok := provider.Layer(pointLayer); !ok {
		t.Error("point layer missing; a failed buffered op blocked later ones")
	}
}

// ----------------------------------------------------------------------------
// Base Style Tests
// ----------------------------------------------------------------------------

func TestSetBaseStyle(t *testing.T) {
	ctl, provider := readyController(t)

	if ctl.BaseStyle() != "osm" {
		t.Fatalf("BaseStyle = %q, want osm", ctl.BaseStyle())
	}

	if err := ctl.LoadOverlay(overlayFixture(t), core.DefaultOverlayStyle()); err != nil {
		t.Fatalf("LoadOverlay error: %v", err)
	}
	camera := provider.Camera()
	fits := provider.FitCount()

	if err := ctl.SetBaseStyle("satellite"); err != nil {
		t.Fatalf("SetBaseStyle error: %v", err)
	}

	if ctl.BaseStyle() != "satellite" {
		t.Errorf("BaseStyle = %q, want satellite", ctl.BaseStyle())
	}
	// A base swap never moves the camera or disturbs the overlay.
	if provider.Camera() != camera {
		t.Error("base style swap moved the camera")
	}
	if provider.FitCount() != fits {
		t.Error("base style swap re-fitted the camera")
	}
	if !ctl.HasOverlay() {
		t.Error("base style swap dropped the overlay")
	}
	if _, ok := provider.Layer(overlayFill); !ok {
		t.Error("overlay layer missing after base swap")
	}
}

func TestSetBaseStyle_UnknownID(t *testing.T) {
	ctl, provider := readyController(t)
	camera := provider.Camera()

	if err := ctl.SetBaseStyle("mars"); err != nil {
		t.Fatalf("unknown style error = %v, want nil no-op", err)
	}
	if ctl.BaseStyle() != "osm" {
		t.Errorf("BaseStyle = %q, unknown id must not stick", ctl.BaseStyle())
	}
	if provider.Camera() != camera {
		t.Error("unknown style moved the camera")
	}
}

// ----------------------------------------------------------------------------
// Overlay Tests
// ----------------------------------------------------------------------------

func TestLoadOverlay(t *testing.T) {
	ctl, provider := readyController(t)

	if err := ctl.LoadOverlay(overlayFixture(t), core.DefaultOverlayStyle()); err != nil {
		t.Fatalf("LoadOverlay error: %v", err)
	}

	for _, id := range []string{overlayFill, overlayLine, overlayCircle} {
		if _, ok := provider.Layer(id); !ok {
			t.Errorf("layer %s missing", id)
		}
	}
	if provider.FitCount() != 1 {
		t.Errorf("fits = %d, want exactly one camera fit on load", provider.FitCount())
	}
	// Bounding box spans the point (4,52) and polygon (5..6, 53..54).
	camera := provider.Camera()
	if camera.Lng != 5.0 || camera.Lat != 53.0 {
		t.Errorf("camera = %+v, want centered on (53, 5)", camera)
	}
}

func TestLoadOverlay_NoValidGeometry(t *testing.T) {
	ctl, provider := readyController(t)
	camera := provider.Camera()

	fc, err := core.ParseGeoJSON([]byte(`{"type": "FeatureCollection", "features": [
		{"type": "Feature", "properties": {}, "geometry": {"type": "GeometryCollection", "coordinates": null}}
	]}`))
	if err != nil {
		t.Fatalf("fixture parse error: %v", err)
	}

	if err := ctl.LoadOverlay(fc, core.DefaultOverlayStyle()); !errors.Is(err, ErrNoValidGeometry) {
		t.Fatalf("error = %v, want ErrNoValidGeometry", err)
	}

	// The overlay is still installed; only the camera fit is skipped.
	if !ctl.HasOverlay() {
		t.Error("overlay not installed")
	}
	if provider.Camera() != camera {
		t.Error("camera moved despite no valid geometry")
	}
}

func TestLoadOverlay_LeavesPlacementMode(t *testing.T) {
	ctl, _ := readyController(t)

	ctl.SetTarget("A1")
	if err := ctl.LoadOverlay(overlayFixture(t), core.DefaultOverlayStyle()); err != nil {
		t.Fatalf("LoadOverlay error: %v", err)
	}

	if _, ok := ctl.HandleClick(52, 4); ok {
		t.Error("click produced a placement after overlay load")
	}
}

func TestRestyleOverlay(t *testing.T) {
	ctl, provider := readyController(t)
	fc := overlayFixture(t)

	if err := ctl.LoadOverlay(fc, core.DefaultOverlayStyle()); err != nil {
		t.Fatalf("LoadOverlay error: %v", err)
	}
	sourceBefore, _ := provider.Source(overlaySource)
	fits := provider.FitCount()

	style := core.OverlayStyle{Color: "#ff0000", LineWidth: 3, Opacity: 0.5}
	if err := ctl.RestyleOverlay(style); err != nil {
		t.Fatalf("RestyleOverlay error: %v", err)
	}

	// Paint changes in place; source data and camera stay untouched.
	sourceAfter, _ := provider.Source(overlaySource)
	if sourceBefore != sourceAfter {
		t.Error("restyle replaced the source data")
	}
	if provider.FitCount() != fits {
		t.Error("restyle re-fitted the camera")
	}
	layer, _ := provider.Layer(overlayFill)
	if layer.Paint["fill-color"] != "#ff0000" {
		t.Errorf("fill-color = %v, want #ff0000", layer.Paint["fill-color"])
	}
	if layer.Filter == nil {
		t.Error("restyle dropped the geometry filter")
	}
	if ctl.OverlayStyle() != style {
		t.Errorf("OverlayStyle = %+v, want %+v", ctl.OverlayStyle(), style)
	}
}

func TestRestyleOverlay_InvalidStyle(t *testing.T) {
	ctl, _ := readyController(t)

	bad := core.DefaultOverlayStyle()
	bad.Opacity = 7

	var styleErr *core.StyleRangeError
	if err := ctl.RestyleOverlay(bad); !errors.As(err, &styleErr) {
		t.Fatalf("error = %v, want StyleRangeError", err)
	}
}

// ----------------------------------------------------------------------------
// Point Layer Tests
// ----------------------------------------------------------------------------

func TestLoadPoints(t *testing.T) {
	ctl, provider := readyController(t)

	if err := ctl.LoadPoints(positionedRecords(), "pid", core.DefaultPointStyle()); err != nil {
		t.Fatalf("LoadPoints error: %v", err)
	}

	if _, ok := provider.Layer(pointLayer); !ok {
		t.Fatal("point layer missing")
	}
	data, _ := provider.Source(pointSource)
	collection := data.(map[string]any)
	features := collection["features"].([]map[string]any)
	// A3 has no position and is skipped.
	if len(features) != 2 {
		t.Errorf("features = %d, want 2", len(features))
	}
	if provider.FitCount() != 1 {
		t.Errorf("fits = %d, want one camera fit", provider.FitCount())
	}
	camera := provider.Camera()
	if camera.Lng != 5.0 || camera.Lat != 53.0 {
		t.Errorf("camera = %+v, want centered on (53, 5)", camera)
	}
}

func TestLoadPoints_NoPositions(t *testing.T) {
	ctl, provider := readyController(t)
	camera := provider.Camera()

	records := []core.Record{{Values: map[string]any{"pid": "A1"}}}
	if err := ctl.LoadPoints(records, "pid", core.DefaultPointStyle()); err != nil {
		t.Fatalf("LoadPoints error: %v", err)
	}

	if provider.Camera() != camera {
		t.Error("camera moved with nothing to fit")
	}
	if _, ok := provider.Layer(pointLayer); !ok {
		t.Error("empty point layer should still exist")
	}
}

func TestRestylePoints(t *testing.T) {
	ctl, provider := readyController(t)

	if err := ctl.LoadPoints(positionedRecords(), "pid", core.DefaultPointStyle()); err != nil {
		t.Fatalf("LoadPoints error: %v", err)
	}
	sourceBefore, _ := provider.Source(pointSource)
	fits := provider.FitCount()

	style := core.PointStyle{Color: "#00ff00", Size: 8, BorderColor: "#000000", BorderWidth: 1}
	if err := ctl.RestylePoints(style); err != nil {
		t.Fatalf("RestylePoints error: %v", err)
	}

	sourceAfter, _ := provider.Source(pointSource)
	features := sourceAfter.(map[string]any)["features"].([]map[string]any)
	if len(features) != len(sourceBefore.(map[string]any)["features"].([]map[string]any)) {
		t.Error("restyle changed the source data")
	}
	if provider.FitCount() != fits {
		t.Error("restyle re-fitted the camera")
	}
	layer, _ := provider.Layer(pointLayer)
	if layer.Paint["circle-radius"] != 8.0 {
		t.Errorf("circle-radius = %v, want 8", layer.Paint["circle-radius"])
	}
}

// ----------------------------------------------------------------------------
// Filter Tests
// ----------------------------------------------------------------------------

func TestFilterPointsByIDs_NeverMovesCamera(t *testing.T) {
	ctl, provider := readyController(t)

	if err := ctl.LoadPoints(positionedRecords(), "pid", core.DefaultPointStyle()); err != nil {
		t.Fatalf("LoadPoints error: %v", err)
	}
	camera := provider.Camera()
	fits := provider.FitCount()

	for _, ids := range [][]string{
		{"A1"},
		{},
		{"A1", "A2"},
		nil,
	} {
		if err := ctl.FilterPointsByIDs("pid", ids); err != nil {
			t.Fatalf("FilterPointsByIDs(%v) error: %v", ids, err)
		}
		if provider.Camera() != camera {
			t.Fatalf("filter %v moved the camera", ids)
		}
		if provider.FitCount() != fits {
			t.Fatalf("filter %v re-fitted the camera", ids)
		}
	}
}

func TestFilterPointsByIDs_Expressions(t *testing.T) {
	ctl, provider := readyController(t)
	if err := ctl.LoadPoints(positionedRecords(), "pid", core.DefaultPointStyle()); err != nil {
		t.Fatalf("LoadPoints error: %v", err)
	}

	if err := ctl.FilterPointsByIDs("pid", []string{"A1", "A2"}); err != nil {
		t.Fatalf("filter error: %v", err)
	}
	layer, _ := provider.Layer(pointLayer)
	want := []any{"in", "pid", "A1", "A2"}
	if len(layer.Filter) != len(want) {
		t.Fatalf("filter = %v, want %v", layer.Filter, want)
	}
	for i := range want {
		if layer.Filter[i] != want[i] {
			t.Fatalf("filter = %v, want %v", layer.Filter, want)
		}
	}

	// An active filter with zero matches hides everything.
	if err := ctl.FilterPointsByIDs("pid", []string{}); err != nil {
		t.Fatalf("filter error: %v", err)
	}
	layer, _ = provider.Layer(pointLayer)
	if len(layer.Filter) != 2 {
		t.Errorf("empty match filter = %v, want [in pid]", layer.Filter)
	}

	// A nil set means the search is inactive: filter cleared.
	if err := ctl.FilterPointsByIDs("pid", nil); err != nil {
		t.Fatalf("filter error: %v", err)
	}
	layer, _ = provider.Layer(pointLayer)
	if layer.Filter != nil {
		t.Errorf("cleared filter = %v, want nil", layer.Filter)
	}
}

func TestFilterByIDs_NumericIdentifierProperty(t *testing.T) {
	ctl, provider := readyController(t)
	if err := ctl.LoadPoints(positionedRecords(), "pid", core.DefaultPointStyle()); err != nil {
		t.Fatalf("LoadPoints error: %v", err)
	}

	// Overlay source properties keep their raw GeoJSON types, so the
	// expression must match a feature with pid 5 as well as pid "5".
	if err := ctl.FilterPointsByIDs("pid", []string{"5", "A1"}); err != nil {
		t.Fatalf("filter error: %v", err)
	}

	layer, _ := provider.Layer(pointLayer)
	want := []any{"in", "pid", "5", 5.0, "A1"}
	if len(layer.Filter) != len(want) {
		t.Fatalf("filter = %v, want %v", layer.Filter, want)
	}
	for i := range want {
		if layer.Filter[i] != want[i] {
			t.Fatalf("filter = %v, want %v", layer.Filter, want)
		}
	}
}

func TestFilterOverlayByIDs(t *testing.T) {
	ctl, provider := readyController(t)
	if err := ctl.LoadOverlay(overlayFixture(t), core.DefaultOverlayStyle()); err != nil {
		t.Fatalf("LoadOverlay error: %v", err)
	}
	fits := provider.FitCount()

	if err := ctl.FilterOverlayByIDs("pid", []string{"A1"}); err != nil {
		t.Fatalf("filter error: %v", err)
	}

	layer, _ := provider.Layer(overlayFill)
	if len(layer.Filter) != 3 || layer.Filter[0] != "all" {
		t.Errorf("fill filter = %v, want [all geomFilter idFilter]", layer.Filter)
	}
	if provider.FitCount() != fits {
		t.Error("overlay filter re-fitted the camera")
	}

	// Clearing restores the pure geometry-type filter.
	if err := ctl.FilterOverlayByIDs("pid", nil); err != nil {
		t.Fatalf("filter error: %v", err)
	}
	layer, _ = provider.Layer(overlayFill)
	if len(layer.Filter) != 3 || layer.Filter[0] != "==" {
		t.Errorf("restored filter = %v, want geometry-type filter", layer.Filter)
	}
}

// ----------------------------------------------------------------------------
// Click / Placement Tests
// ----------------------------------------------------------------------------

func TestHandleClick(t *testing.T) {
	ctl, _ := readyController(t)

	if _, ok := ctl.HandleClick(52, 4); ok {
		t.Error("click without a target produced a placement")
	}

	ctl.SetTarget("A1")
	placement, ok := ctl.HandleClick(52.3, 4.9)
	if !ok {
		t.Fatal("click with target produced no placement")
	}
	if placement.ID != "A1" || placement.Lat != 52.3 || placement.Lng != 4.9 {
		t.Errorf("placement = %+v, want A1 at (52.3, 4.9)", placement)
	}

	ctl.ClearTarget()
	if _, ok := ctl.HandleClick(52, 4); ok {
		t.Error("click after ClearTarget produced a placement")
	}
}
