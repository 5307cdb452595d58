package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pilemap/pilemap/internal/core"
	"github.com/pilemap/pilemap/internal/logging"
	"github.com/pilemap/pilemap/internal/mapsync"
)

// handleIndex serves the dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// handleSession returns the session overview the dashboard polls: mode,
// table shape, GeoJSON presence, and the placement target.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":       s.service.Mode(),
		"hasGeoJson": s.service.HasGeoJSON(),
		"target":     s.service.Target(),
	}

	if table := s.service.Table(); table != nil {
		resp["columns"] = table.Columns
		resp["idColumnKey"] = table.IDColumnKey
		resp["rows"] = len(table.Records)
	}
	if fc := s.service.GeoJSON(); fc != nil {
		resp["geoCandidates"] = fc.CandidateColumns()
		resp["geoIdKey"] = s.service.GeoIDKey()
	}

	writeJSON(w, resp)
}

// handleNotifications returns notifications newer than the optional
// since parameter (unix milliseconds).
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}
	notifications := s.notifier.Recent(since)
	if notifications == nil {
		notifications = []core.Notification{}
	}
	writeJSON(w, notifications)
}

// handleMapState serves the declarative map state the browser widget
// renders: catalog, current styles, camera, and layer specs.
func (s *Server) handleMapState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"catalog":      mapsync.BaseStyles(),
		"baseStyle":    s.mapCtl.BaseStyle(),
		"overlayStyle": s.mapCtl.OverlayStyle(),
		"pointStyle":   s.mapCtl.PointStyle(),
		"camera":       s.provider.Camera(),
		"fitCount":     s.provider.FitCount(),
		"sources":      s.provider.Sources(),
		"layers":       s.provider.Layers(),
		"loaded":       s.provider.Loaded(),
		"pendingOps":   s.mapCtl.PendingOps(),
	})
}

// handleMapReady is the widget's readiness signal. Buffered mutations are
// flushed in arrival order.
func (s *Server) handleMapReady(w http.ResponseWriter, r *http.Request) {
	s.provider.SetLoaded(true)
	s.mapCtl.NotifyReady()
	logging.FromContext(r.Context()).Info("map widget ready")
	w.WriteHeader(http.StatusNoContent)
}

// handleBaseStyle swaps the base tile layer. Unknown ids are a no-op;
// camera and overlays are untouched either way.
func (s *Server) handleBaseStyle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StyleID string `json:"styleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.mapCtl.SetBaseStyle(req.StyleID); err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"baseStyle": s.mapCtl.BaseStyle()})
}

// handleOverlayStyle restyles the GeoJSON overlay in place.
func (s *Server) handleOverlayStyle(w http.ResponseWriter, r *http.Request) {
	var style core.OverlayStyle
	if err := json.NewDecoder(r.Body).Decode(&style); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.mapCtl.RestyleOverlay(style); err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{"overlayStyle": s.mapCtl.OverlayStyle()})
}

// handlePointStyle restyles the monopile point layer in place.
func (s *Server) handlePointStyle(w http.ResponseWriter, r *http.Request) {
	var style core.PointStyle
	if err := json.NewDecoder(r.Body).Decode(&style); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.mapCtl.RestylePoints(style); err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{"pointStyle": s.mapCtl.PointStyle()})
}

// handleMapFilter applies an identifier visibility filter to both the
// overlay and the point layer. A null ids value clears the filter; an
// empty array hides everything. The camera never moves.
func (s *Server) handleMapFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	idKey := ""
	if table := s.service.Table(); table != nil {
		idKey = table.IDColumnKey
	}

	if err := s.mapCtl.FilterPointsByIDs(idKey, req.IDs); err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if err := s.mapCtl.FilterOverlayByIDs(s.service.GeoIDKey(), req.IDs); err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"filtered": req.IDs != nil, "ids": req.IDs})
}

// handleMapClick routes a widget click through the controller's placement
// gate. Outside manual placement mode the click is ignored.
func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	placement, ok := s.mapCtl.HandleClick(req.Lat, req.Lng)
	if !ok {
		writeJSON(w, map[string]any{"placed": false})
		return
	}

	if err := s.service.PlaceManually(placement.ID, placement.Lat, placement.Lng); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	s.mapCtl.ClearTarget()
	s.refreshPoints(r)
	s.notifier.Notify(core.Notification{
		Severity: core.SeveritySuccess,
		Message:  fmt.Sprintf("Placed %s at %.5f, %.5f", placement.ID, placement.Lat, placement.Lng),
	})

	writeJSON(w, map[string]any{"placed": true, "placement": placement, "mode": s.service.Mode()})
}
