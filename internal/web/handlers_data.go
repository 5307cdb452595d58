package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pilemap/pilemap/internal/core"
	"github.com/pilemap/pilemap/internal/logging"
	"github.com/pilemap/pilemap/internal/mapsync"
)

// refreshPoints pushes the current table's positioned records to the map.
// ErrNotReady is expected before the widget loads and is not a failure.
func (s *Server) refreshPoints(r *http.Request) {
	table := s.service.Table()
	if table == nil {
		return
	}
	err := s.mapCtl.LoadPoints(table.Records, table.IDColumnKey, s.mapCtl.PointStyle())
	if err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		logging.FromContext(r.Context()).Warn("point layer refresh failed", "error", err)
	}
}

// handleSetIDColumn selects the table's identifier column. When a GeoJSON
// identifier property was already chosen, linking happens immediately.
func (s *Server) handleSetIDColumn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.service.SetIDColumn(req.Key); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	s.refreshPoints(r)
	writeJSON(w, map[string]any{"idColumnKey": req.Key, "mode": s.service.Mode()})
}

// handleSetGeoIDColumn selects the GeoJSON identifier property and links
// matching Point features into the table.
func (s *Server) handleSetGeoIDColumn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	linked, err := s.service.SetGeoIDKey(req.Key)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	s.refreshPoints(r)
	s.notifier.Notify(core.Notification{
		Severity: core.SeveritySuccess,
		Message:  fmt.Sprintf("Linked %d records to GeoJSON points", linked),
	})
	writeJSON(w, map[string]any{"linked": linked, "mode": s.service.Mode()})
}

// handleRecords returns the table rows with search and sort applied, and
// keeps the map's visibility filters in sync with the same identifier set.
// The filter never moves the camera.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	sortSpec := core.SortSpec{
		Column: r.URL.Query().Get("sort"),
		Dir:    r.URL.Query().Get("dir"),
	}

	records, result, err := s.service.Records(query, sortSpec)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	table := s.service.Table()
	ids := result.IDs()
	logger := logging.FromContext(r.Context())
	if err := s.mapCtl.FilterPointsByIDs(table.IDColumnKey, ids); err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		logger.Warn("point filter failed", "error", err)
	}
	if err := s.mapCtl.FilterOverlayByIDs(s.service.GeoIDKey(), ids); err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		logger.Warn("overlay filter failed", "error", err)
	}

	writeJSON(w, map[string]any{
		"columns":     table.Columns,
		"idColumnKey": table.IDColumnKey,
		"records":     records,
		"matches":     ids,
		"total":       len(table.Records),
	})
}

// handleSelectTarget marks a record as the manual placement target. Only
// meaningful while no GeoJSON overlay is loaded.
func (s *Server) handleSelectTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.service.SelectTarget(req.ID); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if s.service.HasGeoJSON() {
		// Selection is allowed, but clicks stay inert while an overlay is
		// loaded; the controller gate mirrors that.
		s.mapCtl.ClearTarget()
	} else {
		s.mapCtl.SetTarget(req.ID)
	}

	writeJSON(w, map[string]any{"target": req.ID, "mode": s.service.Mode()})
}

// handlePlacement assigns coordinates to one record directly (the REST
// counterpart of a map click in manual placement mode).
func (s *Server) handlePlacement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.service.PlaceManually(id, req.Lat, req.Lng); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	s.mapCtl.ClearTarget()
	s.refreshPoints(r)
	s.notifier.Notify(core.Notification{
		Severity: core.SeveritySuccess,
		Message:  fmt.Sprintf("Placed %s at %.5f, %.5f", id, req.Lat, req.Lng),
	})

	writeJSON(w, map[string]any{"id": id, "lat": req.Lat, "lng": req.Lng, "mode": s.service.Mode()})
}
