package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pilemap/pilemap/internal/core"
	"github.com/pilemap/pilemap/internal/logging"
	"github.com/pilemap/pilemap/internal/mapsync"
)

// readUploadFile extracts the uploaded file from a multipart form, bounded
// by the configured size limit.
func (s *Server) readUploadFile(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return "", nil, fmt.Errorf("request body too large or invalid form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.New("no file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}

	return header.Filename, data, nil
}

// handleTableUpload parses a spreadsheet upload and replaces the session
// table wholesale. A parse failure leaves the previous table untouched. A
// stale completion (superseded by a newer upload) is dropped silently from
// the session's point of view and reported to the caller.
func (s *Server) handleTableUpload(w http.ResponseWriter, r *http.Request) {
	fileName, data, err := s.readUploadFile(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	logger := logging.WithFields(r.Context(), "file", fileName, "bytes", len(data))

	token := s.service.BeginTableUpload()

	table, err := core.ParseTable(fileName, data)
	if err != nil {
		logger.Warn("table parse failed", "error", err)
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.service.InstallTable(token, table); err != nil {
		logger.Info("table upload superseded")
		s.respondError(w, r, err, http.StatusConflict)
		return
	}

	// A fresh table has no coordinates yet; clear the point layer.
	if err := s.mapCtl.LoadPoints(table.Records, table.IDColumnKey, s.mapCtl.PointStyle()); err != nil && !errors.Is(err, mapsync.ErrNotReady) {
		logger.Warn("point layer refresh failed", "error", err)
	}
	s.mapCtl.ClearTarget()

	logger.Info("table loaded", "rows", len(table.Records), "columns", len(table.Columns))
	s.notifier.Notify(core.Notification{
		Severity: core.SeveritySuccess,
		Message:  fmt.Sprintf("Loaded %d rows from %s", len(table.Records), fileName),
	})

	writeJSON(w, map[string]any{
		"columns": table.Columns,
		"rows":    len(table.Records),
		"mode":    s.service.Mode(),
	})
}

// handleGeoJSONUpload parses a GeoJSON upload, installs the collection,
// and loads the map overlay. Identifier candidates come from the first
// feature's property keys.
func (s *Server) handleGeoJSONUpload(w http.ResponseWriter, r *http.Request) {
	fileName, data, err := s.readUploadFile(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	logger := logging.WithFields(r.Context(), "file", fileName, "bytes", len(data))

	token := s.service.BeginGeoUpload()

	fc, err := core.ParseGeoJSON(data)
	if err != nil {
		logger.Warn("geojson parse failed", "error", err)
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.service.InstallGeoJSON(token, fc); err != nil {
		logger.Info("geojson upload superseded")
		s.respondError(w, r, err, http.StatusConflict)
		return
	}

	err = s.mapCtl.LoadOverlay(fc, s.mapCtl.OverlayStyle())
	switch {
	case errors.Is(err, mapsync.ErrNoValidGeometry):
		logger.Warn("overlay has no usable coordinates")
		s.notifier.Notify(core.Notification{
			Severity: core.SeverityWarning,
			Message:  "The overlay contains no usable coordinates; map view unchanged",
		})
	case errors.Is(err, mapsync.ErrNotReady):
		logger.Info("overlay load buffered until map is ready")
	case err != nil:
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	logger.Info("geojson loaded", "features", len(fc.Features), "points", fc.PointCount())
	s.notifier.Notify(core.Notification{
		Severity: core.SeveritySuccess,
		Message:  fmt.Sprintf("Loaded %d features from %s", len(fc.Features), fileName),
	})

	writeJSON(w, map[string]any{
		"features":      len(fc.Features),
		"points":        fc.PointCount(),
		"candidates":    fc.CandidateColumns(),
		"uniformSchema": fc.HasUniformSchema(),
		"mode":          s.service.Mode(),
	})
}
