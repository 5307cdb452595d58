package web

import (
	"fmt"
	"net/http"
	"time"
)

// handleExport serializes the full record set as CSV or xlsx. An active
// search filter never narrows the export.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	data, contentType, err := s.service.Export(format)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ext := "csv"
	if format == "xlsx" {
		ext = "xlsx"
	}
	filename := fmt.Sprintf("monopiles_%s.%s", time.Now().Format("20060102_150405"), ext)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(data)
}
