package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/cardgest/internal/pipeline"
)

// handleSections lists the headings of the configured note and the one that
// matches the requested day.
func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	day, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.runner.Sections(r.Context(), day)
	if errors.Is(err, pipeline.ErrNoteNotFound) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
