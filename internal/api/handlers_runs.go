package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/cardgest/internal/pipeline"
)

// handleRun runs the pipeline synchronously and returns the run snapshot.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	day, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	dryRun := false
	if v := r.URL.Query().Get("dry_run"); v != "" {
		if dryRun, err = strconv.ParseBool(v); err != nil {
			jsonError(w, "dry_run must be a boolean", http.StatusBadRequest)
			return
		}
	}

	report, err := s.runner.Run(r.Context(), pipeline.RunOptions{Date: day, DryRun: dryRun})
	if errors.Is(err, pipeline.ErrRunInProgress) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}

	code := http.StatusOK
	switch {
	case err == nil, errors.Is(err, pipeline.ErrContentTooShort):
	case errors.Is(err, pipeline.ErrNoteNotFound), errors.Is(err, pipeline.ErrSectionNotFound):
		code = http.StatusNotFound
	default:
		code = http.StatusBadGateway
	}

	run := s.runner.GetRun(report.RunID)
	if run == nil {
		writeJSON(w, code, report)
		return
	}
	writeJSON(w, code, run.Snapshot())
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	run := s.runner.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run.Snapshot())
}

// parseDate reads a YYYY-MM-DD day in local time. Empty means today.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return day, nil
}
