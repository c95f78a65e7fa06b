package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/dgallion1/cardgest/internal/cards"
)

const maxReplyBytes = 1 << 20

// handleParseCards parses a raw model reply sent as the request body.
func (s *Server) handleParseCards(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReplyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, "reply too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	pairs := cards.Parse(string(body))
	if pairs == nil {
		pairs = []cards.QAPair{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(pairs),
		"cards": pairs,
	})
}
