package http

import (
	"errors"
	"net/http"

	"github.com/quizsmith/quizsmith/internal/structure"
)

// writeError maps the coordinator's failure taxonomy onto HTTP statuses.
// Locked and the CannotRemove* messages are user-facing and passed through
// verbatim for the editing UI; Busy tells the client to retry.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, structure.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, structure.ErrLocked),
		errors.Is(err, structure.ErrCannotRemoveLastSlotInSection),
		errors.Is(err, structure.ErrCannotRemoveFirstSection):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, structure.ErrInvalidTargetPage),
		errors.Is(err, structure.ErrInvalidPage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, structure.ErrBusy):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
