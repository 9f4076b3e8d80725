package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/stub"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// writeRepositoryError maps repository errors to HTTP statuses. Unknown
// errors are reported without their details; internals stay in the log.
func (s *Server) writeRepositoryError(w http.ResponseWriter, err error) {
	var verr *stub.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
		return
	}

	var conflict *engine.ConflictError
	if errors.As(err, &conflict) {
		writeError(w, http.StatusConflict, "conflict", conflict.Error())
		return
	}

	var notFound *engine.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, "not_found", notFound.Error())
		return
	}

	s.log.Error("admin operation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
