package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/axisfin/conductor/internal/credentials"
	"github.com/axisfin/conductor/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service layer's error vocabulary onto HTTP
// statuses. Errors outside that vocabulary are reported as a 500 with the
// given fallback message instead of leaking internals.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrUnknownAgentType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAgentBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoActiveAgents), errors.Is(err, service.ErrReasonerNotActive):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, credentials.ErrKeyNotFound), errors.Is(err, credentials.ErrKeyInvalid):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
