package api

import (
	"encoding/json"
	"net/http"

	"visa-workers/internal/common/errors"
)

type errorBody struct {
	Error     *errors.StandardError `json:"error"`
	RequestID string                `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders err as a StandardError with the status its code maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	writeJSON(w, errors.HTTPStatus(stdErr.Code), errorBody{
		Error:     stdErr,
		RequestID: RequestIDFrom(r.Context()),
	})
}
