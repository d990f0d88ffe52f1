package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pagegraph/pagegraph/internal/core"
)

// Envelope is the JSON wrapper for API responses. Code 0 is success;
// negative codes classify the failure.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Envelope codes.
const (
	CodeOK            = 0
	CodeNotFound      = -1
	CodeNoContent     = -2
	CodeNotConfigured = -3
	CodeBinaryMissing = -4
	CodeStore         = -5
	CodeCycle         = -6
	CodeInvariant     = -7
)

// classify maps a service error to its envelope code and HTTP status.
// Wrapped errors are unwrapped, so a step-annotated store failure still
// classifies by its cause.
func classify(err error) (code int, status int) {
	var cycleErr *core.CycleError
	var invErr *core.InvariantError
	var storeErr *core.StoreError

	switch {
	case errors.Is(err, core.ErrNotConfigured):
		return CodeNotConfigured, http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNoContent):
		return CodeNoContent, http.StatusNotFound
	case errors.Is(err, core.ErrBinaryMissing):
		return CodeBinaryMissing, http.StatusNotFound
	case errors.Is(err, core.ErrNotFound):
		return CodeNotFound, http.StatusNotFound
	case errors.As(err, &cycleErr):
		return CodeCycle, http.StatusConflict
	case errors.As(err, &invErr):
		return CodeInvariant, http.StatusConflict
	case errors.As(err, &storeErr):
		return CodeStore, http.StatusBadGateway
	default:
		return CodeStore, http.StatusInternalServerError
	}
}

// writeData writes a success envelope carrying the given payload.
func writeData(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, Envelope{Code: CodeOK, Data: data})
}

// writeError writes the error envelope for a service failure.
func writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	writeEnvelope(w, status, Envelope{Code: code, Message: err.Error()})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}
