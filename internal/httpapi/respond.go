package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

const (
	// maxDeviceBody caps door module payloads; the largest (heartbeat) is
	// about 250 bytes of JSON.
	maxDeviceBody = 4096
	maxBody       = 64 << 10
)

// writeJSON writes v as-is. Door modules get unwrapped bodies.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps data in the {success, data} envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, status, types.Envelope{Success: true, Data: raw})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, types.Envelope{
		Success: false,
		Error:   &types.ErrorBody{Code: code, Message: message},
	})
}

// decodeJSON reads at most limit bytes of JSON into v. An empty body leaves
// v untouched.
func decodeJSON(r *http.Request, v any, limit int64, strict bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidCardID),
		errors.Is(err, service.ErrInvalidDeviceID),
		errors.Is(err, types.ErrInvalidDoorAction):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		logger.Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
