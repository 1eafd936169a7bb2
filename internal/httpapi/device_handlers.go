package httpapi

import (
	"errors"
	"net/http"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.HeartbeatRequest
	if err := decodeJSON(r, &req, maxDeviceBody, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.heartbeat.Record(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDeviceID) {
			writeError(w, http.StatusBadRequest, "invalid_device_id", err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("heartbeat error")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessRequest(w http.ResponseWriter, r *http.Request) {
	var req types.AccessRequest
	if err := decodeJSON(r, &req, maxDeviceBody, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.access.Decide(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDeviceID):
			writeError(w, http.StatusBadRequest, "invalid_device_id", err.Error())
		case errors.Is(err, service.ErrInvalidCardID):
			writeError(w, http.StatusBadRequest, "invalid_card_id", err.Error())
		default:
			s.logger.Error().Err(err).Msg("access_request error")
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	// Unknown devices are blocked from the access flow.
	if !resp.Known {
		writeJSON(w, http.StatusForbidden, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
