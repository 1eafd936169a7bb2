package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// ── Auth ─────────────────────────────────────────────────────────────────────

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	res, err := s.auth.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		writeServiceError(w, s.logger, "login", err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	a, err := s.auth.Register(r.Context(), c.Email, c.Password, c.DisplayName)
	if err != nil {
		writeServiceError(w, s.logger, "register", err)
		return
	}
	writeData(w, http.StatusCreated, a)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(bearerToken(r)); err != nil {
		writeServiceError(w, s.logger, "logout", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	a, err := s.auth.Me(r.Context(), claimsFrom(r.Context()))
	if err != nil {
		writeServiceError(w, s.logger, "me", err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, "list users", err)
		return
	}
	writeData(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, s.logger, "get user", err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in types.UserInput
	if err := decodeJSON(r, &in, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	u, err := s.users.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, s.logger, "create user", err)
		return
	}
	writeData(w, http.StatusCreated, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in types.UserInput
	if err := decodeJSON(r, &in, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	u, err := s.users.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, s.logger, "update user", err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, s.logger, "delete user", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, s.logger, "toggle user", err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// ── Cards ────────────────────────────────────────────────────────────────────

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.cards.List(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, "list cards", err)
		return
	}
	writeData(w, http.StatusOK, cards)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.cards.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, s.logger, "get card", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var u types.CardUpdate
	if err := decodeJSON(r, &u, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	c, err := s.cards.Update(r.Context(), r.PathValue("id"), u)
	if err != nil {
		writeServiceError(w, s.logger, "update card", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (s *Server) handleAssignCard(w http.ResponseWriter, r *http.Request) {
	var req types.AssignCardRequest
	if err := decodeJSON(r, &req, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	c, err := s.cards.Assign(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, s.logger, "assign card", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (s *Server) handleRevokeCard(w http.ResponseWriter, r *http.Request) {
	var req types.RevokeCardRequest
	if err := decodeJSON(r, &req, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	c, err := s.cards.Revoke(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeServiceError(w, s.logger, "revoke card", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.cards.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, s.logger, "delete card", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// ── Devices ──────────────────────────────────────────────────────────────────

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, "list devices", err)
		return
	}
	if devices == nil {
		devices = []types.Device{}
	}
	writeData(w, http.StatusOK, devices)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.devices.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, s.logger, "get device", err)
		return
	}
	writeData(w, http.StatusOK, d)
}

func (s *Server) handleDeviceConfig(w http.ResponseWriter, r *http.Request) {
	var cfg types.DeviceConfig
	if err := decodeJSON(r, &cfg, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	out, err := s.devices.UpdateConfig(r.Context(), r.PathValue("id"), cfg)
	if err != nil {
		writeServiceError(w, s.logger, "device config", err)
		return
	}
	writeData(w, http.StatusOK, out)
}

// ── Doors ────────────────────────────────────────────────────────────────────

func (s *Server) handleListDoors(w http.ResponseWriter, r *http.Request) {
	doors, err := s.doors.List(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, "list doors", err)
		return
	}
	writeData(w, http.StatusOK, doors)
}

func (s *Server) handleGetDoor(w http.ResponseWriter, r *http.Request) {
	d, err := s.doors.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, s.logger, "get door", err)
		return
	}
	writeData(w, http.StatusOK, d)
}

func (s *Server) handleDoorCommand(w http.ResponseWriter, r *http.Request) {
	var cmd types.DoorCommand
	if err := decodeJSON(r, &cmd, maxBody, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	res, err := s.doors.Command(r.Context(), r.PathValue("id"), cmd.Action)
	if err != nil {
		writeServiceError(w, s.logger, "door command", err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// ── Access ───────────────────────────────────────────────────────────────────

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleAccessLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.access.Logs(r.Context(), types.AccessLogQuery{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	})
	if err != nil {
		writeServiceError(w, s.logger, "access logs", err)
		return
	}
	writeData(w, http.StatusOK, logs)
}

func (s *Server) handleAccessStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.access.Stats(r.Context(), r.URL.Query().Get("period"), time.Now().UTC())
	if err != nil {
		writeServiceError(w, s.logger, "access stats", err)
		return
	}
	writeData(w, http.StatusOK, st)
}

func (s *Server) handleRecentAccess(w http.ResponseWriter, r *http.Request) {
	logs, err := s.access.Recent(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, s.logger, "recent access", err)
		return
	}
	writeData(w, http.StatusOK, logs)
}
