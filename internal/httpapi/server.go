package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/service"
)

// APIPrefix is where the REST and realtime contract is mounted.
const APIPrefix = "/api"

type Dependencies struct {
	Logger zerolog.Logger
	Addr   string

	Auth      *service.AuthService
	Users     *service.UserService
	Cards     *service.CardService
	Devices   *service.DeviceRegistry
	Doors     *service.DoorService
	Access    *service.AccessService
	Heartbeat *service.HeartbeatService
	Hub       *Hub
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
	mux        *http.ServeMux

	auth      *service.AuthService
	users     *service.UserService
	cards     *service.CardService
	devices   *service.DeviceRegistry
	doors     *service.DoorService
	access    *service.AccessService
	heartbeat *service.HeartbeatService
	hub       *Hub
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:    d.Logger.With().Str("component", "http").Logger(),
		mux:       mux,
		auth:      d.Auth,
		users:     d.Users,
		cards:     d.Cards,
		devices:   d.Devices,
		doors:     d.Doors,
		access:    d.Access,
		heartbeat: d.Heartbeat,
		hub:       d.Hub,
	}
	if s.hub == nil {
		s.hub = NewHub(0, d.Logger)
	}

	// Door modules.
	mux.HandleFunc("POST /v1/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("POST /v1/access_request", s.handleAccessRequest)

	// Dashboard.
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/logout", s.authed(s.handleLogout))
	mux.HandleFunc("GET /auth/me", s.authed(s.handleMe))

	mux.HandleFunc("GET /users", s.authed(s.handleListUsers))
	mux.HandleFunc("POST /users", s.authed(s.handleCreateUser))
	mux.HandleFunc("GET /users/{id}", s.authed(s.handleGetUser))
	mux.HandleFunc("PUT /users/{id}", s.authed(s.handleUpdateUser))
	mux.HandleFunc("DELETE /users/{id}", s.authed(s.handleDeleteUser))
	mux.HandleFunc("PATCH /users/{id}/toggle", s.authed(s.handleToggleUser))

	mux.HandleFunc("GET /v1/cards", s.authed(s.handleListCards))
	mux.HandleFunc("GET /v1/cards/{id}", s.authed(s.handleGetCard))
	mux.HandleFunc("PUT /v1/cards/{id}", s.authed(s.handleUpdateCard))
	mux.HandleFunc("POST /v1/cards/{id}/assign", s.authed(s.handleAssignCard))
	mux.HandleFunc("POST /v1/cards/{id}/revoke", s.authed(s.handleRevokeCard))
	mux.HandleFunc("DELETE /v1/cards/{id}", s.authed(s.handleDeleteCard))

	mux.HandleFunc("GET /v1/device/list", s.authed(s.handleListDevices))
	mux.HandleFunc("GET /v1/device/{id}", s.authed(s.handleGetDevice))
	mux.HandleFunc("PUT /v1/device/{id}/config", s.authed(s.handleDeviceConfig))

	mux.HandleFunc("GET /doors", s.authed(s.handleListDoors))
	mux.HandleFunc("GET /doors/{id}", s.authed(s.handleGetDoor))
	mux.HandleFunc("POST /doors/{id}/command", s.authed(s.handleDoorCommand))

	mux.HandleFunc("GET /access/logs", s.authed(s.handleAccessLogs))
	mux.HandleFunc("GET /access/stats", s.authed(s.handleAccessStats))
	mux.HandleFunc("GET /access/recent", s.authed(s.handleRecentAccess))

	mux.Handle("GET /realtime/events", s.authed(s.hub.ServeHTTP))

	root := http.NewServeMux()
	root.Handle(APIPrefix+"/", http.StripPrefix(APIPrefix, mux))

	handler := loggingMiddleware(s.logger, root)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown ends open realtime streams first; they would otherwise hold
// the graceful shutdown until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return requireAuth(s.auth, h)
}
