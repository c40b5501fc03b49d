// Package httpapi serves workspace documents over HTTP and provides a client
// that implements the store interfaces against that API.
//
// Endpoints:
//
//	GET  /api/workspace-state?locationId=&workspaceId=&userEmail=
//	POST /api/workspace-state  {locationId, workspaceId, userEmail, state}
//	GET  /api/staff?locationId=
//	GET  /health
//
// Every response is JSON. Failures carry {"ok": false, "error": "..."}.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/moesafa-mgf/genie-haus/internal/logger"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// Paths served by Server.
const (
	StatePath  = "/api/workspace-state"
	StaffPath  = "/api/staff"
	HealthPath = "/health"
)

// maxBodyBytes bounds a POSTed workspace document.
const maxBodyBytes = 16 << 20

// Server exposes a RemoteStore and StaffDirectory over HTTP.
type Server struct {
	store   types.RemoteStore
	staff   types.StaffDirectory
	logger  *zap.Logger
	origins []string
	router  *chi.Mux
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = logger.OrNop(l) }
}

// WithAllowedOrigins restricts CORS to the given origins. The default allows
// any origin, since the widget is embedded in third-party CRM pages.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// NewServer builds the router. staff may be nil, in which case /api/staff
// returns an empty directory.
func NewServer(store types.RemoteStore, staff types.StaffDirectory, opts ...ServerOption) *Server {
	s := &Server{
		store:   store,
		staff:   staff,
		logger:  zap.NewNop(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(RequestID)
	r.Use(Logging(s.logger))

	r.Get(StatePath, s.getState)
	r.Post(StatePath, s.postState)
	r.Get(StaffPath, s.listStaff)
	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		responseWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		responseWithError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		responseWithError(w, http.StatusNotFound, "Not found", "")
	})
	return r
}

// Handler returns the instrumented handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "genie-api")
}

// ServeHTTP serves without tracing instrumentation.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locationID, workspaceID := q.Get("locationId"), q.Get("workspaceId")
	if locationID == "" || workspaceID == "" {
		responseWithError(w, http.StatusBadRequest, "locationId and workspaceId query params are required", "")
		return
	}

	env, err := s.store.LoadState(r.Context(), locationID, workspaceID, q.Get("userEmail"))
	if err != nil {
		s.storeError(w, r, "GET "+StatePath, err)
		return
	}
	responseWithJSON(w, http.StatusOK, envelopeResponse(env))
}

func (s *Server) postState(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		responseWithError(w, http.StatusBadRequest, "Invalid JSON in request body", err.Error())
		return
	}
	if req.LocationID == "" || req.WorkspaceID == "" || req.State == nil {
		responseWithError(w, http.StatusBadRequest, "locationId, workspaceId, and state are required in body", "")
		return
	}

	env, err := s.store.SaveState(r.Context(), req.LocationID, req.WorkspaceID, req.UserEmail, req.State)
	if err != nil {
		s.storeError(w, r, "POST "+StatePath, err)
		return
	}
	responseWithJSON(w, http.StatusOK, envelopeResponse(env))
}

func (s *Server) listStaff(w http.ResponseWriter, r *http.Request) {
	locationID := r.URL.Query().Get("locationId")
	if locationID == "" {
		responseWithError(w, http.StatusBadRequest, "locationId query param is required", "")
		return
	}

	staff := []types.StaffMember{}
	if s.staff != nil {
		list, err := s.staff.ListStaff(r.Context(), locationID)
		if err != nil {
			s.storeError(w, r, "GET "+StaffPath, err)
			return
		}
		staff = append(staff, list...)
	}
	responseWithJSON(w, http.StatusOK, StaffResponse{
		OK:         true,
		LocationID: locationID,
		Count:      len(staff),
		Staff:      staff,
	})
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidTenant),
		errors.Is(err, types.ErrInvalidWorkspace),
		errors.Is(err, types.ErrMalformedState):
		responseWithError(w, http.StatusBadRequest, err.Error(), "")
	default:
		s.logger.Error("store error",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("op", op),
			zap.Error(err),
		)
		responseWithError(w, http.StatusInternalServerError, "DB error ("+op+")", err.Error())
	}
}
