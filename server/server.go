package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/federation"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/tenants"
)

// Deps are the collaborators the HTTP layer drives.
type Deps struct {
	Auth       *auth.Service
	Sessions   *sessions.Manager
	Codec      *sessions.Codec
	Federation *federation.Providers // nil disables federated routes
	Tenants    tenants.Repo
	Metrics    http.Handler // nil disables /metrics
	Logger     *zerolog.Logger
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	auth       *auth.Service
	sessions   *sessions.Manager
	codec      *sessions.Codec
	federation *federation.Providers
	tenants    tenants.Repo
	metrics    http.Handler
	limiter    *ipLimiter
	logger     zerolog.Logger
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Auth == nil || deps.Sessions == nil || deps.Codec == nil || deps.Tenants == nil {
		return nil, errors.New("[server.New] auth service, session manager, codec and tenants repo are required")
	}

	s := &Server{
		env:        cfg.GetEnv(),
		mux:        http.NewServeMux(),
		config:     cfg,
		auth:       deps.Auth,
		sessions:   deps.Sessions,
		codec:      deps.Codec,
		federation: deps.Federation,
		tenants:    deps.Tenants,
		metrics:    deps.Metrics,
		limiter:    newIPLimiter(cfg.GetLoginRatePerSecond(), cfg.GetLoginBurst()),
		logger:     log.Logger,
	}
	if deps.Logger != nil {
		s.logger = *deps.Logger
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != config.DevelopmentEnvVal {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	s.logger.Debug().Str("method", method).Str("path", path).Msg("route registered")
}

func (s *Server) loadTenant(ctx context.Context, id string) (*tenants.Tenant, error) {
	return s.tenants.Get(ctx, id)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
