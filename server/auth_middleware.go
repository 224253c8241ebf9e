package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyPrincipal stores the authenticated account
	ContextKeyPrincipal ContextKey = "principal"
	// ContextKeyStrategy stores how the principal was authenticated
	ContextKeyStrategy ContextKey = "strategy"
)

// StrategySession marks principals restored from a session cookie.
const StrategySession auth.Strategy = "session"

// PrincipalFromContext returns the account placed by RequireSession or
// RequireBearer.
func PrincipalFromContext(ctx context.Context) (*users.User, bool) {
	u, ok := ctx.Value(ContextKeyPrincipal).(*users.User)
	return u, ok && u != nil
}

// StrategyFromContext returns how the principal in ctx was authenticated.
func StrategyFromContext(ctx context.Context) auth.Strategy {
	strategy, _ := ctx.Value(ContextKeyStrategy).(auth.Strategy)
	return strategy
}

func withPrincipal(r *http.Request, account *users.User, strategy auth.Strategy) *http.Request {
	ctx := context.WithValue(r.Context(), ContextKeyPrincipal, account)
	ctx = context.WithValue(ctx, ContextKeyStrategy, strategy)
	return r.WithContext(ctx)
}

// RequireSession restores the principal from the session cookie. The account
// is reloaded on every request so deactivation takes effect immediately.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				writeAuthFailure(w, http.StatusUnauthorized)
				return
			}

			ref, err := s.codec.Decode(cookie.Value)
			if err != nil {
				s.logger.Debug().Err(err).Msg("session cookie rejected")
				s.clearSessionCookie(w, r)
				writeAuthFailure(w, http.StatusUnauthorized)
				return
			}

			outcome := s.sessions.Restore(r.Context(), ref)
			switch {
			case outcome.IsAdmitted():
				next(w, withPrincipal(r, outcome.Account, StrategySession))
			case outcome.IsRejected():
				s.clearSessionCookie(w, r)
				writeAuthFailure(w, http.StatusUnauthorized)
			default:
				writeAuthFailure(w, http.StatusServiceUnavailable)
			}
		}
	}
}

// RequireBearer authenticates integration API callers. Nothing is cached
// between requests.
func (s *Server) RequireBearer() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				writeAuthFailure(w, http.StatusUnauthorized)
				return
			}

			outcome := s.auth.AuthenticateBearer(r.Context(), token)
			switch {
			case outcome.IsAdmitted():
				next(w, withPrincipal(r, outcome.Account, auth.StrategyBearer))
			case outcome.IsRejected():
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				writeAuthFailure(w, http.StatusUnauthorized)
			default:
				writeAuthFailure(w, http.StatusServiceUnavailable)
			}
		}
	}
}

// RequireSessionOrBearer accepts an Authorization header from integration
// callers and falls back to the session cookie for logged-in users.
func (s *Server) RequireSessionOrBearer() func(http.HandlerFunc) http.HandlerFunc {
	session, bearer := s.RequireSession(), s.RequireBearer()
	return func(next http.HandlerFunc) http.HandlerFunc {
		viaSession, viaBearer := session(next), bearer(next)
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				viaBearer(w, r)
				return
			}
			viaSession(w, r)
		}
	}
}

// RequireTenantAdmin allows only administrators of the tenant named in the path.
func (s *Server) RequireTenantAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeAuthFailure(w, http.StatusUnauthorized)
				return
			}
			if !principal.Admin || principal.TenantID != r.PathValue("tenantID") {
				writeJSONError(w, "forbidden", "forbidden", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// establish starts a session and returns the account as it is after
// activation.
func (s *Server) establish(w http.ResponseWriter, r *http.Request, account *users.User) (*users.User, error) {
	ref, established, err := s.sessions.Establish(r.Context(), account)
	if err != nil {
		return nil, err
	}
	if err := s.setSessionCookie(w, r, ref); err != nil {
		return nil, err
	}
	return established, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, ref sessions.Reference) error {
	token, expiresAt, err := s.codec.Encode(ref)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
		MaxAge:   int(s.codec.TTL().Seconds()),
	})
	return nil
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
