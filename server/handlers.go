package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Strategy string `json:"strategy,omitempty"` // "directory" forces directory delegation
}

type principalResponse struct {
	Account  *users.User `json:"account"`
	Strategy string      `json:"strategy,omitempty"`
}

// LoginHandler authenticates an email/password pair and establishes a session.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if isJSONRequest(r) {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONError(w, "invalid_request", "invalid request body", http.StatusBadRequest)
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				writeJSONError(w, "invalid_request", "invalid form data", http.StatusBadRequest)
				return
			}
			req.Email = r.FormValue("email")
			req.Password = r.FormValue("password")
			req.Strategy = r.FormValue("strategy")
		}

		if req.Email == "" || req.Password == "" {
			writeJSONError(w, "invalid_request", "email and password are required", http.StatusBadRequest)
			return
		}

		var outcome auth.Outcome
		strategy := auth.StrategyLocal
		if req.Strategy == string(auth.StrategyDirectory) {
			strategy = auth.StrategyDirectory
			outcome = s.auth.AuthenticateDirectory(r.Context(), req.Email, req.Password)
		} else {
			outcome = s.auth.AuthenticateLocal(r.Context(), req.Email, req.Password)
		}

		if !outcome.IsAdmitted() {
			writeAuthFailure(w, http.StatusUnauthorized)
			return
		}

		account, err := s.establish(w, r, outcome.Account)
		if err != nil {
			s.logger.Error().Err(err).Str("account_id", outcome.Account.ID).Msg("failed to establish session")
			writeAuthFailure(w, http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, principalResponse{Account: account, Strategy: string(strategy)})
	}
}

// LogoutHandler drops the session cookie. References are stateless so nothing
// else is revoked.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.clearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

// PrincipalHandler returns the principal placed in the request context by
// RequireSession or RequireBearer.
func (s *Server) PrincipalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		writeJSON(w, http.StatusOK, principalResponse{Account: principal, Strategy: string(StrategyFromContext(r.Context()))})
	}
}
