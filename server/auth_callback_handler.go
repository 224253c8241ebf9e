package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/store"
)

// FederatedLoginHandler redirects to the identity provider of the tenant in
// the path.
func (s *Server) FederatedLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := s.loadTenant(r.Context(), r.PathValue("tenantID"))
		if err != nil {
			if store.IsNotFound(err) {
				writeJSONError(w, "not_found", "tenant not found", http.StatusNotFound)
				return
			}
			s.logger.Error().Err(err).Msg("federated login: tenant lookup failed")
			writeJSONError(w, "temporarily_unavailable", "try again later", http.StatusServiceUnavailable)
			return
		}

		authURL, err := s.federation.Begin(r.Context(), tenant, safeReturnURL(r.URL.Query().Get("return_to")))
		if err != nil {
			if apperrors.Is(err, apperrors.ErrFederationNotConfigured) {
				writeJSONError(w, "not_found", "federated login is not available", http.StatusNotFound)
				return
			}
			s.logger.Error().Err(err).Str("tenant_id", tenant.ID).Msg("federated login: provider unavailable")
			writeJSONError(w, "temporarily_unavailable", "identity provider unavailable", http.StatusBadGateway)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// FederatedCallbackHandler finishes a federated login. Both query and
// form_post responses are accepted.
func (s *Server) FederatedCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errorParam := r.FormValue("error"); errorParam != "" {
			s.logger.Warn().Str("error", errorParam).Str("description", r.FormValue("error_description")).Msg("identity provider returned an error")
			writeAuthFailure(w, http.StatusUnauthorized)
			return
		}

		assertion, flow, err := s.federation.Complete(r.Context(), s.loadTenant, r.FormValue("state"), r.FormValue("code"))
		if err != nil {
			s.logger.Warn().Err(err).Msg("federated callback rejected")
			writeAuthFailure(w, http.StatusUnauthorized)
			return
		}

		outcome := s.auth.AuthenticateFederated(r.Context(), assertion)
		if !outcome.IsAdmitted() {
			writeAuthFailure(w, http.StatusUnauthorized)
			return
		}

		if _, err := s.establish(w, r, outcome.Account); err != nil {
			s.logger.Error().Err(err).Str("account_id", outcome.Account.ID).Msg("failed to establish session")
			writeAuthFailure(w, http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, safeReturnURL(flow.ReturnURL), http.StatusSeeOther)
	}
}
